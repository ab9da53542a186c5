package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// NumDays is the length of the challenge week.
const NumDays = 7

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS days (
		day           INTEGER PRIMARY KEY CHECK (day BETWEEN 1 AND 7),
		completed     INTEGER NOT NULL DEFAULT 0,
		completed_at  TEXT,
		updated_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS squares (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		day         INTEGER NOT NULL REFERENCES days(day),
		number      INTEGER NOT NULL CHECK (number BETWEEN 1 AND 100),
		position    INTEGER NOT NULL CHECK (position BETWEEN 0 AND 99),
		color       TEXT NOT NULL,
		source      TEXT NOT NULL DEFAULT 'manual',
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		UNIQUE(day, number),
		UNIQUE(day, position)
	);

	CREATE INDEX IF NOT EXISTS idx_squares_day ON squares(day);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO days (day) VALUES (1), (2), (3), (4), (5), (6), (7);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('dark_mode',         'true'),
		('display_mode',      'random'),
		('audio_sensitivity', '5'),
		('current_day',       '1'),
		('motivation',        '');
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) migrateV2() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS voice_events (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL,
		day         INTEGER NOT NULL REFERENCES days(day),
		transcript  TEXT NOT NULL,
		increments  INTEGER NOT NULL DEFAULT 0,
		source      TEXT NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_voice_events_created ON voice_events(created_at);
	`
	_, err := s.db.Exec(ddl)
	return err
}
