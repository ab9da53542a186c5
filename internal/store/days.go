package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

func (s *Store) GetDay(day int) (*Day, error) {
	d := &Day{}
	var completed int
	var completedAt sql.NullString
	var updatedAt string
	err := s.db.QueryRow(
		`SELECT day, completed, completed_at, updated_at FROM days WHERE day = ?`, day,
	).Scan(&d.Number, &completed, &completedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("get day %d: %w", day, err)
	}
	d.Completed = completed == 1
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		d.CompletedAt = &t
	}
	d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	squares, err := s.listSquares(day)
	if err != nil {
		return nil, err
	}
	d.Squares = squares
	return d, nil
}

// ListDays returns all seven days ordered by day number, squares included.
func (s *Store) ListDays() ([]Day, error) {
	rows, err := s.db.Query(`SELECT day, completed, completed_at, updated_at FROM days ORDER BY day`)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer rows.Close()

	var days []Day
	for rows.Next() {
		var d Day
		var completed int
		var completedAt sql.NullString
		var updatedAt string
		if err := rows.Scan(&d.Number, &completed, &completedAt, &updatedAt); err != nil {
			return nil, err
		}
		d.Completed = completed == 1
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			d.CompletedAt = &t
		}
		d.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		days = append(days, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Squares are loaded after the day cursor is closed: the pool has a single connection.
	rows.Close()
	for i := range days {
		squares, err := s.listSquares(days[i].Number)
		if err != nil {
			return nil, err
		}
		days[i].Squares = squares
	}
	return days, nil
}

func (s *Store) listSquares(day int) ([]Square, error) {
	rows, err := s.db.Query(
		`SELECT number, position, color, source, created_at FROM squares WHERE day = ? ORDER BY number`, day,
	)
	if err != nil {
		return nil, fmt.Errorf("list squares for day %d: %w", day, err)
	}
	defer rows.Close()

	var squares []Square
	for rows.Next() {
		var sq Square
		var source, createdAt string
		if err := rows.Scan(&sq.Number, &sq.Position, &sq.Color, &source, &createdAt); err != nil {
			return nil, err
		}
		sq.Source = Source(source)
		sq.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		squares = append(squares, sq)
	}
	return squares, rows.Err()
}

// AddSquare records one square and, when it is number 100, marks the day
// completed. Both writes happen in one transaction.
func (s *Store) AddSquare(day int, sq Square) (*Day, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	created := now
	if !sq.CreatedAt.IsZero() {
		created = sq.CreatedAt.UTC().Format(time.RFC3339)
	}
	if sq.Source == "" {
		sq.Source = SourceManual
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertSquare(tx, day, sq, created); err != nil {
		return nil, err
	}
	if sq.Number == 100 {
		_, err = tx.Exec(
			`UPDATE days SET completed = 1, completed_at = COALESCE(completed_at, ?), updated_at = ? WHERE day = ?`,
			now, now, day,
		)
	} else {
		_, err = tx.Exec(`UPDATE days SET updated_at = ? WHERE day = ?`, now, day)
	}
	if err != nil {
		return nil, fmt.Errorf("update day %d: %w", day, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit square: %w", err)
	}
	return s.GetDay(day)
}

func insertSquare(e execer, day int, sq Square, created string) error {
	_, err := e.Exec(
		`INSERT INTO squares (day, number, position, color, source, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		day, sq.Number, sq.Position, sq.Color, string(sq.Source), created,
	)
	if err != nil {
		return fmt.Errorf("insert square %d for day %d: %w", sq.Number, day, err)
	}
	return nil
}

// ResetDays clears every day record, the current day and the motivation
// text. Display settings are left alone.
func (s *Store) ResetDays() error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM voice_events`,
		`DELETE FROM squares`,
	}
	for _, q := range stmts {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	if _, err := tx.Exec(`UPDATE days SET completed = 0, completed_at = NULL, updated_at = ?`, now); err != nil {
		return fmt.Errorf("reset days: %w", err)
	}
	if err := setSetting(tx, keyCurrentDay, "1"); err != nil {
		return err
	}
	if err := setSetting(tx, keyMotivation, ""); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll overwrites all day records, the current day, motivation and
// settings in a single transaction. Callers validate days beforehand; a constraint failure
// rolls everything back.
func (s *Store) ReplaceAll(days []Day, currentDay int, motivation string, st Settings) error {
	now := time.Now().UTC().Format(time.RFC3339)
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM squares`); err != nil {
		return fmt.Errorf("clear squares: %w", err)
	}
	if _, err := tx.Exec(`UPDATE days SET completed = 0, completed_at = NULL, updated_at = ?`, now); err != nil {
		return fmt.Errorf("clear days: %w", err)
	}
	for _, d := range days {
		for _, sq := range d.Squares {
			created := now
			if !sq.CreatedAt.IsZero() {
				created = sq.CreatedAt.UTC().Format(time.RFC3339)
			}
			if sq.Source == "" {
				sq.Source = SourceImport
			}
			if err := insertSquare(tx, d.Number, sq, created); err != nil {
				return err
			}
		}
		if d.Completed {
			if _, err := tx.Exec(
				`UPDATE days SET completed = 1, completed_at = ?, updated_at = ? WHERE day = ?`, now, now, d.Number,
			); err != nil {
				return fmt.Errorf("mark day %d completed: %w", d.Number, err)
			}
		}
	}
	if err := setSetting(tx, keyCurrentDay, strconv.Itoa(currentDay)); err != nil {
		return err
	}
	if err := setSetting(tx, keyMotivation, motivation); err != nil {
		return err
	}
	if err := saveSettings(tx, st); err != nil {
		return err
	}
	return tx.Commit()
}
