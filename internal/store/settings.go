package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

const (
	keyDarkMode         = "dark_mode"
	keyDisplayMode      = "display_mode"
	keyAudioSensitivity = "audio_sensitivity"
	keyCurrentDay       = "current_day"
	keyMotivation       = "motivation"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	return setSetting(s.db, key, value)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func setSetting(e execer, key, value string) error {
	_, err := e.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// LoadSettings reads the typed settings, falling back to defaults for
// missing or unparsable values.
func (s *Store) LoadSettings() (Settings, error) {
	all, err := s.GetAllSettings()
	if err != nil {
		return Settings{}, err
	}
	out := DefaultSettings()
	for _, kv := range all {
		switch kv.Key {
		case keyDarkMode:
			if b, err := strconv.ParseBool(kv.Value); err == nil {
				out.DarkMode = b
			}
		case keyDisplayMode:
			switch m := DisplayMode(kv.Value); m {
			case DisplayRandom, DisplaySequential, DisplayBig:
				out.DisplayMode = m
			}
		case keyAudioSensitivity:
			if n, err := strconv.Atoi(kv.Value); err == nil && n >= 0 && n <= 10 {
				out.AudioSensitivity = n
			}
		}
	}
	return out, nil
}

func (s *Store) SaveSettings(st Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveSettings(tx, st); err != nil {
		return err
	}
	return tx.Commit()
}

func saveSettings(e execer, st Settings) error {
	if err := setSetting(e, keyDarkMode, strconv.FormatBool(st.DarkMode)); err != nil {
		return err
	}
	if err := setSetting(e, keyDisplayMode, string(st.DisplayMode)); err != nil {
		return err
	}
	return setSetting(e, keyAudioSensitivity, strconv.Itoa(st.AudioSensitivity))
}

// DefaultSettings mirrors the values seeded by the first migration.
func DefaultSettings() Settings {
	return Settings{
		DarkMode:         true,
		DisplayMode:      DisplayRandom,
		AudioSensitivity: 5,
	}
}

func (s *Store) CurrentDay() (int, error) {
	v, err := s.GetSetting(keyCurrentDay)
	if err != nil {
		return 1, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > NumDays {
		return 1, nil
	}
	return n, nil
}

func (s *Store) SetCurrentDay(day int) error {
	return s.SetSetting(keyCurrentDay, strconv.Itoa(day))
}

func (s *Store) Motivation() (string, error) {
	return s.GetSetting(keyMotivation)
}

func (s *Store) SetMotivation(text string) error {
	return s.SetSetting(keyMotivation, text)
}
