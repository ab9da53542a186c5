package store

import (
	"fmt"
	"time"
)

func (s *Store) AddVoiceEvent(e VoiceEvent) error {
	created := time.Now().UTC()
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO voice_events (id, session_id, day, transcript, increments, source, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Day, e.Transcript, e.Increments, e.Source, created.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert voice event: %w", err)
	}
	return nil
}

// ListVoiceEvents returns the newest events first.
func (s *Store) ListVoiceEvents(limit int) ([]VoiceEvent, error) {
	query := `SELECT id, session_id, day, transcript, increments, source, created_at FROM voice_events ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list voice events: %w", err)
	}
	defer rows.Close()

	var events []VoiceEvent
	for rows.Next() {
		var e VoiceEvent
		var createdAt string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Day, &e.Transcript, &e.Increments, &e.Source, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
