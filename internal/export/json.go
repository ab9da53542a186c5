// Package export writes the challenge to CSV and JSON and reads the JSON
// blob back for import.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

type jsonBlob struct {
	Days       []jsonDay    `json:"days"`
	CurrentDay int          `json:"currentDay"`
	Motivation string       `json:"motivation"`
	Settings   jsonSettings `json:"settings"`
	ExportedAt string       `json:"exportedAt,omitempty"`
}

type jsonDay struct {
	Day            int          `json:"day"`
	Count          int          `json:"count"`
	ColoredSquares []jsonSquare `json:"coloredSquares"`
	Completed      bool         `json:"completed"`
}

type jsonSquare struct {
	Number    int    `json:"number"`
	Color     string `json:"color"`
	Position  int    `json:"position"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type jsonSettings struct {
	DarkMode         bool   `json:"darkMode"`
	DisplayMode      string `json:"displayMode"`
	AudioSensitivity int    `json:"audioSensitivity"`
}

// Marshal encodes snap in the persisted blob format. The API key is not
// part of a snapshot and never leaves the keyring.
func Marshal(snap challenge.Snapshot, exportedAt time.Time) ([]byte, error) {
	blob := jsonBlob{
		Days:       make([]jsonDay, 0, len(snap.Days)),
		CurrentDay: snap.CurrentDay,
		Motivation: snap.Motivation,
		Settings: jsonSettings{
			DarkMode:         snap.Settings.DarkMode,
			DisplayMode:      string(snap.Settings.DisplayMode),
			AudioSensitivity: snap.Settings.AudioSensitivity,
		},
		ExportedAt: exportedAt.UTC().Format(time.RFC3339),
	}
	for _, d := range snap.Days {
		jd := jsonDay{
			Day:            d.Number,
			Count:          d.Count(),
			ColoredSquares: make([]jsonSquare, 0, len(d.Squares)),
			Completed:      d.Completed,
		}
		for _, sq := range d.Squares {
			js := jsonSquare{
				Number:   sq.Number,
				Color:    sq.Color,
				Position: sq.Position,
			}
			if !sq.CreatedAt.IsZero() {
				js.CreatedAt = sq.CreatedAt.UTC().Format(time.RFC3339)
			}
			jd.ColoredSquares = append(jd.ColoredSquares, js)
		}
		blob.Days = append(blob.Days, jd)
	}

	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return data, nil
}

func ToJSON(snap challenge.Snapshot, path string) error {
	data, err := Marshal(snap, time.Now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

// Unmarshal decodes a blob into a snapshot. Missing settings fall back to
// the defaults and a missing current day means day 1. Squares without a
// createdAt get the import time when restored. The result still has
// to pass Tracker.Restore's validation.
func Unmarshal(data []byte) (challenge.Snapshot, error) {
	def := store.DefaultSettings()
	blob := jsonBlob{
		CurrentDay: 1,
		Settings: jsonSettings{
			DarkMode:         def.DarkMode,
			DisplayMode:      string(def.DisplayMode),
			AudioSensitivity: def.AudioSensitivity,
		},
	}
	if err := json.Unmarshal(data, &blob); err != nil {
		return challenge.Snapshot{}, fmt.Errorf("%w: %v", challenge.ErrInvalidSnapshot, err)
	}

	snap := challenge.Snapshot{
		CurrentDay: blob.CurrentDay,
		Motivation: blob.Motivation,
		Settings: store.Settings{
			DarkMode:         blob.Settings.DarkMode,
			DisplayMode:      store.DisplayMode(blob.Settings.DisplayMode),
			AudioSensitivity: blob.Settings.AudioSensitivity,
		},
	}
	if snap.CurrentDay == 0 {
		snap.CurrentDay = 1
	}
	for _, jd := range blob.Days {
		d := store.Day{Number: jd.Day, Completed: jd.Completed}
		for _, js := range jd.ColoredSquares {
			sq := store.Square{
				Number:   js.Number,
				Position: js.Position,
				Color:    js.Color,
				Source:   store.SourceImport,
			}
			if js.CreatedAt != "" {
				at, err := time.Parse(time.RFC3339, js.CreatedAt)
				if err != nil {
					return challenge.Snapshot{}, fmt.Errorf("%w: day %d square %d: %v", challenge.ErrInvalidSnapshot, jd.Day, js.Number, err)
				}
				sq.CreatedAt = at
			}
			d.Squares = append(d.Squares, sq)
		}
		sort.Slice(d.Squares, func(i, j int) bool { return d.Squares[i].Number < d.Squares[j].Number })
		if jd.Count != d.Count() {
			return challenge.Snapshot{}, challenge.InvariantError{
				Day:    jd.Day,
				Reason: fmt.Sprintf("count %d does not match %d squares", jd.Count, len(d.Squares)),
			}
		}
		snap.Days = append(snap.Days, d)
	}
	return snap, nil
}

func FromJSON(path string) (challenge.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return challenge.Snapshot{}, fmt.Errorf("read json file: %w", err)
	}
	return Unmarshal(data)
}
