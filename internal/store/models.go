package store

import "time"

// DisplayMode controls how squares are placed and how the board is drawn.
type DisplayMode string

const (
	DisplayRandom     DisplayMode = "random"
	DisplaySequential DisplayMode = "sequential"
	DisplayBig        DisplayMode = "big"
)

// Source records what triggered an increment.
type Source string

const (
	SourceManual Source = "manual"
	SourceVoice  Source = "voice"
	SourceCLI    Source = "cli"
	SourceImport Source = "import"
)

type Square struct {
	Number    int
	Position  int
	Color     string
	Source    Source
	CreatedAt time.Time
}

type Day struct {
	Number      int
	Completed   bool
	CompletedAt *time.Time
	UpdatedAt   time.Time
	Squares     []Square // ordered by Number
}

// Count is the highest square number recorded for the day.
func (d Day) Count() int {
	max := 0
	for _, sq := range d.Squares {
		if sq.Number > max {
			max = sq.Number
		}
	}
	return max
}

// LastActivity returns the creation time of the newest square, or nil.
func (d Day) LastActivity() *time.Time {
	var last *time.Time
	for i := range d.Squares {
		t := d.Squares[i].CreatedAt
		if last == nil || t.After(*last) {
			last = &t
		}
	}
	return last
}

type Settings struct {
	DarkMode         bool
	DisplayMode      DisplayMode
	AudioSensitivity int // 0..10
}

type Setting struct {
	Key   string
	Value string
}

type VoiceEvent struct {
	ID         string
	SessionID  string
	Day        int
	Transcript string
	Increments int
	Source     string // whisper, listener
	CreatedAt  time.Time
}
