// Package voice turns speech into increments: it matches trigger phrases in
// transcripts, gates audio clips by level, talks to Whisper, and keeps an
// external recognizer running.
package voice

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// DefaultTriggers are the phrases that each request one increment.
var DefaultTriggers = []string{"plus one", "one more", "count", "done", "next", "yes", "tap"}

const (
	DefaultMaxPerTranscript = 5
	DefaultDedupeWindow     = 2 * time.Second
)

// Transcript is one recognizer result. Partial results are for display only.
type Transcript struct {
	Text  string
	Final bool
	At    time.Time
}

// ParseLine reads the recognizer line protocol: a leading "~" marks a partial
// result, anything else is final.
func ParseLine(line string, at time.Time) Transcript {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "~") {
		return Transcript{Text: strings.TrimSpace(line[1:]), At: at}
	}
	return Transcript{Text: line, Final: true, At: at}
}

type Matcher struct {
	MaxPerTranscript int
	DedupeWindow     time.Duration

	triggers [][]string // longest first
	last     string
	lastAt   time.Time
}

func NewMatcher(triggers []string) *Matcher {
	if len(triggers) == 0 {
		triggers = DefaultTriggers
	}
	m := &Matcher{
		MaxPerTranscript: DefaultMaxPerTranscript,
		DedupeWindow:     DefaultDedupeWindow,
	}
	for _, t := range triggers {
		if words := normalize(t); len(words) > 0 {
			m.triggers = append(m.triggers, words)
		}
	}
	sort.SliceStable(m.triggers, func(i, j int) bool {
		return len(m.triggers[i]) > len(m.triggers[j])
	})
	return m
}

// Count returns how many trigger phrases occur in text, capped at
// MaxPerTranscript. Matches do not overlap.
func (m *Matcher) Count(text string) int {
	words := normalize(text)
	n := 0
	for i := 0; i < len(words); {
		matched := 0
		for _, trig := range m.triggers {
			if hasPrefix(words[i:], trig) {
				matched = len(trig)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		n++
		i += matched
		if m.MaxPerTranscript > 0 && n >= m.MaxPerTranscript {
			break
		}
	}
	return n
}

// Process counts a transcript as the recognizer delivers it. Partial results
// never count, and a final result repeating the previous one within the
// dedupe window is dropped; recognizers re-emit their last result when they
// restart.
func (m *Matcher) Process(t Transcript) int {
	if !t.Final {
		return 0
	}
	key := strings.Join(normalize(t.Text), " ")
	if key == "" {
		return 0
	}
	if key == m.last && t.At.Sub(m.lastAt) < m.DedupeWindow {
		return 0
	}
	m.last, m.lastAt = key, t.At
	return m.Count(t.Text)
}

func normalize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasPrefix(words, prefix []string) bool {
	if len(prefix) > len(words) {
		return false
	}
	for i := range prefix {
		if words[i] != prefix[i] {
			return false
		}
	}
	return true
}
