package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

type State string

const (
	StateIdle         State = "idle"
	StateListening    State = "listening"
	StateRestarting   State = "restarting"
	StateTranscribing State = "transcribing"
	StateError        State = "error"
)

// Event sources recorded with each voice event.
const (
	SourceStream  = "stream"
	SourceWhisper = "whisper"
)

// Incrementer applies increments to the current day.
type Incrementer interface {
	CurrentDay() (int, error)
	IncrementN(ctx context.Context, day, n int, source store.Source) ([]challenge.Result, error)
}

// EventRecorder persists one voice event per final transcript.
type EventRecorder interface {
	AddVoiceEvent(e store.VoiceEvent) error
}

// Status is a copy of the session state for display.
type Status struct {
	ID          string
	State       State
	Reason      string
	Partial     string
	Final       string
	Increments  int
	Restarts    int
	LastHeardAt time.Time
}

// Outcome is what handling one transcript did.
type Outcome struct {
	Transcript Transcript
	Day        int
	Matches    int
	Applied    []challenge.Result
}

type Session struct {
	mu      sync.Mutex
	status  Status
	matcher *Matcher
	tracker Incrementer
	events  EventRecorder
	log     *log.Logger
}

func NewSession(tr Incrementer, ev EventRecorder, m *Matcher, logger *log.Logger) *Session {
	if m == nil {
		m = NewMatcher(nil)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Session{
		status:  Status{ID: uuid.NewString(), State: StateIdle},
		matcher: m,
		tracker: tr,
		events:  ev,
		log:     logger,
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetState records a transition. Entering restarting bumps the restart count.
func (s *Session) SetState(st State, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st == StateRestarting && s.status.State != StateRestarting {
		s.status.Restarts++
	}
	s.status.State = st
	s.status.Reason = reason
}

// Handle runs one transcript through the matcher and applies the matches to
// the current day. A full day is not an error.
func (s *Session) Handle(ctx context.Context, t Transcript, source string) (Outcome, error) {
	out := Outcome{Transcript: t}

	s.mu.Lock()
	if !t.Final {
		s.status.Partial = t.Text
		s.mu.Unlock()
		return out, nil
	}
	s.status.Partial = ""
	s.status.Final = t.Text
	s.status.LastHeardAt = t.At
	out.Matches = s.matcher.Process(t)
	id := s.status.ID
	s.mu.Unlock()

	day, err := s.tracker.CurrentDay()
	if err != nil {
		return out, fmt.Errorf("current day: %w", err)
	}
	out.Day = day

	if out.Matches > 0 {
		applied, err := s.tracker.IncrementN(ctx, day, out.Matches, store.SourceVoice)
		if err != nil && !errors.Is(err, challenge.ErrDayComplete) {
			return out, fmt.Errorf("apply voice increments: %w", err)
		}
		out.Applied = applied
	}

	s.mu.Lock()
	s.status.Increments += len(out.Applied)
	s.mu.Unlock()

	if s.events != nil {
		ev := store.VoiceEvent{
			ID:         uuid.NewString(),
			SessionID:  id,
			Day:        day,
			Transcript: t.Text,
			Increments: len(out.Applied),
			Source:     source,
			CreatedAt:  t.At,
		}
		if err := s.events.AddVoiceEvent(ev); err != nil {
			s.log.Printf("record voice event: %v", err)
		}
	}
	if len(out.Applied) > 0 {
		s.log.Printf("voice %q: +%d on day %d", t.Text, len(out.Applied), day)
	}
	return out, nil
}

// HandleClip gates a WAV clip by level, sends it to tr and handles the text
// as a final transcript.
func (s *Session) HandleClip(ctx context.Context, tr Transcriber, name string, clip io.ReadSeeker, sensitivity int) (Outcome, error) {
	if _, err := Gate(clip, sensitivity); err != nil {
		return Outcome{}, err
	}
	if _, err := clip.Seek(0, io.SeekStart); err != nil {
		return Outcome{}, fmt.Errorf("rewind clip: %w", err)
	}

	s.SetState(StateTranscribing, "")
	text, err := tr.Transcribe(ctx, name, clip)
	if err != nil {
		s.SetState(StateError, err.Error())
		s.log.Printf("whisper: %v", err)
		return Outcome{}, err
	}
	s.SetState(StateIdle, "")
	return s.Handle(ctx, Transcript{Text: text, Final: true, At: time.Now()}, SourceWhisper)
}
