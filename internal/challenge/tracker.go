package challenge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sadopc/hundred/internal/store"
)

// Result describes one applied increment.
type Result struct {
	Day    store.Day
	Square store.Square
	// Completed is true when this increment brought the day to 100.
	Completed bool
}

// Stats summarises progress across the week.
type Stats struct {
	TotalSquares  int
	CompletedDays int
	// Streak counts consecutive completed days starting from day 1.
	Streak int
}

// Snapshot is the whole application state that is exported and imported.
type Snapshot struct {
	Days       []store.Day
	CurrentDay int
	Motivation string
	Settings   store.Settings
}

type Option func(*Tracker)

func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithSeed fixes the random placement sequence.
func WithSeed(seed uint64) Option {
	return func(t *Tracker) { t.placer = NewPlacer(seed) }
}

// Tracker is the application state object. Every mutation runs on a single
// worker goroutine, so increments arriving from the keyboard, the CLI and the
// voice listener are applied strictly one after another.
type Tracker struct {
	store  *store.Store
	placer *Placer
	log    *log.Logger

	jobs chan func()
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewTracker(s *store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		placer: NewPlacer(uint64(time.Now().UnixNano())),
		log:    log.New(io.Discard, "", 0),
		jobs:   make(chan func()),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer t.wg.Done()
	for {
		select {
		case job := <-t.jobs:
			job()
		case <-t.done:
			return
		}
	}
}

// Close stops the worker. Calls made afterwards fail with ErrClosed.
func (t *Tracker) Close() {
	t.once.Do(func() { close(t.done) })
	t.wg.Wait()
}

// do runs fn on the worker and waits for it. If ctx ends after the job was
// queued, the job still runs; only the wait is abandoned.
func (t *Tracker) do(ctx context.Context, fn func() error) error {
	errc := make(chan error, 1)
	job := func() { errc <- fn() }
	select {
	case t.jobs <- job:
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Increment adds the next square to day.
func (t *Tracker) Increment(ctx context.Context, day int, source store.Source) (Result, error) {
	var res Result
	err := t.do(ctx, func() error {
		var err error
		res, err = t.apply(day, source)
		return err
	})
	return res, err
}

// IncrementN queues up to n increments and stops early when the day
// completes. ErrDayComplete is returned only if nothing was applied.
func (t *Tracker) IncrementN(ctx context.Context, day, n int, source store.Source) ([]Result, error) {
	var out []Result
	for i := 0; i < n; i++ {
		res, err := t.Increment(ctx, day, source)
		if errors.Is(err, ErrDayComplete) && len(out) > 0 {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, res)
		if res.Completed {
			break
		}
	}
	return out, nil
}

func (t *Tracker) apply(day int, source store.Source) (Result, error) {
	if !ValidDay(day) {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	d, err := t.store.GetDay(day)
	if err != nil {
		return Result{}, err
	}
	count := d.Count()
	if d.Completed || count >= Target {
		return Result{}, ErrDayComplete
	}
	settings, err := t.store.LoadSettings()
	if err != nil {
		return Result{}, err
	}

	used := make(map[int]bool, len(d.Squares))
	for _, sq := range d.Squares {
		used[sq.Position] = true
	}
	n := count + 1
	pos, color, ok := t.placer.Place(settings.DisplayMode, n, used)
	if !ok {
		return Result{}, ErrDayComplete
	}
	sq := store.Square{Number: n, Position: pos, Color: color, Source: source}
	updated, err := t.store.AddSquare(day, sq)
	if err != nil {
		return Result{}, fmt.Errorf("record square: %w", err)
	}
	if updated.Completed {
		t.log.Printf("day %d completed", day)
	}
	return Result{Day: *updated, Square: sq, Completed: updated.Completed}, nil
}

func (t *Tracker) Days() ([]store.Day, error) {
	return t.store.ListDays()
}

func (t *Tracker) Day(day int) (*store.Day, error) {
	if !ValidDay(day) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	return t.store.GetDay(day)
}

func (t *Tracker) CurrentDay() (int, error) {
	return t.store.CurrentDay()
}

func (t *Tracker) SetCurrentDay(ctx context.Context, day int) error {
	if !ValidDay(day) {
		return fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	return t.do(ctx, func() error { return t.store.SetCurrentDay(day) })
}

func (t *Tracker) Settings() (store.Settings, error) {
	return t.store.LoadSettings()
}

func (t *Tracker) UpdateSettings(ctx context.Context, s store.Settings) error {
	if !ValidMode(s.DisplayMode) {
		return fmt.Errorf("%w: display mode %q", ErrInvalidSetting, s.DisplayMode)
	}
	if s.AudioSensitivity < 0 || s.AudioSensitivity > 10 {
		return fmt.Errorf("%w: audio sensitivity %d", ErrInvalidSetting, s.AudioSensitivity)
	}
	return t.do(ctx, func() error { return t.store.SaveSettings(s) })
}

func (t *Tracker) Motivation() (string, error) {
	return t.store.Motivation()
}

func (t *Tracker) SetMotivation(ctx context.Context, text string) error {
	return t.do(ctx, func() error { return t.store.SetMotivation(text) })
}

// Reset clears every day record. Settings are preserved.
func (t *Tracker) Reset(ctx context.Context) error {
	return t.do(ctx, func() error {
		if err := t.store.ResetDays(); err != nil {
			return err
		}
		t.log.Printf("challenge reset")
		return nil
	})
}

func (t *Tracker) Snapshot() (Snapshot, error) {
	days, err := t.store.ListDays()
	if err != nil {
		return Snapshot{}, err
	}
	cur, err := t.store.CurrentDay()
	if err != nil {
		return Snapshot{}, err
	}
	motivation, err := t.store.Motivation()
	if err != nil {
		return Snapshot{}, err
	}
	settings, err := t.store.LoadSettings()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Days: days, CurrentDay: cur, Motivation: motivation, Settings: settings}, nil
}

// Restore replaces the stored state with snap. Nothing is written unless
// the whole snapshot is valid.
func (t *Tracker) Restore(ctx context.Context, snap Snapshot) error {
	seen := make(map[int]bool, len(snap.Days))
	for _, d := range snap.Days {
		if err := Validate(d); err != nil {
			return err
		}
		if seen[d.Number] {
			return InvariantError{Day: d.Number, Reason: "duplicate day"}
		}
		seen[d.Number] = true
	}
	if !ValidDay(snap.CurrentDay) {
		return fmt.Errorf("%w: current day %d", ErrInvalidSnapshot, snap.CurrentDay)
	}
	if !ValidMode(snap.Settings.DisplayMode) || snap.Settings.AudioSensitivity < 0 || snap.Settings.AudioSensitivity > 10 {
		return fmt.Errorf("%w: settings %+v", ErrInvalidSnapshot, snap.Settings)
	}
	return t.do(ctx, func() error {
		return t.store.ReplaceAll(snap.Days, snap.CurrentDay, snap.Motivation, snap.Settings)
	})
}

func (t *Tracker) Stats() (Stats, error) {
	days, err := t.store.ListDays()
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	streak := true
	for _, d := range days {
		st.TotalSquares += len(d.Squares)
		if d.Completed {
			st.CompletedDays++
		}
		if streak && d.Completed {
			st.Streak++
		} else {
			streak = false
		}
	}
	return st, nil
}
