package challenge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sadopc/hundred/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	tr := NewTracker(s, WithSeed(42))
	t.Cleanup(func() {
		tr.Close()
		s.Close()
	})
	return tr, s
}

// checkInvariants asserts every rule a stored day must satisfy.
func checkInvariants(t *testing.T, d store.Day) {
	t.Helper()
	require.NoError(t, Validate(d))
	assert.LessOrEqual(t, d.Count(), Target)
}

// ============================================================
// Increment
// ============================================================

func TestIncrementAssignsNextNumber(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		res, err := tr.Increment(ctx, 1, store.SourceManual)
		require.NoError(t, err)
		assert.Equal(t, want, res.Square.Number)
		assert.Equal(t, want, res.Day.Count())
		assert.False(t, res.Completed)
	}
}

func TestIncrementInvalidDay(t *testing.T) {
	tr, _ := newTestTracker(t)
	for _, day := range []int{0, 8, -1} {
		_, err := tr.Increment(context.Background(), day, store.SourceManual)
		assert.ErrorIs(t, err, ErrInvalidDay)
	}
}

func TestIncrementToHundredCompletes(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	results, err := tr.IncrementN(ctx, 2, 150, store.SourceCLI)
	require.NoError(t, err)
	require.Len(t, results, Target)
	last := results[len(results)-1]
	assert.True(t, last.Completed)
	assert.Equal(t, Target, last.Day.Count())
	checkInvariants(t, last.Day)

	_, err = tr.Increment(ctx, 2, store.SourceManual)
	assert.ErrorIs(t, err, ErrDayComplete)

	d, err := tr.Day(2)
	require.NoError(t, err)
	assert.True(t, d.Completed, "completed stays true")
	assert.Equal(t, Target, d.Count())
}

func TestIncrementNOnCompletedDay(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.IncrementN(ctx, 1, Target, store.SourceManual)
	require.NoError(t, err)

	results, err := tr.IncrementN(ctx, 1, 3, store.SourceManual)
	assert.ErrorIs(t, err, ErrDayComplete)
	assert.Empty(t, results)
}

func TestConcurrentIncrementsNeverDoubleCount(t *testing.T) {
	tr, s := newTestTracker(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			source := store.SourceManual
			if g%2 == 0 {
				source = store.SourceVoice
			}
			for i := 0; i < 20; i++ {
				if _, err := tr.Increment(ctx, 3, source); err == nil {
					mu.Lock()
					applied++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, ErrDayComplete)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, Target, applied)
	d, err := s.GetDay(3)
	require.NoError(t, err)
	assert.Equal(t, Target, d.Count())
	assert.True(t, d.Completed)
	checkInvariants(t, *d)
}

func TestIncrementEveryDisplayMode(t *testing.T) {
	for _, mode := range []store.DisplayMode{store.DisplayRandom, store.DisplaySequential, store.DisplayBig} {
		t.Run(string(mode), func(t *testing.T) {
			tr, _ := newTestTracker(t)
			ctx := context.Background()
			require.NoError(t, tr.UpdateSettings(ctx, store.Settings{DarkMode: true, DisplayMode: mode, AudioSensitivity: 5}))

			results, err := tr.IncrementN(ctx, 4, Target, store.SourceManual)
			require.NoError(t, err)
			checkInvariants(t, results[len(results)-1].Day)
		})
	}
}

func TestModeSwitchMidDay(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.IncrementN(ctx, 1, 30, store.SourceManual) // random by default
	require.NoError(t, err)
	require.NoError(t, tr.UpdateSettings(ctx, store.Settings{DisplayMode: store.DisplaySequential, AudioSensitivity: 5}))
	results, err := tr.IncrementN(ctx, 1, Target, store.SourceManual)
	require.NoError(t, err)
	checkInvariants(t, results[len(results)-1].Day)
}

func TestCloseRejectsWork(t *testing.T) {
	s, err := store.NewMemory()
	require.NoError(t, err)
	defer s.Close()
	tr := NewTracker(s)
	tr.Close()
	tr.Close() // idempotent

	_, err = tr.Increment(context.Background(), 1, store.SourceManual)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestIncrementCancelledContext(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tr.Increment(ctx, 1, store.SourceManual)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

// ============================================================
// Settings / current day / motivation
// ============================================================

func TestUpdateSettingsValidation(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	err := tr.UpdateSettings(ctx, store.Settings{DisplayMode: "spiral", AudioSensitivity: 5})
	assert.ErrorIs(t, err, ErrInvalidSetting)
	err = tr.UpdateSettings(ctx, store.Settings{DisplayMode: store.DisplayBig, AudioSensitivity: 11})
	assert.ErrorIs(t, err, ErrInvalidSetting)

	want := store.Settings{DarkMode: false, DisplayMode: store.DisplayBig, AudioSensitivity: 0}
	require.NoError(t, tr.UpdateSettings(ctx, want))
	got, err := tr.Settings()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSetCurrentDay(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SetCurrentDay(ctx, 6))
	cur, err := tr.CurrentDay()
	require.NoError(t, err)
	assert.Equal(t, 6, cur)

	assert.ErrorIs(t, tr.SetCurrentDay(ctx, 0), ErrInvalidDay)
	cur, _ = tr.CurrentDay()
	assert.Equal(t, 6, cur)
}

func TestMotivation(t *testing.T) {
	tr, _ := newTestTracker(t)
	require.NoError(t, tr.SetMotivation(context.Background(), "one hundred reps"))
	m, err := tr.Motivation()
	require.NoError(t, err)
	assert.Equal(t, "one hundred reps", m)
}

// ============================================================
// Reset
// ============================================================

func TestResetPreservesDisplaySettings(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	settings := store.Settings{DarkMode: false, DisplayMode: store.DisplaySequential, AudioSensitivity: 3}
	require.NoError(t, tr.UpdateSettings(ctx, settings))
	_, err := tr.IncrementN(ctx, 1, Target, store.SourceManual)
	require.NoError(t, err)
	_, err = tr.IncrementN(ctx, 5, 12, store.SourceManual)
	require.NoError(t, err)
	require.NoError(t, tr.SetCurrentDay(ctx, 5))

	require.NoError(t, tr.Reset(ctx))

	days, err := tr.Days()
	require.NoError(t, err)
	for _, d := range days {
		assert.Zero(t, d.Count(), "day %d", d.Number)
		assert.False(t, d.Completed, "day %d", d.Number)
	}
	got, _ := tr.Settings()
	assert.Equal(t, settings, got)
	cur, _ := tr.CurrentDay()
	assert.Equal(t, 1, cur)
}

// ============================================================
// Snapshot / restore
// ============================================================

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.IncrementN(ctx, 1, Target, store.SourceManual)
	require.NoError(t, err)
	_, err = tr.IncrementN(ctx, 2, 7, store.SourceVoice)
	require.NoError(t, err)
	require.NoError(t, tr.SetCurrentDay(ctx, 2))
	require.NoError(t, tr.SetMotivation(ctx, "go"))

	snap, err := tr.Snapshot()
	require.NoError(t, err)

	other, _ := newTestTracker(t)
	require.NoError(t, other.Restore(ctx, snap))

	restored, err := other.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, snap.CurrentDay, restored.CurrentDay)
	assert.Equal(t, snap.Motivation, restored.Motivation)
	assert.Equal(t, snap.Settings, restored.Settings)
	require.Len(t, restored.Days, len(snap.Days))
	for i := range snap.Days {
		assert.Equal(t, snap.Days[i].Count(), restored.Days[i].Count())
		assert.Equal(t, snap.Days[i].Completed, restored.Days[i].Completed)
		for j := range snap.Days[i].Squares {
			assert.Equal(t, snap.Days[i].Squares[j].Position, restored.Days[i].Squares[j].Position)
			assert.Equal(t, snap.Days[i].Squares[j].Color, restored.Days[i].Squares[j].Color)
		}
	}
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.IncrementN(ctx, 1, 5, store.SourceManual)
	require.NoError(t, err)

	cases := map[string]Snapshot{
		"duplicate number": {CurrentDay: 1, Settings: store.DefaultSettings(), Days: []store.Day{
			{Number: 1, Squares: []store.Square{{Number: 1, Position: 0}, {Number: 1, Position: 1}}},
		}},
		"bad current day": {CurrentDay: 9, Settings: store.DefaultSettings()},
		"bad settings":    {CurrentDay: 1, Settings: store.Settings{DisplayMode: "x"}},
		"duplicate day": {CurrentDay: 1, Settings: store.DefaultSettings(), Days: []store.Day{
			{Number: 3}, {Number: 3},
		}},
	}
	for name, snap := range cases {
		t.Run(name, func(t *testing.T) {
			err := tr.Restore(ctx, snap)
			assert.True(t, errors.Is(err, ErrInvalidSnapshot), "got %v", err)
		})
	}

	d, _ := tr.Day(1)
	assert.Equal(t, 5, d.Count(), "rejected restores must not touch the store")
}

// ============================================================
// Stats
// ============================================================

func TestStats(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.IncrementN(ctx, 1, Target, store.SourceManual)
	require.NoError(t, err)
	_, err = tr.IncrementN(ctx, 2, Target, store.SourceManual)
	require.NoError(t, err)
	_, err = tr.IncrementN(ctx, 4, Target, store.SourceManual)
	require.NoError(t, err)
	_, err = tr.IncrementN(ctx, 5, 10, store.SourceManual)
	require.NoError(t, err)

	st, err := tr.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3*Target+10, st.TotalSquares)
	assert.Equal(t, 3, st.CompletedDays)
	assert.Equal(t, 2, st.Streak)
}
