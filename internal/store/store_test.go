package store

import (
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fillDay is a test helper that records squares 1..n on a day in sequential positions.
func fillDay(t *testing.T, s *Store, day, n int) *Day {
	t.Helper()
	var d *Day
	var err error
	for i := 1; i <= n; i++ {
		d, err = s.AddSquare(day, Square{Number: i, Position: i - 1, Color: "#6C63FF"})
		if err != nil {
			t.Fatalf("add square %d: %v", i, err)
		}
	}
	return d
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/hundred.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSquare(1, Square{Number: 1, Position: 0, Color: "#fff"}); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives and migrations do not run twice.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	d, err := s2.GetDay(1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Count() != 1 {
		t.Fatalf("expected persisted count 1, got %d", d.Count())
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)

	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

func TestMigrationSeedsSevenDays(t *testing.T) {
	s := newTestStore(t)
	days, err := s.ListDays()
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != NumDays {
		t.Fatalf("expected %d days, got %d", NumDays, len(days))
	}
	for i, d := range days {
		if d.Number != i+1 {
			t.Fatalf("days[%d].Number = %d", i, d.Number)
		}
		if d.Completed || d.Count() != 0 || d.Squares != nil {
			t.Fatalf("day %d should start empty: %+v", d.Number, d)
		}
	}
}

// ============================================================
// Squares
// ============================================================

func TestAddSquare(t *testing.T) {
	s := newTestStore(t)
	d, err := s.AddSquare(2, Square{Number: 1, Position: 42, Color: "#FF0000", Source: SourceVoice})
	if err != nil {
		t.Fatal(err)
	}
	if d.Number != 2 || d.Count() != 1 || len(d.Squares) != 1 {
		t.Fatalf("unexpected day: %+v", d)
	}
	sq := d.Squares[0]
	if sq.Position != 42 || sq.Color != "#FF0000" || sq.Source != SourceVoice {
		t.Fatalf("unexpected square: %+v", sq)
	}
	if sq.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}
}

func TestAddSquareDefaultsSource(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.AddSquare(1, Square{Number: 1, Position: 0, Color: "#000"})
	if d.Squares[0].Source != SourceManual {
		t.Fatalf("expected manual source, got %q", d.Squares[0].Source)
	}
}

func TestAddSquareDuplicateNumber(t *testing.T) {
	s := newTestStore(t)
	s.AddSquare(1, Square{Number: 1, Position: 0, Color: "#000"})
	if _, err := s.AddSquare(1, Square{Number: 1, Position: 5, Color: "#000"}); err == nil {
		t.Fatal("expected error for duplicate number")
	}
}

func TestAddSquareDuplicatePosition(t *testing.T) {
	s := newTestStore(t)
	s.AddSquare(1, Square{Number: 1, Position: 7, Color: "#000"})
	if _, err := s.AddSquare(1, Square{Number: 2, Position: 7, Color: "#000"}); err == nil {
		t.Fatal("expected error for duplicate position")
	}
}

func TestAddSquareSameNumberOtherDay(t *testing.T) {
	s := newTestStore(t)
	s.AddSquare(1, Square{Number: 1, Position: 0, Color: "#000"})
	if _, err := s.AddSquare(2, Square{Number: 1, Position: 0, Color: "#000"}); err != nil {
		t.Fatalf("numbers are per day: %v", err)
	}
}

func TestAddSquareOutOfRange(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddSquare(1, Square{Number: 101, Position: 0, Color: "#000"}); err == nil {
		t.Fatal("expected error for number 101")
	}
	if _, err := s.AddSquare(1, Square{Number: 1, Position: 100, Color: "#000"}); err == nil {
		t.Fatal("expected error for position 100")
	}
	if _, err := s.AddSquare(8, Square{Number: 1, Position: 0, Color: "#000"}); err == nil {
		t.Fatal("expected error for day 8")
	}
}

func TestAddSquareHundredCompletesDay(t *testing.T) {
	s := newTestStore(t)
	d := fillDay(t, s, 3, 99)
	if d.Completed {
		t.Fatal("day should not be completed at 99")
	}
	d, err := s.AddSquare(3, Square{Number: 100, Position: 99, Color: "#000"})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Completed || d.CompletedAt == nil {
		t.Fatal("day should be completed at 100")
	}
	if d.Count() != 100 {
		t.Fatalf("count = %d, want 100", d.Count())
	}
}

func TestGetDayNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetDay(9); err == nil {
		t.Fatal("expected error for missing day")
	}
}

func TestDayLastActivity(t *testing.T) {
	early := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	d := Day{Squares: []Square{{Number: 1, CreatedAt: late}, {Number: 2, CreatedAt: early}}}
	if got := d.LastActivity(); got == nil || !got.Equal(late) {
		t.Fatalf("LastActivity = %v, want %v", got, late)
	}
	if (Day{}).LastActivity() != nil {
		t.Fatal("empty day should have no activity")
	}
}

// ============================================================
// Reset / replace
// ============================================================

func TestResetDays(t *testing.T) {
	s := newTestStore(t)
	fillDay(t, s, 1, 100)
	fillDay(t, s, 2, 10)
	s.SetCurrentDay(2)
	s.SetMotivation("keep going")
	s.SaveSettings(Settings{DarkMode: false, DisplayMode: DisplayBig, AudioSensitivity: 8})

	if err := s.ResetDays(); err != nil {
		t.Fatal(err)
	}

	days, _ := s.ListDays()
	for _, d := range days {
		if d.Completed || len(d.Squares) != 0 {
			t.Fatalf("day %d not cleared", d.Number)
		}
	}
	cur, _ := s.CurrentDay()
	if cur != 1 {
		t.Fatalf("current day = %d, want 1", cur)
	}
	m, _ := s.Motivation()
	if m != "" {
		t.Fatalf("motivation = %q, want empty", m)
	}
	st, _ := s.LoadSettings()
	if st.DarkMode || st.DisplayMode != DisplayBig || st.AudioSensitivity != 8 {
		t.Fatalf("settings should survive reset: %+v", st)
	}
}

func TestReplaceAll(t *testing.T) {
	s := newTestStore(t)
	fillDay(t, s, 1, 3)

	days := []Day{
		{Number: 2, Squares: []Square{{Number: 1, Position: 10, Color: "#111"}, {Number: 2, Position: 11, Color: "#222"}}},
	}
	imported := Settings{DarkMode: false, DisplayMode: DisplaySequential, AudioSensitivity: 2}
	if err := s.ReplaceAll(days, 2, "imported", imported); err != nil {
		t.Fatal(err)
	}

	d1, _ := s.GetDay(1)
	if len(d1.Squares) != 0 {
		t.Fatal("day 1 should be cleared by replace")
	}
	d2, _ := s.GetDay(2)
	if d2.Count() != 2 || d2.Squares[0].Source != SourceImport {
		t.Fatalf("day 2 not imported: %+v", d2)
	}
	cur, _ := s.CurrentDay()
	if cur != 2 {
		t.Fatalf("current day = %d", cur)
	}
	st, _ := s.LoadSettings()
	if st != imported {
		t.Fatalf("settings = %+v, want %+v", st, imported)
	}
}

func TestReplaceAllRollsBackOnConstraint(t *testing.T) {
	s := newTestStore(t)
	fillDay(t, s, 1, 3)

	bad := []Day{
		{Number: 2, Squares: []Square{{Number: 1, Position: 0, Color: "#111"}, {Number: 2, Position: 0, Color: "#222"}}},
	}
	changed := Settings{DarkMode: false, DisplayMode: DisplayBig, AudioSensitivity: 9}
	if err := s.ReplaceAll(bad, 2, "", changed); err == nil {
		t.Fatal("expected constraint error")
	}
	d1, _ := s.GetDay(1)
	if d1.Count() != 3 {
		t.Fatalf("failed replace must not touch existing data, count = %d", d1.Count())
	}
	st, _ := s.LoadSettings()
	if st != DefaultSettings() {
		t.Fatalf("failed replace must not touch settings: %+v", st)
	}
}

// ============================================================
// Settings
// ============================================================

func TestGetSetting(t *testing.T) {
	s := newTestStore(t)
	val, err := s.GetSetting("display_mode")
	if err != nil {
		t.Fatal(err)
	}
	if val != "random" {
		t.Fatalf("expected random, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSetting("nope"); err == nil {
		t.Fatal("expected error for missing setting")
	}
}

func TestSetSettingUpsert(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("custom", "a")
	s.SetSetting("custom", "b")
	val, _ := s.GetSetting("custom")
	if val != "b" {
		t.Fatalf("expected b, got %s", val)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 5 {
		t.Fatalf("expected 5 seeded settings, got %d", len(settings))
	}
	for i := 1; i < len(settings); i++ {
		if settings[i].Key < settings[i-1].Key {
			t.Fatal("settings should be sorted by key")
		}
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	st, err := s.LoadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if st != DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestLoadSettingsIgnoresGarbage(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("dark_mode", "maybe")
	s.SetSetting("display_mode", "spiral")
	s.SetSetting("audio_sensitivity", "42")

	st, _ := s.LoadSettings()
	if st != DefaultSettings() {
		t.Fatalf("garbage values should fall back to defaults, got %+v", st)
	}
}

func TestSaveSettings(t *testing.T) {
	s := newTestStore(t)
	want := Settings{DarkMode: false, DisplayMode: DisplaySequential, AudioSensitivity: 2}
	if err := s.SaveSettings(want); err != nil {
		t.Fatal(err)
	}
	got, _ := s.LoadSettings()
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestCurrentDay(t *testing.T) {
	s := newTestStore(t)
	d, _ := s.CurrentDay()
	if d != 1 {
		t.Fatalf("default current day = %d", d)
	}
	s.SetCurrentDay(5)
	d, _ = s.CurrentDay()
	if d != 5 {
		t.Fatalf("current day = %d, want 5", d)
	}
	s.SetSetting("current_day", "99")
	d, _ = s.CurrentDay()
	if d != 1 {
		t.Fatalf("out of range current day should fall back to 1, got %d", d)
	}
}

// ============================================================
// Voice events
// ============================================================

func TestVoiceEvents(t *testing.T) {
	s := newTestStore(t)
	base := time.Now().UTC().Add(-time.Minute)
	s.AddVoiceEvent(VoiceEvent{ID: "a", SessionID: "s1", Day: 1, Transcript: "count", Increments: 1, Source: "listener", CreatedAt: base})
	s.AddVoiceEvent(VoiceEvent{ID: "b", SessionID: "s1", Day: 1, Transcript: "done done", Increments: 2, Source: "whisper", CreatedAt: base.Add(10 * time.Second)})

	events, err := s.ListVoiceEvents(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "b" {
		t.Fatalf("newest first: got %s", events[0].ID)
	}
	if events[0].Increments != 2 || events[0].Source != "whisper" {
		t.Fatalf("unexpected event: %+v", events[0])
	}

	limited, _ := s.ListVoiceEvents(1)
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}
}

func TestVoiceEventDuplicateID(t *testing.T) {
	s := newTestStore(t)
	e := VoiceEvent{ID: "x", SessionID: "s", Day: 1, Transcript: "t", Source: "listener"}
	if err := s.AddVoiceEvent(e); err != nil {
		t.Fatal(err)
	}
	if err := s.AddVoiceEvent(e); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestResetClearsVoiceEvents(t *testing.T) {
	s := newTestStore(t)
	s.AddVoiceEvent(VoiceEvent{ID: "x", SessionID: "s", Day: 1, Transcript: "t", Source: "listener"})
	s.ResetDays()
	events, _ := s.ListVoiceEvents(0)
	if len(events) != 0 {
		t.Fatal("reset should clear voice history")
	}
}
