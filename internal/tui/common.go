package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
	"github.com/sadopc/hundred/internal/voice"
)

// viewState represents the currently active view.
type viewState int

const (
	viewBoard viewState = iota
	viewWeek
	viewVoice
	viewSettings
)

var viewNames = []string{"Board", "Week", "Voice", "Settings"}

// --- Messages ---

// stateMsg carries everything the board and week views render.
type stateMsg struct {
	days       []store.Day
	current    int
	motivation string
	settings   store.Settings
	stats      challenge.Stats
	err        error
}

type incrementedMsg struct {
	result challenge.Result
	err    error
}

type resetDoneMsg struct{}

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

type commitMsg struct {
	latest string
}

// voiceHeardMsg carries a handled transcript. ch is the listener channel it
// came from, nil for a Whisper clip.
type voiceHeardMsg struct {
	outcome voice.Outcome
	err     error
	ch      chan tea.Msg
}

// voiceStateMsg reports a listener state change on ch.
type voiceStateMsg struct {
	ch chan tea.Msg
}

// listenerDoneMsg reports that the listener feeding ch has stopped.
type listenerDoneMsg struct {
	err error
	ch  chan tea.Msg
}

type voiceHistoryMsg struct {
	events []store.VoiceEvent
}

type settingsSavedMsg struct {
	settings store.Settings
}
