package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/config"
	"github.com/sadopc/hundred/internal/secrets"
	"github.com/sadopc/hundred/internal/store"
	"github.com/sadopc/hundred/internal/voice"
)

const historySize = 8

type voiceModel struct {
	store   *store.Store
	keyring *secrets.Keyring
	cfg     config.Config
	log     *log.Logger
	session *voice.Session
	width   int
	height  int

	sensitivity int
	listening   bool
	cancel      context.CancelFunc
	events      chan tea.Msg
	history     []store.VoiceEvent

	formActive bool
	form       *huh.Form
	clipPath   *string
}

func newVoiceModel(t *challenge.Tracker, s *store.Store, k *secrets.Keyring, cfg config.Config, logger *log.Logger) voiceModel {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	path := ""
	return voiceModel{
		store:       s,
		keyring:     k,
		cfg:         cfg,
		log:         logger,
		session:     voice.NewSession(t, s, voice.NewMatcher(nil), logger),
		sensitivity: store.DefaultSettings().AudioSensitivity,
		clipPath:    &path,
	}
}

func (v *voiceModel) setSize(w, h int) {
	v.width = w
	v.height = h
}

func (v voiceModel) refresh() tea.Cmd {
	return func() tea.Msg {
		events, err := v.store.ListVoiceEvents(historySize)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Voice history: %v", err), isError: true}
		}
		return voiceHistoryMsg{events: events}
	}
}

func (v voiceModel) update(msg tea.Msg) (voiceModel, tea.Cmd) {
	switch msg.(type) {
	case stateMsg, voiceHistoryMsg, voiceStateMsg, voiceHeardMsg, listenerDoneMsg:
	default:
		if v.formActive && v.form != nil {
			return v.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case stateMsg:
		if msg.err == nil {
			v.sensitivity = msg.settings.AudioSensitivity
		}
		return v, nil

	case voiceHistoryMsg:
		v.history = msg.events
		return v, nil

	case voiceStateMsg:
		if msg.ch != v.events {
			return v, nil
		}
		return v, waitForVoice(v.events)

	case voiceHeardMsg:
		var cmds []tea.Cmd
		if msg.ch != nil && msg.ch == v.events {
			cmds = append(cmds, waitForVoice(v.events))
		}
		if msg.err == nil && msg.outcome.Transcript.Final {
			cmds = append(cmds, v.refresh())
		}
		return v, tea.Batch(cmds...)

	case listenerDoneMsg:
		if msg.ch != v.events {
			return v, nil
		}
		v.listening = false
		v.cancel = nil
		v.events = nil
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Listen):
			if v.listening {
				return v.stopListening()
			}
			return v.startListening()
		case key.Matches(msg, keys.Clip):
			return v.showForm()
		}
	}
	return v, nil
}

func (v voiceModel) startListening() (voiceModel, tea.Cmd) {
	if strings.TrimSpace(v.cfg.RecognizerCmd) == "" {
		return v, statusCmd("No recognizer configured; set HUNDRED_RECOGNIZER_CMD or use w for a Whisper clip")
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan tea.Msg, 16)
	send := func(m tea.Msg) {
		select {
		case ch <- m:
		case <-ctx.Done():
		}
	}

	l := voice.NewListener(voice.CommandSource(v.cfg.RecognizerCmd), v.cfg.RestartDelay)
	l.Logger = v.log
	sess := v.session
	l.OnState = func(st voice.State, reason string) {
		sess.SetState(st, reason)
		send(voiceStateMsg{ch: ch})
	}

	go func() {
		defer close(ch)
		err := l.Run(ctx, func(t voice.Transcript) {
			out, err := sess.Handle(ctx, t, voice.SourceStream)
			send(voiceHeardMsg{outcome: out, err: err, ch: ch})
		})
		if err != nil {
			v.log.Printf("listener: %v", err)
		}
		send(listenerDoneMsg{err: err, ch: ch})
	}()

	v.listening = true
	v.cancel = cancel
	v.events = ch
	return v, tea.Batch(waitForVoice(ch), statusCmd("Listening…"))
}

func (v voiceModel) stopListening() (voiceModel, tea.Cmd) {
	if v.cancel != nil {
		v.cancel()
	}
	v.listening = false
	v.cancel = nil
	v.events = nil
	v.session.SetState(voice.StateIdle, "")
	return v, statusCmd("Stopped listening")
}

// waitForVoice delivers the next message from the listener goroutine.
func waitForVoice(ch chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return listenerDoneMsg{ch: ch}
		}
		return msg
	}
}

func (v voiceModel) showForm() (voiceModel, tea.Cmd) {
	v.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("WAV clip to transcribe").
				Placeholder("~/clip.wav").
				Value(v.clipPath).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	v.formActive = true
	return v, v.form.Init()
}

func (v voiceModel) updateForm(msg tea.Msg) (voiceModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			v.formActive = false
			v.form = nil
			return v, nil
		}
	}

	form, cmd := v.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		v.form = f
	}

	if v.form.State == huh.StateCompleted {
		v.formActive = false
		return v, v.transcribeClip(expandHome(strings.TrimSpace(*v.clipPath)))
	}
	return v, cmd
}

// transcribeClip sends a clip to Whisper. Without a key or on failure the
// outcome is only a status line.
func (v voiceModel) transcribeClip(path string) tea.Cmd {
	return func() tea.Msg {
		w, err := voice.NewWhisper(voice.WhisperConfig{
			APIKey:  secrets.ResolveOpenAIKey(v.cfg.OpenAIAPIKey, v.keyring),
			BaseURL: v.cfg.OpenAIBaseURL,
			Model:   v.cfg.WhisperModel,
			Timeout: v.cfg.TranscribeTimeout,
		})
		if err != nil {
			return voiceHeardMsg{err: err}
		}
		f, err := os.Open(path)
		if err != nil {
			return voiceHeardMsg{err: fmt.Errorf("open clip: %w", err)}
		}
		defer f.Close()
		out, err := v.session.HandleClip(context.Background(), w, path, f, v.sensitivity)
		return voiceHeardMsg{outcome: out, err: err}
	}
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return home + "/" + rest
		}
	}
	return path
}

// heardStatus turns a voice result into the footer status line.
func heardStatus(msg voiceHeardMsg) (string, bool) {
	switch {
	case errors.Is(msg.err, voice.ErrNoAPIKey):
		return "No OpenAI key; set one in Settings or tap manually", true
	case errors.Is(msg.err, voice.ErrSilent):
		return "Clip too quiet; raise sensitivity in Settings", true
	case msg.err != nil:
		return fmt.Sprintf("Voice: %v", msg.err), true
	}
	out := msg.outcome
	if !out.Transcript.Final {
		return "", false
	}
	switch {
	case len(out.Applied) > 0:
		return fmt.Sprintf("Heard %q: +%d on day %d", out.Transcript.Text, len(out.Applied), out.Day), false
	case out.Matches > 0:
		return fmt.Sprintf("Day %d is already complete", out.Day), false
	default:
		return fmt.Sprintf("Heard %q", out.Transcript.Text), false
	}
}

func (v voiceModel) view() string {
	w := v.width - 4

	if v.formActive && v.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Whisper"), "", v.form.View()),
		)
	}

	st := v.session.Status()
	stateStyle := mutedStyle
	switch st.State {
	case voice.StateListening:
		stateStyle = successStyle
	case voice.StateRestarting, voice.StateTranscribing:
		stateStyle = warningStyle
	case voice.StateError:
		stateStyle = errorStyle
	}
	state := stateStyle.Bold(true).Render(strings.ToUpper(string(st.State)))
	if st.Reason != "" {
		state += mutedStyle.Render("  " + st.Reason)
	}

	label := lipgloss.NewStyle().Width(14)
	rows := []string{
		titleStyle.Render("Voice"),
		"",
		label.Render("State") + state,
		label.Render("Session") + mutedStyle.Render(st.ID[:8]),
		label.Render("Hearing") + accentStyle.Render(orDash(st.Partial)),
		label.Render("Last final") + highlightStyle.Render(orDash(st.Final)),
		label.Render("Counted") + fmt.Sprintf("%d  (restarts %d)", st.Increments, st.Restarts),
		label.Render("Sensitivity") + fmt.Sprintf("%d/10  (min level %.2f)", v.sensitivity, voice.Threshold(v.sensitivity)),
		"",
		titleStyle.Render("Recent"),
	}
	if len(v.history) == 0 {
		rows = append(rows, mutedStyle.Render("  Nothing heard yet"))
	}
	for _, e := range v.history {
		inc := mutedStyle.Render(" +0")
		if e.Increments > 0 {
			inc = successStyle.Render(fmt.Sprintf(" +%d", e.Increments))
		}
		rows = append(rows, fmt.Sprintf("  %s  day %d  %-8s %s  %s",
			inc, e.Day, e.Source, truncate(e.Transcript, max(10, w-50)), mutedStyle.Render(humanize.Time(e.CreatedAt))))
	}

	hint := "v: start listening  w: whisper clip"
	if v.listening {
		hint = "v: stop listening  w: whisper clip"
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
