package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/secrets"
	"github.com/sadopc/hundred/internal/store"
)

type settingsModel struct {
	tracker *challenge.Tracker
	keyring *secrets.Keyring
	envKey  string
	width   int
	height  int

	settings   store.Settings
	motivation string
	keyMask    string
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	darkMode    *bool
	displayMode *string
	sensitivity *int
	motivText   *string
	apiKey      *string
}

func newSettingsModel(t *challenge.Tracker, k *secrets.Keyring, envKey string) settingsModel {
	dm, mode, sens, mot, apiKey := true, string(store.DisplayRandom), 5, "", ""
	return settingsModel{
		tracker:     t,
		keyring:     k,
		envKey:      envKey,
		settings:    store.DefaultSettings(),
		darkMode:    &dm,
		displayMode: &mode,
		sensitivity: &sens,
		motivText:   &mot,
		apiKey:      &apiKey,
		keyMask:     secrets.Mask(""),
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case stateMsg:
		if msg.err == nil {
			s.settings = msg.settings
			s.motivation = msg.motivation
		}
		return s, nil

	case keyStatusMsg:
		s.keyMask = msg.mask
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return s.showForm()
		case msg.String() == "x":
			return s, s.clearKey()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.darkMode = s.settings.DarkMode
	*s.displayMode = string(s.settings.DisplayMode)
	*s.sensitivity = s.settings.AudioSensitivity
	*s.motivText = s.motivation
	*s.apiKey = ""

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Dark mode").Affirmative("Dark").Negative("Light").Value(s.darkMode),
			huh.NewSelect[string]().Title("Display mode").
				Options(
					huh.NewOption("Random: colored squares anywhere", string(store.DisplayRandom)),
					huh.NewOption("Sequential: numbered in order", string(store.DisplaySequential)),
					huh.NewOption("Big: one large counter", string(store.DisplayBig)),
				).Value(s.displayMode),
			huh.NewInput().Title("Motivation").Placeholder("Why are you doing this?").CharLimit(200).Value(s.motivText),
		).Title("Challenge"),
		huh.NewGroup(
			huh.NewSelect[int]().Title("Audio sensitivity").
				Description("0 ignores quiet clips, 10 accepts everything").
				Options(huh.NewOptions(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)...).
				Value(s.sensitivity),
			huh.NewInput().Title("OpenAI API key").
				Description("Stored in the OS keyring. Leave empty to keep the current key.").
				EchoMode(huh.EchoModePassword).
				Value(s.apiKey),
		).Title("Voice"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.save()
	}

	return s, cmd
}

func (s settingsModel) save() tea.Cmd {
	st := store.Settings{
		DarkMode:         *s.darkMode,
		DisplayMode:      store.DisplayMode(*s.displayMode),
		AudioSensitivity: *s.sensitivity,
	}
	motivation := strings.TrimSpace(*s.motivText)
	apiKey := strings.TrimSpace(*s.apiKey)
	*s.apiKey = ""

	return func() tea.Msg {
		ctx := context.Background()
		if err := s.tracker.UpdateSettings(ctx, st); err != nil {
			return statusMsg{text: fmt.Sprintf("Save settings: %v", err), isError: true}
		}
		if err := s.tracker.SetMotivation(ctx, motivation); err != nil {
			return statusMsg{text: fmt.Sprintf("Save motivation: %v", err), isError: true}
		}
		if apiKey != "" && s.keyring != nil {
			if err := s.keyring.SetOpenAIKey(apiKey); err != nil {
				return statusMsg{text: fmt.Sprintf("Keyring: %v", err), isError: true}
			}
		}
		return settingsSavedMsg{settings: st}
	}
}

func (s settingsModel) clearKey() tea.Cmd {
	return func() tea.Msg {
		if s.keyring == nil {
			return statusMsg{text: "No keyring available", isError: true}
		}
		if err := s.keyring.DeleteOpenAIKey(); err != nil {
			return statusMsg{text: fmt.Sprintf("Keyring: %v", err), isError: true}
		}
		return tea.Batch(s.refresh(), statusCmd("API key removed from keyring"))()
	}
}

type keyStatusMsg struct {
	mask string
}

// refresh reads the keyring off the UI goroutine; the OS keyring can block.
func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		if strings.TrimSpace(s.envKey) != "" {
			return keyStatusMsg{mask: secrets.Mask(s.envKey) + "  (from OPENAI_API_KEY)"}
		}
		return keyStatusMsg{mask: secrets.Mask(secrets.ResolveOpenAIKey("", s.keyring))}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	theme := "light"
	if s.settings.DarkMode {
		theme = "dark"
	}
	motivation := s.motivation
	if motivation == "" {
		motivation = "—"
	}

	rows := []string{title, ""}
	for _, kv := range [][2]string{
		{"Theme", theme},
		{"Display mode", string(s.settings.DisplayMode)},
		{"Audio sensitivity", fmt.Sprintf("%d/10", s.settings.AudioSensitivity)},
		{"Motivation", motivation},
		{"OpenAI API key", s.keyMask},
	} {
		label := lipgloss.NewStyle().Width(24).Render(kv[0])
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(kv[1])))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("enter: edit  x: remove API key  t: toggle theme"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
