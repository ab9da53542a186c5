package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hundred/internal/buildinfo"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/config"
	"github.com/sadopc/hundred/internal/export"
	"github.com/sadopc/hundred/internal/secrets"
	"github.com/sadopc/hundred/internal/store"
)

// Options wires the app to its dependencies.
type Options struct {
	Tracker *challenge.Tracker
	Store   *store.Store
	Keyring *secrets.Keyring
	Config  config.Config
	Logger  *log.Logger
	// Fetcher looks up the latest commit for the header. Nil disables it.
	Fetcher *buildinfo.Fetcher
}

// App is the root Bubble Tea model.
type App struct {
	tracker *challenge.Tracker
	cfg     config.Config
	log     *log.Logger
	fetcher *buildinfo.Fetcher
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	board    boardModel
	week     weekModel
	voice    voiceModel
	settings settingsModel

	revision string
	latest   string

	help   help.Model
	status string
	isErr  bool
}

func NewApp(o Options) App {
	h := help.New()
	h.ShowAll = false

	logger := o.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	return App{
		tracker:    o.Tracker,
		cfg:        o.Config,
		log:        logger,
		fetcher:    o.Fetcher,
		activeView: viewBoard,
		board:      newBoardModel(o.Tracker),
		week:       newWeekModel(),
		voice:      newVoiceModel(o.Tracker, o.Store, o.Keyring, o.Config, logger),
		settings:   newSettingsModel(o.Tracker, o.Keyring, o.Config.OpenAIAPIKey),
		revision:   buildinfo.Revision(),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadState(a.tracker),
		a.voice.refresh(),
		a.settings.refresh(),
		tickCmd(),
	}
	if a.fetcher != nil && a.cfg.CheckUpdates {
		cmds = append(cmds, fetchCommitCmd(a.fetcher, a.cfg.GitHubRepo, a.log))
	}
	return tea.Batch(cmds...)
}

// tickCmd keeps relative times ("3 minutes ago") fresh.
func tickCmd() tea.Cmd {
	return tea.Tick(30*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func loadState(t *challenge.Tracker) tea.Cmd {
	return func() tea.Msg {
		snap, err := t.Snapshot()
		if err != nil {
			return stateMsg{err: err}
		}
		stats, err := t.Stats()
		if err != nil {
			return stateMsg{err: err}
		}
		return stateMsg{
			days:       snap.Days,
			current:    snap.CurrentDay,
			motivation: snap.Motivation,
			settings:   snap.Settings,
			stats:      stats,
		}
	}
}

// fetchCommitCmd is cosmetic: failures are logged and the header just shows
// the local revision.
func fetchCommitCmd(f *buildinfo.Fetcher, repo string, logger *log.Logger) tea.Cmd {
	return func() tea.Msg {
		sha, err := f.LatestCommit(context.Background(), repo)
		if err != nil {
			logger.Printf("latest commit: %v", err)
			return nil
		}
		return commitMsg{latest: buildinfo.Short(sha)}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.board.setSize(a.width, contentHeight)
		a.week.setSize(a.width, contentHeight)
		a.voice.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (form or confirm), delegate first.
		if a.isCapturing() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			a.voice, _ = a.voice.stopListening()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Theme):
			return a, toggleThemeCmd(a.tracker)
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewBoard
			return a, loadState(a.tracker)
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewWeek
			return a, loadState(a.tracker)
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewVoice
			return a, a.voice.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, tea.Batch(loadState(a.tracker), a.settings.refresh())
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, loadState(a.tracker)
		}

	case tickMsg:
		return a, tickCmd()

	case stateMsg:
		if msg.err != nil {
			a.setStatus(fmt.Sprintf("Load: %v", msg.err), true)
			return a, nil
		}
		if msg.settings.DarkMode != darkMode {
			a.setTheme(msg.settings.DarkMode)
		}
		a.board, _ = a.board.update(msg)
		a.week = a.week.update(msg)
		a.voice, _ = a.voice.update(msg)
		a.settings, _ = a.settings.update(msg)
		return a, nil

	case incrementedMsg:
		a.board, _ = a.board.update(msg)
		switch {
		case errors.Is(msg.err, challenge.ErrDayComplete):
			a.setStatus(fmt.Sprintf("Day %d is already complete", a.board.current), false)
		case msg.err != nil:
			a.setStatus(fmt.Sprintf("Tap failed: %v", msg.err), true)
		case msg.result.Completed:
			a.setStatus(fmt.Sprintf("Day %d complete! 100/100", msg.result.Day.Number), false)
		}
		return a, loadState(a.tracker)

	case resetDoneMsg:
		a.setStatus("Challenge reset", false)
		return a, tea.Batch(loadState(a.tracker), a.voice.refresh())

	case settingsSavedMsg:
		a.setTheme(msg.settings.DarkMode)
		a.setStatus("Settings saved", false)
		return a, tea.Batch(loadState(a.tracker), a.settings.refresh())

	case keyStatusMsg:
		a.settings, _ = a.settings.update(msg)
		return a, nil

	case voiceHeardMsg:
		if text, isErr := heardStatus(msg); text != "" {
			a.setStatus(text, isErr)
		}
		var cmd tea.Cmd
		a.voice, cmd = a.voice.update(msg)
		if len(msg.outcome.Applied) > 0 {
			return a, tea.Batch(cmd, loadState(a.tracker))
		}
		return a, cmd

	case voiceStateMsg, voiceHistoryMsg:
		var cmd tea.Cmd
		a.voice, cmd = a.voice.update(msg)
		return a, cmd

	case listenerDoneMsg:
		wasListening := a.voice.listening
		a.voice, _ = a.voice.update(msg)
		if wasListening && !a.voice.listening && msg.err != nil {
			a.setStatus(fmt.Sprintf("Listener stopped: %v", msg.err), true)
		}
		return a, nil

	case commitMsg:
		a.latest = msg.latest
		return a, nil

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case exportDoneMsg:
		a.setStatus("Exported to "+msg.path, false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isErr bool) {
	a.status = text
	a.isErr = isErr
	if isErr {
		a.log.Print(text)
	}
}

func (a *App) setTheme(dark bool) {
	applyTheme(dark)
	a.board.progress = newProgress()
	a.board.setSize(a.width, a.height-4)
	a.week.buildChart()
}

func toggleThemeCmd(t *challenge.Tracker) tea.Cmd {
	return func() tea.Msg {
		st, err := t.Settings()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Theme: %v", err), isError: true}
		}
		st.DarkMode = !st.DarkMode
		if err := t.UpdateSettings(context.Background(), st); err != nil {
			return statusMsg{text: fmt.Sprintf("Theme: %v", err), isError: true}
		}
		return settingsSavedMsg{settings: st}
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewBoard:
		a.board, cmd = a.board.update(msg)
	case viewVoice:
		a.voice, cmd = a.voice.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isCapturing() bool {
	switch a.activeView {
	case viewBoard:
		return a.board.confirmReset
	case viewVoice:
		return a.voice.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewBoard:
		content = a.board.view()
	case viewWeek:
		content = a.week.view()
	case viewVoice:
		content = a.voice.view()
	case viewSettings:
		content = a.settings.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("hundred")
	version := mutedStyle.Render(" " + a.revision)
	if a.latest != "" && a.latest != a.revision {
		version += warningStyle.Render(" (latest " + a.latest + ")")
	}
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(version) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, version, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.isErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	listening := ""
	if a.voice.listening {
		listening = successStyle.Render(" ● mic")
	}

	left := footerStyle.Render(helpView)
	right := listening + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV (one row per square)", "JSON (importable snapshot)"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	return func() tea.Msg {
		snap, err := a.tracker.Snapshot()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("hundred-export-%s.csv", dateStr))
			if err := export.ToCSV(snap.Days, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("hundred-export-%s.json", dateStr))
			if err := export.ToJSON(snap, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}
