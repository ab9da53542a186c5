package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

type boardModel struct {
	tracker *challenge.Tracker
	width   int
	height  int

	days       []store.Day
	current    int
	motivation string
	mode       store.DisplayMode

	confirmReset bool
	progress     progress.Model
}

func newBoardModel(t *challenge.Tracker) boardModel {
	return boardModel{
		tracker:  t,
		current:  1,
		mode:     store.DisplayRandom,
		progress: newProgress(),
	}
}

func newProgress() progress.Model {
	return progress.New(
		progress.WithGradient(string(colorPrimary), string(colorSecondary)),
		progress.WithoutPercentage(),
	)
}

func (b *boardModel) setSize(w, h int) {
	b.width = w
	b.height = h
	b.progress.Width = min(w-12, challenge.BoardSide*3)
}

// day returns the record for the current day, or an empty one before the
// first load.
func (b boardModel) day() store.Day {
	for _, d := range b.days {
		if d.Number == b.current {
			return d
		}
	}
	return store.Day{Number: b.current}
}

func (b boardModel) update(msg tea.Msg) (boardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case stateMsg:
		if msg.err != nil {
			return b, nil
		}
		b.days = msg.days
		b.current = msg.current
		b.motivation = msg.motivation
		b.mode = msg.settings.DisplayMode
		return b, nil

	case incrementedMsg:
		if msg.err != nil {
			return b, nil
		}
		for i := range b.days {
			if b.days[i].Number == msg.result.Day.Number {
				b.days[i] = msg.result.Day
			}
		}
		return b, nil

	case tea.KeyMsg:
		if b.confirmReset {
			b.confirmReset = false
			if key.Matches(msg, keys.Confirm) {
				return b, resetCmd(b.tracker)
			}
			return b, statusCmd("Reset cancelled")
		}
		switch {
		case key.Matches(msg, keys.Tap), key.Matches(msg, keys.Enter):
			return b, tapCmd(b.tracker, b.current)
		case key.Matches(msg, keys.PrevDay):
			if b.current > 1 {
				return b, setDayCmd(b.tracker, b.current-1)
			}
		case key.Matches(msg, keys.NextDay):
			if b.current < store.NumDays {
				return b, setDayCmd(b.tracker, b.current+1)
			}
		case key.Matches(msg, keys.Reset):
			b.confirmReset = true
		}
	}
	return b, nil
}

func tapCmd(t *challenge.Tracker, day int) tea.Cmd {
	return func() tea.Msg {
		res, err := t.Increment(context.Background(), day, store.SourceManual)
		return incrementedMsg{result: res, err: err}
	}
}

func setDayCmd(t *challenge.Tracker, day int) tea.Cmd {
	return func() tea.Msg {
		if err := t.SetCurrentDay(context.Background(), day); err != nil {
			return statusMsg{text: fmt.Sprintf("Switch day: %v", err), isError: true}
		}
		return loadState(t)()
	}
}

func resetCmd(t *challenge.Tracker) tea.Cmd {
	return func() tea.Msg {
		if err := t.Reset(context.Background()); err != nil {
			return statusMsg{text: fmt.Sprintf("Reset failed: %v", err), isError: true}
		}
		return resetDoneMsg{}
	}
}

func statusCmd(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func (b boardModel) view() string {
	w := b.width - 4
	d := b.day()

	title := titleStyle.Render(fmt.Sprintf("Day %d of %d", b.current, store.NumDays))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom, title, "   ", b.renderDayPills())

	count := d.Count()
	countLine := countStyle.Render(fmt.Sprintf("%d / %d", count, challenge.Target))
	if d.Completed {
		countLine = successStyle.Bold(true).Render(fmt.Sprintf("%d / %d  ✓ complete", count, challenge.Target))
	}

	var board string
	switch b.mode {
	case store.DisplayBig:
		board = renderBigNumber(count)
	case store.DisplaySequential:
		board = renderGrid(d, true)
	default:
		board = renderGrid(d, false)
	}

	rows := []string{
		header,
		"",
		board,
		"",
		countLine,
		b.progress.ViewAs(float64(count) / challenge.Target),
	}
	if b.motivation != "" {
		rows = append(rows, "", subtitleStyle.Italic(true).Render("“"+b.motivation+"”"))
	}
	if b.confirmReset {
		rows = append(rows, "", warningStyle.Bold(true).Render("Reset all seven days? Settings are kept.  y: confirm  any key: cancel"))
	} else {
		rows = append(rows, "", mutedStyle.Render("space: tap  ←/→: day  R: reset"))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (b boardModel) renderDayPills() string {
	var pills []string
	for n := 1; n <= store.NumDays; n++ {
		label := fmt.Sprintf(" %d ", n)
		var d store.Day
		for _, x := range b.days {
			if x.Number == n {
				d = x
			}
		}
		switch {
		case n == b.current:
			pills = append(pills, selectedItemStyle.Underline(true).Render(label))
		case d.Completed:
			pills = append(pills, successStyle.Render(label))
		case d.Count() > 0:
			pills = append(pills, highlightStyle.Render(label))
		default:
			pills = append(pills, mutedStyle.Render(label))
		}
	}
	return strings.Join(pills, "")
}

// renderGrid draws the 10x10 board. Numbered cells show the square's number,
// plain cells a colored block.
func renderGrid(d store.Day, numbered bool) string {
	byPos := make(map[int]store.Square, len(d.Squares))
	for _, sq := range d.Squares {
		byPos[sq.Position] = sq
	}
	empty := lipgloss.NewStyle().Foreground(colorEmpty)

	var lines []string
	for r := 0; r < challenge.BoardSide; r++ {
		var cells []string
		for c := 0; c < challenge.BoardSide; c++ {
			sq, ok := byPos[r*challenge.BoardSide+c]
			switch {
			case !ok && numbered:
				cells = append(cells, empty.Render("  ·"))
			case !ok:
				cells = append(cells, empty.Render("░░"))
			case numbered:
				cells = append(cells, lipgloss.NewStyle().Foreground(lipgloss.Color(sq.Color)).Bold(true).Render(fmt.Sprintf("%3d", sq.Number)))
			default:
				cells = append(cells, lipgloss.NewStyle().Foreground(lipgloss.Color(sq.Color)).Render("██"))
			}
		}
		lines = append(lines, strings.Join(cells, " "))
	}
	return strings.Join(lines, "\n")
}

var bigDigits = [10][5]string{
	{"███", "█ █", "█ █", "█ █", "███"},
	{" █ ", "██ ", " █ ", " █ ", "███"},
	{"███", "  █", "███", "█  ", "███"},
	{"███", "  █", "███", "  █", "███"},
	{"█ █", "█ █", "███", "  █", "  █"},
	{"███", "█  ", "███", "  █", "███"},
	{"███", "█  ", "███", "█ █", "███"},
	{"███", "  █", "  █", "  █", "  █"},
	{"███", "█ █", "███", "█ █", "███"},
	{"███", "█ █", "███", "  █", "███"},
}

var widen = strings.NewReplacer("█", "██", " ", "  ")

func renderBigNumber(n int) string {
	digits := fmt.Sprintf("%d", n)
	var lines [5]string
	for i, ch := range digits {
		glyph := bigDigits[ch-'0']
		for row := range lines {
			if i > 0 {
				lines[row] += "  "
			}
			lines[row] += widen.Replace(glyph[row])
		}
	}
	style := lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	if n >= challenge.Target {
		style = style.Foreground(colorSuccess)
	}
	return style.Render(strings.Join(lines[:], "\n"))
}
