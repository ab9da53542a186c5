package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

type weekModel struct {
	width  int
	height int

	days    []store.Day
	current int
	stats   challenge.Stats

	chart barchart.Model
}

func newWeekModel() weekModel {
	return weekModel{
		current: 1,
		chart:   barchart.New(60, 12),
	}
}

func (m *weekModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.buildChart()
}

func (m weekModel) update(msg stateMsg) weekModel {
	if msg.err != nil {
		return m
	}
	m.days = msg.days
	m.current = msg.current
	m.stats = msg.stats
	m.buildChart()
	return m
}

func (m *weekModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 30 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, d := range m.days {
		color := colorHighlight
		switch {
		case d.Completed:
			color = colorSuccess
		case d.Number == m.current:
			color = colorPrimary
		case d.Count() == 0:
			color = colorSubtle
		}
		bars = append(bars, barchart.BarData{
			Label: fmt.Sprintf("Day %d", d.Number),
			Values: []barchart.BarValue{{
				Name:  fmt.Sprintf("Day %d", d.Number),
				Value: float64(d.Count()),
				Style: lipgloss.NewStyle().Foreground(color),
			}},
		})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m weekModel) view() string {
	w := m.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("This Week"), "  ",
		mutedStyle.Render(fmt.Sprintf("%d squares  %d/%d days complete  streak %d",
			m.stats.TotalSquares, m.stats.CompletedDays, store.NumDays, m.stats.Streak)),
	)

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.chart.View(), "", m.renderTable(w),
		),
	)
}

func (m weekModel) renderTable(w int) string {
	if len(m.days) == 0 {
		return mutedStyle.Render("  No data yet")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-6s %9s  %-10s %s", "Day", "Count", "Status", "Last activity")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", max(10, min(w-6, 52)))))

	for _, d := range m.days {
		status := mutedStyle.Render(fmt.Sprintf("%-10s", "—"))
		switch {
		case d.Completed:
			status = successStyle.Render(fmt.Sprintf("%-10s", "complete"))
		case d.Count() > 0:
			status = highlightStyle.Render(fmt.Sprintf("%-10s", "going"))
		}
		last := "never"
		if t := d.LastActivity(); t != nil {
			last = humanize.Time(*t)
		}
		marker := "  "
		if d.Number == m.current {
			marker = accentStyle.Render("▸ ")
		}
		rows = append(rows, fmt.Sprintf("%s%-6s %5d/%-3d  %s %s",
			marker, fmt.Sprintf("Day %d", d.Number), d.Count(), challenge.Target, status, last))
	}

	return strings.Join(rows, "\n")
}
