package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/veridian/internal/database"
	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// renderRunList renders the recorded run selector.
func renderRunList(m *Model, width, height int) string {
	if len(m.runs) == 0 {
		empty := emptyStateStyle.Render(m.catalog.T("runs.empty"))
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, empty)
	}

	title := panelTitleStyle.Render(m.catalog.T("pane.runs"))
	count := runDimStyle.Render(fmt.Sprintf("  %d total", len(m.runs)))

	lines := []string{title + count, ""}

	// Visible range for scrolling
	maxVisible := max(height-3, 3)
	startIdx := 0
	if m.selectedRun >= maxVisible {
		startIdx = m.selectedRun - maxVisible + 1
	}
	endIdx := min(startIdx+maxVisible, len(m.runs))

	for i := startIdx; i < endIdx; i++ {
		r := m.runs[i]

		label := r.Label
		if label == "" {
			label = "unlabelled"
		}
		content := fmt.Sprintf("%s  %s  %s  %s",
			statusDot(r.Status),
			truncate(label, 16),
			runDimStyle.Render(shortID(r.RunID, 8)),
			runDimStyle.Render(timeutil.RelativeTime(r.StartTime)))

		if i == m.selectedRun {
			lines = append(lines, runSelectedStyle.Width(width).Render(content))
		} else {
			lines = append(lines, runItemStyle.Width(width).Render(content))
		}
	}

	return strings.Join(lines, "\n")
}

func statusDot(status string) string {
	switch status {
	case database.StatusCompleted:
		return runStatusOk.Render("●")
	case database.StatusFailed:
		return runStatusFail.Render("●")
	case database.StatusRunning:
		return runStatusRunning.Render("○")
	default:
		return runDimStyle.Render("○")
	}
}

// renderRunsLayout places the list beside the selected run's detail.
func renderRunsLayout(m *Model, height int) string {
	if m.width < 60 {
		return renderRunList(m, m.width-2, height)
	}
	leftWidth := m.width * 45 / 100
	rightWidth := m.width - leftWidth

	list := panelActiveStyle.Width(leftWidth).Height(height).Render(renderRunList(m, leftWidth-4, height-2))
	detail := renderDetailPanel(m, rightWidth, height)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}
