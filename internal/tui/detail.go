package tui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// renderDetail renders the selected run's summary (right side).
func renderDetail(m *Model, width, height int) string {
	title := panelTitleStyle.Render("Detail")

	if m.runDetail == nil || m.runDetail.run == nil {
		return title + "\n\n" +
			emptyStateStyle.Render("Select a run to view details.")
	}

	d := m.runDetail
	run := d.run
	var lines []string

	lines = append(lines, title)
	lines = append(lines, "")

	// ── Metadata ──

	lines = append(lines, detailRow("ID", shortID(run.RunID, 16)))
	if run.Label != "" {
		lines = append(lines, detailRow("Label", run.Label))
	}
	lines = append(lines, detailRow("Status", run.Status))
	lines = append(lines, detailRow("Seed", fmt.Sprintf("%d", uint64(run.Seed))))
	lines = append(lines, detailRow("Started", timeutil.FormatTimestampFull(run.StartTime)))
	lines = append(lines, detailRow("Viewport", fmt.Sprintf("%.0f×%.0f @ %.0f fps", run.Width, run.Height, run.FPS)))
	lines = append(lines, detailRow("Frames", fmt.Sprintf("%d", run.Frames)))

	// ── Run statistics ──

	if st := d.stats; st != nil {
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Run Summary"))
		lines = append(lines, detailRow("Transitions", fmt.Sprintf("%d", st.Transitions)))
		lines = append(lines, detailRow("Stalls", fmt.Sprintf("%d", st.Stalls)))
		lines = append(lines, detailRow("Distinct Cells", fmt.Sprintf("%d", st.DistinctCells)))
		lines = append(lines, detailRow("Duration", timeutil.FormatDuration(int64(st.DurationMs))))
		lines = append(lines, detailRow("Scroll Speed", fmt.Sprintf("mean %.2f  max %.2f", st.MeanScrollVel, st.MaxScrollVel)))
	}

	// ── Direction distribution ──

	if w := d.walk; w != nil && w.Moves > 0 {
		barWidth := min(width-22, 40)
		lines = append(lines, "")
		lines = append(lines, detailSectionStyle.Render("Directions"))

		names := make([]string, 0, len(w.Directions))
		for name := range w.Directions {
			names = append(names, name)
		}
		slices.SortFunc(names, func(a, b string) int {
			return cmp.Or(cmp.Compare(w.Directions[b], w.Directions[a]), cmp.Compare(a, b))
		})
		for _, name := range names {
			lines = append(lines, renderUsageBar(name, w.Directions[name], w.Moves, barWidth, dirColor(name)))
		}

		lines = append(lines, "")
		lines = append(lines, detailRow("Reversal Rate", fmt.Sprintf("%.1f%%", w.ReversalRate*100)))
		lines = append(lines, detailRow("Revisit Rate", fmt.Sprintf("%.1f%%", w.RevisitRate*100)))
		lines = append(lines, detailRow("Longest Straight", fmt.Sprintf("%d", w.LongestStraight)))
	}

	// Truncate to available height
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// renderDetailPanel wraps detail in a styled panel.
func renderDetailPanel(m *Model, width, height int) string {
	content := renderDetail(m, width-4, height-2)
	return panelStyle.Width(width).Height(height).Render(content)
}

// ── helpers ──

func detailRow(label, value string) string {
	return detailLabelStyle.Render(label) + "  " + detailValueStyle.Render(value)
}

func renderUsageBar(label string, count, total, barWidth int, color lipgloss.Color) string {
	if total == 0 || barWidth <= 0 {
		return ""
	}
	pct := count * 100 / total
	filled := barWidth * count / total
	if filled < 1 && count > 0 {
		filled = 1
	}
	empty := barWidth - filled

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("%-8s %s %d%%", label, bar, pct)
}
