package tui

import (
	"fmt"
	"strings"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// renderTimeline renders the live transition log, newest at the bottom.
func renderTimeline(m *Model, width, height int) string {
	title := panelTitleStyle.Render("Transitions")
	title += runDimStyle.Render(fmt.Sprintf("  %d", m.stage.total))

	recent := m.stage.recent
	if len(recent) == 0 {
		return title + "\n\n" + diffContextStyle.Render("Waiting for the first step.")
	}

	contentHeight := max(height-2, 1)
	if len(recent) > contentHeight {
		recent = recent[len(recent)-contentHeight:]
	}

	lines := []string{title, ""}
	for _, tr := range recent {
		seq := logSeqStyle.Render(fmt.Sprintf("%4d", tr.Seq))
		at := logTimeStyle.Render(timeutil.FormatOffset(tr.At))
		move := dirLabel(tr)
		line := fmt.Sprintf("%s %s %s", seq, at, move)
		lines = append(lines, truncateStyled(line, width))
	}
	return strings.Join(lines, "\n")
}

// renderTimelinePanel wraps the log in a styled panel.
func renderTimelinePanel(m *Model, width, height int) string {
	content := renderTimeline(m, width-4, height-2)
	return panelStyle.Width(width).Height(height).Render(content)
}

// dirLabel describes one transition with a coloured arrow.
func dirLabel(tr gridtrace.Transition) string {
	if tr.Stalled {
		return stallStyle.Render(fmt.Sprintf("■ stall  (%d,%d)", tr.From.I, tr.From.J))
	}
	text := fmt.Sprintf("%s %-5s (%d,%d)", dirArrow(tr.Dir), tr.Dir, tr.To.I, tr.To.J)
	return dirStyle(tr.Dir).Render(text)
}

func dirArrow(d gridtrace.Dir) string {
	switch d {
	case gridtrace.Dir{DI: 1}:
		return "→"
	case gridtrace.Dir{DI: -1}:
		return "←"
	case gridtrace.Dir{DJ: 1}:
		return "↓"
	case gridtrace.Dir{DJ: -1}:
		return "↑"
	}
	return "·"
}
