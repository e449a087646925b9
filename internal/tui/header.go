package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/veridian/internal/effects"
	"github.com/Mr-Dark-debug/veridian/pkg/timeutil"
)

// renderHeader produces the top bar:
//
//	VERIDIAN AI  |  Tickets translated in re▌            fr  00:12.480
func renderHeader(m *Model) string {
	brand := headerBrandStyle.Render(m.catalog.T("brand"))
	sep := headerSepStyle.Render(" │ ")
	left := brand + sep + headerMetaStyle.Render(m.subtitle) + headerCursorStyle.Render("▌")

	state := m.catalog.T("status.running")
	if m.paused {
		state = m.catalog.T("status.paused")
	}
	right := headerMetaStyle.Render(fmt.Sprintf("%s  %s  %s",
		strings.ToUpper(m.lang), state, timeutil.FormatOffset(m.elapsed)))

	style := headerBarStyle
	if effects.NavScrolled(m.page.ScrollY()) {
		style = headerBarScrolledStyle
	}
	return style.Width(m.width).Render(spread(left, right, m.width-2))
}

// renderStats shows the landing counters and the walk counters.
func renderStats(m *Model) string {
	var parts []string
	for _, c := range m.counters {
		parts = append(parts, statValueStyle.Render(c.counter.Text())+" "+statLabelStyle.Render(m.catalog.T(c.label)))
	}
	left := strings.Join(parts, statLabelStyle.Render("   "))

	anim := m.stage.anim
	right := statLabelStyle.Render(fmt.Sprintf("frames %d  transitions %d  cols %d  scroll %.0f/%.0f  v %.1f",
		anim.Frames(), anim.Transitions(), anim.Cols(), m.page.ScrollY(), m.page.maxScroll(), anim.ScrollVelocity()))

	return lipgloss.NewStyle().Width(m.width).Padding(0, 1).Render(spread(left, right, m.width-2))
}

// renderFooter produces the bottom status bar with keyboard hints. An
// active toast replaces the status message.
func renderFooter(m *Model) string {
	var left, right string

	if t, ok := m.toasts.current(); ok {
		left = t.render()
	} else if m.statusMsg != "" {
		left = statusStyle.Render(m.statusMsg)
	}

	if m.showRuns {
		right = renderHints([]hint{
			{"↑↓", m.catalog.T("hint.scroll")},
			{"enter", m.catalog.T("hint.select")},
			{"esc", m.catalog.T("hint.back")},
			{"q", m.catalog.T("hint.quit")},
		})
	} else {
		right = renderHints([]hint{
			{"j/k", m.catalog.T("hint.scroll")},
			{"pgup/pgdn", m.catalog.T("hint.page")},
			{"space", m.catalog.T("hint.pause")},
			{"r", m.catalog.T("hint.runs")},
			{"l", m.catalog.T("hint.lang")},
			{"q", m.catalog.T("hint.quit")},
		})
	}

	return lipgloss.NewStyle().
		Background(colorBgSurface).
		Width(m.width).
		Render(spread(left, right, m.width))
}

type hint struct {
	key  string
	desc string
}

func renderHints(hints []hint) string {
	var parts []string
	for _, h := range hints {
		parts = append(parts,
			hintKeyStyle.Render(h.key)+" "+hintDescStyle.Render(h.desc))
	}
	return strings.Join(parts, hintDescStyle.Render("  "))
}

// spread places left and right at the two ends of width cells.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

// statCounter pairs an animated counter with its catalog label.
type statCounter struct {
	counter *effects.Counter
	label   string
}
