package tui

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// paramChange is one animation setting altered by a config reload.
type paramChange struct {
	key           string
	before, after string
}

// diffParams compares two parameter sets by their config keys.
func diffParams(before, after gridtrace.Params) []paramChange {
	a, b := paramFields(before), paramFields(after)
	var changes []paramChange
	for k, nv := range b {
		if ov := a[k]; ov != nv {
			changes = append(changes, paramChange{key: k, before: ov, after: nv})
		}
	}
	slices.SortFunc(changes, func(x, y paramChange) int { return strings.Compare(x.key, y.key) })
	return changes
}

// paramFields flattens p into its yaml keys and printed values.
func paramFields(p gridtrace.Params) map[string]string {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// renderDiffView renders the changes from the last config reload.
func renderDiffView(m *Model, width, height int) string {
	title := panelTitleStyle.Render("Last Reload")

	if len(m.paramDiff) == 0 {
		return title + "\n" +
			diffContextStyle.Render("No animation changes.")
	}

	title += runDimStyle.Render(fmt.Sprintf("  %d changed", len(m.paramDiff)))

	var lines []string
	for _, c := range m.paramDiff {
		lines = append(lines,
			diffDelStyle.Render(truncate("- "+c.key+": "+c.before, width)),
			diffAddStyle.Render(truncate("+ "+c.key+": "+c.after, width)))
	}

	contentHeight := max(height-1, 1)
	if len(lines) > contentHeight {
		lines = lines[:contentHeight]
	}

	return title + "\n" + strings.Join(lines, "\n")
}

// renderDiffPanel wraps the diff view in a styled panel.
func renderDiffPanel(m *Model, width, height int) string {
	content := renderDiffView(m, width-4, height-2)
	return panelActiveStyle.Width(width).Height(height).Render(content)
}
