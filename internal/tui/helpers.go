package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// ────────────────────────────────────────────────────────────
// Direction rendering
// ────────────────────────────────────────────────────────────

// dirStyle returns the style for a step direction.
func dirStyle(d gridtrace.Dir) lipgloss.Style {
	switch d {
	case gridtrace.Dir{DI: 1}:
		return dirRightStyle
	case gridtrace.Dir{DI: -1}:
		return dirLeftStyle
	case gridtrace.Dir{DJ: 1}:
		return dirDownStyle
	case gridtrace.Dir{DJ: -1}:
		return dirUpStyle
	default:
		return stallStyle
	}
}

// dirColor is the bar colour for a direction name from a walk report.
func dirColor(name string) lipgloss.Color {
	switch name {
	case "right":
		return colorGreen
	case "left":
		return colorCyan
	case "down":
		return colorPurple
	case "up":
		return colorBlue
	default:
		return colorTextDim
	}
}

// ────────────────────────────────────────────────────────────
// String helpers
// ────────────────────────────────────────────────────────────

// truncate cuts a string to maxLen and appends "..." if truncated.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// truncateStyled cuts an already styled line to width visible cells.
func truncateStyled(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

// shortID returns first n characters of an ID string.
func shortID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// clamp restricts val to [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
