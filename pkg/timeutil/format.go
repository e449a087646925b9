// Package timeutil provides time formatting utilities for Veridian.
//
// Wall-clock timestamps (run start and end) are stored as Unix nanoseconds
// (int64). Animation timestamps are float64 milliseconds since the first
// frame of a run. This package turns both into display strings for the
// TUI, the CLI and generated reports.
package timeutil

import (
	"fmt"
	"math"
	"time"
)

// FromNano converts a Unix nanosecond timestamp to time.Time.
func FromNano(ns int64) time.Time {
	return time.Unix(0, ns)
}

// NowNano returns the current time as Unix nanoseconds.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// FormatTimestampFull formats a Unix nanosecond timestamp with date.
// Format: "2006-01-02 15:04:05.000"
func FormatTimestampFull(ns int64) string {
	return FromNano(ns).Format("2006-01-02 15:04:05.000")
}

// FormatDuration formats a duration in milliseconds to a human-readable string.
// Examples: "1.2s", "450ms", "2m 15.3s"
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.1fs", seconds)
	}
	minutes := int(seconds / 60)
	remaining := seconds - float64(minutes*60)
	return fmt.Sprintf("%dm %.1fs", minutes, remaining)
}

// FormatOffset formats a run-relative millisecond timestamp as "MM:SS.mmm".
// Negative offsets clamp to zero.
func FormatOffset(ms float64) string {
	if ms < 0 || math.IsNaN(ms) {
		ms = 0
	}
	total := int64(math.Round(ms))
	return fmt.Sprintf("%02d:%02d.%03d", total/60000, total/1000%60, total%1000)
}

// RelativeTime returns a human-readable relative time string.
// Examples: "just now", "5s ago", "2m ago", "1h ago"
func RelativeTime(ns int64) string {
	return relativeTo(time.Now(), ns)
}

func relativeTo(now time.Time, ns int64) string {
	diff := now.Sub(FromNano(ns))

	switch {
	case diff < time.Second:
		return "just now"
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		days := int(diff.Hours() / 24)
		return fmt.Sprintf("%dd ago", days)
	}
}
