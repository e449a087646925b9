package timeutil

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	cases := map[int64]string{
		0:      "0ms",
		450:    "450ms",
		1200:   "1.2s",
		135300: "2m 15.3s",
	}
	for ms, want := range cases {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %q, want %q", ms, got, want)
		}
	}
}

func TestFormatOffset(t *testing.T) {
	cases := map[float64]string{
		-5:      "00:00.000",
		470:     "00:00.470",
		61234.4: "01:01.234",
	}
	for ms, want := range cases {
		if got := FormatOffset(ms); got != want {
			t.Errorf("FormatOffset(%v) = %q, want %q", ms, got, want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{0, "just now"},
		{5 * time.Second, "5s ago"},
		{2 * time.Minute, "2m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}
	for _, tc := range cases {
		if got := relativeTo(now, now.Add(-tc.ago).UnixNano()); got != tc.want {
			t.Errorf("relativeTo(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}
