// Package effects holds the small time-driven animations of the landing
// page: the stat counters, the typing subtitle and the navbar state.
// Like the grid trace, each one is a value advanced by Step(ts) with a
// millisecond timestamp.
package effects

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CounterDuration is how long a counter takes to reach its target.
const CounterDuration = 1800 * time.Millisecond

// Counter counts from zero up to Target with an ease-out cubic curve.
type Counter struct {
	Target   int
	Suffix   string
	Duration time.Duration

	printer *message.Printer
	start   float64
	started bool
	value   int
}

// NewCounter creates a counter that formats numbers for tag.
func NewCounter(target int, suffix string, tag language.Tag) *Counter {
	return &Counter{
		Target:   target,
		Suffix:   suffix,
		Duration: CounterDuration,
		printer:  message.NewPrinter(tag),
	}
}

// EaseOutCubic maps progress p in [0,1] to 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	return 1 - math.Pow(1-p, 3)
}

// Step advances the counter to ts and returns the formatted value and
// whether the target has been reached. The first call starts the clock.
func (c *Counter) Step(ts float64) (string, bool) {
	if !c.started {
		c.started = true
		c.start = ts
	}
	d := float64(c.Duration) / float64(time.Millisecond)
	progress := 1.0
	if d > 0 {
		progress = math.Min(math.Max((ts-c.start)/d, 0), 1)
	}
	c.value = int(math.Floor(float64(c.Target) * EaseOutCubic(progress)))
	return c.Text(), progress >= 1
}

// Value is the last computed integer.
func (c *Counter) Value() int { return c.value }

// Text formats the current value with locale grouping and the suffix.
func (c *Counter) Text() string {
	p := c.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return p.Sprintf("%d", c.value) + c.Suffix
}

// Restart rewinds the counter so the next Step starts from zero.
func (c *Counter) Restart() {
	c.started = false
	c.value = 0
}
