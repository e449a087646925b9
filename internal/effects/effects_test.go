package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestEaseOutCubic(t *testing.T) {
	assert.Equal(t, 0.0, EaseOutCubic(0))
	assert.Equal(t, 1.0, EaseOutCubic(1))
	assert.InDelta(t, 0.875, EaseOutCubic(0.5), 1e-12)
}

func TestCounterReachesTarget(t *testing.T) {
	c := NewCounter(12500, "+", language.English)

	text, done := c.Step(1000)
	assert.False(t, done)
	assert.Equal(t, "0+", text)

	text, done = c.Step(1000 + 900)
	assert.False(t, done)
	assert.Equal(t, 10937, c.Value())
	assert.Equal(t, "10,937+", text)

	prev := c.Value()
	for ts := 1900.0; ts < 2800; ts += 16 {
		c.Step(ts)
		assert.GreaterOrEqual(t, c.Value(), prev)
		prev = c.Value()
	}

	text, done = c.Step(1000 + 1800)
	assert.True(t, done)
	assert.Equal(t, "12,500+", text)

	c.Restart()
	text, _ = c.Step(5000)
	assert.Equal(t, "0+", text)
}

func TestCounterUsesLocaleGrouping(t *testing.T) {
	c := NewCounter(4200, "", language.French)
	c.Step(0)
	text, _ := c.Step(2000)
	assert.NotEqual(t, "4,200", text)
	assert.Contains(t, text, "4")
	assert.Contains(t, text, "200")
}

func TestTypewriterCycle(t *testing.T) {
	tw := NewTypewriter("ab", "xyz")

	assert.Equal(t, "a", tw.Step(0))
	assert.Equal(t, "a", tw.Step(54))
	assert.Equal(t, "ab", tw.Step(55))

	// Held for 2200ms once fully typed.
	assert.Equal(t, "ab", tw.Step(2254))
	assert.Equal(t, "a", tw.Step(2255))
	assert.Equal(t, "", tw.Step(2290))
	assert.Equal(t, 1, tw.Phrase())

	assert.Equal(t, "x", tw.Step(2345))
	assert.Equal(t, "xyz", tw.Step(2455))
}

func TestTypewriterCatchesUpAfterLongFrame(t *testing.T) {
	tw := NewTypewriter("hello")
	tw.Step(0)
	assert.Equal(t, "hello", tw.Step(4*55))
}

func TestTypewriterEmpty(t *testing.T) {
	tw := NewTypewriter()
	assert.Equal(t, "", tw.Step(100))
	assert.Equal(t, "", tw.Text())
}

func TestNavScrolled(t *testing.T) {
	assert.False(t, NavScrolled(0))
	assert.False(t, NavScrolled(40))
	assert.True(t, NavScrolled(40.5))
}
