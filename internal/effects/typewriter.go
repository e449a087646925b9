package effects

import "time"

// Typewriter timings.
const (
	TypeDelay   = 55 * time.Millisecond
	DeleteDelay = 35 * time.Millisecond
	HoldDelay   = 2200 * time.Millisecond
)

// Typewriter types a phrase one rune at a time, holds it, deletes it and
// moves on to the next phrase, forever.
type Typewriter struct {
	phrases [][]rune

	phrase   int
	pos      int
	deleting bool
	next     float64
	started  bool
}

// NewTypewriter cycles through phrases in order.
func NewTypewriter(phrases ...string) *Typewriter {
	tw := &Typewriter{}
	tw.SetPhrases(phrases...)
	return tw
}

// SetPhrases replaces the phrase list and restarts from the first one.
func (t *Typewriter) SetPhrases(phrases ...string) {
	t.phrases = t.phrases[:0]
	for _, p := range phrases {
		t.phrases = append(t.phrases, []rune(p))
	}
	t.phrase, t.pos, t.deleting, t.started = 0, 0, false, false
}

// Step advances to ts, possibly by several ticks after a long frame, and
// returns the visible text.
func (t *Typewriter) Step(ts float64) string {
	if len(t.phrases) == 0 {
		return ""
	}
	if !t.started {
		t.started = true
		t.next = ts
	}
	for ts >= t.next {
		t.next += t.tick()
	}
	return t.Text()
}

// tick performs one edit and returns the delay before the next one.
func (t *Typewriter) tick() float64 {
	cur := t.phrases[t.phrase]
	if !t.deleting {
		if t.pos < len(cur) {
			t.pos++
		}
		if t.pos >= len(cur) {
			t.deleting = true
			return ms(HoldDelay)
		}
		return ms(TypeDelay)
	}

	if t.pos > 0 {
		t.pos--
	}
	if t.pos == 0 {
		t.deleting = false
		t.phrase = (t.phrase + 1) % len(t.phrases)
		return ms(TypeDelay)
	}
	return ms(DeleteDelay)
}

// Text is the currently visible prefix.
func (t *Typewriter) Text() string {
	if len(t.phrases) == 0 {
		return ""
	}
	return string(t.phrases[t.phrase][:t.pos])
}

// Phrase is the index of the phrase being typed or deleted.
func (t *Typewriter) Phrase() int { return t.phrase }

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// NavScrollThreshold is the scroll offset past which the navbar turns solid.
const NavScrollThreshold = 40

// NavScrolled reports whether the navbar should use its scrolled style.
func NavScrolled(scrollY float64) bool {
	return scrollY > NavScrollThreshold
}
