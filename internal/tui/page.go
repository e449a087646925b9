package tui

import (
	"github.com/charmbracelet/harmonica"
)

// page is the virtual document the terminal scrolls through and the
// animator's Host. Key presses move the target; the visible position
// glides toward it on a critically damped spring, so the walk sees a
// real scroll velocity instead of jumps.
type page struct {
	spring harmonica.Spring

	pos    float64
	vel    float64
	target float64

	height float64
	w, h   float64
}

func newPage(fps, height float64) *page {
	return &page{
		spring: harmonica.NewSpring(harmonica.FPS(max(int(fps), 1)), 6.0, 1.0),
		height: height,
	}
}

func (p *page) ScrollY() float64 { return p.pos }

func (p *page) Viewport() (w, h float64) { return p.w, p.h }

// maxScroll is the furthest the viewport's top can go.
func (p *page) maxScroll() float64 {
	return max(p.height-p.h, 0)
}

func (p *page) setViewport(w, h float64) {
	p.w, p.h = w, h
	p.scrollTo(p.target)
}

func (p *page) scrollTo(y float64) {
	p.target = min(max(y, 0), p.maxScroll())
}

func (p *page) scrollBy(dy float64) {
	p.scrollTo(p.target + dy)
}

// update advances the spring one frame.
func (p *page) update() {
	p.pos, p.vel = p.spring.Update(p.pos, p.vel, p.target)
	if abs(p.pos-p.target) < 0.01 && abs(p.vel) < 0.01 {
		p.pos, p.vel = p.target, 0
	}
}

// settled reports whether the scroll has reached its target.
func (p *page) settled() bool {
	return p.pos == p.target && p.vel == 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
