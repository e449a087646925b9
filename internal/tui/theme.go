package tui

import (
	"fmt"
	"image/color"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// ────────────────────────────────────────────────────────────
// Color Palette: dark landing-page aesthetic
// ────────────────────────────────────────────────────────────
//
// All colors are defined here. The trace ramp is derived from the
// animation colour at runtime and blended toward colorBg.

var (
	// Base
	colorBg        = lipgloss.Color("#0d1117")
	colorBgPanel   = lipgloss.Color("#161b22")
	colorBgSurface = lipgloss.Color("#1c2128")

	// Text
	colorText      = lipgloss.Color("#e6edf3")
	colorTextDim   = lipgloss.Color("#8b949e")
	colorTextMuted = lipgloss.Color("#484f58")

	// Accents
	colorBlue   = lipgloss.Color("#58a6ff")
	colorGreen  = lipgloss.Color("#3fb950")
	colorRed    = lipgloss.Color("#f85149")
	colorYellow = lipgloss.Color("#d29922")
	colorPurple = lipgloss.Color("#bc8cff")
	colorCyan   = lipgloss.Color("#76e3ea")

	// Structural
	colorDivider   = lipgloss.Color("#30363d")
	colorHighlight = lipgloss.Color("#1f6feb")
)

// bgRGB mirrors colorBg for ramp blending.
var bgRGB = color.NRGBA{R: 0x0d, G: 0x11, B: 0x17, A: 0xff}

// ────────────────────────────────────────────────────────────
// Component Styles
// ────────────────────────────────────────────────────────────

// Header bar
var (
	headerBarStyle = lipgloss.NewStyle().
			Background(colorBgSurface).
			Foreground(colorText).
			Padding(0, 1)

	// Navbar after the page has scrolled past the threshold.
	headerBarScrolledStyle = lipgloss.NewStyle().
				Background(colorBgPanel).
				Foreground(colorText).
				Padding(0, 1)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorGreen)

	headerSepStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	headerMetaStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	headerCursorStyle = lipgloss.NewStyle().
				Foreground(colorGreen)

	statValueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)
)

// Panel chrome
var (
	panelStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.Border{
			Top:    "─",
			Bottom: "",
			Left:   "",
			Right:  "",
		}).
		BorderForeground(colorDivider)

	panelActiveStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Border(lipgloss.Border{
			Top:    "─",
			Bottom: "",
			Left:   "",
			Right:  "",
		}).
		BorderForeground(colorBlue)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(colorBlue).
			Bold(true)

	panelTitleDimStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted).
				Bold(true)
)

// Transition log
var (
	dirRightStyle = lipgloss.NewStyle().Foreground(colorGreen)
	dirLeftStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	dirDownStyle  = lipgloss.NewStyle().Foreground(colorPurple)
	dirUpStyle    = lipgloss.NewStyle().Foreground(colorBlue)
	stallStyle    = lipgloss.NewStyle().Foreground(colorRed)

	logSeqStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	logTimeStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)
)

// Run detail pane
var (
	detailLabelStyle = lipgloss.NewStyle().
				Foreground(colorBlue)

	detailValueStyle = lipgloss.NewStyle().
				Foreground(colorText)

	detailSectionStyle = lipgloss.NewStyle().
				Foreground(colorDivider)

	barEmptyStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)
)

// Parameter diff
var (
	diffAddStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	diffDelStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	diffContextStyle = lipgloss.NewStyle().
				Foreground(colorTextMuted)
)

// Footer / status bar
var (
	statusStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorBgSurface).
			Padding(0, 1)

	statusAccentStyle = lipgloss.NewStyle().
				Foreground(colorBlue).
				Background(colorBgSurface).
				Bold(true).
				Padding(0, 1)

	hintKeyStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	hintDescStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)
)

// Toasts
var (
	toastInfoStyle = lipgloss.NewStyle().
			Foreground(colorBg).
			Background(colorGreen).
			Padding(0, 1)

	toastWarnStyle = lipgloss.NewStyle().
			Foreground(colorBg).
			Background(colorYellow).
			Padding(0, 1)

	toastErrorStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorRed).
			Padding(0, 1)
)

// Run list
var (
	runItemStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Padding(0, 1)

	runSelectedStyle = lipgloss.NewStyle().
				Background(colorHighlight).
				Foreground(colorText).
				Bold(true).
				Padding(0, 1)

	runStatusOk = lipgloss.NewStyle().
			Foreground(colorGreen)

	runStatusFail = lipgloss.NewStyle().
			Foreground(colorRed)

	runStatusRunning = lipgloss.NewStyle().
				Foreground(colorYellow)

	runDimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	emptyStateStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Padding(2, 4)
)

// ────────────────────────────────────────────────────────────
// Trace ramp
// ────────────────────────────────────────────────────────────

// rampGlyphs go from faintest to brightest.
var rampGlyphs = []string{"·", "░", "▒", "▓", "█"}

// ramp holds the pre-rendered cell strings for one trace colour.
type ramp struct {
	levels []string
	head   string
	blank  string
}

// newRamp blends c toward the background once per level so rendering a
// frame is a table lookup per cell.
func newRamp(c color.NRGBA) ramp {
	r := ramp{blank: " "}
	n := len(rampGlyphs)
	for i, g := range rampGlyphs {
		t := 0.3 + 0.7*float64(i)/float64(n-1)
		r.levels = append(r.levels, lipgloss.NewStyle().Foreground(blend(c, t)).Render(g))
	}
	r.head = lipgloss.NewStyle().Foreground(blend(c, 1)).Bold(true).Render("●")
	return r
}

func rampFor(p gridtrace.Params) ramp {
	c, err := gridtrace.ParseColor(p.Color)
	if err != nil {
		c = color.NRGBA{R: 0x3f, G: 0xb9, B: 0x50, A: 0xff}
	}
	return newRamp(c)
}

// glyph maps a cell intensity in [0, 1] onto the ramp.
func (r ramp) glyph(level float64, head bool) string {
	if head {
		return r.head
	}
	if level < 0.02 {
		return r.blank
	}
	i := int(level * float64(len(r.levels)))
	return r.levels[clamp(i, 0, len(r.levels)-1)]
}

func blend(c color.NRGBA, t float64) lipgloss.Color {
	mix := func(a, b uint8) uint8 {
		return uint8(float64(b) + (float64(a)-float64(b))*t + 0.5)
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", mix(c.R, bgRGB.R), mix(c.G, bgRGB.G), mix(c.B, bgRGB.B)))
}
