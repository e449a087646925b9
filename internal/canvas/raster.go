// Package canvas provides gridtrace.Surface implementations: an
// anti-aliased RGBA raster for snapshots and a character-cell grid for the
// terminal.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

// circleSides is the polygon resolution used for dots.
const circleSides = 24

// glowLayers is how many concentric translucent discs make up a glow.
const glowLayers = 4

// Raster paints onto an in-memory RGBA image.
type Raster struct {
	Background color.NRGBA

	img *image.RGBA
	z   *vector.Rasterizer
}

// NewRaster allocates a w×h raster. Clear resizes it as needed.
func NewRaster(w, h int) *Raster {
	r := &Raster{}
	r.alloc(w, h)
	return r
}

func (r *Raster) alloc(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	r.img = image.NewRGBA(image.Rect(0, 0, w, h))
	r.z = vector.NewRasterizer(w, h)
}

// Clear resets the image to the background, reallocating on size change.
func (r *Raster) Clear(w, h float64) {
	wi, hi := int(math.Ceil(w)), int(math.Ceil(h))
	if b := r.img.Bounds(); b.Dx() != max(wi, 1) || b.Dy() != max(hi, 1) {
		r.alloc(wi, hi)
	}
	draw.Draw(r.img, r.img.Bounds(), image.NewUniform(r.Background), image.Point{}, draw.Src)
}

// Line strokes a segment as a quad of the stroke width.
func (r *Raster) Line(a, b gridtrace.Point, s gridtrace.Stroke) {
	hw := math.Max(s.Width, 1) / 2
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		r.disc(a, hw, s.Color, s.Alpha)
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw

	r.begin()
	r.z.MoveTo(f32(a.X+nx), f32(a.Y+ny))
	r.z.LineTo(f32(b.X+nx), f32(b.Y+ny))
	r.z.LineTo(f32(b.X-nx), f32(b.Y-ny))
	r.z.LineTo(f32(a.X-nx), f32(a.Y-ny))
	r.z.ClosePath()
	r.fill(s.Color, s.Alpha)
}

// Dot fills a disc, preceded by a soft halo when the stroke has a glow.
func (r *Raster) Dot(p gridtrace.Point, radius float64, s gridtrace.Stroke) {
	if s.Glow > 0 {
		for i := glowLayers; i >= 1; i-- {
			rr := radius + s.Glow*float64(i)/glowLayers
			r.disc(p, rr, s.Color, s.Alpha*0.12)
		}
	}
	r.disc(p, radius, s.Color, s.Alpha)
}

func (r *Raster) disc(p gridtrace.Point, radius float64, c color.NRGBA, alpha float64) {
	if radius <= 0 {
		return
	}
	r.begin()
	for i := 0; i < circleSides; i++ {
		t := 2 * math.Pi * float64(i) / circleSides
		x, y := f32(p.X+radius*math.Cos(t)), f32(p.Y+radius*math.Sin(t))
		if i == 0 {
			r.z.MoveTo(x, y)
		} else {
			r.z.LineTo(x, y)
		}
	}
	r.z.ClosePath()
	r.fill(c, alpha)
}

func (r *Raster) begin() {
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over
}

func (r *Raster) fill(c color.NRGBA, alpha float64) {
	alpha = math.Min(math.Max(alpha, 0), 1)
	c.A = uint8(math.Round(float64(c.A) * alpha))
	if c.A == 0 {
		return
	}
	r.z.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{})
}

// Image returns the backing image. It is reused across frames.
func (r *Raster) Image() *image.RGBA { return r.img }

// EncodePNG writes the current image as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

func f32(v float64) float32 { return float32(v) }
