package canvas

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/veridian/internal/gridtrace"
)

var green = color.NRGBA{R: 0x2d, G: 0xff, B: 0x8f, A: 0xff}

func TestRasterDrawsLine(t *testing.T) {
	r := NewRaster(10, 10)
	r.Clear(100, 50)
	require.Equal(t, 100, r.Image().Bounds().Dx())
	require.Equal(t, 50, r.Image().Bounds().Dy())

	r.Line(gridtrace.Point{X: 10, Y: 25}, gridtrace.Point{X: 90, Y: 25}, gridtrace.Stroke{Color: green, Alpha: 1, Width: 4})

	_, g, _, a := r.Image().At(50, 25).RGBA()
	assert.NotZero(t, a)
	assert.NotZero(t, g)

	_, _, _, a = r.Image().At(50, 5).RGBA()
	assert.Zero(t, a, "pixels away from the line stay clear")
}

func TestRasterDotWithGlow(t *testing.T) {
	r := NewRaster(60, 60)
	r.Clear(60, 60)
	r.Dot(gridtrace.Point{X: 30, Y: 30}, 3, gridtrace.Stroke{Color: green, Alpha: 1, Glow: 12})

	_, _, _, core := r.Image().At(30, 30).RGBA()
	_, _, _, halo := r.Image().At(30+10, 30).RGBA()
	_, _, _, outside := r.Image().At(2, 2).RGBA()
	assert.Greater(t, core, halo)
	assert.NotZero(t, halo)
	assert.Zero(t, outside)
}

func TestRasterZeroAlphaIsNoop(t *testing.T) {
	r := NewRaster(20, 20)
	r.Clear(20, 20)
	r.Line(gridtrace.Point{X: 0, Y: 10}, gridtrace.Point{X: 20, Y: 10}, gridtrace.Stroke{Color: green, Alpha: 0, Width: 3})
	_, _, _, a := r.Image().At(10, 10).RGBA()
	assert.Zero(t, a)
}

func TestRasterEncodePNG(t *testing.T) {
	r := NewRaster(32, 16)
	r.Background = color.NRGBA{A: 0xff}
	r.Clear(32, 16)

	var buf bytes.Buffer
	require.NoError(t, r.EncodePNG(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestCellsClearSizesGrid(t *testing.T) {
	c := NewCells(10, 20)
	c.Clear(95, 60)
	cols, rows := c.Size()
	assert.Equal(t, 10, cols)
	assert.Equal(t, 3, rows)
}

func TestCellsLineKeepsMaxIntensity(t *testing.T) {
	c := NewCells(10, 10)
	c.Clear(100, 100)

	c.Line(gridtrace.Point{X: 5, Y: 5}, gridtrace.Point{X: 95, Y: 5}, gridtrace.Stroke{Alpha: 0.2})
	c.Line(gridtrace.Point{X: 5, Y: 5}, gridtrace.Point{X: 5, Y: 95}, gridtrace.Stroke{Alpha: 0.5})

	for col := 0; col < 10; col++ {
		v, _ := c.At(col, 0)
		if col == 0 {
			assert.Equal(t, 0.5, v)
		} else {
			assert.Equal(t, 0.2, v, "col %d", col)
		}
	}
	for row := 1; row < 10; row++ {
		v, _ := c.At(0, row)
		assert.Equal(t, 0.5, v, "row %d", row)
	}
	v, _ := c.At(5, 5)
	assert.Zero(t, v)
}

func TestCellsClipOffscreen(t *testing.T) {
	c := NewCells(10, 10)
	c.Clear(50, 50)
	c.Line(gridtrace.Point{X: -100, Y: -100}, gridtrace.Point{X: -10, Y: 200}, gridtrace.Stroke{Alpha: 1})
	c.Dot(gridtrace.Point{X: 500, Y: 500}, 3, gridtrace.Stroke{Alpha: 1, Glow: 5})

	out := c.Render(func(level float64, head bool) string {
		if level > 0 || head {
			return "#"
		}
		return "."
	})
	assert.Equal(t, ".....\n.....\n.....\n.....\n.....", out)
}

func TestCellsDotMarksHead(t *testing.T) {
	c := NewCells(10, 10)
	c.Clear(30, 30)
	c.Dot(gridtrace.Point{X: 15, Y: 15}, 3, gridtrace.Stroke{Alpha: 1, Glow: 12})

	v, head := c.At(1, 1)
	assert.True(t, head)
	assert.Equal(t, 1.0, v)

	v, head = c.At(0, 0)
	assert.False(t, head)
	assert.InDelta(t, 0.3, v, 1e-9)

	out := c.Render(func(level float64, head bool) string {
		switch {
		case head:
			return "@"
		case level > 0:
			return "+"
		}
		return " "
	})
	assert.Equal(t, "+++\n+@+\n+++", out)
}
