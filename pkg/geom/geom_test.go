package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPDFToScreen(t *testing.T) {
	r := Rect{X: 100, Y: 100, Width: 50, Height: 20}

	s := PDFToScreen(r, 842, 1)
	assert.Equal(t, 100.0, s.X)
	assert.Equal(t, 842.0-100-20, s.Y)
	assert.Equal(t, 50.0, s.Width)
	assert.Equal(t, 20.0, s.Height)

	s = PDFToScreen(r, 842, 2)
	assert.Equal(t, 200.0, s.X)
	assert.Equal(t, (842.0-100-20)*2, s.Y)
	assert.Equal(t, 100.0, s.Width)
}

func TestRoundTrip(t *testing.T) {
	rects := []Rect{
		{0, 0, 0, 0},
		{10, 20, 30, 40},
		{0.25, 841.75, 0.5, 0.125},
		{595, 0, 1, 842},
		{123.456, 654.321, 78.9, 0.001},
	}
	heights := []float64{1, 595.276, 841.89, 10000}
	scales := []float64{0.1, 0.75, 1, 1.5, 3.1415}

	for _, r := range rects {
		for _, h := range heights {
			for _, s := range scales {
				got := ScreenToPDF(PDFToScreen(r, h, s), h, s)
				assert.InDelta(t, r.X, got.X, 1e-9)
				assert.InDelta(t, r.Y, got.Y, 1e-9)
				assert.InDelta(t, r.Width, got.Width, 1e-9)
				assert.InDelta(t, r.Height, got.Height, 1e-9)
			}
		}
	}
}

func TestRectHelpers(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 10}

	assert.True(t, r.Contains(Point{X: 15, Y: 12}))
	assert.True(t, r.Contains(Point{X: 10, Y: 10}), "edges are inclusive")
	assert.False(t, r.Contains(Point{X: 31, Y: 12}))

	u := r.Union(Rect{X: 0, Y: 15, Width: 5, Height: 20})
	assert.Equal(t, Rect{X: 0, Y: 10, Width: 30, Height: 25}, u)

	s := r.Scaled(2)
	assert.Equal(t, Rect{X: 20, Y: 20, Width: 40, Height: 20}, s)
}

func TestScreenToPDFNoAccumulatedError(t *testing.T) {
	// Repeated conversion back and forth must not drift.
	r := Rect{X: 33.3, Y: 66.6, Width: 12.12, Height: 9.9}
	cur := r
	for i := 0; i < 1000; i++ {
		cur = ScreenToPDF(PDFToScreen(cur, 842, 1.25), 842, 1.25)
	}
	if math.Abs(cur.Y-r.Y) > 1e-6 {
		t.Fatalf("drift after 1000 round trips: %v vs %v", cur.Y, r.Y)
	}
}
