// Package geom provides the coordinate spaces shared by the editor and
// the export pipeline.
//
// Three spaces are in play: PDF space (bottom-left origin, y up, unscaled
// points), editor space (top-left origin, scale=1, used for all persisted
// annotation geometry) and screen space (top-left origin at the current
// zoom factor). Conversions are pure and lossless up to floating-point
// rounding.
package geom

// Point is a 2D point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner in
// editor and screen space, and at its bottom-left corner in PDF space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge (top-left origin).
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Union returns the smallest rectangle covering both r and s.
func (r Rect) Union(s Rect) Rect {
	x0 := min(r.X, s.X)
	y0 := min(r.Y, s.Y)
	x1 := max(r.Right(), s.Right())
	y1 := max(r.Bottom(), s.Bottom())
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Scaled returns the rectangle with all four fields multiplied by s.
func (r Rect) Scaled(s float64) Rect {
	return Rect{X: r.X * s, Y: r.Y * s, Width: r.Width * s, Height: r.Height * s}
}

// PDFToScreen maps a PDF-space rectangle to screen space.
//
// pageHeight must be the page height at scale=1, never pre-scaled. The
// vertical axis is flipped (PDF y grows upward) and the zoom factor is
// applied to every field.
func PDFToScreen(r Rect, pageHeight, scale float64) Rect {
	return Rect{
		X:      r.X * scale,
		Y:      (pageHeight - r.Y - r.Height) * scale,
		Width:  r.Width * scale,
		Height: r.Height * scale,
	}
}

// ScreenToPDF is the exact inverse of PDFToScreen.
func ScreenToPDF(r Rect, pageHeight, scale float64) Rect {
	return Rect{
		X:      r.X / scale,
		Y:      pageHeight - r.Y/scale - r.Height/scale,
		Width:  r.Width / scale,
		Height: r.Height / scale,
	}
}
