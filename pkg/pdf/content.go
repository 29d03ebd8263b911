package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// ContentStream builds page content for the drawing operators the
// annotation exporter needs. Methods chain.
type ContentStream struct {
	buf bytes.Buffer
}

// NewContentStream returns an empty builder.
func NewContentStream() *ContentStream {
	return &ContentStream{}
}

// Bytes returns the accumulated operator stream.
func (cs *ContentStream) Bytes() []byte { return cs.buf.Bytes() }

// num formats a coordinate with four decimal places of precision, with
// trailing zeros trimmed so "100" stays "100".
func num(v float64) string {
	v = math.Round(v*10000) / 10000
	if v == 0 {
		v = 0 // normalize -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (cs *ContentStream) op(args ...string) *ContentStream {
	for i, a := range args {
		if i > 0 {
			cs.buf.WriteByte(' ')
		}
		cs.buf.WriteString(a)
	}
	cs.buf.WriteByte('\n')
	return cs
}

// Save pushes the graphics state (q).
func (cs *ContentStream) Save() *ContentStream { return cs.op("q") }

// Restore pops the graphics state (Q).
func (cs *ContentStream) Restore() *ContentStream { return cs.op("Q") }

// Concat appends a transformation matrix (cm).
func (cs *ContentStream) Concat(a, b, c, d, e, f float64) *ContentStream {
	return cs.op(num(a), num(b), num(c), num(d), num(e), num(f), "cm")
}

// LineWidth sets the stroke width (w).
func (cs *ContentStream) LineWidth(w float64) *ContentStream {
	return cs.op(num(w), "w")
}

// LineCap sets the line cap style (J); 1 is round.
func (cs *ContentStream) LineCap(style int) *ContentStream {
	return cs.op(strconv.Itoa(style), "J")
}

// StrokeColor sets the RGB stroking color (RG), components in [0,1].
func (cs *ContentStream) StrokeColor(r, g, b float64) *ContentStream {
	return cs.op(num(r), num(g), num(b), "RG")
}

// FillColor sets the RGB non-stroking color (rg).
func (cs *ContentStream) FillColor(r, g, b float64) *ContentStream {
	return cs.op(num(r), num(g), num(b), "rg")
}

// MoveTo starts a subpath (m).
func (cs *ContentStream) MoveTo(x, y float64) *ContentStream {
	return cs.op(num(x), num(y), "m")
}

// LineTo appends a line segment (l).
func (cs *ContentStream) LineTo(x, y float64) *ContentStream {
	return cs.op(num(x), num(y), "l")
}

// Rectangle appends a rectangle subpath (re).
func (cs *ContentStream) Rectangle(x, y, w, h float64) *ContentStream {
	return cs.op(num(x), num(y), num(w), num(h), "re")
}

// Stroke strokes the current path (S).
func (cs *ContentStream) Stroke() *ContentStream { return cs.op("S") }

// Fill fills the current path (f).
func (cs *ContentStream) Fill() *ContentStream { return cs.op("f") }

// BeginText starts a text object (BT).
func (cs *ContentStream) BeginText() *ContentStream { return cs.op("BT") }

// EndText ends a text object (ET).
func (cs *ContentStream) EndText() *ContentStream { return cs.op("ET") }

// Font selects a font resource by name at the given size (Tf).
func (cs *ContentStream) Font(name Name, size float64) *ContentStream {
	return cs.op(Format(name), num(size), "Tf")
}

// TextPosition moves the text cursor (Td).
func (cs *ContentStream) TextPosition(x, y float64) *ContentStream {
	return cs.op(num(x), num(y), "Td")
}

// ShowText draws a byte string with the current simple font (Tj).
func (cs *ContentStream) ShowText(text string) *ContentStream {
	String{Value: []byte(text)}.writeTo(&cs.buf)
	cs.buf.WriteString(" Tj\n")
	return cs
}

// ShowGlyphs draws 2-byte glyph codes with the current composite font,
// written in hex string form (Tj).
func (cs *ContentStream) ShowGlyphs(codes []byte) *ContentStream {
	fmt.Fprintf(&cs.buf, "<%X> Tj\n", codes)
	return cs
}

// DrawImage paints the named image XObject into the unit square mapped
// to the given rectangle.
func (cs *ContentStream) DrawImage(name Name, x, y, w, h float64) *ContentStream {
	cs.Save()
	cs.Concat(w, 0, 0, h, x, y)
	cs.op(Format(name), "Do")
	return cs.Restore()
}
