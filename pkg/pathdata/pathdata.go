// Package pathdata serializes freehand strokes to a compact path-command
// string and flattens them back into line segments for PDF export.
//
// The wire form is a whitespace-delimited token stream of three commands:
//
//	M x y        move the cursor
//	L x y        line to
//	Q cx cy x y  quadratic curve via control point (cx, cy)
//
// There is no framing beyond whitespace. Unknown tokens are skipped so a
// newer writer does not break an older reader; the skipped data is lost.
package pathdata

import (
	"math"
	"strconv"
	"strings"

	"github.com/pdfmark/pdfmark/pkg/geom"
)

// Op identifies a path command.
type Op byte

const (
	MoveTo Op = 'M'
	LineTo Op = 'L'
	QuadTo Op = 'Q'
)

// Command is a single path command. CX/CY are only meaningful for QuadTo.
type Command struct {
	Op     Op
	CX, CY float64
	X, Y   float64
}

// Segment is a straight line segment produced by flattening.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// QuadSegments is the number of line segments a quadratic curve is
// flattened into. A fidelity/performance trade-off, not a format rule.
const QuadSegments = 10

// Encode serializes commands to the token string form.
func Encode(cmds []Command) string {
	var b strings.Builder
	for i, c := range cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(byte(c.Op))
		if c.Op == QuadTo {
			b.WriteByte(' ')
			b.WriteString(fmtCoord(c.CX))
			b.WriteByte(' ')
			b.WriteString(fmtCoord(c.CY))
		}
		b.WriteByte(' ')
		b.WriteString(fmtCoord(c.X))
		b.WriteByte(' ')
		b.WriteString(fmtCoord(c.Y))
	}
	return b.String()
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Parse tokenizes a path string. Tokens that are neither a known command
// nor the expected number arguments of one are skipped silently.
func Parse(data string) []Command {
	tokens := strings.Fields(data)
	var cmds []Command

	i := 0
	for i < len(tokens) {
		switch tokens[i] {
		case "M", "L":
			if i+2 >= len(tokens) {
				return cmds
			}
			x, okX := parseCoord(tokens[i+1])
			y, okY := parseCoord(tokens[i+2])
			if okX && okY {
				op := MoveTo
				if tokens[i] == "L" {
					op = LineTo
				}
				cmds = append(cmds, Command{Op: op, X: x, Y: y})
			}
			i += 3
		case "Q":
			if i+4 >= len(tokens) {
				return cmds
			}
			cx, ok1 := parseCoord(tokens[i+1])
			cy, ok2 := parseCoord(tokens[i+2])
			x, ok3 := parseCoord(tokens[i+3])
			y, ok4 := parseCoord(tokens[i+4])
			if ok1 && ok2 && ok3 && ok4 {
				cmds = append(cmds, Command{Op: QuadTo, CX: cx, CY: cy, X: x, Y: y})
			}
			i += 5
		default:
			// Unknown token: skip it and resynchronize on the next
			// recognizable command letter.
			i++
		}
	}
	return cmds
}

// ScaleCommands returns a copy of cmds with every coordinate multiplied
// by k, used when the rendering surface zooms.
func ScaleCommands(cmds []Command, k float64) []Command {
	out := make([]Command, len(cmds))
	for i, c := range cmds {
		c.X *= k
		c.Y *= k
		c.CX *= k
		c.CY *= k
		out[i] = c
	}
	return out
}

func parseCoord(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Bounds returns the bounding box over all command endpoints and control
// points. An empty command list yields the zero rectangle.
func Bounds(cmds []Command) geom.Rect {
	if len(cmds) == 0 {
		return geom.Rect{}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}

	for _, c := range cmds {
		grow(c.X, c.Y)
		if c.Op == QuadTo {
			grow(c.CX, c.CY)
		}
	}
	return geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Flatten converts commands into line segments relative to the path's own
// bounding-box origin. MoveTo resets the cursor without emitting a
// segment; LineTo emits one segment; QuadTo is flattened into QuadSegments
// uniform-parameter chords of B(t) = (1-t)²P₀ + 2(1-t)t·C + t²P₂.
func Flatten(cmds []Command) []Segment {
	bounds := Bounds(cmds)

	var segs []Segment
	var cur geom.Point
	havePoint := false

	for _, c := range cmds {
		switch c.Op {
		case MoveTo:
			cur = geom.Point{X: c.X - bounds.X, Y: c.Y - bounds.Y}
			havePoint = true
		case LineTo:
			to := geom.Point{X: c.X - bounds.X, Y: c.Y - bounds.Y}
			if havePoint {
				segs = append(segs, Segment{cur.X, cur.Y, to.X, to.Y})
			}
			cur = to
			havePoint = true
		case QuadTo:
			ctrl := geom.Point{X: c.CX - bounds.X, Y: c.CY - bounds.Y}
			to := geom.Point{X: c.X - bounds.X, Y: c.Y - bounds.Y}
			if havePoint {
				prev := cur
				for i := 1; i <= QuadSegments; i++ {
					t := float64(i) / QuadSegments
					next := quadPoint(cur, ctrl, to, t)
					segs = append(segs, Segment{prev.X, prev.Y, next.X, next.Y})
					prev = next
				}
			}
			cur = to
			havePoint = true
		}
	}
	return segs
}

func quadPoint(p0, c, p2 geom.Point, t float64) geom.Point {
	u := 1 - t
	return geom.Point{
		X: u*u*p0.X + 2*u*t*c.X + t*t*p2.X,
		Y: u*u*p0.Y + 2*u*t*c.Y + t*t*p2.Y,
	}
}

// Smooth converts a raw pointer trace into a command sequence the same
// way the editor's drawing surface does: the stroke starts with a MoveTo,
// then each interior point becomes the control point of a quadratic curve
// ending at the midpoint to the following point, with a final LineTo to
// the last sample. Strokes with fewer than three samples degrade to plain
// line segments.
func Smooth(points []geom.Point) []Command {
	if len(points) == 0 {
		return nil
	}

	cmds := []Command{{Op: MoveTo, X: points[0].X, Y: points[0].Y}}
	if len(points) == 1 {
		// A click with no movement still yields a drawable dot.
		cmds = append(cmds, Command{Op: LineTo, X: points[0].X, Y: points[0].Y})
		return cmds
	}
	if len(points) == 2 {
		cmds = append(cmds, Command{Op: LineTo, X: points[1].X, Y: points[1].Y})
		return cmds
	}

	for i := 1; i < len(points)-1; i++ {
		mid := geom.Point{
			X: (points[i].X + points[i+1].X) / 2,
			Y: (points[i].Y + points[i+1].Y) / 2,
		}
		cmds = append(cmds, Command{Op: QuadTo, CX: points[i].X, CY: points[i].Y, X: mid.X, Y: mid.Y})
	}
	last := points[len(points)-1]
	cmds = append(cmds, Command{Op: LineTo, X: last.X, Y: last.Y})
	return cmds
}
