package canvas

import (
	"image"

	"github.com/pdfmark/pdfmark/pkg/geom"
	"github.com/pdfmark/pdfmark/pkg/pathdata"
)

// Object is one renderable item on the surface. Positions and sizes are
// in screen pixels at the surface's current scale.
type Object interface {
	ID() string
	Bounds() geom.Rect
	MoveTo(x, y float64)

	draw(r *raster)
}

type base struct {
	id   string
	x, y float64
}

func (b *base) ID() string           { return b.id }
func (b *base) MoveTo(x, y float64)  { b.x, b.y = x, y }
func (b *base) Position() geom.Point { return geom.Point{X: b.x, Y: b.y} }

// Text renders a single line of editable text. Its bounding box comes
// from font metrics, not from the caller, so the measured extent is the
// ground truth the surface writes back into the record.
type Text struct {
	base
	content  string
	family   string
	fontSize float64
	fill     string
	bold     bool
	under    bool

	fonts   *FontCache
	w, h    float64
	editing bool
}

// NewText measures the content and returns the object.
func NewText(id string, x, y float64, content, family string, fontSize float64, fill string, bold, underline bool, fonts *FontCache) *Text {
	t := &Text{
		base:     base{id: id, x: x, y: y},
		content:  content,
		family:   family,
		fontSize: fontSize,
		fill:     fill,
		bold:     bold,
		under:    underline,
		fonts:    fonts,
	}
	t.measure()
	return t
}

func (t *Text) measure() {
	t.w, t.h = t.fonts.Measure(t.content, t.family, t.bold, t.fontSize)
	if t.w < 4 {
		t.w = 4 // keep an empty object clickable
	}
}

func (t *Text) Bounds() geom.Rect {
	return geom.Rect{X: t.x, Y: t.y, Width: t.w, Height: t.h}
}

func (t *Text) Content() string   { return t.content }
func (t *Text) FontSize() float64 { return t.fontSize }
func (t *Text) Fill() string      { return t.fill }
func (t *Text) Bold() bool        { return t.bold }
func (t *Text) Underline() bool   { return t.under }

// SetContent replaces the text and remeasures.
func (t *Text) SetContent(content string) {
	t.content = content
	t.measure()
}

// SetStyle updates formatting and remeasures. Font size is the only
// size control a text object has; free scaling is not exposed.
func (t *Text) SetStyle(family string, fontSize float64, fill string, bold, underline bool) {
	t.family = family
	t.fontSize = fontSize
	t.fill = fill
	t.bold = bold
	t.under = underline
	t.measure()
}

// Editing marks the object as being in active text edit. While set, the
// surface suppresses Delete/Backspace object removal.
func (t *Text) SetEditing(editing bool) { t.editing = editing }
func (t *Text) Editing() bool           { return t.editing }

// Path renders a finished freehand stroke. Geometry is stored as parsed
// path commands relative to the stroke's bounding-box origin.
type Path struct {
	base
	commands    []pathdata.Command
	strokeWidth float64
	stroke      string
	w, h        float64
}

// NewPath anchors the command sequence at (x, y). The commands keep
// their encoded coordinates; the box size comes from their extent.
func NewPath(id string, x, y float64, commands []pathdata.Command, strokeWidth float64, stroke string) *Path {
	b := pathdata.Bounds(commands)
	return &Path{
		base:        base{id: id, x: x, y: y},
		commands:    commands,
		strokeWidth: strokeWidth,
		stroke:      stroke,
		w:           b.Width,
		h:           b.Height,
	}
}

func (p *Path) Bounds() geom.Rect {
	return geom.Rect{X: p.x, Y: p.y, Width: p.w, Height: p.h}
}

func (p *Path) StrokeWidth() float64         { return p.strokeWidth }
func (p *Path) Stroke() string               { return p.stroke }
func (p *Path) Commands() []pathdata.Command { return p.commands }

// SetStroke updates stroke styling.
func (p *Path) SetStroke(width float64, color string) {
	p.strokeWidth = width
	p.stroke = color
}

// Scale multiplies the stored extent, used when the surface zoom
// changes.
func (p *Path) Scale(factor float64) {
	p.w *= factor
	p.h *= factor
	p.strokeWidth *= factor
}

// SymbolKind selects which fixed glyph a Symbol draws.
type SymbolKind int

const (
	SymbolCheck SymbolKind = iota
	SymbolCross
)

// designBox is the side length of the square all symbol glyphs are
// designed on. Rendering and export both scale from this box so the two
// stay geometrically identical.
const designBox = 20.0

// CheckGlyph is the checkmark polyline on the design box.
var CheckGlyph = []geom.Point{{X: 3, Y: 10}, {X: 8, Y: 15}, {X: 17, Y: 4}}

// CrossGlyph is the cross as two independent strokes on the design box.
var CrossGlyph = [][]geom.Point{
	{{X: 4, Y: 4}, {X: 16, Y: 16}},
	{{X: 16, Y: 4}, {X: 4, Y: 16}},
}

// DesignBox returns the symbol design box side length.
func DesignBox() float64 { return designBox }

// Symbol renders a check or cross glyph scaled uniformly from the
// design box. Only corner scaling is exposed, so the box stays square.
type Symbol struct {
	base
	kind SymbolKind
	size float64
}

func NewSymbol(id string, x, y float64, kind SymbolKind, size float64) *Symbol {
	return &Symbol{base: base{id: id, x: x, y: y}, kind: kind, size: size}
}

func (s *Symbol) Bounds() geom.Rect {
	return geom.Rect{X: s.x, Y: s.y, Width: s.size, Height: s.size}
}

func (s *Symbol) Kind() SymbolKind { return s.kind }
func (s *Symbol) Size() float64    { return s.size }

// Resize sets the square side length.
func (s *Symbol) Resize(size float64) { s.size = size }

// strokes returns the glyph polylines scaled into the object's box.
func (s *Symbol) strokes() [][]geom.Point {
	var src [][]geom.Point
	switch s.kind {
	case SymbolCross:
		src = CrossGlyph
	default:
		src = [][]geom.Point{CheckGlyph}
	}
	k := s.size / designBox
	out := make([][]geom.Point, len(src))
	for i, line := range src {
		scaled := make([]geom.Point, len(line))
		for j, pt := range line {
			scaled[j] = geom.Point{X: s.x + pt.X*k, Y: s.y + pt.Y*k}
		}
		out[i] = scaled
	}
	return out
}

// Image renders a decoded raster image, used for placed signatures.
type Image struct {
	base
	img  image.Image
	w, h float64
}

// NewImage displays img at its natural pixel size when w or h is zero.
func NewImage(id string, x, y float64, img image.Image, w, h float64) *Image {
	if w <= 0 || h <= 0 {
		b := img.Bounds()
		w, h = float64(b.Dx()), float64(b.Dy())
	}
	return &Image{base: base{id: id, x: x, y: y}, img: img, w: w, h: h}
}

func (im *Image) Bounds() geom.Rect {
	return geom.Rect{X: im.x, Y: im.y, Width: im.w, Height: im.h}
}

func (im *Image) Source() image.Image { return im.img }

// Resize scales the display box, preserving nothing; callers keep the
// aspect ratio themselves since only corner scaling is exposed.
func (im *Image) Resize(w, h float64) { im.w, im.h = w, h }
