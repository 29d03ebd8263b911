// Package editor keeps annotation records and live canvas objects in
// sync: a one-to-one mapping per page, reconciled whenever the set, the
// page or the zoom changes, with interaction results written back into
// the store through its mutators only.
package editor

import (
	"image"
	"log/slog"
	"math"

	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/canvas"
	"github.com/pdfmark/pdfmark/pkg/geom"
	"github.com/pdfmark/pdfmark/pkg/pathdata"
)

// Tool is the active creation tool.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolText      Tool = "text"
	ToolCheck     Tool = "check"
	ToolCross     Tool = "cross"
	ToolDraw      Tool = "draw"
	ToolSignature Tool = "signature"
)

// Formatting is the styling applied to new objects and, through
// ApplyFormatting, to the current selection.
type Formatting struct {
	FontFamily  string
	FontSize    float64
	Fill        string
	Bold        bool
	Underline   bool
	StrokeWidth float64
	Stroke      string
}

// DefaultFormatting matches the store's new-annotation defaults.
func DefaultFormatting() Formatting {
	return Formatting{
		FontFamily:  "Helvetica",
		FontSize:    16,
		Fill:        "#000000",
		StrokeWidth: 2,
		Stroke:      "#000000",
	}
}

// geometry differences below this threshold are rounding noise and must
// not produce history entries
const geomEps = 0.01

// Surface is the editing surface for one document page.
type Surface struct {
	store  *annotation.Store
	canvas *canvas.Canvas
	log    *slog.Logger

	page       int
	pageWidth  float64 // at scale = 1
	pageHeight float64
	scale      float64
	tool       Tool
	format     Formatting

	// signature annotations whose image decode is still in flight
	pending map[string]struct{}
	// in-progress freehand stroke, screen coordinates
	stroke   []geom.Point
	stroking bool

	onPlaceSignature   func(x, y float64)
	onSelectionChanged func(ids []string, f Formatting)
}

// New creates a surface over the given store and canvas.
func New(store *annotation.Store, cv *canvas.Canvas, log *slog.Logger) *Surface {
	if log == nil {
		log = slog.Default()
	}
	return &Surface{
		store:   store,
		canvas:  cv,
		log:     log,
		page:    1,
		scale:   1,
		tool:    ToolSelect,
		format:  DefaultFormatting(),
		pending: make(map[string]struct{}),
	}
}

// OnPlaceSignature registers the callback invoked when the signature
// tool is used on empty canvas. The position is in page coordinates at
// scale = 1; creation is deferred until the host completes its dialog.
func (s *Surface) OnPlaceSignature(fn func(x, y float64)) { s.onPlaceSignature = fn }

// OnSelectionChanged registers the callback that receives the selected
// ids and a formatting snapshot whenever the selection changes.
func (s *Surface) OnSelectionChanged(fn func(ids []string, f Formatting)) {
	s.onSelectionChanged = fn
}

// Tool returns the active tool.
func (s *Surface) Tool() Tool { return s.tool }

// SetTool switches the active tool.
func (s *Surface) SetTool(t Tool) { s.tool = t }

// Scale returns the current zoom factor.
func (s *Surface) Scale() float64 { return s.scale }

// SetScale changes the zoom factor and reconciles the surface.
func (s *Surface) SetScale(scale float64) {
	s.scale = scale
	s.canvas.SetViewport(s.pageWidth*scale, s.pageHeight*scale)
	s.Sync()
}

// Page returns the current page number.
func (s *Surface) Page() int { return s.page }

// SetPage switches pages. Width and height are the page extent at
// scale = 1.
func (s *Surface) SetPage(page int, width, height float64) {
	s.page = page
	s.pageWidth = width
	s.pageHeight = height
	s.canvas.SetViewport(width*s.scale, height*s.scale)
	s.canvas.ClearSelection()
	s.Sync()
}

// Sync reconciles canvas objects with the store for the current page.
// It is idempotent: running it again with no underlying change touches
// nothing and creates no history entries.
func (s *Surface) Sync() {
	current := make(map[string]annotation.Annotation)
	for _, a := range s.store.ByPage(s.page) {
		current[a.Meta().ID] = a
	}

	stale := make([]string, 0)
	for _, obj := range s.canvas.Objects() {
		if _, ok := current[obj.ID()]; !ok {
			stale = append(stale, obj.ID())
		}
	}
	for _, id := range stale {
		s.canvas.Remove(id)
		delete(s.pending, id)
	}

	for id, a := range current {
		obj := s.canvas.Object(id)
		if obj == nil {
			if _, inFlight := s.pending[id]; inFlight {
				sig, ok := a.(*annotation.Signature)
				if !ok || sig.ImageData == "" {
					continue
				}
				// the image arrived through the store while the insert
				// was pending; decode it now
				delete(s.pending, id)
			}
			s.materialize(a)
			continue
		}
		if s.canvas.IsSelected(id) {
			// ownership of a selected object's transform belongs to the
			// interaction until it ends
			continue
		}
		s.refresh(obj, a)
	}
}

// materialize builds the renderable object for one record and writes
// the engine's measured bounding box back into the store as ground
// truth.
func (s *Surface) materialize(a annotation.Annotation) {
	k := s.scale
	m := a.Meta()
	switch v := a.(type) {
	case *annotation.Text:
		obj := canvas.NewText(m.ID, m.X*k, m.Y*k, v.Content, v.FontFamily,
			v.FontSize*k, v.Fill, v.Bold, v.Underline, s.canvas.Fonts())
		s.canvas.Add(obj)
		s.writeBackBounds(m.ID, m, obj.Bounds().Scaled(1/k))
	case *annotation.Check:
		s.canvas.Add(canvas.NewSymbol(m.ID, m.X*k, m.Y*k, canvas.SymbolCheck, m.Width*k))
	case *annotation.Cross:
		s.canvas.Add(canvas.NewSymbol(m.ID, m.X*k, m.Y*k, canvas.SymbolCross, m.Width*k))
	case *annotation.Draw:
		if obj := s.buildPath(v); obj != nil {
			s.canvas.Add(obj)
		}
	case *annotation.Signature:
		s.pending[m.ID] = struct{}{}
		if v.ImageData == "" {
			// placeholder: the host decodes off-thread and calls
			// CompleteSignature; until then the record has no visual
			return
		}
		img, err := annotation.DecodeImage(v.ImageData)
		if err != nil {
			delete(s.pending, m.ID)
			s.log.Warn("signature image decode failed", "id", m.ID, "error", err)
			return
		}
		s.CompleteSignature(m.ID, img)
	}
}

// CompleteSignature finishes an asynchronous signature insert. Calls
// for ids that were deleted or superseded in the meantime are no-ops.
func (s *Surface) CompleteSignature(id string, img image.Image) {
	if _, ok := s.pending[id]; !ok {
		return
	}
	delete(s.pending, id)
	a, ok := s.store.ByID(id)
	if !ok || a.Meta().Page != s.page {
		return
	}
	m := a.Meta()
	k := s.scale
	obj := canvas.NewImage(id, m.X*k, m.Y*k, img, m.Width*k, m.Height*k)
	s.canvas.Add(obj)
	s.writeBackBounds(id, m, obj.Bounds().Scaled(1/k))
}

// buildPath parses a draw record into a canvas path at the current
// scale. Records whose path decodes to nothing are skipped, never
// fatal.
func (s *Surface) buildPath(v *annotation.Draw) *canvas.Path {
	cmds := pathdata.Parse(v.Path)
	if len(cmds) == 0 {
		s.log.Warn("path data decoded to no commands", "id", v.Meta().ID)
		return nil
	}
	k := s.scale
	m := v.Meta()
	return canvas.NewPath(m.ID, m.X*k, m.Y*k, pathdata.ScaleCommands(cmds, k),
		v.StrokeWidth*k, v.Stroke)
}

// refresh pushes record geometry into an existing unselected object.
func (s *Surface) refresh(obj canvas.Object, a annotation.Annotation) {
	k := s.scale
	m := a.Meta()
	switch v := a.(type) {
	case *annotation.Text:
		t, ok := obj.(*canvas.Text)
		if !ok {
			return
		}
		t.MoveTo(m.X*k, m.Y*k)
		t.SetStyle(v.FontFamily, v.FontSize*k, v.Fill, v.Bold, v.Underline)
		if t.Content() != v.Content {
			t.SetContent(v.Content)
		}
	case *annotation.Check, *annotation.Cross:
		sym, ok := obj.(*canvas.Symbol)
		if !ok {
			return
		}
		sym.MoveTo(m.X*k, m.Y*k)
		sym.Resize(m.Width * k)
	case *annotation.Draw:
		// rebuilding is cheap and keeps commands aligned with the scale
		if p := s.buildPath(v); p != nil {
			s.canvas.Add(p)
		}
	case *annotation.Signature:
		img, ok := obj.(*canvas.Image)
		if !ok {
			return
		}
		img.MoveTo(m.X*k, m.Y*k)
		img.Resize(m.Width*k, m.Height*k)
	}
}

// writeBackBounds stores the measured box when it differs from the
// recorded one. The guard keeps redundant sync passes free of history
// entries.
func (s *Surface) writeBackBounds(id string, m *annotation.Common, b geom.Rect) {
	if math.Abs(b.X-m.X) < geomEps && math.Abs(b.Y-m.Y) < geomEps &&
		math.Abs(b.Width-m.Width) < geomEps && math.Abs(b.Height-m.Height) < geomEps {
		return
	}
	s.store.Update(id, annotation.Patch{
		X:      annotation.Float(b.X),
		Y:      annotation.Float(b.Y),
		Width:  annotation.Float(b.Width),
		Height: annotation.Float(b.Height),
	})
}
