package editor

import (
	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/canvas"
	"github.com/pdfmark/pdfmark/pkg/geom"
	"github.com/pdfmark/pdfmark/pkg/pathdata"
)

// PointerDown handles a press at screen coordinates. A press over an
// existing object selects it; on empty canvas the active tool decides:
// select clears the selection, draw begins a stroke, the signature tool
// defers to the placement callback and every other tool creates its
// annotation directly. Creation tools revert to select afterwards.
func (s *Surface) PointerDown(x, y float64) {
	if s.tool == ToolDraw {
		s.stroking = true
		s.stroke = s.stroke[:0]
		s.stroke = append(s.stroke, geom.Point{X: x, Y: y})
		return
	}

	if obj := s.canvas.HitTest(x, y); obj != nil {
		s.canvas.Select(obj.ID())
		s.notifySelection()
		return
	}

	k := s.scale
	switch s.tool {
	case ToolSelect:
		s.canvas.ClearSelection()
		s.notifySelection()
	case ToolText:
		s.store.Add(annotation.KindText, x/k, y/k, s.page, s.pageWidth, s.pageHeight,
			annotation.Patch{
				FontFamily: annotation.Str(s.format.FontFamily),
				FontSize:   annotation.Float(s.format.FontSize),
				Fill:       annotation.Str(s.format.Fill),
				Bold:       annotation.Bool(s.format.Bold),
				Underline:  annotation.Bool(s.format.Underline),
			})
		s.tool = ToolSelect
		s.Sync()
	case ToolCheck:
		s.store.Add(annotation.KindCheck, x/k, y/k, s.page, s.pageWidth, s.pageHeight)
		s.tool = ToolSelect
		s.Sync()
	case ToolCross:
		s.store.Add(annotation.KindCross, x/k, y/k, s.page, s.pageWidth, s.pageHeight)
		s.tool = ToolSelect
		s.Sync()
	case ToolSignature:
		if s.onPlaceSignature != nil {
			s.onPlaceSignature(x/k, y/k)
		}
		s.tool = ToolSelect
	}
}

// PointerMove extends an in-progress freehand stroke.
func (s *Surface) PointerMove(x, y float64) {
	if s.stroking {
		s.stroke = append(s.stroke, geom.Point{X: x, Y: y})
	}
}

// PointerUp finishes a freehand stroke: the raw points are smoothed into
// a command sequence, serialized, and stored as a draw annotation
// anchored at the stroke's bounding-box origin.
func (s *Surface) PointerUp() {
	if !s.stroking {
		return
	}
	s.stroking = false
	if len(s.stroke) == 0 {
		return
	}

	k := s.scale
	points := make([]geom.Point, len(s.stroke))
	for i, p := range s.stroke {
		points[i] = geom.Point{X: p.X / k, Y: p.Y / k}
	}
	cmds := pathdata.Smooth(points)
	box := pathdata.Bounds(cmds)
	encoded := pathdata.Encode(cmds)

	created := s.store.Add(annotation.KindDraw, box.X, box.Y, s.page, s.pageWidth, s.pageHeight)
	s.store.Update(created.Meta().ID, annotation.Patch{
		Path:        annotation.Str(encoded),
		StrokeWidth: annotation.Float(s.format.StrokeWidth),
		Stroke:      annotation.Str(s.format.Stroke),
		Width:       annotation.Float(box.Width),
		Height:      annotation.Float(box.Height),
	})
	s.stroke = s.stroke[:0]
	s.Sync()
}

// PlaceSignature creates the deferred signature annotation once the
// host's dialog completed. Position is in page coordinates at scale 1;
// the record starts at 0x0 and receives its real size when the image
// materializes.
func (s *Surface) PlaceSignature(x, y float64, imageData string, width, height float64) string {
	created := s.store.Add(annotation.KindSignature, x, y, s.page, s.pageWidth, s.pageHeight,
		annotation.Patch{
			ImageData: annotation.Str(imageData),
			Width:     annotation.Float(width),
			Height:    annotation.Float(height),
		})
	s.Sync()
	return created.Meta().ID
}

// EndTransform writes a finished drag or resize back into the store. A
// single-object selection produces one update; a multi-object selection
// produces exactly one atomic batch so undo reverts the whole gesture.
func (s *Surface) EndTransform() {
	sel := s.canvas.Selected()
	if len(sel) == 0 {
		return
	}
	k := s.scale
	if len(sel) == 1 {
		b := sel[0].Bounds().Scaled(1 / k)
		s.store.Update(sel[0].ID(), boundsPatch(b))
		return
	}
	changes := make([]annotation.Change, 0, len(sel))
	for _, obj := range sel {
		changes = append(changes, annotation.Change{
			ID:    obj.ID(),
			Patch: boundsPatch(obj.Bounds().Scaled(1 / k)),
		})
	}
	s.store.UpdateMany(changes)
}

func boundsPatch(b geom.Rect) annotation.Patch {
	return annotation.Patch{
		X:      annotation.Float(b.X),
		Y:      annotation.Float(b.Y),
		Width:  annotation.Float(b.Width),
		Height: annotation.Float(b.Height),
	}
}

// BeginTextEdit puts a text object into active edit mode.
func (s *Surface) BeginTextEdit(id string) bool {
	t, ok := s.canvas.Object(id).(*canvas.Text)
	if !ok {
		return false
	}
	t.SetEditing(true)
	return true
}

// EditText applies a live content change and writes content plus the
// remeasured box back immediately, so undo follows keystroke-level
// edits.
func (s *Surface) EditText(id, content string) {
	t, ok := s.canvas.Object(id).(*canvas.Text)
	if !ok {
		return
	}
	t.SetContent(content)
	b := t.Bounds().Scaled(1 / s.scale)
	s.store.Update(id, annotation.Patch{
		Content: annotation.Str(content),
		Width:   annotation.Float(b.Width),
		Height:  annotation.Float(b.Height),
	})
}

// EndTextEdit leaves active edit mode.
func (s *Surface) EndTextEdit(id string) {
	if t, ok := s.canvas.Object(id).(*canvas.Text); ok {
		t.SetEditing(false)
	}
}

// DeleteSelected removes the selected annotations. Suppressed while any
// selected text object is in active edit mode so Delete and Backspace
// keep deleting characters, not objects.
func (s *Surface) DeleteSelected() {
	sel := s.canvas.Selected()
	for _, obj := range sel {
		if t, ok := obj.(*canvas.Text); ok && t.Editing() {
			return
		}
	}
	for _, obj := range sel {
		s.store.Remove(obj.ID())
	}
	s.Sync()
	s.notifySelection()
}

// ApplyFormatting updates the default formatting and pushes the
// applicable parts onto the current selection as one history step.
func (s *Surface) ApplyFormatting(f Formatting) {
	s.format = f
	sel := s.canvas.Selected()
	if len(sel) == 0 {
		return
	}

	var changes []annotation.Change
	for _, obj := range sel {
		a, ok := s.store.ByID(obj.ID())
		if !ok {
			continue
		}
		switch a.(type) {
		case *annotation.Text:
			changes = append(changes, annotation.Change{ID: obj.ID(), Patch: annotation.Patch{
				FontFamily: annotation.Str(f.FontFamily),
				FontSize:   annotation.Float(f.FontSize),
				Fill:       annotation.Str(f.Fill),
				Bold:       annotation.Bool(f.Bold),
				Underline:  annotation.Bool(f.Underline),
			}})
		case *annotation.Draw:
			changes = append(changes, annotation.Change{ID: obj.ID(), Patch: annotation.Patch{
				StrokeWidth: annotation.Float(f.StrokeWidth),
				Stroke:      annotation.Str(f.Stroke),
			}})
		}
	}
	if len(changes) == 0 {
		return
	}
	s.store.UpdateMany(changes)

	// selected objects are skipped by Sync, so restyle them directly
	for _, obj := range sel {
		if a, ok := s.store.ByID(obj.ID()); ok {
			s.refresh(obj, a)
		}
	}
	s.notifySelection()
}

// Undo reverts the latest mutation and reconciles the surface.
func (s *Surface) Undo() bool {
	if !s.store.Undo() {
		return false
	}
	s.canvas.ClearSelection()
	s.Sync()
	return true
}

// Redo reapplies the latest undone mutation.
func (s *Surface) Redo() bool {
	if !s.store.Redo() {
		return false
	}
	s.canvas.ClearSelection()
	s.Sync()
	return true
}

func (s *Surface) notifySelection() {
	if s.onSelectionChanged == nil {
		return
	}
	ids := make([]string, 0)
	snapshot := s.format
	for _, obj := range s.canvas.Selected() {
		ids = append(ids, obj.ID())
		a, ok := s.store.ByID(obj.ID())
		if !ok {
			continue
		}
		switch v := a.(type) {
		case *annotation.Text:
			snapshot.FontFamily = v.FontFamily
			snapshot.FontSize = v.FontSize
			snapshot.Fill = v.Fill
			snapshot.Bold = v.Bold
			snapshot.Underline = v.Underline
		case *annotation.Draw:
			snapshot.StrokeWidth = v.StrokeWidth
			snapshot.Stroke = v.Stroke
		}
	}
	s.onSelectionChanged(ids, snapshot)
}
