// Package canvas is a headless interactive drawing surface. It owns the
// live renderable objects for one document page: their geometry, their
// selection state and a raster preview. It knows nothing about
// annotation records; the editor maps between the two.
package canvas

import (
	"image"

	"github.com/pdfmark/pdfmark/pkg/geom"
)

// Canvas holds the renderable objects of the current page in paint
// order.
type Canvas struct {
	width, height float64

	order    []Object
	byID     map[string]Object
	selected map[string]struct{}
	fonts    *FontCache
}

// New creates an empty surface with the given viewport in pixels.
func New(width, height float64, fonts *FontCache) *Canvas {
	return &Canvas{
		width:    width,
		height:   height,
		byID:     make(map[string]Object),
		selected: make(map[string]struct{}),
		fonts:    fonts,
	}
}

// Fonts exposes the font cache so callers measure with the same faces
// the surface renders with.
func (c *Canvas) Fonts() *FontCache { return c.fonts }

// SetViewport resizes the drawing area.
func (c *Canvas) SetViewport(width, height float64) {
	c.width, c.height = width, height
}

// Add places an object on the surface. An object with the same id
// replaces the existing one in place.
func (c *Canvas) Add(obj Object) {
	if _, ok := c.byID[obj.ID()]; ok {
		for i, o := range c.order {
			if o.ID() == obj.ID() {
				c.order[i] = obj
				break
			}
		}
	} else {
		c.order = append(c.order, obj)
	}
	c.byID[obj.ID()] = obj
}

// Remove deletes the object and drops it from the selection. Removing
// an unknown id is a no-op.
func (c *Canvas) Remove(id string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	delete(c.byID, id)
	delete(c.selected, id)
	for i, o := range c.order {
		if o.ID() == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Object returns the object with the given id, or nil.
func (c *Canvas) Object(id string) Object { return c.byID[id] }

// Objects returns all objects in paint order. The slice is shared; do
// not mutate it.
func (c *Canvas) Objects() []Object { return c.order }

// Len returns the object count.
func (c *Canvas) Len() int { return len(c.order) }

// Select replaces the selection with the given ids, ignoring unknown
// ones.
func (c *Canvas) Select(ids ...string) {
	c.selected = make(map[string]struct{})
	for _, id := range ids {
		if _, ok := c.byID[id]; ok {
			c.selected[id] = struct{}{}
		}
	}
}

// ClearSelection empties the selection.
func (c *Canvas) ClearSelection() { c.selected = make(map[string]struct{}) }

// IsSelected reports whether the object is part of the selection.
func (c *Canvas) IsSelected(id string) bool {
	_, ok := c.selected[id]
	return ok
}

// Selected returns the selected objects in paint order.
func (c *Canvas) Selected() []Object {
	var out []Object
	for _, o := range c.order {
		if c.IsSelected(o.ID()) {
			out = append(out, o)
		}
	}
	return out
}

// HitTest returns the topmost object containing the point, or nil.
func (c *Canvas) HitTest(x, y float64) Object {
	for i := len(c.order) - 1; i >= 0; i-- {
		if c.order[i].Bounds().Contains(geom.Point{X: x, Y: y}) {
			return c.order[i]
		}
	}
	return nil
}

// Rasterize paints every object onto a fresh white RGBA image sized to
// the viewport, for previews and tests.
func (c *Canvas) Rasterize() *image.RGBA {
	r := newRaster(int(c.width), int(c.height), c.fonts)
	for _, o := range c.order {
		o.draw(r)
	}
	return r.img
}
