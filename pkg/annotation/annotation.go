// Package annotation holds the canonical annotation records of a document
// and the undo/redo history around them.
//
// All geometry is stored in editor space: top-left origin at scale=1. No
// record ever stores a zoom-scaled coordinate; reconciliation with the
// PDF's native bottom-left space happens only at export time.
package annotation

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Kind identifies an annotation variant. The set is closed; rendering and
// export switch exhaustively over it.
type Kind string

const (
	KindText      Kind = "text"
	KindCheck     Kind = "check"
	KindCross     Kind = "cross"
	KindDraw      Kind = "draw"
	KindSignature Kind = "signature"
)

// Valid reports whether k is one of the five known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindCheck, KindCross, KindDraw, KindSignature:
		return true
	}
	return false
}

// Common carries the fields shared by every annotation: identity, page
// binding and editor-space geometry.
//
// PageWidth/PageHeight record the page size the editor observed when the
// annotation was created. The export-time PDF page size can differ by
// sub-pixel rounding or metadata quirks, so the creation-time reading is
// carried per annotation instead of being recomputed.
type Common struct {
	ID         string
	Page       int // 1-based
	X, Y       float64
	Width      float64
	Height     float64
	PageWidth  float64
	PageHeight float64
}

// Meta returns the shared fields for in-place mutation by the store.
func (c *Common) Meta() *Common { return c }

func (c *Common) sealed() {}

// Annotation is the closed sum over the five variants. Only the concrete
// types in this package implement it.
type Annotation interface {
	Kind() Kind
	Meta() *Common
	Clone() Annotation
	sealed()
}

// Text is a positioned text label.
type Text struct {
	Common
	Content    string
	FontFamily string
	FontSize   float64 // scale=1 basis
	Fill       string  // #rrggbb
	Bold       bool
	Underline  bool
}

func (t *Text) Kind() Kind { return KindText }

func (t *Text) Clone() Annotation {
	c := *t
	return &c
}

// Check is a checkmark glyph.
type Check struct {
	Common
}

func (c *Check) Kind() Kind { return KindCheck }

func (c *Check) Clone() Annotation {
	cc := *c
	return &cc
}

// Cross is a cross glyph.
type Cross struct {
	Common
}

func (c *Cross) Kind() Kind { return KindCross }

func (c *Cross) Clone() Annotation {
	cc := *c
	return &cc
}

// Draw is a freehand stroke, serialized by pkg/pathdata at scale=1.
type Draw struct {
	Common
	Path        string
	StrokeWidth float64 // scale=1 basis
	Stroke      string  // #rrggbb
}

func (d *Draw) Kind() Kind { return KindDraw }

func (d *Draw) Clone() Annotation {
	c := *d
	return &c
}

// Signature is a placed raster signature. ImageData is a self-contained
// base64-encoded PNG, optionally prefixed with a data: URL header.
type Signature struct {
	Common
	ImageData string
}

func (s *Signature) Kind() Kind { return KindSignature }

func (s *Signature) Clone() Annotation {
	c := *s
	return &c
}

var idCounter atomic.Uint64

// newID returns a unique opaque identifier.
func newID() string {
	return fmt.Sprintf("a%x-%x", time.Now().UnixMilli(), idCounter.Add(1))
}

// Patch is a partial update merged into an annotation record. Nil fields
// are left untouched. Payload fields that do not apply to the target's
// kind are ignored.
type Patch struct {
	X, Y          *float64
	Width, Height *float64
	PageWidth     *float64
	PageHeight    *float64

	Content    *string
	FontFamily *string
	FontSize   *float64
	Fill       *string
	Bold       *bool
	Underline  *bool

	Path        *string
	StrokeWidth *float64
	Stroke      *string

	ImageData *string
}

func (p Patch) applyTo(a Annotation) {
	m := a.Meta()
	if p.X != nil {
		m.X = *p.X
	}
	if p.Y != nil {
		m.Y = *p.Y
	}
	if p.Width != nil {
		m.Width = *p.Width
	}
	if p.Height != nil {
		m.Height = *p.Height
	}
	if p.PageWidth != nil {
		m.PageWidth = *p.PageWidth
	}
	if p.PageHeight != nil {
		m.PageHeight = *p.PageHeight
	}

	switch v := a.(type) {
	case *Text:
		if p.Content != nil {
			v.Content = *p.Content
		}
		if p.FontFamily != nil {
			v.FontFamily = *p.FontFamily
		}
		if p.FontSize != nil {
			v.FontSize = *p.FontSize
		}
		if p.Fill != nil {
			v.Fill = *p.Fill
		}
		if p.Bold != nil {
			v.Bold = *p.Bold
		}
		if p.Underline != nil {
			v.Underline = *p.Underline
		}
	case *Draw:
		if p.Path != nil {
			v.Path = *p.Path
		}
		if p.StrokeWidth != nil {
			v.StrokeWidth = *p.StrokeWidth
		}
		if p.Stroke != nil {
			v.Stroke = *p.Stroke
		}
	case *Signature:
		if p.ImageData != nil {
			v.ImageData = *p.ImageData
		}
	case *Check, *Cross:
		// geometry only
	}
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 { return &v }

// Str returns a pointer to v, for building patches.
func Str(v string) *string { return &v }

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }
