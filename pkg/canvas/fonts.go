package canvas

import (
	"fmt"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// FontCache holds parsed font programs and the faces derived from them.
// Faces are keyed by weight and size; population is lazy and idempotent,
// so redundant lookups are harmless.
type FontCache struct {
	regular *truetype.Font
	bold    *truetype.Font
	extra   map[string]*truetype.Font
	faces   map[faceKey]font.Face
}

type faceKey struct {
	family string
	bold   bool
	size   float64
}

// NewFontCache builds a cache around the built-in measuring faces.
func NewFontCache() (*FontCache, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse built-in regular face: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse built-in bold face: %w", err)
	}
	return &FontCache{
		regular: regular,
		bold:    bold,
		extra:   make(map[string]*truetype.Font),
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// Register adds a font program under a family name, typically a
// CJK-capable face loaded from configuration. Registering the same
// family twice replaces the earlier program.
func (c *FontCache) Register(family string, ttf []byte) error {
	f, err := truetype.Parse(ttf)
	if err != nil {
		return fmt.Errorf("parse font %q: %w", family, err)
	}
	c.extra[family] = f
	return nil
}

// Face returns a rendering face for the family, weight and pixel size.
// Unknown families fall back to the built-in faces.
func (c *FontCache) Face(family string, bold bool, size float64) font.Face {
	key := faceKey{family: family, bold: bold, size: size}
	if face, ok := c.faces[key]; ok {
		return face
	}
	program := c.program(family, bold)
	face := truetype.NewFace(program, &truetype.Options{Size: size})
	c.faces[key] = face
	return face
}

func (c *FontCache) program(family string, bold bool) *truetype.Font {
	if f, ok := c.extra[family]; ok {
		return f
	}
	if bold {
		return c.bold
	}
	return c.regular
}

// Measure returns the rendered extent of a single text line. The height
// covers ascent plus descent, which is what the surface treats as the
// object's true bounding box.
func (c *FontCache) Measure(content, family string, bold bool, size float64) (w, h float64) {
	face := c.Face(family, bold, size)
	adv := font.MeasureString(face, content)
	m := face.Metrics()
	return f26(adv), f26(m.Ascent + m.Descent)
}

// Ascent returns the face ascent in pixels, used to place baselines.
func (c *FontCache) Ascent(family string, bold bool, size float64) float64 {
	return f26(c.Face(family, bold, size).Metrics().Ascent)
}

func f26(v fixed.Int26_6) float64 { return float64(v) / 64 }
