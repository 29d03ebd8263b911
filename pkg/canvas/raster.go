package canvas

import (
	"image"
	"image/color"
	"math"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/pdfmark/pdfmark/pkg/pathdata"
)

// ParseColor reads a "#RRGGBB" hex color. Anything unreadable is
// treated as opaque black, matching how the editor treats missing
// styling.
func ParseColor(s string) color.RGBA {
	if len(s) == 7 && s[0] == '#' {
		if v, err := strconv.ParseUint(s[1:], 16, 32); err == nil {
			return color.RGBA{
				R: uint8(v >> 16),
				G: uint8(v >> 8),
				B: uint8(v),
				A: 0xFF,
			}
		}
	}
	return color.RGBA{A: 0xFF}
}

// raster paints objects into an RGBA image.
type raster struct {
	img   *image.RGBA
	fonts *FontCache
}

func newRaster(w, h int, fonts *FontCache) *raster {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.Draw(img, img.Bounds(), image.White, image.Point{}, xdraw.Src)
	return &raster{img: img, fonts: fonts}
}

// line fills a quad along the segment to approximate a stroked line.
func (r *raster) line(x1, y1, x2, y2, width float64, col color.RGBA) {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	// unit normal scaled to half the stroke width
	nx := -dy / length * width / 2
	ny := dx / length * width / 2

	z := vector.NewRasterizer(r.img.Bounds().Dx(), r.img.Bounds().Dy())
	z.MoveTo(float32(x1+nx), float32(y1+ny))
	z.LineTo(float32(x2+nx), float32(y2+ny))
	z.LineTo(float32(x2-nx), float32(y2-ny))
	z.LineTo(float32(x1-nx), float32(y1-ny))
	z.ClosePath()
	z.Draw(r.img, r.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (t *Text) draw(r *raster) {
	col := ParseColor(t.fill)
	face := r.fonts.Face(t.family, t.bold, t.fontSize)
	ascent := r.fonts.Ascent(t.family, t.bold, t.fontSize)
	d := font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(t.x * 64),
			Y: fixed.Int26_6((t.y + ascent) * 64),
		},
	}
	d.DrawString(t.content)
	if t.under {
		y := t.y + ascent + 2
		r.line(t.x, y, t.x+t.w, y, 1, col)
	}
}

func (p *Path) draw(r *raster) {
	col := ParseColor(p.stroke)
	for _, seg := range pathdata.Flatten(p.commands) {
		r.line(p.x+seg.X1, p.y+seg.Y1, p.x+seg.X2, p.y+seg.Y2, p.strokeWidth, col)
	}
}

func (s *Symbol) draw(r *raster) {
	width := 2 * s.size / designBox
	col := color.RGBA{A: 0xFF}
	for _, line := range s.strokes() {
		for i := 1; i < len(line); i++ {
			r.line(line[i-1].X, line[i-1].Y, line[i].X, line[i].Y, width, col)
		}
	}
}

func (im *Image) draw(r *raster) {
	dst := image.Rect(int(im.x), int(im.y), int(im.x+im.w), int(im.y+im.h))
	xdraw.ApproxBiLinear.Scale(r.img, dst, im.img, im.img.Bounds(), xdraw.Over, nil)
}
