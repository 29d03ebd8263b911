package pdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/math/fixed"
)

// StandardFont creates a non-embedded Type1 font dictionary for one of
// the base-14 faces (Helvetica, Times-Roman, Courier and their bold
// variants cover the editor's buckets).
func StandardFont(u *Updater, baseFont string) Reference {
	return u.Add(Dictionary{
		"Type":     Name("Font"),
		"Subtype":  Name("Type1"),
		"BaseFont": Name(baseFont),
		"Encoding": Name("WinAnsiEncoding"),
	})
}

// EmbeddedFont wraps a TrueType font program for composite (Type0)
// embedding with Identity-H encoding, used for text whose characters
// fall outside the base-14 faces, typically CJK. Glyph usage is tracked
// so the width array only covers what the document shows.
type EmbeddedFont struct {
	ttf  *truetype.Font
	data []byte
	used map[truetype.Index]struct{}
}

// glyph widths are expressed in 1000 units per em, PDF glyph space.
var glyphSpace = fixed.I(1000)

// NewEmbeddedFont parses a TTF/OTF font program.
func NewEmbeddedFont(data []byte) (*EmbeddedFont, error) {
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font program: %w", err)
	}
	return &EmbeddedFont{
		ttf:  ttf,
		data: data,
		used: make(map[truetype.Index]struct{}),
	}, nil
}

// Encode maps text to the 2-byte big-endian glyph codes Identity-H
// expects, recording every glyph as used. Runes missing from the font
// map to glyph 0 (.notdef).
func (ef *EmbeddedFont) Encode(text string) []byte {
	out := make([]byte, 0, len(text)*2)
	for _, r := range text {
		gid := ef.ttf.Index(r)
		ef.used[gid] = struct{}{}
		out = append(out, byte(gid>>8), byte(gid))
	}
	return out
}

// Embed writes the font program and its Type0 dictionary chain into the
// update and returns the reference content streams select with Tf.
func (ef *EmbeddedFont) Embed(u *Updater) (Reference, error) {
	psName := strings.ReplaceAll(ef.ttf.Name(truetype.NameIDPostscriptName), " ", "")
	if psName == "" {
		psName = "EmbeddedCJK"
	}

	fileRef := u.AddStream(Dictionary{
		"Length1": Integer(len(ef.data)),
	}, ef.data)

	bounds := ef.ttf.Bounds(glyphSpace)
	descriptor := u.Add(Dictionary{
		"Type":     Name("FontDescriptor"),
		"FontName": Name(psName),
		"Flags":    Integer(4), // symbolic
		"FontBBox": Array{
			Integer(bounds.Min.X.Round()), Integer(bounds.Min.Y.Round()),
			Integer(bounds.Max.X.Round()), Integer(bounds.Max.Y.Round()),
		},
		"ItalicAngle": Integer(0),
		"Ascent":      Integer(bounds.Max.Y.Round()),
		"Descent":     Integer(bounds.Min.Y.Round()),
		"CapHeight":   Integer(bounds.Max.Y.Round()),
		"StemV":       Integer(80),
		"FontFile2":   fileRef,
	})

	descendant := u.Add(Dictionary{
		"Type":     Name("Font"),
		"Subtype":  Name("CIDFontType2"),
		"BaseFont": Name(psName),
		"CIDSystemInfo": Dictionary{
			"Registry":   String{Value: []byte("Adobe")},
			"Ordering":   String{Value: []byte("Identity")},
			"Supplement": Integer(0),
		},
		"FontDescriptor": descriptor,
		"DW":             Integer(1000),
		"W":              ef.widths(),
		"CIDToGIDMap":    Name("Identity"),
	})

	return u.Add(Dictionary{
		"Type":            Name("Font"),
		"Subtype":         Name("Type0"),
		"BaseFont":        Name(psName),
		"Encoding":        Name("Identity-H"),
		"DescendantFonts": Array{descendant},
	}), nil
}

// widths builds the W array for the used glyphs: "gid [w]" entries in
// glyph-space units.
func (ef *EmbeddedFont) widths() Array {
	gids := make([]int, 0, len(ef.used))
	for gid := range ef.used {
		gids = append(gids, int(gid))
	}
	sort.Ints(gids)

	var w Array
	for _, gid := range gids {
		adv := ef.ttf.HMetric(glyphSpace, truetype.Index(gid)).AdvanceWidth
		w = append(w, Integer(gid), Array{Integer(adv.Round())})
	}
	return w
}
