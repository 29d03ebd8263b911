package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/pdf"
)

// letterPDF builds a one-page 612x792 document with exact xref offsets.
func letterPDF() []byte {
	var buf bytes.Buffer
	var offsets []int
	buf.WriteString("%PDF-1.7\n")
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}
	obj("<</Type /Catalog /Pages 2 0 R>>")
	obj("<</Type /Pages /Kids [3 0 R] /Count 1>>")
	obj("<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]>>")

	start := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, start)
	return buf.Bytes()
}

func common(x, y, w, h float64) annotation.Common {
	return annotation.Common{
		ID: "a1", Page: 1,
		X: x, Y: y, Width: w, Height: h,
		PageWidth: 612, PageHeight: 792,
	}
}

func exportContent(t *testing.T, anns ...annotation.Annotation) string {
	t.Helper()
	out, err := New(Options{}).Export(context.Background(), letterPDF(), anns)
	require.NoError(t, err)

	f, err := pdf.Load(out)
	require.NoError(t, err)
	page, err := f.GetPage(1)
	require.NoError(t, err)
	content, err := page.Contents()
	require.NoError(t, err)
	return string(content)
}

func TestExportDrawFlipsVertically(t *testing.T) {
	content := exportContent(t, &annotation.Draw{
		Common:      common(0, 0, 10, 10),
		Path:        "M 0 0 L 10 10",
		StrokeWidth: 2,
		Stroke:      "#000000",
	})
	assert.Contains(t, content, "0 792 m", "start point flips to the page top")
	assert.Contains(t, content, "10 782 l", "end point flips relative to page height")
	assert.Contains(t, content, "2 w")
}

func TestExportTextBaseline(t *testing.T) {
	content := exportContent(t, &annotation.Text{
		Common:     common(100, 100, 150, 30),
		Content:    "Hello",
		FontFamily: "Helvetica",
		FontSize:   16,
		Fill:       "#000000",
	})
	assert.Contains(t, content, "/FH 16 Tf")
	assert.Contains(t, content, "100 679.2 Td", "baseline = 792 - 100 - 0.8*16")
	assert.Contains(t, content, "(Hello) Tj")
}

func TestExportTextFontBuckets(t *testing.T) {
	tests := []struct {
		family string
		bold   bool
		want   string
	}{
		{"Helvetica", false, "/FH "},
		{"Arial", true, "/FHB "},
		{"Times New Roman", false, "/FT "},
		{"Times New Roman", true, "/FTB "},
		{"Courier New", false, "/FC "},
		{"Some Monospace", true, "/FCB "},
	}
	for _, tt := range tests {
		content := exportContent(t, &annotation.Text{
			Common:     common(10, 10, 150, 30),
			Content:    "x",
			FontFamily: tt.family,
			FontSize:   12,
			Fill:       "#000000",
			Bold:       tt.bold,
		})
		assert.Contains(t, content, tt.want, "family %q bold %v", tt.family, tt.bold)
	}
}

func TestExportCheckGlyphBox(t *testing.T) {
	content := exportContent(t, &annotation.Check{Common: common(50, 50, 24, 24)})

	// design point (3,10) lands at 50+3*1.2, 792-50-10*1.2
	assert.Contains(t, content, "53.6 730 m")
	assert.Contains(t, content, "59.6 724 l")
	// second stroke towards (17,4)
	assert.Contains(t, content, "70.4 737.2 l")
	assert.Contains(t, content, "2.4 w", "stroke width scales with the box")
}

func TestExportCrossIsTwoSegments(t *testing.T) {
	content := exportContent(t, &annotation.Cross{Common: common(0, 0, 20, 20)})
	// full-size box over the design glyph: endpoints map 1:1 with a flip
	assert.Contains(t, content, "4 788 m")
	assert.Contains(t, content, "16 776 l")
	assert.Contains(t, content, "16 788 m")
	assert.Contains(t, content, "4 776 l")
}

func TestExportPageScaleReconciliation(t *testing.T) {
	// annotation recorded against a half-size page reading
	c := common(50, 50, 10, 10)
	c.PageWidth = 306
	c.PageHeight = 396
	content := exportContent(t, &annotation.Draw{
		Common:      c,
		Path:        "M 0 0 L 10 10",
		StrokeWidth: 2,
		Stroke:      "#000000",
	})
	// sx = sy = 2: (50+0)*2 = 100, 792 - 50*2 = 692
	assert.Contains(t, content, "100 692 m")
	assert.Contains(t, content, "120 672 l")
	assert.Contains(t, content, "4 w")
}

func TestExportSignatureEmbeds(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := base64.StdEncoding.EncodeToString(buf.Bytes())

	sig := &annotation.Signature{Common: common(10, 700, 120, 60), ImageData: data}
	out, err := New(Options{}).Export(context.Background(), letterPDF(), []annotation.Annotation{sig})
	require.NoError(t, err)

	f, err := pdf.Load(out)
	require.NoError(t, err)
	page, _ := f.GetPage(1)
	content, err := page.Contents()
	require.NoError(t, err)
	assert.Contains(t, string(content), "/Sig1 Do")
	assert.Contains(t, string(out), "/XObject")
}

func TestExportBadSignatureSkipped(t *testing.T) {
	good := &annotation.Check{Common: common(10, 10, 24, 24)}
	bad := &annotation.Signature{Common: common(0, 0, 50, 50), ImageData: "not base64!!"}
	bad.ID = "a2"

	out, err := New(Options{}).Export(context.Background(), letterPDF(),
		[]annotation.Annotation{good, bad})
	require.NoError(t, err, "a failed embed drops one annotation, not the export")

	_, err = pdf.Load(out)
	assert.NoError(t, err)
}

func TestExportMissingPageSkipped(t *testing.T) {
	orphan := &annotation.Check{Common: common(10, 10, 24, 24)}
	orphan.Page = 9

	out, err := New(Options{}).Export(context.Background(), letterPDF(),
		[]annotation.Annotation{orphan})
	require.NoError(t, err)

	f, err := pdf.Load(out)
	require.NoError(t, err)
	assert.Equal(t, 1, f.NumPages())
}

func TestExportKeepsOriginalBytes(t *testing.T) {
	original := letterPDF()
	out, err := New(Options{}).Export(context.Background(), original,
		[]annotation.Annotation{&annotation.Check{Common: common(10, 10, 24, 24)}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, original),
		"export appends a revision instead of rewriting")
}

func TestExportCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Export(ctx, letterPDF(),
		[]annotation.Annotation{&annotation.Check{Common: common(10, 10, 24, 24)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportEmptyContentSkipped(t *testing.T) {
	content := exportContent(t, &annotation.Text{
		Common:     common(10, 10, 150, 30),
		FontFamily: "Helvetica",
		FontSize:   16,
		Fill:       "#000000",
	})
	assert.NotContains(t, content, "Tj", "empty text draws nothing")
}
