package pdf

import (
	"bytes"
	"fmt"
)

// pdfBuilder assembles a well-formed classic-xref document for tests,
// tracking byte offsets so the cross-reference table is exact.
type pdfBuilder struct {
	buf     bytes.Buffer
	offsets []int
}

func newPDFBuilder() *pdfBuilder {
	b := &pdfBuilder{}
	b.buf.WriteString("%PDF-1.7\n")
	return b
}

// obj appends the next numbered indirect object and returns its number.
func (b *pdfBuilder) obj(body string) int {
	num := len(b.offsets) + 1
	b.offsets = append(b.offsets, b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return num
}

// finish writes the xref table and trailer pointing at the catalog.
func (b *pdfBuilder) finish(root int) []byte {
	return b.finishExtra(root, "")
}

// finishExtra is finish with extra raw trailer entries appended, e.g.
// an Encrypt reference and ID array.
func (b *pdfBuilder) finishExtra(root int, extra string) []byte {
	start := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<</Size %d /Root %d 0 R%s>>\nstartxref\n%d\n%%%%EOF\n",
		len(b.offsets)+1, root, extra, start)
	return b.buf.Bytes()
}

// createMinimalPDF returns a one-page Letter document with a short
// uncompressed content stream.
func createMinimalPDF() []byte {
	b := newPDFBuilder()
	content := "BT /F1 12 Tf 72 720 Td (Hello) Tj ET"
	b.obj("<</Type /Catalog /Pages 2 0 R>>")
	b.obj("<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj("<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Resources <</Font <</F1 5 0 R>>>> /Contents 4 0 R>>")
	b.obj(fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	b.obj("<</Type /Font /Subtype /Type1 /BaseFont /Helvetica>>")
	return b.finish(1)
}

// createFormPDF returns a one-page document with an AcroForm holding a
// text field and a checkbox, both placed on the page as widgets.
func createFormPDF() []byte {
	b := newPDFBuilder()
	b.obj("<</Type /Catalog /Pages 2 0 R /AcroForm <</Fields [4 0 R 5 0 R]>>>>")
	b.obj("<</Type /Pages /Kids [3 0 R] /Count 1>>")
	b.obj("<</Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Annots [4 0 R 5 0 R]>>")
	b.obj("<</Type /Annot /Subtype /Widget /FT /Tx /T (name) /V (initial) " +
		"/MaxLen 40 /Rect [100 700 300 720]>>")
	b.obj("<</Type /Annot /Subtype /Widget /FT /Btn /T (agree) /V /Off " +
		"/Rect [100 660 120 680] /AP <</N <</Yes 6 0 R /Off 7 0 R>>>>>>")
	b.obj("<</Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0>>\nstream\n\nendstream")
	b.obj("<</Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 0>>\nstream\n\nendstream")
	return b.finish(1)
}
