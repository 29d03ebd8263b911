// Package export draws annotation records into a PDF's page content and
// returns the updated document bytes. Original page content and
// structure are left untouched; everything is appended as an
// incremental revision.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdfmark/pdfmark/pkg/annotation"
	"github.com/pdfmark/pdfmark/pkg/canvas"
	"github.com/pdfmark/pdfmark/pkg/geom"
	"github.com/pdfmark/pdfmark/pkg/pathdata"
	"github.com/pdfmark/pdfmark/pkg/pdf"
)

// textAscender estimates the rendered ascent as a fraction of the font
// size, used to turn a top-left anchored box into a baseline.
const textAscender = 0.8

// Options configures a Pipeline.
type Options struct {
	// CJKFont is an optional TrueType program substituted for text whose
	// content falls outside ASCII. Without it such text falls back to the
	// Latin faces and may render as missing glyphs.
	CJKFont []byte
	Logger  *slog.Logger
}

// Pipeline renders annotations into documents. One Pipeline serves many
// exports; each export call parses and embeds the CJK program at most
// once.
type Pipeline struct {
	cjk []byte
	log *slog.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{cjk: opts.CJKFont, log: log}
}

// Export draws every annotation into its page and returns the new
// document bytes. Annotations pointing at missing pages are skipped
// with a log entry; a failed signature embed drops that one annotation
// and the export continues.
func (p *Pipeline) Export(ctx context.Context, document []byte, annotations []annotation.Annotation) ([]byte, error) {
	file, err := pdf.Load(document)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	u := pdf.NewUpdater(file)

	byPage := make(map[int][]annotation.Annotation)
	var pages []int
	for _, a := range annotations {
		n := a.Meta().Page
		if _, ok := byPage[n]; !ok {
			pages = append(pages, n)
		}
		byPage[n] = append(byPage[n], a)
	}

	st := &exportState{pipeline: p, updater: u}
	var jobs []*pageJob
	for _, n := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := file.GetPage(n)
		if err != nil {
			p.log.Warn("annotation page missing, skipping its annotations",
				"page", n, "count", len(byPage[n]))
			continue
		}
		jobs = append(jobs, st.buildPage(page, byPage[n]))
	}

	// the embedded font's width table depends on every glyph shown, so
	// it is written only after all pages are drawn
	if st.cjkFont != nil {
		ref, err := st.cjkFont.Embed(u)
		if err != nil {
			return nil, fmt.Errorf("export: embed fallback font: %w", err)
		}
		for _, job := range jobs {
			if _, ok := job.fonts[cjkFontName]; ok {
				job.fonts[cjkFontName] = ref
			}
		}
	}

	for _, job := range jobs {
		if err := u.AppendContent(job.page, job.content.Bytes(), job.fonts, job.xobjects); err != nil {
			return nil, fmt.Errorf("export: page %d: %w", job.page.Num, err)
		}
	}
	return u.Bytes()
}

// pageJob is the assembled drawing state for one page, held until all
// pages are built so the late-bound embedded font reference can be
// patched in.
type pageJob struct {
	page     *pdf.Page
	content  *pdf.ContentStream
	fonts    map[pdf.Name]pdf.Reference
	xobjects map[pdf.Name]pdf.Reference
}

// exportState carries per-export caches across pages.
type exportState struct {
	pipeline *Pipeline
	updater  *pdf.Updater

	standard map[string]pdf.Reference
	cjkFont  *pdf.EmbeddedFont
	images   int
}

const cjkFontName = pdf.Name("FCJK")

func (st *exportState) buildPage(page *pdf.Page, list []annotation.Annotation) *pageJob {
	job := &pageJob{
		page:     page,
		content:  pdf.NewContentStream(),
		fonts:    make(map[pdf.Name]pdf.Reference),
		xobjects: make(map[pdf.Name]pdf.Reference),
	}
	pageH := page.Height()

	var deferred []*annotation.Signature
	for _, a := range list {
		sx, sy := reconcileScale(page, a.Meta())
		switch v := a.(type) {
		case *annotation.Text:
			st.drawText(job, v, pageH, sx, sy)
		case *annotation.Check:
			drawGlyph(job.content, [][]geom.Point{canvas.CheckGlyph}, v.Meta(), pageH, sx, sy)
		case *annotation.Cross:
			drawGlyph(job.content, canvas.CrossGlyph, v.Meta(), pageH, sx, sy)
		case *annotation.Draw:
			drawStroke(job.content, v, pageH, sx, sy)
		case *annotation.Signature:
			deferred = append(deferred, v)
		}
	}

	// signature rasters embed after all synchronous drawing
	for _, v := range deferred {
		sx, sy := reconcileScale(page, v.Meta())
		st.drawSignature(job, v, pageH, sx, sy)
	}
	return job
}

// reconcileScale maps the page size recorded at annotation time onto
// the document's authoritative page size. Each annotation reconciles
// independently because different records may carry different
// historical readings.
func reconcileScale(page *pdf.Page, m *annotation.Common) (sx, sy float64) {
	sx, sy = 1, 1
	if m.PageWidth > 0 {
		sx = page.Width() / m.PageWidth
	}
	if m.PageHeight > 0 {
		sy = page.Height() / m.PageHeight
	}
	return sx, sy
}

func (st *exportState) drawText(job *pageJob, v *annotation.Text, pageH, sx, sy float64) {
	if v.Content == "" {
		return
	}
	m := v.Meta()
	size := v.FontSize * sy
	x := m.X * sx
	// baseline sits one ascender below the box top
	y := pageH - m.Y*sy - textAscender*v.FontSize*sy

	r, g, b := rgb(v.Fill)
	job.content.FillColor(r, g, b)
	job.content.BeginText()

	if !isASCII(v.Content) && st.ensureCJK() {
		job.fonts[cjkFontName] = pdf.Reference{} // patched after embedding
		job.content.Font(cjkFontName, size)
		job.content.TextPosition(x, y)
		job.content.ShowGlyphs(st.cjkFont.Encode(v.Content))
	} else {
		name := st.standardFont(job, v.FontFamily, v.Bold)
		job.content.Font(name, size)
		job.content.TextPosition(x, y)
		job.content.ShowText(v.Content)
	}
	job.content.EndText()
}

// ensureCJK lazily parses the fallback font, once per export.
func (st *exportState) ensureCJK() bool {
	if st.cjkFont != nil {
		return true
	}
	if len(st.pipeline.cjk) == 0 {
		st.pipeline.log.Warn("non-ASCII text but no fallback font configured")
		return false
	}
	f, err := pdf.NewEmbeddedFont(st.pipeline.cjk)
	if err != nil {
		st.pipeline.log.Warn("fallback font unusable", "error", err)
		st.pipeline.cjk = nil
		return false
	}
	st.cjkFont = f
	return true
}

// standardFont returns the resource name for the base-14 face matching
// the family bucket and weight, registering it on first use.
func (st *exportState) standardFont(job *pageJob, family string, bold bool) pdf.Name {
	base, resource := bucketFont(family, bold)
	if st.standard == nil {
		st.standard = make(map[string]pdf.Reference)
	}
	ref, ok := st.standard[base]
	if !ok {
		ref = pdf.StandardFont(st.updater, base)
		st.standard[base] = ref
	}
	job.fonts[resource] = ref
	return resource
}

// bucketFont maps a requested family onto {sans, serif, mono} base-14
// faces.
func bucketFont(family string, bold bool) (base string, resource pdf.Name) {
	bucket := "sans"
	lower := strings.ToLower(family)
	switch {
	case strings.Contains(lower, "times") || strings.Contains(lower, "serif"):
		bucket = "serif"
	case strings.Contains(lower, "courier") || strings.Contains(lower, "mono"):
		bucket = "mono"
	}
	switch {
	case bucket == "serif" && bold:
		return "Times-Bold", "FTB"
	case bucket == "serif":
		return "Times-Roman", "FT"
	case bucket == "mono" && bold:
		return "Courier-Bold", "FCB"
	case bucket == "mono":
		return "Courier", "FC"
	case bold:
		return "Helvetica-Bold", "FHB"
	default:
		return "Helvetica", "FH"
	}
}

func drawGlyph(cs *pdf.ContentStream, strokes [][]geom.Point, m *annotation.Common, pageH, sx, sy float64) {
	// glyphs scale uniformly from the shared design box
	kx := m.Width / canvas.DesignBox() * sx
	ky := m.Height / canvas.DesignBox() * sy

	cs.StrokeColor(0, 0, 0)
	cs.LineWidth(2 * kx)
	cs.LineCap(1)
	for _, line := range strokes {
		for i := 1; i < len(line); i++ {
			x1 := (m.X)*sx + line[i-1].X*kx
			y1 := pageH - m.Y*sy - line[i-1].Y*ky
			x2 := (m.X)*sx + line[i].X*kx
			y2 := pageH - m.Y*sy - line[i].Y*ky
			cs.MoveTo(x1, y1)
			cs.LineTo(x2, y2)
			cs.Stroke()
		}
	}
}

func drawStroke(cs *pdf.ContentStream, v *annotation.Draw, pageH, sx, sy float64) {
	segs := pathdata.Flatten(pathdata.Parse(v.Path))
	if len(segs) == 0 {
		return
	}
	m := v.Meta()
	r, g, b := rgb(v.Stroke)
	cs.StrokeColor(r, g, b)
	cs.LineWidth(v.StrokeWidth * sx)
	cs.LineCap(1)
	for _, seg := range segs {
		cs.MoveTo((m.X+seg.X1)*sx, pageH-(m.Y+seg.Y1)*sy)
		cs.LineTo((m.X+seg.X2)*sx, pageH-(m.Y+seg.Y2)*sy)
		cs.Stroke()
	}
}

func (st *exportState) drawSignature(job *pageJob, v *annotation.Signature, pageH, sx, sy float64) {
	m := v.Meta()
	img, err := annotation.DecodeImage(v.ImageData)
	if err != nil {
		st.pipeline.log.Warn("signature image embed failed, annotation dropped",
			"id", m.ID, "error", err)
		return
	}
	ref := pdf.EmbedImage(st.updater, img)
	st.images++
	name := pdf.Name(fmt.Sprintf("Sig%d", st.images))
	job.xobjects[name] = ref

	w := m.Width * sx
	h := m.Height * sy
	x := m.X * sx
	y := pageH - m.Y*sy - h
	job.content.DrawImage(name, x, y, w, h)
}

func rgb(hex string) (r, g, b float64) {
	c := canvas.ParseColor(hex)
	return float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
