package pdf

import (
	"bytes"
	"strings"
	"testing"
)

func TestUpdaterAppendContent(t *testing.T) {
	original := createMinimalPDF()
	f, err := Load(original)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	page, _ := f.GetPage(1)

	cs := NewContentStream()
	cs.LineWidth(2)
	cs.MoveTo(10, 10)
	cs.LineTo(100, 100)
	cs.Stroke()

	u := NewUpdater(f)
	if err := u.AppendContent(page, cs.Bytes(), nil, nil); err != nil {
		t.Fatalf("AppendContent: %v", err)
	}
	out, err := u.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	if !bytes.HasPrefix(out, original) {
		t.Fatal("incremental update must keep original bytes verbatim")
	}

	f2, err := Load(out)
	if err != nil {
		t.Fatalf("Load updated: %v", err)
	}
	if f2.NumPages() != 1 {
		t.Fatalf("NumPages = %d after update", f2.NumPages())
	}
	page2, _ := f2.GetPage(1)
	content, err := page2.Contents()
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "(Hello) Tj") {
		t.Error("original content stream lost")
	}
	if !strings.Contains(text, "100 100 l") {
		t.Errorf("appended drawing missing: %q", text)
	}
	if _, ok := f2.Trailer().Get("Prev").(Integer); !ok {
		t.Error("updated trailer should chain to the prior xref via Prev")
	}
}

func TestUpdaterMergesResources(t *testing.T) {
	f, err := Load(createMinimalPDF())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	page, _ := f.GetPage(1)

	u := NewUpdater(f)
	fontRef := StandardFont(u, "Courier")
	err = u.AppendContent(page, []byte("BT /FA 10 Tf (x) Tj ET"),
		map[Name]Reference{"FA": fontRef}, nil)
	if err != nil {
		t.Fatalf("AppendContent: %v", err)
	}
	out, err := u.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	f2, err := Load(out)
	if err != nil {
		t.Fatalf("Load updated: %v", err)
	}
	page2, _ := f2.GetPage(1)
	res, ok := f2.resolved(page2.Dict.Get("Resources")).(Dictionary)
	if !ok {
		t.Fatal("page has no resources")
	}
	fonts, ok := f2.resolved(res.Get("Font")).(Dictionary)
	if !ok {
		t.Fatal("resources have no font dictionary")
	}
	if fonts.Get("FA") == nil {
		t.Error("new font not merged into resources")
	}
	if fonts.Get("F1") == nil {
		t.Error("existing font lost while merging resources")
	}
}

func TestUpdaterAddStreamRoundTrip(t *testing.T) {
	f, err := Load(createMinimalPDF())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	u := NewUpdater(f)
	payload := bytes.Repeat([]byte("annotation data "), 64)
	ref := u.AddStream(Dictionary{}, payload)
	out, err := u.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	f2, err := Load(out)
	if err != nil {
		t.Fatalf("Load updated: %v", err)
	}
	obj, err := f2.Resolve(ref)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	st, ok := obj.(Stream)
	if !ok {
		t.Fatalf("object is %T, want Stream", obj)
	}
	decoded, err := st.Decoded()
	if err != nil {
		t.Fatalf("Decoded: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("stream payload changed across write and reload")
	}
}
