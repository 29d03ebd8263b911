package pdf

import (
	"strings"
	"testing"
)

func TestLoadMinimal(t *testing.T) {
	f, err := Load(createMinimalPDF())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Version() != "1.7" {
		t.Errorf("version = %q, want 1.7", f.Version())
	}
	if f.NumPages() != 1 {
		t.Fatalf("NumPages = %d, want 1", f.NumPages())
	}
	page, err := f.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Width() != 612 || page.Height() != 792 {
		t.Errorf("MediaBox = %gx%g, want 612x792", page.Width(), page.Height())
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"not pdf", []byte("This is not a PDF file")},
		{"header only", []byte("%PDF-1.4\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestPageContents(t *testing.T) {
	f, err := Load(createMinimalPDF())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	page, _ := f.GetPage(1)
	content, err := page.Contents()
	if err != nil {
		t.Fatalf("Contents: %v", err)
	}
	if !strings.Contains(string(content), "(Hello) Tj") {
		t.Errorf("content stream missing text operator: %q", content)
	}
}

func TestGetPageOutOfRange(t *testing.T) {
	f, err := Load(createMinimalPDF())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, n := range []int{0, 2, -1} {
		if _, err := f.GetPage(n); err == nil {
			t.Errorf("GetPage(%d): expected error", n)
		}
	}
}
