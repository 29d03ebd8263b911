package pdf

import (
	"bytes"
	"testing"
)

func parse(t *testing.T, src string) Object {
	t.Helper()
	obj, err := newScanner([]byte(src), 0).parseObject()
	if err != nil {
		t.Fatalf("parseObject(%q): %v", src, err)
	}
	return obj
}

func TestParseScalars(t *testing.T) {
	tests := []struct {
		src  string
		want Object
	}{
		{"true", Boolean(true)},
		{"false", Boolean(false)},
		{"null", Null{}},
		{"42", Integer(42)},
		{"-17", Integer(-17)},
		{"+5", Integer(5)},
		{"3.14", Real(3.14)},
		{".5", Real(0.5)},
		{"-.25", Real(-0.25)},
		{"/Name", Name("Name")},
		{"/A#20B", Name("A B")},
	}
	for _, tt := range tests {
		got := parse(t, tt.src)
		if Format(got) != Format(tt.want) {
			t.Errorf("parse(%q) = %s, want %s", tt.src, Format(got), Format(tt.want))
		}
	}
}

func TestParseStrings(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"(simple)", "simple"},
		{"(nested (parens) ok)", "nested (parens) ok"},
		{`(esc \( \) \\ end)`, `esc ( ) \ end`},
		{`(octal \101)`, "octal A"},
		{"(line\\\ncontinued)", "linecontinued"},
		{"<48656C6C6F>", "Hello"},
		{"<48656C6C6F7>", "Hellop"}, // odd digit pads with zero
	}
	for _, tt := range tests {
		obj := parse(t, tt.src)
		s, ok := obj.(String)
		if !ok {
			t.Fatalf("parse(%q) is %T, want String", tt.src, obj)
		}
		if string(s.Value) != tt.want {
			t.Errorf("parse(%q) = %q, want %q", tt.src, s.Value, tt.want)
		}
	}
}

func TestParseReference(t *testing.T) {
	obj := parse(t, "12 0 R")
	ref, ok := obj.(Reference)
	if !ok || ref.Num != 12 || ref.Gen != 0 {
		t.Errorf("parse = %#v, want 12 0 R", obj)
	}

	// two plain integers must not collapse into a reference
	s := newScanner([]byte("12 0 /Next"), 0)
	first, err := s.parseObject()
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := first.(Integer); !ok || n != 12 {
		t.Errorf("first = %#v, want Integer 12", first)
	}
	second, err := s.parseObject()
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := second.(Integer); !ok || n != 0 {
		t.Errorf("second = %#v, want Integer 0", second)
	}
}

func TestParseContainers(t *testing.T) {
	obj := parse(t, "<</Type /Page /MediaBox [0 0 612 792] /Parent 2 0 R>>")
	d, ok := obj.(Dictionary)
	if !ok {
		t.Fatalf("parse is %T, want Dictionary", obj)
	}
	if n, _ := d.GetName("Type"); n != "Page" {
		t.Errorf("Type = %q", n)
	}
	box, ok := d.GetArray("MediaBox")
	if !ok || len(box) != 4 {
		t.Fatalf("MediaBox = %#v", d.Get("MediaBox"))
	}
	if ref, ok := d.Get("Parent").(Reference); !ok || ref.Num != 2 {
		t.Errorf("Parent = %#v", d.Get("Parent"))
	}
}

func TestParseSkipsComments(t *testing.T) {
	obj := parse(t, "% comment line\n  /After")
	if n, ok := obj.(Name); !ok || n != "After" {
		t.Errorf("parse = %#v, want /After", obj)
	}
}

func TestParseIndirectStream(t *testing.T) {
	src := "4 0 obj\n<</Length 5>>\nstream\nhello\nendstream\nendobj\n"
	num, gen, obj, err := newScanner([]byte(src), 0).parseIndirect(nil)
	if err != nil {
		t.Fatalf("parseIndirect: %v", err)
	}
	if num != 4 || gen != 0 {
		t.Errorf("num gen = %d %d", num, gen)
	}
	st, ok := obj.(Stream)
	if !ok {
		t.Fatalf("object is %T, want Stream", obj)
	}
	if !bytes.Equal(st.Raw, []byte("hello")) {
		t.Errorf("raw = %q", st.Raw)
	}
}
