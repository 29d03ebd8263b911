// Package pdf reads existing PDF documents and appends annotation
// content to them through incremental updates.
//
// The reader covers the subset of the format the editor needs: xref
// tables and streams, object streams, Flate-compressed streams and the
// page tree. The writer never rewrites original bytes; every change is
// appended as a new revision, which keeps untouched pages and any
// existing digital signatures intact.
package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// Object is a PDF object. The concrete types below form the complete
// set; Format serializes any of them to the file syntax.
type Object interface {
	writeTo(b *bytes.Buffer)
}

// Format serializes an object to PDF file syntax.
func Format(obj Object) string {
	var b bytes.Buffer
	obj.writeTo(&b)
	return b.String()
}

// Null is the PDF null object.
type Null struct{}

func (Null) writeTo(b *bytes.Buffer) { b.WriteString("null") }

// Boolean is a PDF boolean.
type Boolean bool

func (v Boolean) writeTo(b *bytes.Buffer) {
	if v {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
}

// Integer is a PDF integer.
type Integer int64

func (v Integer) writeTo(b *bytes.Buffer) {
	b.WriteString(strconv.FormatInt(int64(v), 10))
}

// Real is a PDF real number.
type Real float64

func (v Real) writeTo(b *bytes.Buffer) {
	b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
}

// String is a PDF string object holding raw bytes. Hex records whether
// the source used hex form; serialization picks the form on its own.
type String struct {
	Value []byte
	Hex   bool
}

func (v String) writeTo(b *bytes.Buffer) {
	if v.Hex || !printableLatin(v.Value) {
		b.WriteByte('<')
		fmt.Fprintf(b, "%X", v.Value)
		b.WriteByte('>')
		return
	}
	b.WriteByte('(')
	for _, c := range v.Value {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
}

func printableLatin(data []byte) bool {
	for _, c := range data {
		if (c < 0x20 || c > 0x7e) && c != '\n' && c != '\r' && c != '\t' {
			return false
		}
	}
	return true
}

// Name is a PDF name object, stored without the leading slash.
type Name string

func (v Name) writeTo(b *bytes.Buffer) {
	b.WriteByte('/')
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c <= 0x20 || c >= 0x7f || isDelimiter(c) || c == '#' {
			fmt.Fprintf(b, "#%02X", c)
		} else {
			b.WriteByte(c)
		}
	}
}

// Array is a PDF array.
type Array []Object

func (v Array) writeTo(b *bytes.Buffer) {
	b.WriteByte('[')
	for i, obj := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		obj.writeTo(b)
	}
	b.WriteByte(']')
}

// Dictionary is a PDF dictionary. Serialization orders keys so output is
// deterministic.
type Dictionary map[Name]Object

func (v Dictionary) writeTo(b *bytes.Buffer) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)

	b.WriteString("<<")
	for _, k := range keys {
		Name(k).writeTo(b)
		b.WriteByte(' ')
		v[Name(k)].writeTo(b)
	}
	b.WriteString(">>")
}

// Get returns the raw value for key, or nil. References are not
// resolved; use File.Resolve for that.
func (v Dictionary) Get(key string) Object {
	return v[Name(key)]
}

// GetName returns the name value for key.
func (v Dictionary) GetName(key string) (Name, bool) {
	n, ok := v.Get(key).(Name)
	return n, ok
}

// GetInt returns the integer value for key, accepting reals with
// integral truncation the way most readers do.
func (v Dictionary) GetInt(key string) (int64, bool) {
	switch n := v.Get(key).(type) {
	case Integer:
		return int64(n), true
	case Real:
		return int64(n), true
	}
	return 0, false
}

// GetFloat returns the numeric value for key.
func (v Dictionary) GetFloat(key string) (float64, bool) {
	switch n := v.Get(key).(type) {
	case Integer:
		return float64(n), true
	case Real:
		return float64(n), true
	}
	return 0, false
}

// GetArray returns the array value for key.
func (v Dictionary) GetArray(key string) (Array, bool) {
	a, ok := v.Get(key).(Array)
	return a, ok
}

// GetDict returns the dictionary value for key.
func (v Dictionary) GetDict(key string) (Dictionary, bool) {
	d, ok := v.Get(key).(Dictionary)
	return d, ok
}

// GetBool returns the boolean value for key.
func (v Dictionary) GetBool(key string) (bool, bool) {
	b, ok := v.Get(key).(Boolean)
	return bool(b), ok
}

// Clone returns a shallow copy of the dictionary.
func (v Dictionary) Clone() Dictionary {
	out := make(Dictionary, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Stream is a PDF stream object: a dictionary plus raw (still encoded)
// data.
type Stream struct {
	Dict Dictionary
	Raw  []byte
}

func (v Stream) writeTo(b *bytes.Buffer) {
	v.Dict.writeTo(b)
	b.WriteString("\nstream\n")
	b.Write(v.Raw)
	b.WriteString("\nendstream")
}

// Decoded returns the stream data with its filter chain applied.
func (v Stream) Decoded() ([]byte, error) {
	return decodeStream(v.Dict, v.Raw)
}

// Reference is an indirect object reference.
type Reference struct {
	Num int
	Gen int
}

func (v Reference) writeTo(b *bytes.Buffer) {
	fmt.Fprintf(b, "%d %d R", v.Num, v.Gen)
}

// Rect is a PDF rectangle in native bottom-left coordinates.
type Rect struct {
	LLX, LLY, URX, URY float64
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.URX - r.LLX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.URY - r.LLY }

func rectFromArray(a Array) (Rect, bool) {
	if len(a) != 4 {
		return Rect{}, false
	}
	vals := make([]float64, 4)
	for i, obj := range a {
		switch n := obj.(type) {
		case Integer:
			vals[i] = float64(n)
		case Real:
			vals[i] = float64(n)
		default:
			return Rect{}, false
		}
	}
	r := Rect{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
	// Normalize: some writers store corners in the "wrong" order.
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return r, true
}
