package pdf

import (
	"bytes"
	"testing"
)

func TestFlateRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("stream payload "), 100)
	encoded := flateEncode(payload)
	dict := Dictionary{"Filter": Name("FlateDecode")}
	decoded, err := decodeStream(dict, encoded)
	if err != nil {
		t.Fatalf("decodeStream: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("flate round trip changed data")
	}
}

func TestASCIIHexDecode(t *testing.T) {
	dict := Dictionary{"Filter": Name("ASCIIHexDecode")}
	decoded, err := decodeStream(dict, []byte("48 65 6C 6C 6F>"))
	if err != nil {
		t.Fatalf("decodeStream: %v", err)
	}
	if string(decoded) != "Hello" {
		t.Errorf("decoded = %q", decoded)
	}

	// odd final digit pads with zero
	decoded, err = asciiHexDecode([]byte("7>"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decoded, []byte{0x70}) {
		t.Errorf("decoded = % X", decoded)
	}
}

func TestRunLengthDecode(t *testing.T) {
	// literal run "ab", repeat 'c' three times, EOD
	src := []byte{1, 'a', 'b', 254, 'c', 128}
	decoded, err := runLengthDecode(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(decoded) != "abccc" {
		t.Errorf("decoded = %q", decoded)
	}
}

func TestFilterChain(t *testing.T) {
	payload := []byte("chained")
	encoded := flateEncode(payload)
	var hexed bytes.Buffer
	for _, b := range encoded {
		hexed.WriteString(string("0123456789ABCDEF"[b>>4]) + string("0123456789ABCDEF"[b&0xF]))
	}
	hexed.WriteByte('>')

	dict := Dictionary{
		"Filter": Array{Name("ASCIIHexDecode"), Name("FlateDecode")},
	}
	decoded, err := decodeStream(dict, hexed.Bytes())
	if err != nil {
		t.Fatalf("decodeStream: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded = %q, want %q", decoded, payload)
	}
}

func TestUnpredictUpFilter(t *testing.T) {
	// two rows of 3 bytes, second row stored as deltas against the first
	data := []byte{
		0, 10, 20, 30, // filter 0: literal
		2, 1, 1, 1, // filter 2 (up): +1 per byte
	}
	parm := Dictionary{"Predictor": Integer(12), "Columns": Integer(3)}
	out, err := unpredict(data, parm)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{10, 20, 30, 11, 21, 31}
	if !bytes.Equal(out, want) {
		t.Errorf("out = %v, want %v", out, want)
	}
}

func TestUnknownFilterRejected(t *testing.T) {
	dict := Dictionary{"Filter": Name("LZWDecode")}
	if _, err := decodeStream(dict, []byte("x")); err == nil {
		t.Error("expected error for unsupported filter")
	}
}
