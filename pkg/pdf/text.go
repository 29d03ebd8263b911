package pdf

import (
	"bytes"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DecodeTextString interprets a PDF text string: UTF-16BE when it
// carries a byte order mark, PDFDocEncoding otherwise. Form field names
// and values go through here before they reach callers.
func DecodeTextString(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, raw)
		if err == nil {
			return string(out)
		}
	}
	var sb bytes.Buffer
	for _, b := range raw {
		sb.WriteRune(pdfDocRune(b))
	}
	return sb.String()
}

// EncodeTextString produces a PDF text string for arbitrary Unicode by
// always emitting UTF-16BE with a byte order mark. Viewers accept the
// wide form for ASCII too, which keeps the writer single-path.
func EncodeTextString(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, 2+len(units)*2)
	out = append(out, 0xFE, 0xFF)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}

// pdfDocRune maps a PDFDocEncoding byte to its Unicode rune. The
// encoding is Latin-1 except for the 0x18..0x1F and 0x80..0x9F ranges.
func pdfDocRune(b byte) rune {
	if r, ok := pdfDocSpecial[b]; ok {
		return r
	}
	return rune(b)
}

var pdfDocSpecial = map[byte]rune{
	0x18: '˘', // breve
	0x19: 'ˇ', // caron
	0x1A: 'ˆ', // circumflex
	0x1B: '˙', // dot above
	0x1C: '˝', // double acute
	0x1D: '˛', // ogonek
	0x1E: '˚', // ring above
	0x1F: '˜', // small tilde
	0x80: '•', // bullet
	0x81: '†', // dagger
	0x82: '‡', // double dagger
	0x83: '…', // ellipsis
	0x84: '—', // em dash
	0x85: '–', // en dash
	0x86: 'ƒ',
	0x87: '⁄',
	0x88: '‹',
	0x89: '›',
	0x8A: '−',
	0x8B: '‰',
	0x8C: '„',
	0x8D: '“',
	0x8E: '”',
	0x8F: '‘',
	0x90: '’',
	0x91: '‚',
	0x92: '™',
	0x93: 'ﬁ',
	0x94: 'ﬂ',
	0x95: 'Ł',
	0x96: 'Œ',
	0x97: 'Š',
	0x98: 'Ÿ',
	0x99: 'Ž',
	0x9A: 'ı',
	0x9B: 'ł',
	0x9C: 'œ',
	0x9D: 'š',
	0x9E: 'ž',
	0x9F: '�',
}
