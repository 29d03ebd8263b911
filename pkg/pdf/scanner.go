package pdf

import (
	"bytes"
	"fmt"
	"strconv"
)

// scanner is a recursive-descent reader over raw file bytes. It is
// created at an absolute offset into the file so indirect objects can be
// parsed straight from xref offsets.
type scanner struct {
	data []byte
	pos  int
}

func newScanner(data []byte, pos int) *scanner {
	return &scanner{data: data, pos: pos}
}

func isWhitespace(c byte) bool {
	return c == 0 || c == '\t' || c == '\n' || c == '\f' || c == '\r' || c == ' '
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool {
	return !isWhitespace(c) && !isDelimiter(c)
}

func (s *scanner) eof() bool { return s.pos >= len(s.data) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.data[s.pos]
}

// skipSpace advances past whitespace and % comments.
func (s *scanner) skipSpace() {
	for !s.eof() {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for !s.eof() && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

// keyword consumes the given keyword if it is next (after whitespace)
// and followed by a non-regular character.
func (s *scanner) keyword(kw string) bool {
	s.skipSpace()
	end := s.pos + len(kw)
	if end > len(s.data) || string(s.data[s.pos:end]) != kw {
		return false
	}
	if end < len(s.data) && isRegular(s.data[end]) {
		return false
	}
	s.pos = end
	return true
}

// readToken returns the next run of regular characters.
func (s *scanner) readToken() string {
	s.skipSpace()
	start := s.pos
	for !s.eof() && isRegular(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// parseObject reads one object. Indirect references ("n g R") are
// recognized by lookahead and returned as Reference values.
func (s *scanner) parseObject() (Object, error) {
	s.skipSpace()
	if s.eof() {
		return nil, fmt.Errorf("unexpected end of data at offset %d", s.pos)
	}

	switch c := s.peek(); {
	case c == '/':
		return s.parseName()
	case c == '(':
		return s.parseLiteralString()
	case c == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			return s.parseDict()
		}
		return s.parseHexString()
	case c == '[':
		return s.parseArray()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return s.parseNumberOrRef()
	default:
		tok := s.readToken()
		switch tok {
		case "true":
			return Boolean(true), nil
		case "false":
			return Boolean(false), nil
		case "null":
			return Null{}, nil
		case "":
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, s.pos)
		default:
			return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok, s.pos)
		}
	}
}

func (s *scanner) parseName() (Name, error) {
	s.pos++ // '/'
	var b bytes.Buffer
	for !s.eof() && isRegular(s.data[s.pos]) {
		c := s.data[s.pos]
		if c == '#' && s.pos+2 < len(s.data) {
			if v, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8); err == nil {
				b.WriteByte(byte(v))
				s.pos += 3
				continue
			}
		}
		b.WriteByte(c)
		s.pos++
	}
	return Name(b.String()), nil
}

func (s *scanner) parseLiteralString() (String, error) {
	start := s.pos
	s.pos++ // '('
	var b bytes.Buffer
	depth := 1
	for depth > 0 {
		if s.eof() {
			return String{}, fmt.Errorf("unterminated string at offset %d", start)
		}
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			b.WriteByte(c)
		case ')':
			depth--
			if depth > 0 {
				b.WriteByte(c)
			}
		case '\\':
			if s.eof() {
				return String{}, fmt.Errorf("unterminated string at offset %d", start)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '(', ')', '\\':
				b.WriteByte(e)
			case '\r':
				// line continuation; swallow an optional \n
				if !s.eof() && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					oct := []byte{e}
					for len(oct) < 3 && !s.eof() && s.data[s.pos] >= '0' && s.data[s.pos] <= '7' {
						oct = append(oct, s.data[s.pos])
						s.pos++
					}
					v, _ := strconv.ParseUint(string(oct), 8, 16)
					b.WriteByte(byte(v))
				} else {
					b.WriteByte(e)
				}
			}
		default:
			b.WriteByte(c)
		}
	}
	return String{Value: b.Bytes()}, nil
}

func (s *scanner) parseHexString() (String, error) {
	start := s.pos
	s.pos++ // '<'
	var nibbles []byte
	for {
		if s.eof() {
			return String{}, fmt.Errorf("unterminated hex string at offset %d", start)
		}
		c := s.data[s.pos]
		s.pos++
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		nibbles = append(nibbles, c)
	}
	if len(nibbles)%2 != 0 {
		nibbles = append(nibbles, '0')
	}
	out := make([]byte, len(nibbles)/2)
	for i := 0; i < len(nibbles); i += 2 {
		v, err := strconv.ParseUint(string(nibbles[i:i+2]), 16, 8)
		if err != nil {
			return String{}, fmt.Errorf("invalid hex string at offset %d", start)
		}
		out[i/2] = byte(v)
	}
	return String{Value: out, Hex: true}, nil
}

func (s *scanner) parseArray() (Array, error) {
	s.pos++ // '['
	var arr Array
	for {
		s.skipSpace()
		if s.eof() {
			return nil, fmt.Errorf("unterminated array")
		}
		if s.peek() == ']' {
			s.pos++
			return arr, nil
		}
		obj, err := s.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

func (s *scanner) parseDict() (Dictionary, error) {
	s.pos += 2 // '<<'
	dict := make(Dictionary)
	for {
		s.skipSpace()
		if s.pos+1 < len(s.data) && s.data[s.pos] == '>' && s.data[s.pos+1] == '>' {
			s.pos += 2
			return dict, nil
		}
		if s.eof() {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if s.peek() != '/' {
			return nil, fmt.Errorf("dictionary key is not a name at offset %d", s.pos)
		}
		key, err := s.parseName()
		if err != nil {
			return nil, err
		}
		val, err := s.parseObject()
		if err != nil {
			return nil, err
		}
		dict[key] = val
	}
}

// parseNumberOrRef reads a number, upgrading "n g R" to a Reference.
func (s *scanner) parseNumberOrRef() (Object, error) {
	num, isInt, err := s.parseNumber()
	if err != nil {
		return nil, err
	}
	if !isInt {
		return Real(num), nil
	}

	save := s.pos
	s.skipSpace()
	if !s.eof() && s.peek() >= '0' && s.peek() <= '9' {
		gen, genInt, err := s.parseNumber()
		if err == nil && genInt && s.keyword("R") {
			return Reference{Num: int(num), Gen: int(gen)}, nil
		}
	}
	s.pos = save
	return Integer(int64(num)), nil
}

func (s *scanner) parseNumber() (float64, bool, error) {
	s.skipSpace()
	start := s.pos
	if !s.eof() && (s.peek() == '+' || s.peek() == '-') {
		s.pos++
	}
	isInt := true
	for !s.eof() {
		c := s.data[s.pos]
		if c >= '0' && c <= '9' {
			s.pos++
		} else if c == '.' && isInt {
			isInt = false
			s.pos++
		} else {
			break
		}
	}
	tok := string(s.data[start:s.pos])
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid number %q at offset %d", tok, start)
	}
	return v, isInt, nil
}

// parseIndirect reads "num gen obj ... endobj" at the current position.
// resolveLength is consulted when a stream /Length is an indirect
// reference; it may be nil, in which case the stream is scanned for its
// endstream marker instead.
func (s *scanner) parseIndirect(resolveLength func(Reference) (int64, bool)) (int, int, Object, error) {
	num, isInt, err := s.parseNumber()
	if err != nil || !isInt {
		return 0, 0, nil, fmt.Errorf("expected object number at offset %d", s.pos)
	}
	gen, isInt, err := s.parseNumber()
	if err != nil || !isInt {
		return 0, 0, nil, fmt.Errorf("expected generation number at offset %d", s.pos)
	}
	if !s.keyword("obj") {
		return 0, 0, nil, fmt.Errorf("expected obj keyword at offset %d", s.pos)
	}

	obj, err := s.parseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	if s.keyword("stream") {
		dict, ok := obj.(Dictionary)
		if !ok {
			return 0, 0, nil, fmt.Errorf("stream without dictionary at offset %d", s.pos)
		}
		raw, err := s.readStreamData(dict, resolveLength)
		if err != nil {
			return 0, 0, nil, err
		}
		obj = Stream{Dict: dict, Raw: raw}
		s.keyword("endstream")
	}

	s.keyword("endobj")
	return int(num), int(gen), obj, nil
}

func (s *scanner) readStreamData(dict Dictionary, resolveLength func(Reference) (int64, bool)) ([]byte, error) {
	// An EOL must follow the stream keyword.
	if !s.eof() && s.data[s.pos] == '\r' {
		s.pos++
	}
	if !s.eof() && s.data[s.pos] == '\n' {
		s.pos++
	}

	length := int64(-1)
	switch l := dict.Get("Length").(type) {
	case Integer:
		length = int64(l)
	case Reference:
		if resolveLength != nil {
			if v, ok := resolveLength(l); ok {
				length = v
			}
		}
	}

	if length >= 0 && s.pos+int(length) <= len(s.data) {
		data := s.data[s.pos : s.pos+int(length)]
		s.pos += int(length)
		return data, nil
	}

	// Unknown length: scan for the endstream marker.
	idx := bytes.Index(s.data[s.pos:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("stream without endstream marker at offset %d", s.pos)
	}
	data := s.data[s.pos : s.pos+idx]
	s.pos += idx
	data = bytes.TrimRight(data, "\r\n")
	return data, nil
}
