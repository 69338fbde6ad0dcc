// Package scanner tokenizes PDF syntax: names, numbers, strings,
// dictionary and array delimiters, indirect references, keywords and
// stream payloads.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

type TokenType int

const (
	TokenDictOpen   TokenType = iota // '<<'
	TokenDictClose                   // '>>'
	TokenArrayOpen                   // '['
	TokenArrayClose                  // ']'
	TokenName                        // '/Name'
	TokenString                      // literal or hex string
	TokenNumber                      // integer or real
	TokenBoolean                     // true / false
	TokenNull                        // null
	TokenRef                         // '5 0 R'
	TokenStream                      // stream payload
	TokenKeyword                     // obj, endobj, trailer, ...
)

type Token struct {
	Type    TokenType
	Keyword string
	Name    string
	Bytes   []byte // string contents or stream payload
	Hex     bool
	Int     int64
	Real    float64
	IsInt   bool
	Num     int // ref object number
	Gen     int // ref generation
	Pos     int64
}

// Scanner walks a fully buffered PDF byte slice. Callers announce the
// declared /Length of an upcoming stream via SetNextStreamLength so the
// payload is taken verbatim instead of searched for.
type Scanner struct {
	data          []byte
	pos           int64
	nextStreamLen int64
}

func New(data []byte) *Scanner {
	return &Scanner{data: data, nextStreamLen: -1}
}

func (s *Scanner) Position() int64 { return s.pos }

func (s *Scanner) Seek(offset int64) error {
	if offset < 0 || offset > int64(len(s.data)) {
		return fmt.Errorf("seek offset %d out of range", offset)
	}
	s.pos = offset
	return nil
}

func (s *Scanner) SetNextStreamLength(n int64) { s.nextStreamLen = n }

var ErrEOF = errors.New("unexpected end of data")

func (s *Scanner) Next() (Token, error) {
	s.skipWSAndComments()
	if s.pos >= int64(len(s.data)) {
		return Token{}, ErrEOF
	}
	start := s.pos
	c := s.data[s.pos]
	switch c {
	case '<':
		if s.peek(1) == '<' {
			s.pos += 2
			return Token{Type: TokenDictOpen, Pos: start}, nil
		}
		return s.scanHexString()
	case '>':
		if s.peek(1) == '>' {
			s.pos += 2
			return Token{Type: TokenDictClose, Pos: start}, nil
		}
		s.pos++
		return Token{Type: TokenKeyword, Keyword: ">", Pos: start}, nil
	case '[':
		s.pos++
		return Token{Type: TokenArrayOpen, Pos: start}, nil
	case ']':
		s.pos++
		return Token{Type: TokenArrayClose, Pos: start}, nil
	case '(':
		return s.scanLiteralString()
	case '/':
		return s.scanName()
	}
	if isNumberStart(c) {
		return s.scanNumberOrRef()
	}
	if isRegular(c) {
		return s.scanKeyword()
	}
	s.pos++
	return Token{Type: TokenKeyword, Keyword: string(c), Pos: start}, nil
}

func (s *Scanner) peek(n int64) byte {
	if s.pos+n >= int64(len(s.data)) {
		return 0
	}
	return s.data[s.pos+n]
}

func (s *Scanner) skipWSAndComments() {
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isWhitespace(c) {
			s.pos++
			continue
		}
		if c == '%' {
			for s.pos < int64(len(s.data)) && !isEOL(s.data[s.pos]) {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *Scanner) scanName() (Token, error) {
	start := s.pos
	s.pos++ // '/'
	var out bytes.Buffer
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isDelimiter(c) || isWhitespace(c) {
			break
		}
		if c == '#' && s.pos+2 < int64(len(s.data)) {
			out.WriteByte(fromHex(s.data[s.pos+1])<<4 | fromHex(s.data[s.pos+2]))
			s.pos += 3
			continue
		}
		out.WriteByte(c)
		s.pos++
	}
	return Token{Type: TokenName, Name: out.String(), Pos: start}, nil
}

func (s *Scanner) scanLiteralString() (Token, error) {
	start := s.pos
	s.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '\\' {
			s.pos++
			if s.pos >= int64(len(s.data)) {
				break
			}
			esc := s.data[s.pos]
			switch {
			case esc == '\r':
				s.pos++
				if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case esc == '\n':
				s.pos++
			case esc >= '0' && esc <= '7':
				val := int(esc - '0')
				s.pos++
				for k := 0; k < 2 && s.pos < int64(len(s.data)); k++ {
					d := s.data[s.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 + int(d-'0')
					s.pos++
				}
				buf.WriteByte(byte(val))
			default:
				buf.WriteByte(translateEscape(esc))
				s.pos++
			}
			continue
		}
		if c == '(' {
			depth++
		} else if c == ')' {
			depth--
			if depth == 0 {
				s.pos++
				return Token{Type: TokenString, Bytes: buf.Bytes(), Pos: start}, nil
			}
		}
		buf.WriteByte(c)
		s.pos++
	}
	return Token{}, fmt.Errorf("unterminated literal string at %d", start)
}

func (s *Scanner) scanHexString() (Token, error) {
	start := s.pos
	s.pos++ // '<'
	var nibbles []byte
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '>' {
			s.pos++
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, 0, len(nibbles)/2)
			for i := 0; i < len(nibbles); i += 2 {
				out = append(out, fromHex(nibbles[i])<<4|fromHex(nibbles[i+1]))
			}
			return Token{Type: TokenString, Bytes: out, Hex: true, Pos: start}, nil
		}
		if !isWhitespace(c) {
			nibbles = append(nibbles, c)
		}
		s.pos++
	}
	return Token{}, fmt.Errorf("unterminated hex string at %d", start)
}

func (s *Scanner) scanKeyword() (Token, error) {
	start := s.pos
	var buf bytes.Buffer
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if isDelimiter(c) || isWhitespace(c) {
			break
		}
		buf.WriteByte(c)
		s.pos++
	}
	kw := buf.String()
	switch kw {
	case "true", "false":
		return Token{Type: TokenBoolean, Keyword: kw, Pos: start}, nil
	case "null":
		return Token{Type: TokenNull, Pos: start}, nil
	case "stream":
		return s.scanStream(start)
	}
	return Token{Type: TokenKeyword, Keyword: kw, Pos: start}, nil
}

// scanStream consumes the payload after the stream keyword. With a length
// hint the payload is taken verbatim; otherwise the next endstream marker
// ends it.
func (s *Scanner) scanStream(start int64) (Token, error) {
	// PDF 7.3.8: the keyword is followed by CRLF or LF before the data.
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < int64(len(s.data)) && s.data[s.pos] == '\n' {
		s.pos++
	}
	dataStart := s.pos
	if s.nextStreamLen >= 0 {
		l := s.nextStreamLen
		s.nextStreamLen = -1
		if dataStart+l > int64(len(s.data)) {
			return Token{}, fmt.Errorf("stream at %d: declared length %d exceeds data", start, l)
		}
		payload := append([]byte(nil), s.data[dataStart:dataStart+l]...)
		s.pos = dataStart + l
		idx := bytes.Index(s.data[s.pos:], []byte("endstream"))
		if idx < 0 {
			return Token{}, fmt.Errorf("stream at %d: endstream not found", start)
		}
		s.pos += int64(idx + len("endstream"))
		return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
	}
	idx := bytes.Index(s.data[dataStart:], []byte("endstream"))
	if idx < 0 {
		return Token{}, fmt.Errorf("stream at %d: endstream not found", start)
	}
	end := dataStart + int64(idx)
	s.pos = end + int64(len("endstream"))
	// trim the EOL preceding the marker
	if end > dataStart && s.data[end-1] == '\n' {
		end--
	}
	if end > dataStart && s.data[end-1] == '\r' {
		end--
	}
	payload := append([]byte(nil), s.data[dataStart:end]...)
	return Token{Type: TokenStream, Bytes: payload, Pos: start}, nil
}

// scanNumberOrRef reads a number, looking ahead for the "num gen R" form.
func (s *Scanner) scanNumberOrRef() (Token, error) {
	start := s.pos
	first := s.scanNumberString()
	if first == "" {
		s.pos++
		return Token{}, fmt.Errorf("malformed number at %d", start)
	}
	save := s.pos
	s.skipWSAndComments()
	secondStart := s.pos
	second := s.scanNumberString()
	if second != "" && isPlainInt(first) && isPlainInt(second) {
		s.skipWSAndComments()
		if s.pos < int64(len(s.data)) && s.data[s.pos] == 'R' &&
			(s.pos+1 >= int64(len(s.data)) || isDelimiter(s.data[s.pos+1]) || isWhitespace(s.data[s.pos+1])) {
			s.pos++
			num, _ := strconv.Atoi(first)
			gen, _ := strconv.Atoi(second)
			return Token{Type: TokenRef, Num: num, Gen: gen, Pos: start}, nil
		}
	}
	if second != "" {
		s.pos = secondStart // the parser reads the second number itself
	} else {
		s.pos = save
	}
	if i, err := strconv.ParseInt(first, 10, 64); err == nil {
		return Token{Type: TokenNumber, Int: i, IsInt: true, Pos: start}, nil
	}
	f, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return Token{}, fmt.Errorf("malformed number %q at %d", first, start)
	}
	return Token{Type: TokenNumber, Real: f, Pos: start}, nil
}

func (s *Scanner) scanNumberString() string {
	start := s.pos
	seenDigit := false
	for s.pos < int64(len(s.data)) {
		c := s.data[s.pos]
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			s.pos++
			continue
		}
		break
	}
	if !seenDigit {
		s.pos = start
		return ""
	}
	return string(s.data[start:s.pos])
}

func isPlainInt(str string) bool {
	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			return false
		}
	}
	return len(str) > 0
}

func isWhitespace(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isEOL(c byte) bool { return c == '\r' || c == '\n' }

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(c byte) bool { return !isDelimiter(c) && !isWhitespace(c) }

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func fromHex(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	}
	return 0
}

func translateEscape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case 'b':
		return '\b'
	case 'f':
		return '\f'
	}
	return c
}
