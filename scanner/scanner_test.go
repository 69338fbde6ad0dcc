package scanner

import (
	"bytes"
	"testing"
)

func mustNext(t *testing.T, s *Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	return tok
}

func TestScanNames(t *testing.T) {
	s := New([]byte("/Type /Name#20With#20Spaces /A"))
	for _, want := range []string{"Type", "Name With Spaces", "A"} {
		tok := mustNext(t, s)
		if tok.Type != TokenName || tok.Name != want {
			t.Fatalf("got %+v, want name %q", tok, want)
		}
	}
}

func TestScanLiteralString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(hello)", "hello"},
		{"(nested (parens) ok)", "nested (parens) ok"},
		{`(esc \( \) \\ \n)`, "esc ( ) \\ \n"},
		{`(\101\102\103)`, "ABC"},
		{`(\53)`, "+"},
		{"(line\\\ncontinued)", "linecontinued"},
	}
	for _, tc := range cases {
		tok := mustNext(t, New([]byte(tc.in)))
		if tok.Type != TokenString || string(tok.Bytes) != tc.want {
			t.Errorf("%q: got %q, want %q", tc.in, tok.Bytes, tc.want)
		}
	}
}

func TestScanHexString(t *testing.T) {
	tok := mustNext(t, New([]byte("<48 65 6C6C 6F>")))
	if tok.Type != TokenString || !tok.Hex || string(tok.Bytes) != "Hello" {
		t.Fatalf("got %+v", tok)
	}
	// odd nibble count pads with zero
	tok = mustNext(t, New([]byte("<414>")))
	if string(tok.Bytes) != "A@" {
		t.Fatalf("odd nibbles: got %q", tok.Bytes)
	}
}

func TestScanNumbers(t *testing.T) {
	s := New([]byte("42 -17 3.14 .5 +2"))
	wantInts := []struct {
		isInt bool
		i     int64
		f     float64
	}{
		{true, 42, 0}, {true, -17, 0}, {false, 0, 3.14}, {false, 0, 0.5}, {true, 2, 0},
	}
	for _, want := range wantInts {
		tok := mustNext(t, s)
		if tok.Type != TokenNumber || tok.IsInt != want.isInt {
			t.Fatalf("got %+v, want %+v", tok, want)
		}
		if want.isInt && tok.Int != want.i {
			t.Fatalf("got %d, want %d", tok.Int, want.i)
		}
		if !want.isInt && tok.Real != want.f {
			t.Fatalf("got %g, want %g", tok.Real, want.f)
		}
	}
}

func TestScanRef(t *testing.T) {
	s := New([]byte("5 0 R 7 2 R"))
	tok := mustNext(t, s)
	if tok.Type != TokenRef || tok.Num != 5 || tok.Gen != 0 {
		t.Fatalf("got %+v", tok)
	}
	tok = mustNext(t, s)
	if tok.Type != TokenRef || tok.Num != 7 || tok.Gen != 2 {
		t.Fatalf("got %+v", tok)
	}
}

func TestScanRefBacktrack(t *testing.T) {
	// two plain integers must not be fused into a ref
	s := New([]byte("10 20 30"))
	for _, want := range []int64{10, 20, 30} {
		tok := mustNext(t, s)
		if tok.Type != TokenNumber || tok.Int != want {
			t.Fatalf("got %+v, want %d", tok, want)
		}
	}
}

func TestScanRefRequiresDelimiterAfterR(t *testing.T) {
	// "1 0 Rogue" is two numbers and a keyword, not a reference
	s := New([]byte("1 0 Rogue"))
	if tok := mustNext(t, s); tok.Type != TokenNumber || tok.Int != 1 {
		t.Fatalf("got %+v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenNumber || tok.Int != 0 {
		t.Fatalf("got %+v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenKeyword || tok.Keyword != "Rogue" {
		t.Fatalf("got %+v", tok)
	}
}

func TestScanDictAndArrayDelimiters(t *testing.T) {
	s := New([]byte("<< /K [1 2] >>"))
	types := []TokenType{TokenDictOpen, TokenName, TokenArrayOpen, TokenNumber, TokenNumber, TokenArrayClose, TokenDictClose}
	for _, want := range types {
		tok := mustNext(t, s)
		if tok.Type != want {
			t.Fatalf("got type %d, want %d", tok.Type, want)
		}
	}
}

func TestScanBooleanAndNull(t *testing.T) {
	s := New([]byte("true false null"))
	if tok := mustNext(t, s); tok.Type != TokenBoolean || tok.Keyword != "true" {
		t.Fatalf("got %+v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenBoolean || tok.Keyword != "false" {
		t.Fatalf("got %+v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenNull {
		t.Fatalf("got %+v", tok)
	}
}

func TestScanComments(t *testing.T) {
	s := New([]byte("% a comment\n/Name % trailing\n42"))
	if tok := mustNext(t, s); tok.Type != TokenName || tok.Name != "Name" {
		t.Fatalf("got %+v", tok)
	}
	if tok := mustNext(t, s); tok.Type != TokenNumber || tok.Int != 42 {
		t.Fatalf("got %+v", tok)
	}
}

func TestScanStreamWithLengthHint(t *testing.T) {
	payload := []byte("binary endstream lookalike inside\x00\x01")
	var buf bytes.Buffer
	buf.WriteString("stream\n")
	buf.Write(payload)
	buf.WriteString("\nendstream")
	s := New(buf.Bytes())
	s.SetNextStreamLength(int64(len(payload)))
	tok := mustNext(t, s)
	if tok.Type != TokenStream || !bytes.Equal(tok.Bytes, payload) {
		t.Fatalf("got %q, want %q", tok.Bytes, payload)
	}
}

func TestScanStreamWithoutHint(t *testing.T) {
	s := New([]byte("stream\npayload data\nendstream"))
	tok := mustNext(t, s)
	if tok.Type != TokenStream || string(tok.Bytes) != "payload data" {
		t.Fatalf("got %q", tok.Bytes)
	}
}

func TestScanStreamDeclaredLengthTooLong(t *testing.T) {
	s := New([]byte("stream\nhi\nendstream"))
	s.SetNextStreamLength(1000)
	if _, err := s.Next(); err == nil {
		t.Fatal("expected error for over-long declared length")
	}
}

func TestSeekOutOfRange(t *testing.T) {
	s := New([]byte("abc"))
	if err := s.Seek(-1); err == nil {
		t.Fatal("expected error for negative seek")
	}
	if err := s.Seek(100); err == nil {
		t.Fatal("expected error for seek past end")
	}
}

func TestUnterminatedString(t *testing.T) {
	if _, err := New([]byte("(never closed")).Next(); err == nil {
		t.Fatal("expected error for unterminated literal")
	}
	if _, err := New([]byte("<4142")).Next(); err == nil {
		t.Fatal("expected error for unterminated hex string")
	}
}
