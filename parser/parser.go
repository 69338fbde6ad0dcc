// Package parser loads PDF documents: it resolves the cross-reference
// chain (classic tables, xref streams, /Prev, hybrid /XRefStm), parses
// indirect objects including those packed into object streams, and walks
// the page tree with attribute inheritance.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/mkoehler/duplexnum/core"
	"github.com/mkoehler/duplexnum/scanner"
)

// Document is a parsed PDF. Objects are loaded lazily and cached.
type Document struct {
	data    []byte
	xref    *table
	objects map[core.Ref]core.Object
	loading map[core.Ref]bool
	version string
}

var headerRe = regexp.MustCompile(`%PDF-(\d+\.\d+)`)

// Parse reads a complete PDF from data. The byte slice is retained by
// the returned Document; callers must not mutate it.
func Parse(ctx context.Context, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := headerRe.FindSubmatch(data)
	if m == nil {
		return nil, fmt.Errorf("missing %%PDF header")
	}
	start, err := lastStartXRef(data)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		data:    data,
		objects: make(map[core.Ref]core.Object),
		loading: make(map[core.Ref]bool),
		version: string(m[1]),
	}
	xr, err := doc.resolveXRef(start)
	if err != nil {
		return nil, fmt.Errorf("resolving cross-reference data: %w", err)
	}
	doc.xref = xr
	if _, ok := xr.trailer["Root"]; !ok {
		return nil, fmt.Errorf("trailer has no /Root")
	}
	return doc, nil
}

var startXRefRe = regexp.MustCompile(`startxref\s+(\d+)`)

// lastStartXRef finds the final startxref offset near the end of the file.
func lastStartXRef(data []byte) (int64, error) {
	window := data
	if len(window) > 2048 {
		window = window[len(window)-2048:]
	}
	matches := startXRefRe.FindAllSubmatch(window, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	off, err := strconv.ParseInt(string(matches[len(matches)-1][1]), 10, 64)
	if err != nil {
		return 0, err
	}
	if off <= 0 || off >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d out of range", off)
	}
	return off, nil
}

func (d *Document) Version() string    { return d.version }
func (d *Document) Bytes() []byte      { return d.data }
func (d *Document) Trailer() core.Dict { return d.xref.trailer }

// StartXRef is the offset of the newest cross-reference section, the
// value an incremental update records as /Prev.
func (d *Document) StartXRef() int64 { return d.xref.start }

// XRefIsStream reports whether the newest cross-reference section is a
// stream rather than a classic table.
func (d *Document) XRefIsStream() bool { return d.xref.isStream }

// NextObjectNumber returns the first unused object number.
func (d *Document) NextObjectNumber() int {
	next := int(d.xref.size)
	for num := range d.xref.entries {
		if num+1 > next {
			next = num + 1
		}
	}
	if next < 1 {
		next = 1
	}
	return next
}

// Get loads the indirect object ref points at. Free and absent entries
// yield core.Null per the PDF null-object rule.
func (d *Document) Get(ref core.Ref) (core.Object, error) {
	if obj, ok := d.objects[ref]; ok {
		return obj, nil
	}
	if d.xref == nil {
		return nil, fmt.Errorf("object %d %d referenced before cross-reference data is available", ref.Num, ref.Gen)
	}
	if d.loading[ref] {
		return nil, fmt.Errorf("object %d %d: circular reference", ref.Num, ref.Gen)
	}
	ent, ok := d.xref.entries[ref.Num]
	if !ok || ent.kind == entryFree || (ent.kind == entryInFile && ent.gen != ref.Gen) {
		return core.Null{}, nil
	}
	d.loading[ref] = true
	defer delete(d.loading, ref)

	var obj core.Object
	var err error
	switch ent.kind {
	case entryInFile:
		obj, err = d.loadAt(ref, ent.offset)
	case entryInStream:
		obj, err = d.loadFromObjectStream(ref, ent.streamNum, ent.streamIdx)
	}
	if err != nil {
		return nil, err
	}
	d.objects[ref] = obj
	return obj, nil
}

// Resolve chases o through indirect references until a direct object
// remains.
func (d *Document) Resolve(o core.Object) (core.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := o.(core.Ref)
		if !ok {
			return o, nil
		}
		var err error
		o, err = d.Get(ref)
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain too deep")
}

// ResolveDict resolves a dictionary value that may be direct or indirect.
func (d *Document) ResolveDict(o core.Object) (core.Dict, error) {
	res, err := d.Resolve(o)
	if err != nil {
		return nil, err
	}
	dict, ok := res.(core.Dict)
	if !ok {
		if s, ok := res.(*core.Stream); ok {
			return s.Dict, nil
		}
		return nil, fmt.Errorf("expected dictionary, got %T", res)
	}
	return dict, nil
}

// loadAt parses the "num gen obj ... endobj" record at offset.
func (d *Document) loadAt(ref core.Ref, offset int64) (core.Object, error) {
	sc := scanner.New(d.data)
	if err := sc.Seek(offset); err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Num, ref.Gen, err)
	}
	num, gen, err := readObjHeader(sc)
	if err != nil {
		return nil, fmt.Errorf("object %d %d at %d: %w", ref.Num, ref.Gen, offset, err)
	}
	if num != ref.Num || gen != ref.Gen {
		return nil, fmt.Errorf("object %d %d at %d: found %d %d instead", ref.Num, ref.Gen, offset, num, gen)
	}
	return d.parseIndirectBody(sc, ref)
}

func readObjHeader(sc *scanner.Scanner) (num, gen int, err error) {
	t1, err := sc.Next()
	if err != nil {
		return 0, 0, err
	}
	t2, err := sc.Next()
	if err != nil {
		return 0, 0, err
	}
	t3, err := sc.Next()
	if err != nil {
		return 0, 0, err
	}
	if t1.Type != scanner.TokenNumber || !t1.IsInt ||
		t2.Type != scanner.TokenNumber || !t2.IsInt ||
		t3.Type != scanner.TokenKeyword || t3.Keyword != "obj" {
		return 0, 0, fmt.Errorf("malformed object header")
	}
	return int(t1.Int), int(t2.Int), nil
}

// parseIndirectBody parses the object value, attaching stream data when
// the dictionary is followed by a stream keyword. /Length may itself be
// indirect and is resolved before the payload is read.
func (d *Document) parseIndirectBody(sc *scanner.Scanner, ref core.Ref) (core.Object, error) {
	tok, err := sc.Next()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Num, ref.Gen, err)
	}
	obj, err := d.parseValue(sc, tok)
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", ref.Num, ref.Gen, err)
	}
	dict, isDict := obj.(core.Dict)
	if isDict {
		if length, ok := dict["Length"]; ok {
			if res, rerr := d.Resolve(length); rerr == nil {
				if n, ok := core.Int(res); ok {
					sc.SetNextStreamLength(n)
				}
			}
		}
	}
	next, err := sc.Next()
	if err != nil {
		sc.SetNextStreamLength(-1)
		return obj, nil
	}
	if next.Type == scanner.TokenStream {
		if !isDict {
			return nil, fmt.Errorf("object %d %d: stream without dictionary", ref.Num, ref.Gen)
		}
		return &core.Stream{Dict: dict, Raw: next.Bytes}, nil
	}
	sc.SetNextStreamLength(-1)
	return obj, nil
}

// parseValue parses one object starting from tok, consuming nested
// tokens from sc as needed.
func (d *Document) parseValue(sc *scanner.Scanner, tok scanner.Token) (core.Object, error) {
	switch tok.Type {
	case scanner.TokenDictOpen:
		dict := core.Dict{}
		for {
			t, err := sc.Next()
			if err != nil {
				return nil, err
			}
			if t.Type == scanner.TokenDictClose {
				return dict, nil
			}
			if t.Type != scanner.TokenName {
				return nil, fmt.Errorf("dictionary key must be a name, got token at %d", t.Pos)
			}
			vt, err := sc.Next()
			if err != nil {
				return nil, err
			}
			val, err := d.parseValue(sc, vt)
			if err != nil {
				return nil, err
			}
			dict[core.Name(t.Name)] = val
		}
	case scanner.TokenArrayOpen:
		arr := core.Array{}
		for {
			t, err := sc.Next()
			if err != nil {
				return nil, err
			}
			if t.Type == scanner.TokenArrayClose {
				return arr, nil
			}
			item, err := d.parseValue(sc, t)
			if err != nil {
				return nil, err
			}
			arr = append(arr, item)
		}
	case scanner.TokenName:
		return core.Name(tok.Name), nil
	case scanner.TokenString:
		return core.String{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return core.Integer(tok.Int), nil
		}
		return core.Real(tok.Real), nil
	case scanner.TokenBoolean:
		return core.Boolean(tok.Keyword == "true"), nil
	case scanner.TokenNull:
		return core.Null{}, nil
	case scanner.TokenRef:
		return core.Ref{Num: tok.Num, Gen: tok.Gen}, nil
	}
	return nil, fmt.Errorf("unexpected token at %d", tok.Pos)
}

// loadFromObjectStream extracts compressed object idx from object
// stream streamNum.
func (d *Document) loadFromObjectStream(ref core.Ref, streamNum, idx int) (core.Object, error) {
	container, err := d.Get(core.Ref{Num: streamNum, Gen: 0})
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	stm, ok := container.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d: not a stream", streamNum)
	}
	decoded, err := decodeStream(stm)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	n, ok := stm.Dict.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("object stream %d: missing /N", streamNum)
	}
	first, ok := stm.Dict.GetInt("First")
	if !ok {
		return nil, fmt.Errorf("object stream %d: missing /First", streamNum)
	}
	if idx < 0 || int64(idx) >= n {
		return nil, fmt.Errorf("object stream %d: index %d out of range", streamNum, idx)
	}
	// The header is N pairs of "objnum offset".
	hsc := scanner.New(decoded)
	var objNum int
	var objOff int64
	for i := int64(0); i <= int64(idx); i++ {
		t1, err := hsc.Next()
		if err != nil {
			return nil, fmt.Errorf("object stream %d header: %w", streamNum, err)
		}
		t2, err := hsc.Next()
		if err != nil {
			return nil, fmt.Errorf("object stream %d header: %w", streamNum, err)
		}
		if t1.Type != scanner.TokenNumber || t2.Type != scanner.TokenNumber {
			return nil, fmt.Errorf("object stream %d: malformed header pair %d", streamNum, i)
		}
		objNum, objOff = int(t1.Int), t2.Int
	}
	if objNum != ref.Num {
		return nil, fmt.Errorf("object stream %d slot %d holds object %d, want %d", streamNum, idx, objNum, ref.Num)
	}
	osc := scanner.New(decoded)
	if err := osc.Seek(first + objOff); err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	tok, err := osc.Next()
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", streamNum, err)
	}
	return d.parseValue(osc, tok)
}

// parseTrailerDict parses the dictionary after a trailer keyword.
func (d *Document) parseTrailerDict(sc *scanner.Scanner) (core.Dict, error) {
	tok, err := sc.Next()
	if err != nil {
		return nil, err
	}
	if tok.Type != scanner.TokenDictOpen {
		return nil, fmt.Errorf("trailer not followed by a dictionary")
	}
	obj, err := d.parseValue(sc, tok)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is not a dictionary")
	}
	return dict, nil
}

// objHeaderAt reports whether data at off begins an indirect object
// header rather than a classic xref table.
func objHeaderAt(data []byte, off int64) bool {
	window := data[off:]
	if len(window) > 64 {
		window = window[:64]
	}
	return objHeaderRe.Match(window)
}

var objHeaderRe = regexp.MustCompile(`^\s*\d+\s+\d+\s+obj\b`)

// xrefKeywordAt reports whether data at off begins with the xref keyword.
func xrefKeywordAt(data []byte, off int64) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[off:], "\x00\t\n\f\r "), []byte("xref"))
}
