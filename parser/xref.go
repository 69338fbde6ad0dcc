package parser

import (
	"fmt"

	"github.com/mkoehler/duplexnum/core"
	"github.com/mkoehler/duplexnum/filters"
	"github.com/mkoehler/duplexnum/scanner"
)

type entryKind int

const (
	entryFree entryKind = iota
	entryInFile
	entryInStream
)

type xrefEntry struct {
	kind      entryKind
	offset    int64
	gen       int
	streamNum int
	streamIdx int
}

// table is the merged cross-reference state of a document. Entries from
// newer sections win over those reached through /Prev.
type table struct {
	entries  map[int]xrefEntry
	trailer  core.Dict
	start    int64 // offset of the newest section
	isStream bool  // newest section is an xref stream
	size     int64 // /Size of the newest trailer
}

func decodeStream(stm *core.Stream) ([]byte, error) {
	return filters.Decode(stm)
}

// resolveXRef walks the /Prev chain starting at the newest section.
func (d *Document) resolveXRef(start int64) (*table, error) {
	t := &table{entries: make(map[int]xrefEntry), trailer: core.Dict{}, start: start}
	seen := make(map[int64]bool)
	offset := start
	first := true
	for offset >= 0 {
		if seen[offset] {
			return nil, fmt.Errorf("cross-reference loop at offset %d", offset)
		}
		seen[offset] = true
		if offset >= int64(len(d.data)) {
			return nil, fmt.Errorf("cross-reference offset %d out of range", offset)
		}

		var sectionTrailer core.Dict
		var err error
		switch {
		case xrefKeywordAt(d.data, offset):
			sectionTrailer, err = d.readClassicSection(t, offset)
			if err != nil {
				return nil, err
			}
			// Hybrid files carry the compressed-object entries in a
			// parallel xref stream.
			if xs, ok := sectionTrailer.GetInt("XRefStm"); ok && !seen[xs] {
				seen[xs] = true
				if _, serr := d.readStreamSection(t, xs); serr != nil {
					return nil, fmt.Errorf("hybrid xref stream: %w", serr)
				}
			}
		case objHeaderAt(d.data, offset):
			sectionTrailer, err = d.readStreamSection(t, offset)
			if err != nil {
				return nil, err
			}
			if first {
				t.isStream = true
			}
		default:
			return nil, fmt.Errorf("no cross-reference section at offset %d", offset)
		}

		for k, v := range sectionTrailer {
			if _, ok := t.trailer[k]; !ok {
				t.trailer[k] = v
			}
		}
		if first {
			if size, ok := sectionTrailer.GetInt("Size"); ok {
				t.size = size
			}
			first = false
		}

		prev, ok := sectionTrailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = prev
	}
	return t, nil
}

// readClassicSection parses "xref" subsections followed by the trailer
// dictionary, merging entries not already present.
func (d *Document) readClassicSection(t *table, offset int64) (core.Dict, error) {
	sc := scanner.New(d.data)
	if err := sc.Seek(offset); err != nil {
		return nil, err
	}
	tok, err := sc.Next()
	if err != nil {
		return nil, err
	}
	if tok.Type != scanner.TokenKeyword || tok.Keyword != "xref" {
		return nil, fmt.Errorf("expected xref keyword at %d", offset)
	}
	tok, err = sc.Next()
	if err != nil {
		return nil, err
	}
	for {
		if tok.Type == scanner.TokenKeyword && tok.Keyword == "trailer" {
			return d.parseTrailerDict(sc)
		}
		if tok.Type != scanner.TokenNumber || !tok.IsInt {
			return nil, fmt.Errorf("malformed xref subsection header at %d", tok.Pos)
		}
		subStart := int(tok.Int)
		cnt, err := sc.Next()
		if err != nil {
			return nil, err
		}
		if cnt.Type != scanner.TokenNumber || !cnt.IsInt {
			return nil, fmt.Errorf("malformed xref subsection count at %d", cnt.Pos)
		}
		for i := 0; i < int(cnt.Int); i++ {
			offTok, err := sc.Next()
			if err != nil {
				return nil, err
			}
			genTok, err := sc.Next()
			if err != nil {
				return nil, err
			}
			kindTok, err := sc.Next()
			if err != nil {
				return nil, err
			}
			if offTok.Type != scanner.TokenNumber || genTok.Type != scanner.TokenNumber ||
				kindTok.Type != scanner.TokenKeyword {
				return nil, fmt.Errorf("malformed xref entry %d in subsection at %d", i, tok.Pos)
			}
			num := subStart + i
			if _, exists := t.entries[num]; exists {
				continue
			}
			switch kindTok.Keyword {
			case "n":
				t.entries[num] = xrefEntry{kind: entryInFile, offset: offTok.Int, gen: int(genTok.Int)}
			case "f":
				t.entries[num] = xrefEntry{kind: entryFree, gen: int(genTok.Int)}
			default:
				return nil, fmt.Errorf("unknown xref entry type %q", kindTok.Keyword)
			}
		}
		tok, err = sc.Next()
		if err != nil {
			return nil, err
		}
	}
}

// readStreamSection parses an xref stream object at offset and merges
// its entries. Returns the stream dictionary, which doubles as the
// trailer.
func (d *Document) readStreamSection(t *table, offset int64) (core.Dict, error) {
	sc := scanner.New(d.data)
	if err := sc.Seek(offset); err != nil {
		return nil, err
	}
	num, gen, err := readObjHeader(sc)
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %w", offset, err)
	}
	obj, err := d.parseIndirectBody(sc, core.Ref{Num: num, Gen: gen})
	if err != nil {
		return nil, err
	}
	stm, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("xref stream at %d: object is not a stream", offset)
	}
	if typ, _ := stm.Dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("xref stream at %d: /Type is %q", offset, typ)
	}
	decoded, err := decodeStream(stm)
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %w", offset, err)
	}

	size, ok := stm.Dict.GetInt("Size")
	if !ok {
		return nil, fmt.Errorf("xref stream at %d: missing /Size", offset)
	}
	wArr, ok := stm.Dict.GetArray("W")
	if !ok || len(wArr) < 3 {
		return nil, fmt.Errorf("xref stream at %d: missing or short /W", offset)
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, ok := core.Int(wArr[i])
		if !ok || v < 0 || v > 8 {
			return nil, fmt.Errorf("xref stream at %d: bad /W", offset)
		}
		w[i] = int(v)
	}
	index := []int64{0, size}
	if idxArr, ok := stm.Dict.GetArray("Index"); ok {
		if len(idxArr)%2 != 0 {
			return nil, fmt.Errorf("xref stream at %d: odd /Index length", offset)
		}
		index = index[:0]
		for _, o := range idxArr {
			v, ok := core.Int(o)
			if !ok {
				return nil, fmt.Errorf("xref stream at %d: non-integer /Index", offset)
			}
			index = append(index, v)
		}
	}

	rowLen := w[0] + w[1] + w[2]
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream at %d: zero-width rows", offset)
	}
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if pos+rowLen > len(decoded) {
				return nil, fmt.Errorf("xref stream at %d: truncated entry data", offset)
			}
			// field 1 defaults to type 1 when W[0] is zero
			f1 := int64(1)
			if w[0] > 0 {
				f1 = beInt(decoded[pos : pos+w[0]])
			}
			f2 := beInt(decoded[pos+w[0] : pos+w[0]+w[1]])
			f3 := beInt(decoded[pos+w[0]+w[1] : pos+rowLen])
			pos += rowLen

			objNum := int(first + j)
			if _, exists := t.entries[objNum]; exists {
				continue
			}
			switch f1 {
			case 0:
				t.entries[objNum] = xrefEntry{kind: entryFree, gen: int(f3)}
			case 1:
				t.entries[objNum] = xrefEntry{kind: entryInFile, offset: f2, gen: int(f3)}
			case 2:
				t.entries[objNum] = xrefEntry{kind: entryInStream, streamNum: int(f2), streamIdx: int(f3)}
			default:
				// unknown entry types read as null references
			}
		}
	}
	return stm.Dict, nil
}

func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
