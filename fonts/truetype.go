package fonts

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// TrueType wraps a parsed sfnt font and the raw bytes needed for
// embedding it as a /FontFile2 program.
type TrueType struct {
	data        []byte
	psName      string
	unitsPerEm  int
	ascent      float64 // thousandths of an em
	descent     float64
	capHeight   float64
	italicAngle float64
	bbox        [4]float64
	widths      [95]float64 // chars 32..126, thousandths of an em
}

// Descriptor carries the values a /FontDescriptor dictionary needs.
// Descent is negative, following the descriptor convention.
type Descriptor struct {
	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	BBox        [4]float64
	Flags       int
	StemV       float64
}

// LoadTrueType parses font data and precomputes the metrics the label
// geometry uses.
func LoadTrueType(data []byte) (*TrueType, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	var buf sfnt.Buffer
	psName, err := f.Name(&buf, sfnt.NameIDPostScript)
	if err != nil || psName == "" {
		psName, err = f.Name(&buf, sfnt.NameIDFull)
		if err != nil {
			return nil, fmt.Errorf("font has no usable name: %w", err)
		}
	}
	upem := int(f.UnitsPerEm())
	if upem <= 0 {
		return nil, fmt.Errorf("font reports UnitsPerEm %d", upem)
	}
	// Query at ppem == upem so results come back in font units (26.6).
	ppem := fixed.Int26_6(upem << 6)

	t := &TrueType{data: data, psName: psName, unitsPerEm: upem}
	scale := func(v fixed.Int26_6) float64 {
		return float64(v) * 1000 / float64(64*upem)
	}

	m, err := f.Metrics(&buf, ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("reading font metrics: %w", err)
	}
	t.ascent = scale(m.Ascent)
	t.descent = -scale(m.Descent)
	t.capHeight = scale(m.CapHeight)
	if t.capHeight <= 0 {
		t.capHeight = t.ascent
	}

	if bounds, err := f.Bounds(&buf, ppem, font.HintingNone); err == nil {
		t.bbox = [4]float64{
			scale(bounds.Min.X), -scale(bounds.Max.Y),
			scale(bounds.Max.X), -scale(bounds.Min.Y),
		}
	}
	if post := f.PostTable(); post != nil {
		t.italicAngle = post.ItalicAngle
	}

	for i := range t.widths {
		r := rune(32 + i)
		gi, err := f.GlyphIndex(&buf, r)
		if err != nil || gi == 0 {
			t.widths[i] = 500
			continue
		}
		adv, err := f.GlyphAdvance(&buf, gi, ppem, font.HintingNone)
		if err != nil {
			t.widths[i] = 500
			continue
		}
		t.widths[i] = scale(adv)
	}
	return t, nil
}

func (t *TrueType) Name() string { return t.psName }

// Data is the raw font program for /FontFile2 embedding.
func (t *TrueType) Data() []byte { return t.data }

func (t *TrueType) Advance(text string, size float64) float64 {
	var total float64
	for _, r := range text {
		if r >= 32 && r <= 126 {
			total += t.widths[r-32]
			continue
		}
		total += 500
	}
	return total / 1000 * size
}

func (t *TrueType) CapHeight(size float64) float64 {
	return t.capHeight / 1000 * size
}

// Widths returns the advance array for /FirstChar 32 to /LastChar 126,
// rounded to integers as font dictionaries conventionally carry them.
func (t *TrueType) Widths() (firstChar, lastChar int, widths []int64) {
	out := make([]int64, len(t.widths))
	for i, w := range t.widths {
		out[i] = int64(w + 0.5)
	}
	return 32, 126, out
}

func (t *TrueType) Descriptor() Descriptor {
	return Descriptor{
		Ascent:      t.ascent,
		Descent:     t.descent,
		CapHeight:   t.capHeight,
		ItalicAngle: t.italicAngle,
		BBox:        t.bbox,
		Flags:       1 << 5, // nonsymbolic
		StemV:       80,
	}
}
