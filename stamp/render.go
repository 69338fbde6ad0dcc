package stamp

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strconv"

	"github.com/mkoehler/duplexnum/core"
	"github.com/mkoehler/duplexnum/fonts"
	"github.com/mkoehler/duplexnum/parser"
	"github.com/mkoehler/duplexnum/writer"
)

// The overlay is two print-flagged annotations per page, each with its
// own appearance stream: a FreeText annotation drawing the white box
// and the centered numeral, and a Square annotation drawing the
// hairline border. Annotations render above all page content, so the
// number stays readable over images, stamps and ink.

const annotFlagPrint = 4

const borderWidth = 0.5

// fontResources is the shared label font, installed once per document.
type fontResources struct {
	resName core.Name
	ref     core.Ref
	metrics fonts.Metrics
}

// installFont registers the label font objects with the update. A nil
// ttf selects the built-in Helvetica, which viewers supply without an
// embedded program.
func installFont(upd *writer.Update, ttf *fonts.TrueType) fontResources {
	if ttf == nil {
		ref := upd.Alloc(core.Dict{
			"Type":     core.Name("Font"),
			"Subtype":  core.Name("Type1"),
			"BaseFont": core.Name("Helvetica"),
			"Encoding": core.Name("WinAnsiEncoding"),
		})
		return fontResources{resName: "Helv", ref: ref, metrics: fonts.Helvetica()}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(ttf.Data())
	zw.Close()
	fileRef := upd.Alloc(&core.Stream{
		Dict: core.Dict{
			"Filter":  core.Name("FlateDecode"),
			"Length1": core.Integer(len(ttf.Data())),
		},
		Raw: compressed.Bytes(),
	})

	desc := ttf.Descriptor()
	descRef := upd.Alloc(core.Dict{
		"Type":        core.Name("FontDescriptor"),
		"FontName":    core.Name(ttf.Name()),
		"Flags":       core.Integer(desc.Flags),
		"FontBBox":    core.Array{core.Real(desc.BBox[0]), core.Real(desc.BBox[1]), core.Real(desc.BBox[2]), core.Real(desc.BBox[3])},
		"ItalicAngle": core.Real(desc.ItalicAngle),
		"Ascent":      core.Real(desc.Ascent),
		"Descent":     core.Real(desc.Descent),
		"CapHeight":   core.Real(desc.CapHeight),
		"StemV":       core.Real(desc.StemV),
		"FontFile2":   fileRef,
	})

	firstChar, lastChar, widths := ttf.Widths()
	widthArr := make(core.Array, len(widths))
	for i, w := range widths {
		widthArr[i] = core.Integer(w)
	}
	fontRef := upd.Alloc(core.Dict{
		"Type":           core.Name("Font"),
		"Subtype":        core.Name("TrueType"),
		"BaseFont":       core.Name(ttf.Name()),
		"FirstChar":      core.Integer(firstChar),
		"LastChar":       core.Integer(lastChar),
		"Widths":         widthArr,
		"Encoding":       core.Name("WinAnsiEncoding"),
		"FontDescriptor": descRef,
	})
	return fontResources{resName: "F0", ref: fontRef, metrics: ttf}
}

// renderPage builds the two overlay annotations for one page and hooks
// them into its /Annots array.
func renderPage(doc *parser.Document, upd *writer.Update, page parser.Page, spec LabelSpec, fr fontResources) error {
	if spec.Text == "" {
		return &RenderError{Page: page.Number, Err: fmt.Errorf("empty label text")}
	}
	if spec.BoxWidth <= 0 || spec.BoxHeight <= 0 {
		return &RenderError{
			Page: page.Number,
			Err:  fmt.Errorf("degenerate label box %.2f x %.2f", spec.BoxWidth, spec.BoxHeight),
		}
	}

	mb := page.MediaBox
	llx := mb.LLX + spec.AnchorX
	ury := mb.URY - spec.AnchorY
	rect := core.Rect{LLX: llx, LLY: ury - spec.BoxHeight, URX: llx + spec.BoxWidth, URY: ury}

	textRef := upd.Alloc(textAppearance(spec, fr))
	freeText := upd.Alloc(core.Dict{
		"Type":     core.Name("Annot"),
		"Subtype":  core.Name("FreeText"),
		"Rect":     rect.Array(),
		"Contents": core.String{Bytes: []byte(spec.Text)},
		"DA":       core.String{Bytes: []byte(daString(spec, fr))},
		"Q":        core.Integer(1), // centered
		"C":        core.Array{core.Integer(1), core.Integer(1), core.Integer(1)},
		"F":        core.Integer(annotFlagPrint),
		"Border":   core.Array{core.Integer(0), core.Integer(0), core.Integer(0)},
		"AP":       core.Dict{"N": textRef},
	})

	borderRef := upd.Alloc(borderAppearance(spec))
	square := upd.Alloc(core.Dict{
		"Type":    core.Name("Annot"),
		"Subtype": core.Name("Square"),
		"Rect":    rect.Array(),
		"C":       core.Array{core.Integer(0), core.Integer(0), core.Integer(0)},
		"BS":      core.Dict{"W": core.Real(borderWidth), "S": core.Name("S")},
		"F":       core.Integer(annotFlagPrint),
		"AP":      core.Dict{"N": borderRef},
	})

	if err := appendAnnotations(doc, upd, page, freeText, square); err != nil {
		return &RenderError{Page: page.Number, Err: err}
	}
	return nil
}

// textAppearance paints the opaque white box and the centered numeral.
func textAppearance(spec LabelSpec, fr fontResources) *core.Stream {
	tx := (spec.BoxWidth - spec.TextWidth) / 2
	ty := (spec.BoxHeight - fr.metrics.CapHeight(spec.FontSize)) / 2
	var ops bytes.Buffer
	fmt.Fprintf(&ops, "1 g\n0 0 %s %s re\nf\n", fnum(spec.BoxWidth), fnum(spec.BoxHeight))
	fmt.Fprintf(&ops, "BT\n/%s %s Tf\n0 g\n%s %s Td\n(%s) Tj\nET",
		fr.resName, fnum(spec.FontSize), fnum(tx), fnum(ty), escapeText(spec.Text))
	return &core.Stream{
		Dict: core.Dict{
			"Type":     core.Name("XObject"),
			"Subtype":  core.Name("Form"),
			"FormType": core.Integer(1),
			"BBox":     core.Array{core.Integer(0), core.Integer(0), core.Real(spec.BoxWidth), core.Real(spec.BoxHeight)},
			"Resources": core.Dict{
				"Font": core.Dict{fr.resName: fr.ref},
			},
		},
		Raw: ops.Bytes(),
	}
}

// borderAppearance strokes the hairline frame, inset by half the line
// width so the stroke stays inside the annotation rectangle.
func borderAppearance(spec LabelSpec) *core.Stream {
	inset := borderWidth / 2
	var ops bytes.Buffer
	fmt.Fprintf(&ops, "%s w\n0 G\n%s %s %s %s re\nS",
		fnum(borderWidth),
		fnum(inset), fnum(inset),
		fnum(spec.BoxWidth-borderWidth), fnum(spec.BoxHeight-borderWidth))
	return &core.Stream{
		Dict: core.Dict{
			"Type":     core.Name("XObject"),
			"Subtype":  core.Name("Form"),
			"FormType": core.Integer(1),
			"BBox":     core.Array{core.Integer(0), core.Integer(0), core.Real(spec.BoxWidth), core.Real(spec.BoxHeight)},
		},
		Raw: ops.Bytes(),
	}
}

func daString(spec LabelSpec, fr fontResources) string {
	return fmt.Sprintf("/%s %s Tf 0 g", fr.resName, fnum(spec.FontSize))
}

// appendAnnotations extends the page's /Annots with refs. An existing
// array is extended in place (rewriting the array object when it is
// indirect, the page object when it is direct); pages without
// annotations get a fresh array.
func appendAnnotations(doc *parser.Document, upd *writer.Update, page parser.Page, refs ...core.Object) error {
	existing, ok := page.Dict.Get("Annots")
	if !ok {
		newPage := page.Dict.Clone()
		newPage["Annots"] = core.Array(refs)
		upd.Replace(page.Ref, newPage)
		return nil
	}
	if arrRef, isRef := existing.(core.Ref); isRef {
		res, err := doc.Get(arrRef)
		if err != nil {
			return fmt.Errorf("resolving /Annots: %w", err)
		}
		arr, ok := res.(core.Array)
		if !ok {
			return fmt.Errorf("/Annots is %T, expected array", res)
		}
		merged := make(core.Array, 0, len(arr)+len(refs))
		merged = append(merged, arr...)
		merged = append(merged, refs...)
		upd.Replace(arrRef, merged)
		return nil
	}
	arr, ok := existing.(core.Array)
	if !ok {
		return fmt.Errorf("/Annots is %T, expected array", existing)
	}
	merged := make(core.Array, 0, len(arr)+len(refs))
	merged = append(merged, arr...)
	merged = append(merged, refs...)
	newPage := page.Dict.Clone()
	newPage["Annots"] = merged
	upd.Replace(page.Ref, newPage)
	return nil
}

// fnum formats a coordinate with the shortest exact decimal form.
func fnum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escapeText(s string) string {
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', ')', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
