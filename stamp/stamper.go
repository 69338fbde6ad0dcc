package stamp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkoehler/duplexnum/fonts"
	"github.com/mkoehler/duplexnum/observability"
	"github.com/mkoehler/duplexnum/parser"
	"github.com/mkoehler/duplexnum/writer"
)

// OutputSuffix is appended to the input name when no output path is
// given.
const OutputSuffix = "_nummeriert"

// Stamper numbers every page of a document, walking the pages strictly
// in document order. It is not safe for concurrent use.
type Stamper struct {
	cfg Config
	log observability.Logger
	ttf *fonts.TrueType
}

type Option func(*Stamper)

// WithLogger injects a logger; the default discards everything.
func WithLogger(log observability.Logger) Option {
	return func(s *Stamper) { s.log = log }
}

// WithTrueType renders labels with an embedded TrueType font instead of
// the built-in Helvetica.
func WithTrueType(ttf *fonts.TrueType) Option {
	return func(s *Stamper) { s.ttf = ttf }
}

func New(cfg Config, opts ...Option) *Stamper {
	s := &Stamper{cfg: cfg, log: observability.NopLogger{}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Process stamps every page of the document in data and returns the
// updated file. The original bytes are preserved verbatim as a prefix
// of the result; stamping the same input twice yields identical output.
func (s *Stamper) Process(ctx context.Context, data []byte) ([]byte, error) {
	doc, err := parser.Parse(ctx, data)
	if err != nil {
		return nil, &InputError{Err: err}
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, &InputError{Err: err}
	}
	s.log.Info("document parsed",
		observability.Int("pages", len(pages)),
		observability.String("version", doc.Version()))

	upd := writer.NewUpdate(writer.UpdateConfig{
		Original:         doc.Bytes(),
		Trailer:          doc.Trailer(),
		PrevOffset:       doc.StartXRef(),
		UseXRefStream:    doc.XRefIsStream(),
		NextObjectNumber: doc.NextObjectNumber(),
	})
	fr := installFont(upd, s.ttf)

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		side := Classify(page.Number)
		spec := Compute(side, page.MediaBox.Width(), strconv.Itoa(page.Number), fr.metrics, s.cfg)
		if err := renderPage(doc, upd, page, spec, fr); err != nil {
			return nil, err
		}
		s.log.Debug("page numbered",
			observability.Int("page", page.Number),
			observability.String("side", side.String()),
			observability.Float64("x", spec.AnchorX),
			observability.Float64("y", spec.AnchorY))
	}

	var out bytes.Buffer
	if _, err := upd.WriteTo(&out); err != nil {
		return nil, &OutputError{Err: err}
	}
	return out.Bytes(), nil
}

// Run stamps inputPath into outputPath. An empty outputPath derives the
// destination from the input name. The output appears atomically: it is
// staged in a temporary file and renamed only after a complete write,
// so a failure never leaves a partial result behind.
func (s *Stamper) Run(ctx context.Context, inputPath, outputPath string) error {
	if outputPath == "" {
		outputPath = DeriveOutputPath(inputPath)
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return &InputError{Path: inputPath, Err: err}
	}
	out, err := s.Process(ctx, data)
	if err != nil {
		if ie, ok := err.(*InputError); ok && ie.Path == "" {
			ie.Path = inputPath
		}
		return err
	}

	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, ".duplexnum-*")
	if err != nil {
		return &OutputError{Path: outputPath, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &OutputError{Path: outputPath, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &OutputError{Path: outputPath, Err: err}
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		os.Remove(tmpName)
		return &OutputError{Path: outputPath, Err: err}
	}
	s.log.Info("output written",
		observability.String("path", outputPath),
		observability.Int("bytes", len(out)))
	return nil
}

// DeriveOutputPath appends the numbering suffix to the input name,
// replacing a trailing .pdf extension case-insensitively.
func DeriveOutputPath(inputPath string) string {
	if strings.EqualFold(filepath.Ext(inputPath), ".pdf") {
		return inputPath[:len(inputPath)-len(".pdf")] + OutputSuffix + ".pdf"
	}
	return inputPath + OutputSuffix + ".pdf"
}
