package stamp

import (
	"github.com/mkoehler/duplexnum/fonts"
)

// Config are the label tunables. Distances are in PDF user space units
// (1/72 inch).
type Config struct {
	// FontSize of the numeral.
	FontSize float64
	// MarginX is the distance from the vertical page edge to the near
	// edge of the label box: the left edge on fronts, the right edge on
	// backs.
	MarginX float64
	// MarginY is the distance from the top page edge to the top of the
	// label box.
	MarginY float64
}

// DefaultConfig returns the stock numbering geometry.
func DefaultConfig() Config {
	return Config{FontSize: 11, MarginX: 20, MarginY: 25}
}

// Box padding around the numeral.
const (
	boxPadX = 6 // total horizontal padding
	boxPadY = 2 // total vertical padding
)

// LabelSpec is the resolved geometry of one page's number label.
// Anchors are measured from the left and top page edges.
type LabelSpec struct {
	Text      string
	Side      Side
	FontSize  float64
	AnchorX   float64 // left edge of the box, from the left page edge
	AnchorY   float64 // top edge of the box, from the top page edge
	BoxWidth  float64
	BoxHeight float64
	TextWidth float64
}

// Compute sizes the label box around text and anchors it for the given
// side. The box grows with the measured text width, so wider numbers
// never clip; pathological margins on tiny pages are not clamped.
func Compute(side Side, pageWidth float64, text string, m fonts.Metrics, cfg Config) LabelSpec {
	textWidth := m.Advance(text, cfg.FontSize)
	boxWidth := textWidth + boxPadX
	boxHeight := cfg.FontSize + boxPadY

	anchorX := cfg.MarginX
	if side == Back {
		anchorX = pageWidth - cfg.MarginX - boxWidth
	}
	return LabelSpec{
		Text:      text,
		Side:      side,
		FontSize:  cfg.FontSize,
		AnchorX:   anchorX,
		AnchorY:   cfg.MarginY,
		BoxWidth:  boxWidth,
		BoxHeight: boxHeight,
		TextWidth: textWidth,
	}
}
