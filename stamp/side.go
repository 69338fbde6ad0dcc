// Package stamp numbers the pages of a PDF for duplex printing: odd
// pages carry the number top-left, even pages top-right, so the labels
// stay clear of punch holes whichever side of the sheet faces up.
package stamp

// Side is the duplex side of a sheet a page lands on.
type Side int

const (
	// Front is the odd (recto) side; its label sits top-left.
	Front Side = iota
	// Back is the even (verso) side; its label sits top-right.
	Back
)

func (s Side) String() string {
	if s == Front {
		return "front"
	}
	return "back"
}

// Classify maps a 1-based page number to its duplex side. The rule is
// fixed: odd pages are fronts, even pages are backs.
func Classify(pageNumber int) Side {
	if pageNumber%2 == 1 {
		return Front
	}
	return Back
}
