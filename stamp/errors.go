package stamp

import "fmt"

// InputError means the source document could not be read or parsed.
// No output is produced.
type InputError struct {
	Path string // empty for in-memory input
	Err  error
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("reading input: %v", e.Err)
	}
	return fmt.Sprintf("reading input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// RenderError means building the number overlay failed for one page.
// Page is 1-based; processing stops there and no output is produced.
type RenderError struct {
	Page int
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering page number on page %d: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// OutputError means the result could not be written to its destination.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("writing output %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }
