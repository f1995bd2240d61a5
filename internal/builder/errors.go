package builder

import "fmt"

// RenderError aborts a run when the host renderer fails or panics. It names
// the last-attempted item so callers can emit a diagnostic identifying where
// the run stopped; no item is appended for the failed page or route.
type RenderError struct {
	URI string
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %q: %v", e.URI, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
