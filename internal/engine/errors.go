package engine

import "fmt"

// WriteError classifies a failed remote write so the presentation layer can
// show a retryable failure notice. A failed balance batch changes
// user-visible totals, so these are never swallowed.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func writeErr(op string, err error) error {
	return &WriteError{Op: op, Err: err}
}
