package analysis

import (
	"errors"
	"fmt"
)

// ErrSubjectNotFound is returned by a SubjectProvider when the subject does not exist.
var ErrSubjectNotFound = errors.New("subject not found")

// ContextError is the only error ExecuteAnalysis reports, apart from the
// caller's own context being cancelled.
type ContextError struct {
	SubjectID string
	Err       error
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("failed to build analysis context for %s: %v", e.SubjectID, e.Err)
}

func (e *ContextError) Unwrap() error {
	return e.Err
}
