// internal/walker/errors.go
package walker

import (
	"errors"
	"fmt"
)

// Failure classes. Every error returned by a step wraps exactly one of them.
var (
	// ErrElementNotFound means a required element did not appear within the
	// wait budget.
	ErrElementNotFound = errors.New("element not found")
	// ErrContentMismatch means the element was found but did not carry the
	// expected content.
	ErrContentMismatch = errors.New("content mismatch")
	// ErrSession means the browser session failed or became unusable.
	ErrSession = errors.New("session error")
)

// StepError describes a failed step.
type StepError struct {
	// Step is the step kind, e.g. "fill_text" or "advance".
	Step string
	// Target describes what was being located, e.g. `label "Name"`.
	Target   string
	Expected string
	Actual   string
	Err      error
}

func (e *StepError) Error() string {
	switch {
	case errors.Is(e.Err, ErrElementNotFound):
		return fmt.Sprintf("%s: %s not found", e.Step, e.Target)
	case errors.Is(e.Err, ErrContentMismatch):
		return fmt.Sprintf("%s: %s: expected %q, got %q", e.Step, e.Target, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Target, e.Err)
	}
}

func (e *StepError) Unwrap() error { return e.Err }

// Failure class names as they appear in reports.
const (
	ClassElementNotFound = "element_not_found"
	ClassContentMismatch = "content_mismatch"
	ClassSession         = "session_error"
)

// Classify maps an error onto its failure class. Errors outside the
// taxonomy, such as invalid step parameters, classify as "".
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrElementNotFound):
		return ClassElementNotFound
	case errors.Is(err, ErrContentMismatch):
		return ClassContentMismatch
	case errors.Is(err, ErrSession):
		return ClassSession
	}
	return ""
}

// sessionError tags err as a session failure unless it already is one.
func sessionError(err error) error {
	if errors.Is(err, ErrSession) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrSession, err)
}
