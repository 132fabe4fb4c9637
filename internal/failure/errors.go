// Package failure defines the error taxonomy every step operation reports
// through. Callers match with errors.As; KindOf classifies any error for
// the reporting sink.
package failure

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind names a failure category.
type Kind string

const (
	KindElementNotFound Kind = "element_not_found"
	KindTimeout         Kind = "timeout"
	KindAssertion       Kind = "assertion_failed"
	KindNavigationStuck Kind = "navigation_stuck"
	KindPartial         Kind = "partial_operation_failure"
	KindCapture         Kind = "capture_failed"
	KindUnknown         Kind = "error"
)

// ElementNotFoundError reports a required control or field that could not be
// resolved.
type ElementNotFoundError struct {
	What  string // e.g. "next button", "column"
	Name  string // label, field or column name when relevant
	Scope string // page or row description
}

func (e *ElementNotFoundError) Error() string {
	msg := e.What
	if e.Name != "" {
		msg = fmt.Sprintf("%s %q", e.What, e.Name)
	}
	if e.Scope != "" {
		msg += " on " + e.Scope
	}
	return msg + " not found"
}

// NotFound is shorthand for an ElementNotFoundError without scope.
func NotFound(what, name string) error {
	return &ElementNotFoundError{What: what, Name: name}
}

// TimeoutError reports a wait predicate that never held.
type TimeoutError struct {
	Condition string
	After     time.Duration
	Last      error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("timed out after %s waiting for %s", e.After, e.Condition)
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}
	return msg
}

func (e *TimeoutError) Unwrap() error { return e.Last }

// AssertionError reports observed state that differs from the expected state.
type AssertionError struct {
	Message  string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	if e.Expected == "" && e.Actual == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: expected %q, got %q", e.Message, e.Expected, e.Actual)
}

// Assertf builds an AssertionError from a format string.
func Assertf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// Mismatch builds an AssertionError carrying both values.
func Mismatch(message, expected, actual string) error {
	return &AssertionError{Message: message, Expected: expected, Actual: actual}
}

// NavigationStuckError reports a page traversal that made no progress, either
// because a click left the rendered rows unchanged or because the step bound
// was exhausted.
type NavigationStuckError struct {
	Direction   string
	Attempts    int
	Bound       int
	Fingerprint string
}

// BoundExceeded reports whether the traversal ran out of steps rather than
// observing an ineffective click.
func (e *NavigationStuckError) BoundExceeded() bool {
	return e.Bound > 0 && e.Attempts >= e.Bound
}

func (e *NavigationStuckError) Error() string {
	if e.BoundExceeded() {
		return fmt.Sprintf("failed to reach %s page within %d attempts", e.Direction, e.Bound)
	}
	return fmt.Sprintf("navigation to %s page had no effect: first row still %q", e.Direction, e.Fingerprint)
}

// PartialOperationError reports a multi-value operation that applied some
// values and then failed on one.
type PartialOperationError struct {
	Operation string
	Applied   []string
	Failed    string
	Err       error
}

func (e *PartialOperationError) Error() string {
	msg := fmt.Sprintf("%s failed on %q", e.Operation, e.Failed)
	if len(e.Applied) > 0 {
		msg += fmt.Sprintf(" after applying [%s]", strings.Join(e.Applied, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialOperationError) Unwrap() error { return e.Err }

// CaptureError reports a diagnostic screenshot that could not be taken. It
// wraps the outcome of the operation it was documenting so neither is lost.
type CaptureError struct {
	Label   string
	Err     error
	Outcome error
}

func (e *CaptureError) Error() string {
	msg := fmt.Sprintf("screenshot %q failed: %v", e.Label, e.Err)
	if e.Outcome != nil {
		msg += fmt.Sprintf(" (operation error: %v)", e.Outcome)
	}
	return msg
}

func (e *CaptureError) Unwrap() []error {
	if e.Outcome == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Outcome}
}

// KindOf classifies err. A CaptureError always wins because it is fatal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var capErr *CaptureError
	var nf *ElementNotFoundError
	var to *TimeoutError
	var as *AssertionError
	var ns *NavigationStuckError
	var po *PartialOperationError
	switch {
	case errors.As(err, &capErr):
		return KindCapture
	case errors.As(err, &po):
		return KindPartial
	case errors.As(err, &ns):
		return KindNavigationStuck
	case errors.As(err, &to):
		return KindTimeout
	case errors.As(err, &as):
		return KindAssertion
	case errors.As(err, &nf):
		return KindElementNotFound
	default:
		return KindUnknown
	}
}
