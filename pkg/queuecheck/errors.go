package queuecheck

import (
	"errors"
	"fmt"

	"github.com/newtron-network/queuecheck/pkg/util"
)

// SkipError ends a check without a verdict: the device or kernel does not
// support what the check needs.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skipf returns a *SkipError with a formatted reason.
func Skipf(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// AssertionError is a consistency check that did not hold.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

func (e *AssertionError) Unwrap() error {
	return util.ErrValidationFailed
}

// Failf returns an *AssertionError with a formatted message.
func Failf(format string, args ...interface{}) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// expectEqual fails with "<got> != <want>" prefixed by what when the values
// differ.
func expectEqual(what string, got, want int) error {
	if got != want {
		return Failf("%s: %d != %d", what, got, want)
	}
	return nil
}

// RestoreError is a failure to put the device back into the state it had
// before a check changed it.
type RestoreError struct {
	What string
	Err  error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restoring %s: %v", e.What, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// classify maps a check outcome to a Status. Both FAIL and ERROR fail the
// run; ERROR marks a check that could not complete its assertions.
func classify(err error) Status {
	if err == nil {
		return StatusPassed
	}
	var skip *SkipError
	if errors.As(err, &skip) {
		return StatusSkipped
	}
	var assertion *AssertionError
	var restore *RestoreError
	if errors.As(err, &assertion) || errors.As(err, &restore) {
		return StatusFailed
	}
	// Transport and tool failures.
	return StatusError
}
