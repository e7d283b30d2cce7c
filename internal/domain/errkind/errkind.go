// Package errkind holds the error taxonomy shared by the harvest pipeline.
//
// Every adapter wraps its failures in one of the sentinel kinds so callers can
// decide between retrying, skipping an item, or halting the run.
package errkind

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel kinds.
var (
	ErrTransient      = errors.New("transient error")
	ErrNotFound       = errors.New("not found")
	ErrPermission     = errors.New("permission denied")
	ErrMalformed      = errors.New("malformed data")
	ErrEmptySelection = errors.New("no parseable snapshot")
	ErrSinkFlush      = errors.New("sink flush failed")
	ErrUnavailable    = errors.New("unavailable after retries")
)

// Class labels used in logs and metric labels.
const (
	ClassTransient      = "transient"
	ClassNotFound       = "not_found"
	ClassPermission     = "permission"
	ClassMalformed      = "malformed"
	ClassEmptySelection = "empty_selection"
	ClassSinkFlush      = "sink_flush"
	ClassUnavailable    = "unavailable"
	ClassUnknown        = "unknown"
)

// Wrap tags cause with kind. The result matches both with errors.Is.
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Classify maps err to a stable class label. Sink and exhaustion kinds are
// checked first since they usually wrap a transient cause.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSinkFlush):
		return ClassSinkFlush
	case errors.Is(err, ErrUnavailable):
		return ClassUnavailable
	case errors.Is(err, ErrEmptySelection):
		return ClassEmptySelection
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrPermission):
		return ClassPermission
	case errors.Is(err, ErrMalformed):
		return ClassMalformed
	case Retryable(err):
		return ClassTransient
	default:
		return ClassUnknown
	}
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
