package fetch

import "errors"

// AttemptsError carries how many attempts a failed Do made before giving up.
type AttemptsError struct {
	Attempts int
	Err      error
}

func (e *AttemptsError) Error() string { return e.Err.Error() }

func (e *AttemptsError) Unwrap() error { return e.Err }

// Attempts returns the attempt count recorded in err, or 0 when err did not
// come from Do.
func Attempts(err error) int {
	var ae *AttemptsError
	if errors.As(err, &ae) {
		return ae.Attempts
	}
	return 0
}
