package worker

import "errors"

// Sentinel kinds for pool errors.
var (
	ErrIncomplete = errors.New("result stream ended early")
	ErrStarted    = errors.New("pool already started")
)
