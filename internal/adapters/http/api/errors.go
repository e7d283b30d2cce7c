package api

import "errors"

// ErrServe wraps failures to start or stop the ops server.
var ErrServe = errors.New("ops server failed")
