package sink

import "errors"

// Sentinel kinds for sink setup. Flush failures wrap errkind.ErrSinkFlush.
var (
	ErrUnsupportedScheme = errors.New("unsupported destination scheme")
	ErrClosed            = errors.New("sink closed")
	ErrShortCopy         = errors.New("copied fewer rows than flushed")
)
