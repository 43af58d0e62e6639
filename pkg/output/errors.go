package output

import "errors"

var (
	// ErrBrokenPipe means the downstream reader went away.
	ErrBrokenPipe = errors.New("output: broken pipe")

	ErrUnsupportedScheme = errors.New("output: unsupported target scheme")
)
