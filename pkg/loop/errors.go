package loop

import "errors"

var (
	// ErrInvalidTransition is returned for a mode change the machine does not allow.
	ErrInvalidTransition = errors.New("loop: invalid mode transition")

	ErrNoPipeline   = errors.New("loop: pipeline is required")
	ErrNoEncoder    = errors.New("loop: video app needs an encoder")
	ErrNoStillSaver = errors.New("loop: still app needs a still saver")
	ErrNoResolver   = errors.New("loop: command resolver is required")
)
