package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognisedEvent is a protocol violation: Wait returned an event type
	// outside the known set.
	ErrUnrecognisedEvent = errors.New("pipeline: unrecognised message")

	ErrNotOpen       = errors.New("pipeline: camera not open")
	ErrNotConfigured = errors.New("pipeline: camera not configured")
	ErrInvalidCrop   = errors.New("pipeline: invalid scaler crop")
	ErrNoEncoder     = errors.New("pipeline: no encoder configured")
	ErrNoStillSink   = errors.New("pipeline: no still output configured")
)

// UnknownEventError records the offending event type.
type UnknownEventError struct {
	Type EventType
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("%v (type %d)", ErrUnrecognisedEvent, int(e.Type))
}

func (e *UnknownEventError) Unwrap() error {
	return ErrUnrecognisedEvent
}
