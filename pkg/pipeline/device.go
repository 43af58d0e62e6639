package pipeline

import (
	"context"

	"github.com/teslashibe/go-picam/pkg/camera"
)

// Format is a capture configuration.
type Format struct {
	Width  int
	Height int
	FPS    int
}

// Device is a frame source: a V4L2 camera or the simulator.
type Device interface {
	// Configure (re)opens the device with f. It is only called while stopped.
	Configure(f Format) error
	// Start begins streaming JPEG frames on Frames until Stop or ctx is done.
	Start(ctx context.Context) error
	Stop() error
	// Frames is the stream of encoded frames. It may be nil while stopped.
	Frames() <-chan []byte
	SetControls(cs camera.ControlSet) error
	// Release drops the configuration; Close releases the device for good.
	Release() error
	Close() error
}

// PreviewSink displays frames.
type PreviewSink interface {
	Show(f *Frame) error
}

// PreviewFunc adapts a function to PreviewSink.
type PreviewFunc func(f *Frame) error

func (fn PreviewFunc) Show(f *Frame) error { return fn(f) }

// EncoderSink consumes video frames.
type EncoderSink interface {
	Start(flags VideoFlags) error
	Encode(f *Frame) error
	Stop() error
}

// StillSink writes the captured still.
type StillSink interface {
	Save(f *Frame) error
}

// StillFunc adapts a function to StillSink.
type StillFunc func(f *Frame) error

func (fn StillFunc) Save(f *Frame) error { return fn(f) }

// CropFunc crops JPEG data to c and scales the result back to w x h.
type CropFunc func(data []byte, c camera.Crop, w, h int) ([]byte, error)
