// Package pipeline is the boundary between the control loop and the camera
// capture pipeline.
//
// The interfaces are split by concern so a consumer can depend only on what it
// uses: preview-only apps never see the encoder, and the still path is separate.
package pipeline

import (
	"context"
	"time"

	"github.com/teslashibe/go-picam/pkg/camera"
)

// EventType is the kind of message the pipeline delivers.
type EventType int

const (
	FrameReady EventType = iota
	DeviceTimeout
	Quit
)

func (t EventType) String() string {
	switch t {
	case FrameReady:
		return "frame-ready"
	case DeviceTimeout:
		return "device-timeout"
	case Quit:
		return "quit"
	}
	return "unknown"
}

// Stream identifies which configured stream a frame belongs to.
type Stream int

const (
	StreamNone Stream = iota
	StreamViewfinder
	StreamStill
	StreamVideo
)

func (s Stream) String() string {
	switch s {
	case StreamViewfinder:
		return "viewfinder"
	case StreamStill:
		return "still"
	case StreamVideo:
		return "video"
	}
	return "none"
}

// VideoFlags tune the video configuration.
type VideoFlags uint32

const (
	FlagNone VideoFlags = 0
	// FlagJPEGColourspace selects full-range JPEG colourspace for the video stream.
	FlagJPEGColourspace VideoFlags = 1
)

// ColourspaceFlags returns the video flags for a codec name.
func ColourspaceFlags(codec string) VideoFlags {
	if codec == "mjpeg" || codec == "yuv420" {
		return FlagJPEGColourspace
	}
	return FlagNone
}

// Frame is one completed capture. Data is a JPEG image of Width x Height.
type Frame struct {
	Seq       uint64
	Stream    Stream
	Data      []byte
	Width     int
	Height    int
	Crop      camera.Crop
	Timestamp time.Time
}

// Event is one message from Wait. Frame is set only for FrameReady.
type Event struct {
	Type  EventType
	Frame *Frame
}

// Camera controls the capture lifecycle.
type Camera interface {
	OpenCamera() error
	ConfigureViewfinder() error
	ConfigureStill() error
	ConfigureVideo(flags VideoFlags) error
	StartCamera() error
	StopCamera() error
	Teardown() error
	// Wait blocks until the next event. It is the loop's only blocking point.
	Wait(ctx context.Context) (Event, error)
}

// ControlSetter applies lens controls and the scaler crop.
type ControlSetter interface {
	SetControls(cs camera.ControlSet) error
	SetScalerCrop(c camera.Crop) error
}

// Previewer displays frames.
type Previewer interface {
	ShowPreview(f *Frame, s Stream) error
}

// Encoder drives the video encoder.
type Encoder interface {
	StartEncoder() error
	StopEncoder() error
	EncodeBuffer(f *Frame, s Stream) error
}

// StillSaver persists the captured still.
type StillSaver interface {
	SaveStill(f *Frame) error
}

// Pipeline is what every app needs.
type Pipeline interface {
	Camera
	ControlSetter
	Previewer
}

// Full is the composite of every capability.
type Full interface {
	Pipeline
	Encoder
	StillSaver
}

var _ Full = (*Runner)(nil)
