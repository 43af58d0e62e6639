package imageproc

import "errors"

var (
	ErrEmptyImage   = errors.New("imageproc: empty image")
	ErrBadCrop      = errors.New("imageproc: crop outside the frame")
	ErrWriterClosed = errors.New("imageproc: video writer not open")
	ErrWriteStill   = errors.New("imageproc: could not write still")
	ErrCodec        = errors.New("imageproc: unsupported codec")
)
