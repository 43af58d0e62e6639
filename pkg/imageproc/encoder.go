package imageproc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/output"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// StreamEncoder writes mjpeg or raw yuv420 frames to an output.
type StreamEncoder struct {
	out   output.Output
	codec string
	flags pipeline.VideoFlags
}

// NewStreamEncoder returns an encoder for codec "mjpeg" or "yuv420".
func NewStreamEncoder(out output.Output, codec string) (*StreamEncoder, error) {
	if codec != "mjpeg" && codec != "yuv420" {
		return nil, fmt.Errorf("%w: %s on a stream output", ErrCodec, codec)
	}
	return &StreamEncoder{out: out, codec: codec}, nil
}

// Start implements pipeline.EncoderSink.
func (e *StreamEncoder) Start(flags pipeline.VideoFlags) error {
	e.flags = flags
	log.Info("encoder started", "codec", e.codec, "jpeg_colourspace", flags&pipeline.FlagJPEGColourspace != 0)
	return nil
}

// Encode implements pipeline.EncoderSink.
func (e *StreamEncoder) Encode(f *pipeline.Frame) error {
	if e.codec == "mjpeg" {
		return e.out.Write(f.Data, f.Timestamp)
	}
	img, err := Decode(f.Data)
	if err != nil {
		return err
	}
	defer img.Close()
	yuv := gocv.NewMat()
	defer yuv.Close()
	gocv.CvtColor(img, &yuv, gocv.ColorBGRToYUVI420)
	return e.out.Write(yuv.ToBytes(), f.Timestamp)
}

// Stop implements pipeline.EncoderSink. It closes the output.
func (e *StreamEncoder) Stop() error {
	log.Info("encoder stopped", "codec", e.codec)
	return e.out.Close()
}

// Signal toggles the output between recording and paused.
func (e *StreamEncoder) Signal() { e.out.Signal() }

// FileEncoder writes h264 to a container file with OpenCV's video writer.
type FileEncoder struct {
	path      string
	fps       float64
	width     int
	height    int
	recording atomic.Bool

	mu sync.Mutex
	vw *gocv.VideoWriter
}

// NewFileEncoder returns an encoder for path. paused starts it paused.
func NewFileEncoder(path string, fps float64, width, height int, paused bool) *FileEncoder {
	e := &FileEncoder{path: path, fps: fps, width: width, height: height}
	e.recording.Store(!paused)
	return e
}

// Start implements pipeline.EncoderSink.
func (e *FileEncoder) Start(pipeline.VideoFlags) error {
	vw, err := gocv.VideoWriterFile(e.path, "avc1", e.fps, e.width, e.height, true)
	if err != nil {
		return fmt.Errorf("open video writer: %w", err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return fmt.Errorf("%w: %s", ErrWriterClosed, e.path)
	}
	e.mu.Lock()
	e.vw = vw
	e.mu.Unlock()
	log.Info("encoder started", "codec", "h264", "path", e.path)
	return nil
}

// Encode implements pipeline.EncoderSink.
func (e *FileEncoder) Encode(f *pipeline.Frame) error {
	if !e.recording.Load() {
		return nil
	}
	img, err := Decode(f.Data)
	if err != nil {
		return err
	}
	defer img.Close()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vw == nil {
		return ErrWriterClosed
	}
	return e.vw.Write(img)
}

// Stop implements pipeline.EncoderSink.
func (e *FileEncoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vw == nil {
		return nil
	}
	err := e.vw.Close()
	e.vw = nil
	log.Info("encoder stopped", "codec", "h264", "path", e.path)
	return err
}

// Signal toggles between recording and paused.
func (e *FileEncoder) Signal() {
	for {
		was := e.recording.Load()
		if e.recording.CompareAndSwap(was, !was) {
			log.Info("output toggled", "kind", "file", "recording", !was)
			return
		}
	}
}
