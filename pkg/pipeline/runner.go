package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/camera"
)

// DefaultWaitTimeout is how long Wait waits for a frame before reporting a
// device timeout.
const DefaultWaitTimeout = time.Second

// Config wires a Device to its sinks.
type Config struct {
	Viewfinder  Format
	Still       Format
	Video       Format
	WaitTimeout time.Duration

	// Optional sinks. A nil Preview drops preview frames.
	Preview PreviewSink
	Encoder EncoderSink
	Stills  StillSink
	// Crop applies the scaler crop in software. Nil leaves frames uncropped.
	Crop CropFunc
}

// Runner implements Full on top of a Device.
type Runner struct {
	dev Device
	cfg Config

	mu         sync.Mutex
	open       bool
	configured bool
	running    bool
	stream     Stream
	format     Format
	flags      VideoFlags
	crop       camera.Crop
	seq        uint64
	cancel     context.CancelFunc
}

// NewRunner returns a Runner for dev.
func NewRunner(dev Device, cfg Config) *Runner {
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	return &Runner{dev: dev, cfg: cfg, crop: camera.FullFrame}
}

// OpenCamera implements Camera.
func (r *Runner) OpenCamera() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = true
	log.Debug("camera opened")
	return nil
}

func (r *Runner) configure(s Stream, f Format) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	if err := r.dev.Configure(f); err != nil {
		return fmt.Errorf("configure %s: %w", s, err)
	}
	r.stream = s
	r.format = f
	r.configured = true
	log.Info("camera configured", "stream", s.String(), "width", f.Width, "height", f.Height, "fps", f.FPS)
	return nil
}

// ConfigureViewfinder implements Camera.
func (r *Runner) ConfigureViewfinder() error {
	return r.configure(StreamViewfinder, r.cfg.Viewfinder)
}

// ConfigureStill implements Camera.
func (r *Runner) ConfigureStill() error {
	return r.configure(StreamStill, r.cfg.Still)
}

// ConfigureVideo implements Camera.
func (r *Runner) ConfigureVideo(flags VideoFlags) error {
	if err := r.configure(StreamVideo, r.cfg.Video); err != nil {
		return err
	}
	r.mu.Lock()
	r.flags = flags
	r.mu.Unlock()
	return nil
}

// StartCamera implements Camera.
func (r *Runner) StartCamera() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.configured {
		return ErrNotConfigured
	}
	if r.running {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := r.dev.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start camera: %w", err)
	}
	r.cancel = cancel
	r.running = true
	return nil
}

// StopCamera implements Camera.
func (r *Runner) StopCamera() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	r.running = false
	r.cancel()
	if err := r.dev.Stop(); err != nil {
		return fmt.Errorf("stop camera: %w", err)
	}
	return nil
}

// Teardown implements Camera. The camera must be stopped first.
func (r *Runner) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configured = false
	r.stream = StreamNone
	return r.dev.Release()
}

// Close stops everything and releases the device.
func (r *Runner) Close() error {
	if err := r.StopCamera(); err != nil {
		log.Warn("stop camera on close", "error", err)
	}
	return r.dev.Close()
}

// Wait implements Camera. A missing frame after WaitTimeout is a DeviceTimeout;
// a cancelled ctx is Quit.
func (r *Runner) Wait(ctx context.Context) (Event, error) {
	r.mu.Lock()
	frames := r.dev.Frames()
	r.mu.Unlock()

	timer := time.NewTimer(r.cfg.WaitTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Event{Type: Quit}, nil
	case <-timer.C:
		return Event{Type: DeviceTimeout}, nil
	case data, ok := <-frames:
		if !ok {
			return Event{Type: DeviceTimeout}, nil
		}
		return Event{Type: FrameReady, Frame: r.frame(data)}, nil
	}
}

func (r *Runner) frame(data []byte) *Frame {
	r.mu.Lock()
	r.seq++
	f := &Frame{
		Seq:       r.seq,
		Stream:    r.stream,
		Data:      data,
		Width:     r.format.Width,
		Height:    r.format.Height,
		Crop:      r.crop,
		Timestamp: time.Now(),
	}
	cropFn := r.cfg.Crop
	r.mu.Unlock()

	if cropFn != nil && f.Crop != camera.FullFrame {
		cropped, err := cropFn(data, f.Crop, f.Width, f.Height)
		if err != nil {
			log.Warn("scaler crop failed, passing frame through", "seq", f.Seq, "error", err)
		} else {
			f.Data = cropped
		}
	}
	return f
}

// SetControls implements ControlSetter.
func (r *Runner) SetControls(cs camera.ControlSet) error {
	if cs.Empty() {
		return nil
	}
	if err := r.dev.SetControls(cs); err != nil {
		return fmt.Errorf("set controls: %w", err)
	}
	return nil
}

// SetScalerCrop implements ControlSetter. The crop applies to later frames.
func (r *Runner) SetScalerCrop(c camera.Crop) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %+v", ErrInvalidCrop, c)
	}
	r.mu.Lock()
	r.crop = c
	r.mu.Unlock()
	return nil
}

// ShowPreview implements Previewer.
func (r *Runner) ShowPreview(f *Frame, _ Stream) error {
	if r.cfg.Preview == nil {
		return nil
	}
	return r.cfg.Preview.Show(f)
}

// StartEncoder implements Encoder.
func (r *Runner) StartEncoder() error {
	if r.cfg.Encoder == nil {
		return ErrNoEncoder
	}
	r.mu.Lock()
	flags := r.flags
	r.mu.Unlock()
	return r.cfg.Encoder.Start(flags)
}

// StopEncoder implements Encoder.
func (r *Runner) StopEncoder() error {
	if r.cfg.Encoder == nil {
		return ErrNoEncoder
	}
	return r.cfg.Encoder.Stop()
}

// EncodeBuffer implements Encoder.
func (r *Runner) EncodeBuffer(f *Frame, _ Stream) error {
	if r.cfg.Encoder == nil {
		return ErrNoEncoder
	}
	return r.cfg.Encoder.Encode(f)
}

// SaveStill implements StillSaver.
func (r *Runner) SaveStill(f *Frame) error {
	if r.cfg.Stills == nil {
		return ErrNoStillSink
	}
	return r.cfg.Stills.Save(f)
}
