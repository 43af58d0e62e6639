// Package v4l2cam is the pipeline.Device for V4L2 cameras that deliver MJPEG.
package v4l2cam

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// DefaultPath is the first capture node.
const DefaultPath = "/dev/video0"

// Focus control IDs from the V4L2 camera class.
const (
	CtrlFocusAbsolute  uint32 = 0x009a090a
	CtrlFocusAuto      uint32 = 0x009a090c
	CtrlAutoFocusStart uint32 = 0x009a091c
)

// Options tunes the device.
type Options struct {
	Path string
	// BufferSize is the number of kernel capture buffers.
	BufferSize uint32
	// FocusScale converts a lens position in dioptres to FOCUS_ABSOLUTE units.
	FocusScale float64
}

// Device streams MJPEG frames from a V4L2 node.
type Device struct {
	opts Options

	mu     sync.Mutex
	dev    *device.Device
	frames chan []byte
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ pipeline.Device = (*Device)(nil)

// New returns an unopened device. The node is opened by Configure.
func New(opts Options) *Device {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = 4
	}
	if opts.FocusScale == 0 {
		opts.FocusScale = 100
	}
	return &Device{opts: opts}
}

// Configure reopens the node with f. V4L2 cannot change the format of an
// open streaming device, so the previous handle is always closed first.
func (d *Device) Configure(f pipeline.Format) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.closeLocked(); err != nil {
		return err
	}

	dev, err := device.Open(d.opts.Path,
		device.WithIOType(v4l2.IOTypeMMAP),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       uint32(f.Width),
			Height:      uint32(f.Height),
			Field:       v4l2.FieldNone,
		}),
		device.WithFPS(uint32(f.FPS)),
		device.WithBufferSize(d.opts.BufferSize),
	)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.opts.Path, err)
	}
	d.dev = dev
	log.Info("v4l2 device configured", "path", d.opts.Path,
		"width", f.Width, "height", f.Height, "fps", f.FPS)
	return nil
}

// Start begins streaming.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return pipeline.ErrNotConfigured
	}
	if d.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := d.dev.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("start %s: %w", d.opts.Path, err)
	}
	d.cancel = cancel
	d.frames = make(chan []byte, 1)
	d.wg.Add(1)
	go d.relay(ctx, d.dev.GetOutput(), d.frames)
	return nil
}

// relay copies frames out of the driver's buffers. A frame is dropped when the
// loop has not taken the previous one.
func (d *Device) relay(ctx context.Context, in <-chan []byte, out chan<- []byte) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case buf, ok := <-in:
			if !ok {
				return
			}
			frame := make([]byte, len(buf))
			copy(frame, buf)
			select {
			case out <- frame:
			default:
			}
		}
	}
}

// Stop halts streaming. The node stays open.
func (d *Device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked()
}

func (d *Device) stopLocked() error {
	if d.cancel == nil {
		return nil
	}
	d.cancel()
	d.cancel = nil
	d.wg.Wait()
	d.frames = nil
	if err := d.dev.Stop(); err != nil {
		return fmt.Errorf("stop %s: %w", d.opts.Path, err)
	}
	return nil
}

// Frames implements pipeline.Device.
func (d *Device) Frames() <-chan []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// SetControls maps focus controls onto V4L2. Cameras without a given control
// log a warning instead of failing the run.
func (d *Device) SetControls(cs camera.ControlSet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return pipeline.ErrNotConfigured
	}

	for _, c := range controlValues(cs, d.opts.FocusScale) {
		if err := d.dev.SetControlValue(c.id, c.value); err != nil {
			log.Warn("v4l2 control not applied", "id", fmt.Sprintf("0x%08x", c.id), "value", c.value, "error", err)
		}
	}
	return nil
}

type control struct {
	id    uint32
	value int32
}

// controlValues orders mode before position and trigger, the order the driver
// needs them in.
func controlValues(cs camera.ControlSet, scale float64) []control {
	var out []control
	if cs.AfMode != nil {
		auto := int32(0)
		if *cs.AfMode == camera.AfAuto || *cs.AfMode == camera.AfContinuous {
			auto = 1
		}
		out = append(out, control{CtrlFocusAuto, auto})
	}
	if cs.LensPosition != nil {
		out = append(out, control{CtrlFocusAbsolute, int32(math.Round(*cs.LensPosition * scale))})
	}
	if cs.AfTrigger {
		out = append(out, control{CtrlAutoFocusStart, 1})
	}
	return out
}

// Release closes the node; the next Configure reopens it.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

// Close implements pipeline.Device.
func (d *Device) Close() error {
	return d.Release()
}

func (d *Device) closeLocked() error {
	if d.dev == nil {
		return nil
	}
	stopErr := d.stopLocked()
	err := d.dev.Close()
	d.dev = nil
	if stopErr != nil {
		return stopErr
	}
	return err
}
