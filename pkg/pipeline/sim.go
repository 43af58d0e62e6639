package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/camera"
)

// SimQuality is the JPEG quality of synthetic frames.
const SimQuality = 75

// Sim is a Device that renders a moving test pattern. It can be told to stall
// to exercise device-timeout recovery.
type Sim struct {
	mu         sync.Mutex
	format     Format
	frames     chan []byte
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	stallUntil time.Time
	controls   []camera.ControlSet
	starts     int
}

// NewSim returns an unconfigured simulator.
func NewSim() *Sim {
	return &Sim{}
}

// Configure implements Device.
func (s *Sim) Configure(f Format) error {
	if f.Width <= 0 || f.Height <= 0 || f.FPS <= 0 {
		return fmt.Errorf("sim: bad format %dx%d@%d", f.Width, f.Height, f.FPS)
	}
	s.mu.Lock()
	s.format = f
	s.mu.Unlock()
	return nil
}

// Start implements Device.
func (s *Sim) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format.FPS == 0 {
		return fmt.Errorf("sim: not configured")
	}
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.frames = make(chan []byte, 1)
	s.starts++
	s.wg.Add(1)
	go s.run(ctx, s.format, s.frames)
	return nil
}

func (s *Sim) run(ctx context.Context, f Format, out chan<- []byte) {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second / time.Duration(f.FPS))
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.mu.Lock()
			stalled := now.Before(s.stallUntil)
			s.mu.Unlock()
			if stalled {
				continue
			}
			data, err := RenderTestPattern(f.Width, f.Height, n)
			if err != nil {
				log.Error("sim render failed", "error", err)
				continue
			}
			// Drop the frame if the consumer is behind, like a driver with no
			// free buffers.
			select {
			case out <- data:
			default:
			}
		}
	}
}

// Stop implements Device.
func (s *Sim) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.frames = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		s.wg.Wait()
	}
	return nil
}

// Frames implements Device.
func (s *Sim) Frames() <-chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// SetControls implements Device. Controls are recorded.
func (s *Sim) SetControls(cs camera.ControlSet) error {
	s.mu.Lock()
	s.controls = append(s.controls, cs)
	s.mu.Unlock()
	log.Debug("sim controls", "af_trigger", cs.AfTrigger)
	return nil
}

// Release implements Device.
func (s *Sim) Release() error {
	s.mu.Lock()
	s.format = Format{}
	s.mu.Unlock()
	return nil
}

// Close implements Device.
func (s *Sim) Close() error {
	return s.Stop()
}

// Stall suppresses frames for d.
func (s *Sim) Stall(d time.Duration) {
	s.mu.Lock()
	s.stallUntil = time.Now().Add(d)
	s.mu.Unlock()
}

// Controls returns every control set received so far.
func (s *Sim) Controls() []camera.ControlSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]camera.ControlSet(nil), s.controls...)
}

// Starts returns how many times streaming was started.
func (s *Sim) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// RenderTestPattern draws frame n of a scrolling colour-bar pattern as JPEG.
func RenderTestPattern(w, h, n int) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bars := []color.RGBA{
		{235, 235, 235, 255}, {235, 235, 16, 255}, {16, 235, 235, 255}, {16, 235, 16, 255},
		{235, 16, 235, 255}, {235, 16, 16, 255}, {16, 16, 235, 255}, {16, 16, 16, 255},
	}
	shift := (n * 4) % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bars[((x+shift)%w)*len(bars)/w])
		}
	}
	return RGBToJPEG(img, SimQuality)
}

// RGBToJPEG converts an RGB image to JPEG bytes.
func RGBToJPEG(img *image.RGBA, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
