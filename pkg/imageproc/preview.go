package imageproc

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// Window shows preview frames in a desktop window. HighGUI wants the calling
// goroutine locked to the main OS thread.
type Window struct {
	mu  sync.Mutex
	win *gocv.Window
}

// NewWindow opens a preview window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show implements pipeline.PreviewSink.
func (w *Window) Show(f *pipeline.Frame) error {
	img, err := Decode(f.Data)
	if err != nil {
		log.Debug("preview frame dropped", "seq", f.Seq, "error", err)
		return nil
	}
	defer img.Close()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.win.IMShow(img)
	w.win.WaitKey(1)
	return nil
}

// Close closes the window.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.win.Close()
}

// Fanout shows each frame on every sink. Errors from one sink do not stop the
// others; the first is returned.
type Fanout []pipeline.PreviewSink

// Show implements pipeline.PreviewSink.
func (fo Fanout) Show(f *pipeline.Frame) error {
	var first error
	for _, s := range fo {
		if err := s.Show(f); err != nil && first == nil {
			first = err
		}
	}
	return first
}
