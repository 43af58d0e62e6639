package imageproc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// StillWriter saves the captured still to Path. JPEG targets get the frame
// bytes as captured; other extensions are re-encoded by OpenCV.
type StillWriter struct {
	Path string
}

// Save implements pipeline.StillSink.
func (s StillWriter) Save(f *pipeline.Frame) error {
	ext := strings.ToLower(filepath.Ext(s.Path))
	if ext == ".jpg" || ext == ".jpeg" {
		if err := os.WriteFile(s.Path, f.Data, 0o644); err != nil {
			return fmt.Errorf("write still: %w", err)
		}
	} else {
		img, err := Decode(f.Data)
		if err != nil {
			return err
		}
		defer img.Close()
		if ok := gocv.IMWrite(s.Path, img); !ok {
			return fmt.Errorf("%w: %s", ErrWriteStill, s.Path)
		}
	}
	log.Info("still saved", "path", s.Path, "seq", f.Seq, "bytes", len(f.Data))
	return nil
}
