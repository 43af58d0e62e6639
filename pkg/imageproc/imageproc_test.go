package imageproc

import (
	"bytes"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/output"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

func testFrame(t *testing.T, w, h int) *pipeline.Frame {
	t.Helper()
	data, err := pipeline.RenderTestPattern(w, h, 0)
	if err != nil {
		t.Fatal(err)
	}
	return &pipeline.Frame{Seq: 1, Data: data, Width: w, Height: h, Timestamp: time.Now()}
}

func TestCropJPEG_KeepsOutputSize(t *testing.T) {
	f := testFrame(t, 320, 240)
	crop := camera.State{Scale: 0.5, OffsetX: 0.1}.Crop()

	data, err := CropJPEG(f.Data, crop, 320, 240)
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("cropped frame is %dx%d", b.Dx(), b.Dy())
	}
}

func TestCropJPEG_Errors(t *testing.T) {
	f := testFrame(t, 64, 48)
	if _, err := CropJPEG(f.Data, camera.Crop{X: 0.8, Width: 0.5, Height: 1}, 64, 48); !errors.Is(err, ErrBadCrop) {
		t.Errorf("bad crop err = %v", err)
	}
	if _, err := CropJPEG([]byte("not a jpeg"), camera.FullFrame, 64, 48); err == nil {
		t.Error("garbage decoded")
	}
}

func TestStillWriter(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(t, 64, 48)

	jpg := filepath.Join(dir, "still.jpg")
	if err := (StillWriter{Path: jpg}).Save(f); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(jpg)
	if !bytes.Equal(got, f.Data) {
		t.Error("jpeg still was re-encoded")
	}

	png := filepath.Join(dir, "still.png")
	if err := (StillWriter{Path: png}).Save(f); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(png); err != nil || info.Size() == 0 {
		t.Errorf("png still missing: %v", err)
	}
}

func TestStreamEncoder(t *testing.T) {
	dir := t.TempDir()
	f := testFrame(t, 64, 48)

	path := filepath.Join(dir, "out.yuv")
	out, err := output.New(path, output.Options{})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := NewStreamEncoder(out, "yuv420")
	if err != nil {
		t.Fatal(err)
	}
	enc.Start(pipeline.FlagJPEGColourspace)
	if err := enc.Encode(f); err != nil {
		t.Fatal(err)
	}
	enc.Signal()
	enc.Encode(f)
	if err := enc.Stop(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// One I420 frame: w*h luma plus two quarter-size chroma planes.
	if want := int64(64 * 48 * 3 / 2); info.Size() != want {
		t.Errorf("yuv420 size = %d, want %d", info.Size(), want)
	}

	if _, err := NewStreamEncoder(out, "h264"); !errors.Is(err, ErrCodec) {
		t.Errorf("h264 on a stream err = %v", err)
	}
}

type recordingSink struct{ n int }

func (r *recordingSink) Show(*pipeline.Frame) error { r.n++; return nil }

func TestFanout(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	boom := errors.New("boom")
	fo := Fanout{a, pipeline.PreviewFunc(func(*pipeline.Frame) error { return boom }), b}
	if err := fo.Show(&pipeline.Frame{}); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if a.n != 1 || b.n != 1 {
		t.Errorf("sinks saw %d, %d frames", a.n, b.n)
	}
}
