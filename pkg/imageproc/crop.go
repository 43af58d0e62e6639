// Package imageproc does the pixel work for the apps with gocv: the software
// scaler crop, the preview window, video encoding and still files.
package imageproc

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-picam/pkg/camera"
)

// Decode turns JPEG data into a BGR Mat. The caller closes it.
func Decode(data []byte) (gocv.Mat, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return img, fmt.Errorf("decode image: %w", err)
	}
	if img.Empty() {
		img.Close()
		return img, ErrEmptyImage
	}
	return img, nil
}

// CropJPEG crops data to c and scales the region back to w x h, the way a
// hardware scaler crop keeps the output size fixed.
func CropJPEG(data []byte, c camera.Crop, w, h int) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	out, err := cropMat(img, c, w, h)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, out)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// cropMat returns a new w x h Mat of the c region of img.
func cropMat(img gocv.Mat, c camera.Crop, w, h int) (gocv.Mat, error) {
	if !c.Valid() {
		return gocv.NewMat(), fmt.Errorf("%w: %+v", ErrBadCrop, c)
	}
	x, y, cw, ch := c.Pixels(img.Cols(), img.Rows())
	region := img.Region(image.Rect(x, y, x+cw, y+ch))
	defer region.Close()

	if w <= 0 || h <= 0 {
		w, h = img.Cols(), img.Rows()
	}
	out := gocv.NewMat()
	gocv.Resize(region, &out, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	return out, nil
}
