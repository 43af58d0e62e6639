package camera

import "math"

// ControlSet is a batch of lens controls for the pipeline. Nil fields are not sent.
type ControlSet struct {
	AfMode       *AfMode
	AfTrigger    bool
	LensPosition *float64
}

// Empty reports whether the set carries no controls.
func (c ControlSet) Empty() bool {
	return c.AfMode == nil && !c.AfTrigger && c.LensPosition == nil
}

// Crop is a scaler crop in normalized [0,1] sensor coordinates.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FullFrame is the uncropped sensor area.
var FullFrame = Crop{Width: 1, Height: 1}

const cropEpsilon = 1e-9

// Valid reports whether c lies inside the unit square with a positive area.
func (c Crop) Valid() bool {
	if c.Width <= 0 || c.Height <= 0 {
		return false
	}
	if c.X < -cropEpsilon || c.Y < -cropEpsilon {
		return false
	}
	return c.X+c.Width <= 1+cropEpsilon && c.Y+c.Height <= 1+cropEpsilon
}

// Pixels converts c to a pixel rectangle on a w x h frame. The result is
// clipped to the frame and never empty.
func (c Crop) Pixels(w, h int) (x, y, cw, ch int) {
	x = int(math.Round(c.X * float64(w)))
	y = int(math.Round(c.Y * float64(h)))
	cw = int(math.Round(c.Width * float64(w)))
	ch = int(math.Round(c.Height * float64(h)))
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}
	if x+cw > w {
		x = w - cw
	}
	if y+ch > h {
		y = h - ch
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y, cw, ch
}
