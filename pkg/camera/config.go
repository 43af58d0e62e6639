// Package camera holds the lens and digital-zoom side of the control loop: the
// autofocus modes, the control sets sent to the pipeline and the Focus & Zoom
// Controller that turns commands into them.
package camera

import (
	"fmt"
	"strings"
)

// AfMode is the pipeline's autofocus mode.
type AfMode int

const (
	// AfDefault leaves the sensor's own autofocus behaviour untouched.
	AfDefault AfMode = iota
	AfManual
	AfAuto
	AfContinuous
)

var afModeNames = []string{"default", "manual", "auto", "continuous"}

// ParseAfMode maps an option value onto an AfMode.
func ParseAfMode(s string) (AfMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return AfDefault, nil
	}
	for i, n := range afModeNames {
		if n == s {
			return AfMode(i), nil
		}
	}
	return AfDefault, fmt.Errorf("%w: %q", ErrUnknownAfMode, s)
}

func (m AfMode) String() string {
	if m < 0 || int(m) >= len(afModeNames) {
		return "unknown"
	}
	return afModeNames[m]
}

// Sensor capabilities for the IMX708 module the apps were tuned on.
const (
	SensorMaxWidth  = 4608
	SensorMaxHeight = 2592
)

// Capabilities describes the controller's ranges for the status API.
func Capabilities() map[string]interface{} {
	return map[string]interface{}{
		"sensor":     "imx708",
		"max_width":  SensorMaxWidth,
		"max_height": SensorMaxHeight,
		"max_scale":  MaxScale,
		"zoom_step":  ZoomStep,
		"pan_step":   PanStep,
		"af_modes":   afModeNames,
	}
}
