package camera

import (
	"fmt"

	"github.com/teslashibe/go-picam/pkg/command"
)

// Zoom and pan increments and the largest crop scale.
const (
	ZoomStep = 0.05
	PanStep  = 0.05
	MaxScale = 0.95
)

// ManualFocusNotice is shown when a lens step is requested outside manual mode.
const ManualFocusNotice = "Please switch the focus mode to manual focus mode."

// State is the lens position and crop accumulator.
type State struct {
	LensPosition float64 `json:"lens_position"`
	Scale        float64 `json:"scale"`
	OffsetX      float64 `json:"offset_x"`
	OffsetY      float64 `json:"offset_y"`
}

// Crop derives the scaler crop from the state.
func (s State) Crop() Crop {
	return Crop{
		X:      s.Scale/2 + s.OffsetX,
		Y:      s.Scale/2 + s.OffsetY,
		Width:  1 - s.Scale,
		Height: 1 - s.Scale,
	}
}

// Result is what one command asks of the pipeline.
type Result struct {
	Controls ControlSet
	// Crop is set for every zoom or pan command.
	Crop *Crop
	// Notice is user guidance for a command that was refused.
	Notice string
	// Echo is the console echo of an applied control.
	Echo string
}

// Controller owns State and is the only thing that mutates it.
type Controller struct {
	step  float64
	state State
}

// NewController returns a controller with the lens at lens and no crop.
// step is the manual focus increment.
func NewController(step, lens float64) *Controller {
	return &Controller{step: step, state: State{LensPosition: lens}}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Crop returns the crop for the current state.
func (c *Controller) Crop() Crop {
	return c.state.Crop()
}

// Apply turns cmd into pipeline controls. mode is the configured autofocus
// mode; lens steps are only sent when it is AfManual.
func (c *Controller) Apply(cmd command.Code, mode AfMode) Result {
	var r Result
	s := &c.state

	switch cmd {
	case command.AfTrigger:
		auto := AfAuto
		r.Controls = ControlSet{AfMode: &auto, AfTrigger: true}
		r.Echo = "AfTrigger"
		return r
	case command.FocusNear, command.FocusFar:
		if cmd == command.FocusNear {
			s.LensPosition += c.step
		} else {
			s.LensPosition -= c.step
		}
		if mode != AfManual {
			r.Notice = ManualFocusNotice
			return r
		}
		manual := AfManual
		lens := s.LensPosition
		r.Controls = ControlSet{AfMode: &manual, LensPosition: &lens}
		r.Echo = fmt.Sprintf("target_lens_position: %.6g", lens)
		return r
	case command.ZoomIn:
		s.Scale += ZoomStep
	case command.ZoomOut:
		s.Scale -= ZoomStep
	case command.PanLeft:
		s.OffsetX -= PanStep
	case command.PanRight:
		s.OffsetX += PanStep
	case command.PanUp:
		s.OffsetY -= PanStep
	case command.PanDown:
		s.OffsetY += PanStep
	case command.ZoomMax:
		s.Scale = MaxScale
	case command.ZoomReset:
		s.Scale = 0
	default:
		return r
	}

	c.clamp()
	crop := s.Crop()
	r.Crop = &crop
	r.Echo = fmt.Sprintf("scale: %.6g, offset_x: %.6g", s.Scale, s.OffsetX)
	return r
}

func (c *Controller) clamp() {
	s := &c.state
	s.Scale = clamp(s.Scale, 0, MaxScale)
	half := s.Scale / 2
	s.OffsetX = clamp(s.OffsetX, -half, half)
	s.OffsetY = clamp(s.OffsetY, -half, half)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
