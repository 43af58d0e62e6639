package loop

import (
	"fmt"
	"time"
)

// Mode is the capture mode. Exactly one is active at a time.
type Mode int

const (
	Viewfinder Mode = iota
	StillCapture
	VideoEncode
	Terminated
)

func (m Mode) String() string {
	switch m {
	case Viewfinder:
		return "viewfinder"
	case StillCapture:
		return "still-capture"
	case VideoEncode:
		return "video-encode"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// transitions lists the only legal edges. Terminated has none.
var transitions = map[Mode][]Mode{
	Viewfinder:   {StillCapture, Terminated},
	StillCapture: {Terminated},
	VideoEncode:  {Terminated},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Mode) bool {
	for _, m := range transitions[from] {
		if m == to {
			return true
		}
	}
	return false
}

// Machine tracks the active mode and when it was entered.
type Machine struct {
	mode    Mode
	entered time.Time
}

// NewMachine starts in initial, which must be Viewfinder or VideoEncode.
func NewMachine(initial Mode, now time.Time) (*Machine, error) {
	if initial != Viewfinder && initial != VideoEncode {
		return nil, fmt.Errorf("%w: cannot start in %s", ErrInvalidTransition, initial)
	}
	return &Machine{mode: initial, entered: now}, nil
}

// Mode returns the active mode.
func (m *Machine) Mode() Mode { return m.mode }

// Since returns how long the active mode has been active.
func (m *Machine) Since(now time.Time) time.Duration { return now.Sub(m.entered) }

// Transition moves to the next mode.
func (m *Machine) Transition(to Mode, now time.Time) error {
	if !CanTransition(m.mode, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.mode, to)
	}
	m.mode = to
	m.entered = now
	return nil
}
