package loop

import "time"

// Reason says why the loop stopped.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonQuit
	ReasonFrames
	ReasonTimeout
	ReasonStillSaved
	ReasonPipelineQuit
)

func (r Reason) String() string {
	switch r {
	case ReasonQuit:
		return "quit"
	case ReasonFrames:
		return "frame-limit"
	case ReasonTimeout:
		return "timeout"
	case ReasonStillSaved:
		return "still-saved"
	case ReasonPipelineQuit:
		return "pipeline-quit"
	}
	return "none"
}

// Policy bounds a run. Zero fields mean no bound. When Frames is set the
// timeout is ignored.
type Policy struct {
	Timeout time.Duration
	Frames  uint64
}

// Evaluate decides whether the loop should stop this cycle. forwarded is the
// number of frames already forwarded to the sinks.
func (p Policy) Evaluate(forwarded uint64, elapsed time.Duration, quit bool) Reason {
	if quit {
		return ReasonQuit
	}
	if p.Frames > 0 {
		if forwarded >= p.Frames {
			return ReasonFrames
		}
		return ReasonNone
	}
	if p.Timeout > 0 && elapsed > p.Timeout {
		return ReasonTimeout
	}
	return ReasonNone
}
