package loop

import (
	"time"

	"github.com/teslashibe/go-picam/pkg/camera"
)

// Status is a snapshot of the loop published after every cycle.
type Status struct {
	RunID       string       `json:"run_id"`
	App         string       `json:"app"`
	Mode        string       `json:"mode"`
	Cycles      uint64       `json:"cycles"`
	Forwarded   uint64       `json:"forwarded"`
	Restarts    uint64       `json:"restarts"`
	AfMode      string       `json:"af_mode"`
	Focus       camera.State `json:"focus"`
	Crop        camera.Crop  `json:"crop"`
	LastCommand string       `json:"last_command"`
	Elapsed     float64      `json:"elapsed_seconds"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// StatusSink receives status snapshots. It must not block.
type StatusSink interface {
	UpdateStatus(s Status)
}

// Stats summarises a finished run.
type Stats struct {
	RunID      string
	Cycles     uint64
	Forwarded  uint64
	Restarts   uint64
	Reason     Reason
	StillSaved bool
	Duration   time.Duration
}
