// Package loop runs the interactive camera control loop: one pipeline event
// per cycle, at most one command per cycle, and the capture mode state machine.
package loop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/command"
	"github.com/teslashibe/go-picam/pkg/output"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// Kind is the application variant driving the loop.
type Kind int

const (
	// KindPreview runs the viewfinder until quit or timeout.
	KindPreview Kind = iota
	// KindStill runs the viewfinder, then captures and saves one still.
	KindStill
	// KindVideo encodes until quit, timeout or the frame limit.
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindPreview:
		return "preview"
	case KindStill:
		return "still"
	case KindVideo:
		return "video"
	}
	return "unknown"
}

// Resolver yields at most one command per call.
type Resolver interface {
	Resolve() command.Code
}

// Toggler is an output that can be paused and resumed.
type Toggler interface {
	Signal()
}

// Deps is everything Run needs.
type Deps struct {
	Kind     Kind
	Pipeline pipeline.Pipeline
	// Encoder is required for KindVideo.
	Encoder pipeline.Encoder
	// Stills is required for KindStill.
	Stills pipeline.StillSaver

	Commands   Resolver
	Controller *camera.Controller
	AfMode     camera.AfMode

	Policy Policy
	// StillDelay is how long the viewfinder runs before the still is taken.
	// Zero waits for a confirm command.
	StillDelay time.Duration
	VideoFlags pipeline.VideoFlags

	// Output is toggled by confirm in video mode. Optional.
	Output Toggler
	// Console receives control echoes and user guidance. Defaults to stdout.
	Console io.Writer
	// Status receives a snapshot after every cycle. Optional.
	Status StatusSink
	// Now defaults to time.Now.
	Now func() time.Time
}

func (d *Deps) validate() error {
	if d.Pipeline == nil {
		return ErrNoPipeline
	}
	if d.Commands == nil {
		return ErrNoResolver
	}
	if d.Kind == KindVideo && d.Encoder == nil {
		return ErrNoEncoder
	}
	if d.Kind == KindStill && d.Stills == nil {
		return ErrNoStillSaver
	}
	if d.Controller == nil {
		d.Controller = camera.NewController(1, 0)
	}
	if d.Console == nil {
		d.Console = os.Stdout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return nil
}

type runner struct {
	d        Deps
	p        pipeline.Pipeline
	machine  *Machine
	stats    Stats
	start    time.Time
	lastCmd  command.Code
	stillNow bool // confirm pressed in the still viewfinder
	encoding bool
}

// Run drives the loop until a termination condition. Device timeouts are
// recovered without limit. A broken output is a quit. Any other pipeline error
// is fatal and returned.
func Run(ctx context.Context, d Deps) (Stats, error) {
	if err := d.validate(); err != nil {
		return Stats{}, err
	}
	r := &runner{d: d, p: d.Pipeline}
	r.stats.RunID = uuid.NewString()

	if err := r.startup(); err != nil {
		r.abort()
		return r.stats, err
	}
	for {
		done, err := r.cycle(ctx)
		if err != nil {
			r.abort()
			return r.finish(), err
		}
		if done {
			return r.finish(), nil
		}
	}
}

func (r *runner) startup() error {
	if err := r.p.OpenCamera(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	initial := Viewfinder
	if r.d.Kind == KindVideo {
		initial = VideoEncode
		if err := r.p.ConfigureVideo(r.d.VideoFlags); err != nil {
			return fmt.Errorf("configure video: %w", err)
		}
		if err := r.d.Encoder.StartEncoder(); err != nil {
			return fmt.Errorf("start encoder: %w", err)
		}
		r.encoding = true
	} else if err := r.p.ConfigureViewfinder(); err != nil {
		return fmt.Errorf("configure viewfinder: %w", err)
	}
	if err := r.p.StartCamera(); err != nil {
		return fmt.Errorf("start camera: %w", err)
	}

	r.start = r.d.Now()
	m, err := NewMachine(initial, r.start)
	if err != nil {
		return err
	}
	r.machine = m
	log.Info("control loop started", "run_id", r.stats.RunID, "app", r.d.Kind.String(), "mode", initial.String())
	return nil
}

// cycle handles one pipeline event. It reports true once the loop has
// terminated.
func (r *runner) cycle(ctx context.Context) (bool, error) {
	ev, err := r.p.Wait(ctx)
	if err != nil {
		return false, fmt.Errorf("wait: %w", err)
	}
	switch ev.Type {
	case pipeline.DeviceTimeout:
		return false, r.recover()
	case pipeline.Quit:
		return true, r.shutdown(ReasonPipelineQuit)
	case pipeline.FrameReady:
	default:
		return false, &pipeline.UnknownEventError{Type: ev.Type}
	}

	r.stats.Cycles++
	cmd := r.d.Commands.Resolve()
	if cmd != command.None {
		r.lastCmd = cmd
	}
	quit := cmd == command.Quit
	if !quit {
		if err := r.apply(cmd); err != nil {
			return false, err
		}
	}

	done, err := r.dispatch(ev.Frame, quit)
	r.publish()
	return done, err
}

// recover restarts capture after a device timeout. Nothing else advances.
func (r *runner) recover() error {
	r.stats.Restarts++
	log.Error("device timeout detected, attempting a restart", "restarts", r.stats.Restarts)
	if err := r.p.StopCamera(); err != nil {
		return fmt.Errorf("restart: stop camera: %w", err)
	}
	if err := r.p.StartCamera(); err != nil {
		return fmt.Errorf("restart: start camera: %w", err)
	}
	return nil
}

func (r *runner) apply(cmd command.Code) error {
	if cmd == command.Confirm {
		switch {
		case r.d.Kind == KindVideo && r.d.Output != nil:
			r.d.Output.Signal()
		case r.d.Kind == KindStill && r.machine.Mode() == Viewfinder:
			r.stillNow = true
		}
		return nil
	}

	res := r.d.Controller.Apply(cmd, r.d.AfMode)
	if !res.Controls.Empty() {
		if err := r.p.SetControls(res.Controls); err != nil {
			return err
		}
	}
	if res.Crop != nil {
		if err := r.p.SetScalerCrop(*res.Crop); err != nil {
			return err
		}
	}
	if res.Echo != "" {
		fmt.Fprintln(r.d.Console, res.Echo)
	}
	if res.Notice != "" {
		fmt.Fprintln(r.d.Console, res.Notice)
	}
	return nil
}

func (r *runner) dispatch(f *pipeline.Frame, quit bool) (bool, error) {
	now := r.d.Now()
	switch r.machine.Mode() {
	case Viewfinder:
		if quit {
			return true, r.shutdown(ReasonQuit)
		}
		if r.d.Kind == KindStill && r.stillDue(now) {
			return false, r.enterStill(now)
		}
		if reason := r.d.Policy.Evaluate(r.stats.Forwarded, now.Sub(r.start), false); reason != ReasonNone {
			return true, r.shutdown(reason)
		}
		log.Debug("viewfinder frame", "count", r.stats.Forwarded)
		if err := r.p.ShowPreview(f, f.Stream); err != nil {
			return false, fmt.Errorf("show preview: %w", err)
		}
		r.stats.Forwarded++

	case VideoEncode:
		if reason := r.d.Policy.Evaluate(r.stats.Forwarded, now.Sub(r.start), quit); reason != ReasonNone {
			return true, r.shutdown(reason)
		}
		log.Debug("video frame", "count", r.stats.Forwarded)
		if err := r.d.Encoder.EncodeBuffer(f, f.Stream); err != nil {
			if errors.Is(err, output.ErrBrokenPipe) {
				log.Warn("output closed downstream, stopping", "error", err)
				return true, r.shutdown(ReasonQuit)
			}
			return false, fmt.Errorf("encode: %w", err)
		}
		if err := r.p.ShowPreview(f, f.Stream); err != nil {
			return false, fmt.Errorf("show preview: %w", err)
		}
		r.stats.Forwarded++

	case StillCapture:
		if quit {
			return true, r.shutdown(ReasonQuit)
		}
		return true, r.captureStill(f, now)

	case Terminated:
		return true, nil
	}
	return false, nil
}

func (r *runner) stillDue(now time.Time) bool {
	if r.stillNow {
		return true
	}
	return r.d.StillDelay > 0 && r.machine.Since(now) > r.d.StillDelay
}

// enterStill is the stop, teardown, reconfigure, restart sequence.
func (r *runner) enterStill(now time.Time) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"stop camera", r.p.StopCamera},
		{"teardown", r.p.Teardown},
		{"configure still", r.p.ConfigureStill},
		{"start camera", r.p.StartCamera},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("enter still capture: %s: %w", s.name, err)
		}
	}
	log.Info("switching to still capture", "after", r.machine.Since(now).String())
	return r.machine.Transition(StillCapture, now)
}

func (r *runner) captureStill(f *pipeline.Frame, now time.Time) error {
	if err := r.p.StopCamera(); err != nil {
		return fmt.Errorf("still capture: stop camera: %w", err)
	}
	log.Info("still capture image received", "seq", f.Seq)
	if err := r.d.Stills.SaveStill(f); err != nil {
		return fmt.Errorf("still capture: save: %w", err)
	}
	r.stats.StillSaved = true
	r.stats.Reason = ReasonStillSaved
	return r.machine.Transition(Terminated, now)
}

// shutdown stops the encoder before the camera.
func (r *runner) shutdown(reason Reason) error {
	r.stats.Reason = reason
	if reason == ReasonTimeout {
		log.Info("halting: reached timeout", "milliseconds", r.d.Policy.Timeout.Milliseconds())
	} else {
		log.Info("halting", "reason", reason.String())
	}

	var errs []error
	if r.encoding {
		r.encoding = false
		if err := r.d.Encoder.StopEncoder(); err != nil {
			errs = append(errs, fmt.Errorf("stop encoder: %w", err))
		}
	}
	if err := r.p.StopCamera(); err != nil {
		errs = append(errs, fmt.Errorf("stop camera: %w", err))
	}
	if err := r.machine.Transition(Terminated, r.d.Now()); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// abort stops a running encoder after a fatal error so its container is
// finalized. The camera is left to the caller.
func (r *runner) abort() {
	if !r.encoding {
		return
	}
	r.encoding = false
	if err := r.d.Encoder.StopEncoder(); err != nil {
		log.Warn("stop encoder after failure", "error", err)
	}
}

func (r *runner) publish() {
	if r.d.Status == nil {
		return
	}
	now := r.d.Now()
	st := r.d.Controller.State()
	r.d.Status.UpdateStatus(Status{
		RunID:       r.stats.RunID,
		App:         r.d.Kind.String(),
		Mode:        r.machine.Mode().String(),
		Cycles:      r.stats.Cycles,
		Forwarded:   r.stats.Forwarded,
		Restarts:    r.stats.Restarts,
		AfMode:      r.d.AfMode.String(),
		Focus:       st,
		Crop:        st.Crop(),
		LastCommand: r.lastCmd.String(),
		Elapsed:     now.Sub(r.start).Seconds(),
		UpdatedAt:   now,
	})
}

func (r *runner) finish() Stats {
	if r.machine != nil {
		r.stats.Duration = r.d.Now().Sub(r.start)
	}
	log.Info("control loop finished",
		"run_id", r.stats.RunID,
		"reason", r.stats.Reason.String(),
		"frames", r.stats.Forwarded,
		"restarts", r.stats.Restarts,
	)
	return r.stats
}
