// Package app wires options, devices, sinks and command sources into a control
// loop run. The camhello, camjpeg and camvid commands are thin wrappers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/teslashibe/go-picam/internal/config"
	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/command"
	"github.com/teslashibe/go-picam/pkg/imageproc"
	"github.com/teslashibe/go-picam/pkg/loop"
	"github.com/teslashibe/go-picam/pkg/output"
	"github.com/teslashibe/go-picam/pkg/pipeline"
	"github.com/teslashibe/go-picam/pkg/pipeline/v4l2cam"
	"github.com/teslashibe/go-picam/pkg/remote"
)

// SimCamera selects the simulated device.
const SimCamera = "sim"

// Main runs app with args and returns the process exit code.
func Main(a config.App, args []string) int {
	opts, err := config.Load(a, args)
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err == nil {
		err = opts.Validate(a)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: *** %v ***\n", err)
		return 1
	}

	log.Init(log.VerbosityLevel(opts.Verbose))
	if opts.Verbose >= 2 {
		opts.Print(os.Stderr)
	}

	if _, err := Run(context.Background(), a, opts, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: *** %v ***\n", err)
		return 1
	}
	return 0
}

// Run builds everything opts describes and drives the loop to completion.
// stdin feeds the keypress source when enabled.
func Run(ctx context.Context, a config.App, opts config.Options, stdin io.Reader) (loop.Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	afMode, err := camera.ParseAfMode(opts.AfMode)
	if err != nil {
		return loop.Stats{}, err
	}

	register := &command.SignalRegister{}
	sigs := []os.Signal{syscall.SIGINT, syscall.SIGUSR1, syscall.SIGUSR2}
	if a == config.AppVideo {
		sigs = append(sigs, syscall.SIGPIPE)
	}
	register.Notify(ctx, sigs...)

	srv := remote.NewServer(remoteConfig(opts))
	if err := srv.Start(); err != nil {
		return loop.Stats{}, err
	}
	defer srv.Close()

	b := &build{opts: opts, register: register, srv: srv}
	defer b.close()

	format := pipeline.Format{Width: opts.Width, Height: opts.Height, FPS: opts.Framerate}
	pcfg := pipeline.Config{
		Viewfinder:  format,
		Still:       format,
		Video:       format,
		WaitTimeout: opts.WaitTimeout,
		Preview:     b.preview(a),
		Crop:        imageproc.CropJPEG,
	}

	deps := loop.Deps{
		Kind:       kindOf(a),
		Controller: camera.NewController(opts.AfStep, opts.LensPosition),
		AfMode:     afMode,
		Console:    os.Stdout,
		Status:     srv,
	}
	if opts.Output == "-" {
		deps.Console = os.Stderr
	}

	switch a {
	case config.AppHello:
		deps.Policy = loop.Policy{Timeout: opts.Timeout, Frames: uint64(opts.Frames)}
	case config.AppStill:
		deps.StillDelay = opts.Timeout
		pcfg.Stills = imageproc.StillWriter{Path: opts.Output}
	case config.AppVideo:
		deps.Policy = loop.Policy{Timeout: opts.Timeout, Frames: uint64(opts.Frames)}
		deps.VideoFlags = pipeline.ColourspaceFlags(opts.Codec)
		enc, toggler, err := b.encoder()
		if err != nil {
			return loop.Stats{}, err
		}
		pcfg.Encoder = enc
		deps.Output = toggler
	}

	runner := pipeline.NewRunner(newDevice(opts.Camera), pcfg)
	defer runner.Close()
	deps.Pipeline = runner
	deps.Encoder = runner
	deps.Stills = runner

	var keypress command.Source
	if opts.Keypress {
		keypress = command.NewKeypressSource(stdin)
	}
	var remoteReader command.LatestReader
	if opts.RemotePort > 0 || opts.HTTPPort > 0 {
		remoteReader = srv
	}
	mux := command.New(command.Config{
		Register: register,
		Signals:  opts.Signal,
		Keypress: keypress,
		Remote:   remoteReader,
	})
	deps.Commands = mux

	log.Info("starting control loop", "app", a.String(), "camera", opts.Camera,
		"sources", mux.Sources())
	return loop.Run(ctx, deps)
}

func kindOf(a config.App) loop.Kind {
	switch a {
	case config.AppStill:
		return loop.KindStill
	case config.AppVideo:
		return loop.KindVideo
	}
	return loop.KindPreview
}

func remoteConfig(opts config.Options) remote.Config {
	var cfg remote.Config
	if opts.RemotePort > 0 {
		cfg.LineAddr = fmt.Sprintf(":%d", opts.RemotePort)
	}
	if opts.HTTPPort > 0 {
		cfg.HTTPAddr = fmt.Sprintf(":%d", opts.HTTPPort)
	}
	return cfg
}

func newDevice(name string) pipeline.Device {
	if name == SimCamera {
		return pipeline.NewSim()
	}
	return v4l2cam.New(v4l2cam.Options{Path: name})
}

// build tracks the resources Run opens so they close in one place.
type build struct {
	opts     config.Options
	register *command.SignalRegister
	srv      *remote.Server
	closers  []io.Closer
}

func (b *build) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

// preview returns the preview sink, or nil when previews are off. A window
// and the web preview can run together.
func (b *build) preview(a config.App) pipeline.PreviewSink {
	if !b.opts.PreviewEnabled() {
		return nil
	}
	var sinks imageproc.Fanout
	if b.opts.Preview == "window" {
		w := imageproc.NewWindow(a.String())
		b.closers = append(b.closers, w)
		sinks = append(sinks, w)
	}
	if b.opts.HTTPPort > 0 {
		sinks = append(sinks, b.srv)
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	}
	return sinks
}

// encoder opens the video output. A vanished downstream peer latches SIGPIPE
// and fails the write with output.ErrBrokenPipe, which the loop treats as quit.
func (b *build) encoder() (pipeline.EncoderSink, loop.Toggler, error) {
	paused := b.opts.Initial == "pause"
	if b.opts.Codec == "h264" {
		e := imageproc.NewFileEncoder(b.opts.Output, float64(b.opts.Framerate), b.opts.Width, b.opts.Height, paused)
		return e, e, nil
	}

	out, err := output.New(b.opts.Output, output.Options{
		Paused:       paused,
		OnBrokenPipe: func() { b.register.Deliver(syscall.SIGPIPE) },
	})
	if err != nil {
		return nil, nil, err
	}
	e, err := imageproc.NewStreamEncoder(out, b.opts.Codec)
	if err != nil {
		out.Close()
		return nil, nil, err
	}
	return e, e, nil
}
