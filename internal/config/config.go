// Package config loads the camera apps' options.
//
// Values come from, in order of precedence: command-line flags, PICAM_* environment
// variables, an optional config file (--config or PICAM_CONFIG), and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// App identifies which camera application is loading options.
type App int

const (
	// AppHello is the preview-only app.
	AppHello App = iota
	// AppStill is the still-capture app.
	AppStill
	// AppVideo is the video-encode app.
	AppVideo
)

// String returns the app's command name.
func (a App) String() string {
	switch a {
	case AppHello:
		return "camhello"
	case AppStill:
		return "camjpeg"
	case AppVideo:
		return "camvid"
	default:
		return "unknown"
	}
}

// Defaults shared by every app.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultWaitTimeout = time.Second
	DefaultRemotePort  = 8080
	DefaultCamera      = "/dev/video0"
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultFramerate   = 30
	DefaultAfStep      = 1.0
	DefaultCodec       = "mjpeg"
	DefaultAfMode      = "default"
	DefaultPreview     = "window"
	DefaultInitial     = "record"
)

// Valid option values.
var (
	Codecs       = []string{"mjpeg", "yuv420", "h264"}
	AfModes      = []string{"default", "manual", "auto", "continuous"}
	PreviewKinds = []string{"window", "web", "none"}
	InitialModes = []string{"record", "pause"}
)

// Options holds everything the apps consume after parsing.
type Options struct {
	// Timeout bounds the run (hello, vid) or delays the still capture (jpeg). 0 disables.
	Timeout time.Duration `mapstructure:"timeout"`
	// Frames bounds the number of forwarded frames. 0 disables.
	Frames uint `mapstructure:"frames"`

	Keypress bool `mapstructure:"keypress"`
	Signal   bool `mapstructure:"signal"`

	Output  string `mapstructure:"output"`
	Codec   string `mapstructure:"codec"`
	Initial string `mapstructure:"initial"`

	AfMode       string  `mapstructure:"autofocus-mode"`
	LensPosition float64 `mapstructure:"lens-position"`
	AfStep       float64 `mapstructure:"af-step"`

	RemotePort int `mapstructure:"remote-port"`
	HTTPPort   int `mapstructure:"http-port"`

	Camera      string        `mapstructure:"camera"`
	Width       int           `mapstructure:"width"`
	Height      int           `mapstructure:"height"`
	Framerate   int           `mapstructure:"framerate"`
	WaitTimeout time.Duration `mapstructure:"wait-timeout"`

	NoPreview bool   `mapstructure:"nopreview"`
	Preview   string `mapstructure:"preview"`

	Verbose    int    `mapstructure:"verbose"`
	ConfigFile string `mapstructure:"config"`
}

// ErrHelp is returned by Load when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// ErrOutputRequired is returned for the still app when no output file was given.
var ErrOutputRequired = errors.New("output file name required")

// ValidationError lists every problem found in a set of options.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid options: " + strings.Join(e.Problems, "; ")
}

// NewFlagSet declares the flags for app. Exposed so callers can print usage.
func NewFlagSet(app App) *pflag.FlagSet {
	fs := pflag.NewFlagSet(app.String(), pflag.ContinueOnError)

	timeoutHelp := "Time for which the program runs (0 runs forever)"
	if app == AppStill {
		timeoutHelp = "Viewfinder time before the still is captured"
	}
	fs.DurationP("timeout", "t", DefaultTimeout, timeoutHelp)
	fs.BoolP("keypress", "k", false, "Read commands from the terminal, one per line")
	fs.BoolP("signal", "s", false, "React to SIGUSR1 (confirm) and SIGUSR2 (quit)")
	fs.StringP("output", "o", "", "Output file or network target")
	fs.String("autofocus-mode", DefaultAfMode, "Autofocus mode: default, manual, auto, continuous")
	fs.Float64("lens-position", 0, "Initial lens position for manual focus")
	fs.Float64("af-step", DefaultAfStep, "Lens position step for manual focus commands")
	fs.Int("remote-port", DefaultRemotePort, "TCP port of the remote command listener (0 disables)")
	fs.Int("http-port", 0, "Port of the HTTP/WebSocket command and preview API (0 disables)")
	fs.String("camera", DefaultCamera, "Capture device path, or \"sim\" for the simulated camera")
	fs.Int("width", DefaultWidth, "Frame width")
	fs.Int("height", DefaultHeight, "Frame height")
	fs.Int("framerate", DefaultFramerate, "Frames per second")
	fs.Duration("wait-timeout", DefaultWaitTimeout, "Time without a frame before a device timeout is declared")
	fs.BoolP("nopreview", "n", false, "Do not show a preview")
	fs.String("preview", DefaultPreview, "Preview sink: window, web, none")
	fs.IntP("verbose", "v", 1, "Verbosity: 0 quiet, 1 normal, 2 debug")
	fs.String("config", "", "Config file (toml, yaml or json)")

	if app == AppVideo {
		fs.Uint("frames", 0, "Run for this many frames (overrides timeout)")
		fs.String("codec", DefaultCodec, "Codec: mjpeg, yuv420, h264")
		fs.String("initial", DefaultInitial, "Initial output state: record or pause")
	}
	if app == AppHello {
		fs.Uint("frames", 0, "Run for this many frames")
	}
	return fs
}

// Load parses args for app and merges environment and config-file values.
// Validation is separate; see Options.Validate.
func Load(app App, args []string) (Options, error) {
	fs := NewFlagSet(app)
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	v := viper.New()
	v.SetDefault("codec", DefaultCodec)
	v.SetDefault("initial", DefaultInitial)
	if err := v.BindPFlags(fs); err != nil {
		return Options{}, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix("PICAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	cfgPath := v.GetString("config")
	if cfgPath == "" {
		cfgPath = os.Getenv("PICAM_CONFIG")
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return opts, nil
}

// Validate checks the options for app. It reports every problem at once.
func (o *Options) Validate(app App) error {
	var problems []string

	if app == AppStill && o.Output == "" {
		return ErrOutputRequired
	}
	if o.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if o.WaitTimeout <= 0 {
		problems = append(problems, "wait-timeout must be positive")
	}
	if o.Width < 64 || o.Width > 4608 {
		problems = append(problems, "width must be between 64 and 4608")
	}
	if o.Height < 64 || o.Height > 2592 {
		problems = append(problems, "height must be between 64 and 2592")
	}
	if o.Framerate < 1 || o.Framerate > 120 {
		problems = append(problems, "framerate must be between 1 and 120")
	}
	if !contains(AfModes, o.AfMode) {
		problems = append(problems, "autofocus-mode must be one of "+strings.Join(AfModes, ", "))
	}
	if o.AfStep <= 0 {
		problems = append(problems, "af-step must be positive")
	}
	if o.RemotePort < 0 || o.RemotePort > 65535 {
		problems = append(problems, "remote-port must be between 0 and 65535")
	}
	if o.HTTPPort < 0 || o.HTTPPort > 65535 {
		problems = append(problems, "http-port must be between 0 and 65535")
	}
	if o.HTTPPort != 0 && o.HTTPPort == o.RemotePort {
		problems = append(problems, "http-port and remote-port must differ")
	}
	if !contains(PreviewKinds, o.Preview) {
		problems = append(problems, "preview must be one of "+strings.Join(PreviewKinds, ", "))
	}
	if o.Preview == "web" && o.HTTPPort == 0 {
		problems = append(problems, "preview=web needs http-port")
	}

	if app == AppVideo {
		if !contains(Codecs, o.Codec) {
			problems = append(problems, "codec must be one of "+strings.Join(Codecs, ", "))
		}
		if !contains(InitialModes, o.Initial) {
			problems = append(problems, "initial must be record or pause")
		}
		if o.Codec == "h264" && !IsFileTarget(o.Output) {
			problems = append(problems, "codec h264 needs a file output")
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// PreviewEnabled reports whether frames should be shown at all.
func (o *Options) PreviewEnabled() bool {
	return !o.NoPreview && o.Preview != "none"
}

// IsFileTarget reports whether an output target names a regular file.
func IsFileTarget(target string) bool {
	if target == "" || target == "-" {
		return false
	}
	return !strings.Contains(target, "://")
}

// Print writes the options in the same shape the apps use for --verbose 2.
func (o *Options) Print(w io.Writer) {
	fmt.Fprintln(w, "Options:")
	fmt.Fprintf(w, "    timeout: %s\n", o.Timeout)
	fmt.Fprintf(w, "    frames: %d\n", o.Frames)
	fmt.Fprintf(w, "    keypress: %t\n", o.Keypress)
	fmt.Fprintf(w, "    signal: %t\n", o.Signal)
	fmt.Fprintf(w, "    output: %s\n", o.Output)
	fmt.Fprintf(w, "    codec: %s\n", o.Codec)
	fmt.Fprintf(w, "    initial: %s\n", o.Initial)
	fmt.Fprintf(w, "    autofocus-mode: %s\n", o.AfMode)
	fmt.Fprintf(w, "    lens-position: %g\n", o.LensPosition)
	fmt.Fprintf(w, "    af-step: %g\n", o.AfStep)
	fmt.Fprintf(w, "    remote-port: %d\n", o.RemotePort)
	fmt.Fprintf(w, "    http-port: %d\n", o.HTTPPort)
	fmt.Fprintf(w, "    camera: %s\n", o.Camera)
	fmt.Fprintf(w, "    mode: %dx%d@%d\n", o.Width, o.Height, o.Framerate)
	fmt.Fprintf(w, "    wait-timeout: %s\n", o.WaitTimeout)
	fmt.Fprintf(w, "    preview: %s (nopreview=%t)\n", o.Preview, o.NoPreview)
	fmt.Fprintf(w, "    verbose: %d\n", o.Verbose)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
