package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	opts, err := Load(AppVideo, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", opts.Timeout, DefaultTimeout)
	}
	if opts.RemotePort != DefaultRemotePort {
		t.Errorf("RemotePort = %d, want %d", opts.RemotePort, DefaultRemotePort)
	}
	if opts.AfStep != DefaultAfStep {
		t.Errorf("AfStep = %v, want %v", opts.AfStep, DefaultAfStep)
	}
	if opts.Codec != DefaultCodec {
		t.Errorf("Codec = %q, want %q", opts.Codec, DefaultCodec)
	}
	if opts.Verbose != 1 {
		t.Errorf("Verbose = %d, want 1", opts.Verbose)
	}
	if opts.Keypress || opts.Signal {
		t.Error("keypress and signal should default to false")
	}
}

func TestLoad_Flags(t *testing.T) {
	args := []string{"-t", "2s", "--frames", "10", "-k", "-s", "--autofocus-mode", "manual", "--af-step", "0.5", "-o", "out.mjpeg"}
	opts, err := Load(AppVideo, args)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", opts.Timeout)
	}
	if opts.Frames != 10 {
		t.Errorf("Frames = %d, want 10", opts.Frames)
	}
	if !opts.Keypress || !opts.Signal {
		t.Error("expected keypress and signal enabled")
	}
	if opts.AfMode != "manual" {
		t.Errorf("AfMode = %q, want manual", opts.AfMode)
	}
	if opts.AfStep != 0.5 {
		t.Errorf("AfStep = %v, want 0.5", opts.AfStep)
	}
	if opts.Output != "out.mjpeg" {
		t.Errorf("Output = %q", opts.Output)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PICAM_REMOTE_PORT", "9090")
	t.Setenv("PICAM_AUTOFOCUS_MODE", "auto")

	opts, err := Load(AppHello, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.RemotePort != 9090 {
		t.Errorf("RemotePort = %d, want 9090", opts.RemotePort)
	}
	if opts.AfMode != "auto" {
		t.Errorf("AfMode = %q, want auto", opts.AfMode)
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("PICAM_REMOTE_PORT", "9090")

	opts, err := Load(AppHello, []string{"--remote-port", "7070"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.RemotePort != 7070 {
		t.Errorf("RemotePort = %d, want 7070", opts.RemotePort)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "picam.toml")
	content := "timeout = \"3s\"\nkeypress = true\n\"af-step\" = 2.5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	opts, err := Load(AppHello, []string{"--config", path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", opts.Timeout)
	}
	if !opts.Keypress {
		t.Error("expected keypress from config file")
	}
	if opts.AfStep != 2.5 {
		t.Errorf("AfStep = %v, want 2.5", opts.AfStep)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(AppHello, []string{"--config", filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_Help(t *testing.T) {
	_, err := Load(AppHello, []string{"--help"})
	if !errors.Is(err, ErrHelp) {
		t.Errorf("expected ErrHelp, got %v", err)
	}
}

func TestLoad_StillHasNoFramesFlag(t *testing.T) {
	if _, err := Load(AppStill, []string{"--frames", "3"}); err == nil {
		t.Error("still app should not accept --frames")
	}
}

func validOptions(t *testing.T, app App) Options {
	t.Helper()
	opts, err := Load(app, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return opts
}

func TestValidate_StillNeedsOutput(t *testing.T) {
	opts := validOptions(t, AppStill)
	if err := opts.Validate(AppStill); !errors.Is(err, ErrOutputRequired) {
		t.Errorf("expected ErrOutputRequired, got %v", err)
	}
	opts.Output = "still.jpg"
	if err := opts.Validate(AppStill); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_Defaults(t *testing.T) {
	for _, app := range []App{AppHello, AppVideo} {
		opts := validOptions(t, app)
		if err := opts.Validate(app); err != nil {
			t.Errorf("%s: defaults should validate, got %v", app, err)
		}
	}
}

func TestValidate_CollectsProblems(t *testing.T) {
	opts := validOptions(t, AppVideo)
	opts.Codec = "vp9"
	opts.AfMode = "sometimes"
	opts.Width = 1
	opts.AfStep = 0

	err := opts.Validate(AppVideo)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Problems) != 4 {
		t.Errorf("expected 4 problems, got %d: %v", len(verr.Problems), verr.Problems)
	}
	if !strings.Contains(err.Error(), "codec") {
		t.Errorf("error should mention codec: %v", err)
	}
}

func TestValidate_H264NeedsFile(t *testing.T) {
	opts := validOptions(t, AppVideo)
	opts.Codec = "h264"
	opts.Output = "tcp://127.0.0.1:5000"
	if err := opts.Validate(AppVideo); err == nil {
		t.Error("h264 to tcp should be rejected")
	}
	opts.Output = "clip.mp4"
	if err := opts.Validate(AppVideo); err != nil {
		t.Errorf("h264 to file should validate: %v", err)
	}
}

func TestValidate_WebPreviewNeedsHTTP(t *testing.T) {
	opts := validOptions(t, AppHello)
	opts.Preview = "web"
	if err := opts.Validate(AppHello); err == nil {
		t.Error("web preview without http-port should be rejected")
	}
	opts.HTTPPort = 8081
	if err := opts.Validate(AppHello); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestIsFileTarget(t *testing.T) {
	tests := map[string]bool{
		"":                    false,
		"-":                   false,
		"tcp://0.0.0.0:5000":  false,
		"udp://10.0.0.2:5000": false,
		"clip.h264":           true,
		"/tmp/still.jpg":      true,
	}
	for in, want := range tests {
		if got := IsFileTarget(in); got != want {
			t.Errorf("IsFileTarget(%q) = %v, want %v", in, got, want)
		}
	}
}
