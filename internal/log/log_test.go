package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVerbosityLevel(t *testing.T) {
	tests := map[int]string{
		-1: "error",
		0:  "error",
		1:  "info",
		2:  "debug",
		5:  "debug",
	}
	for in, want := range tests {
		if got := VerbosityLevel(in); got != want {
			t.Errorf("VerbosityLevel(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestL_NeverNil(t *testing.T) {
	if L() == nil {
		t.Fatal("L() returned nil")
	}
}

func TestInit_ChangesLevel(t *testing.T) {
	Init("debug")
	if Level() != slog.LevelDebug {
		t.Errorf("Level() = %v after Init(debug)", Level())
	}
	Init("error")
	if Level() != slog.LevelError {
		t.Errorf("Level() = %v after Init(error)", Level())
	}
	if !L().Enabled(context.Background(), slog.LevelError) || L().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("logger does not follow the level")
	}
	Init("info")
}
