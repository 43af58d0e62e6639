// Package log provides structured logging for the camera apps.
// Records go to stderr so stdout stays free for encoded video. Set
// PICAM_LOG_FORMAT=json for machine-readable output.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	level  = new(slog.LevelVar)
	mu     sync.Mutex
)

// Init sets the level and, on first use, installs the stderr handler.
// Valid levels: "debug", "info", "warn", "error".
func Init(lvl string) {
	InitWriter(lvl, os.Stderr)
}

// InitWriter is Init with an explicit destination. Only the first call picks
// the destination; later calls change the level.
func InitWriter(lvl string, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	level.Set(ParseLevel(lvl))
	if logger != nil {
		return
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(os.Getenv("PICAM_LOG_FORMAT"), "json") {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
	slog.SetDefault(logger)
}

// ParseLevel maps a level name onto an slog.Level. Unknown names are info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// VerbosityLevel converts the apps' numeric --verbose option into a level name.
// 0 is quiet (errors only), 1 is normal, 2 and above is debug.
func VerbosityLevel(verbose int) string {
	switch {
	case verbose <= 0:
		return "error"
	case verbose == 1:
		return "info"
	default:
		return "debug"
	}
}

// Level returns the current level.
func Level() slog.Level {
	return level.Level()
}

// L returns the global logger, installing the default one if needed.
func L() *slog.Logger {
	mu.Lock()
	l := logger
	mu.Unlock()
	if l == nil {
		InitWriter("info", os.Stderr)
		return L()
	}
	return l
}

func Debug(msg string, args ...any) { L().Debug(msg, args...) }
func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Warn(msg string, args ...any)  { L().Warn(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }
