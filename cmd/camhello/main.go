// Command camhello shows a camera preview until quit, timeout or a frame limit.
package main

import (
	"os"
	"runtime"

	"github.com/teslashibe/go-picam/internal/app"
	"github.com/teslashibe/go-picam/internal/config"
)

// The preview window must be driven from the main OS thread.
func init() { runtime.LockOSThread() }

func main() {
	os.Exit(app.Main(config.AppHello, os.Args[1:]))
}
