// Command camjpeg runs a viewfinder, then captures one still to --output.
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
	os.Exit(app.Main(config.AppStill, os.Args[1:]))
}
