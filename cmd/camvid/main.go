// Command camvid encodes video to a file, stdout, TCP or RTP.
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
	os.Exit(app.Main(config.AppVideo, os.Args[1:]))
}
