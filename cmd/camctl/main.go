// Command camctl sends one command to a running camera app.
//
//	camctl [--addr host:8080] [--http|--ws] <command>
//	camctl --addr host:8081 --status
//
// The command is a name such as zoom-in or af-trigger, or a single key.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/remote"
)

func main() {
	fs := pflag.NewFlagSet("camctl", pflag.ContinueOnError)
	addr := fs.String("addr", fmt.Sprintf("localhost:%d", remote.DefaultPort), "Address of the camera app")
	useHTTP := fs.Bool("http", false, "Send through the HTTP API")
	useWS := fs.Bool("ws", false, "Send through the WebSocket API")
	status := fs.Bool("status", false, "Print the loop status from the HTTP API and exit")
	timeout := fs.Duration("timeout", 5*time.Second, "Give up after this long")
	verbose := fs.IntP("verbose", "v", 1, "Verbosity: 0 quiet, 1 normal, 2 debug")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: camctl [flags] <command>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return
		}
		os.Exit(2)
	}
	log.Init(log.VerbosityLevel(*verbose))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *status {
		st, err := remote.FetchStatus(ctx, *addr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: *** %v ***\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(st)
		return
	}

	if fs.NArg() > 1 || (*useHTTP && *useWS) {
		fs.Usage()
		os.Exit(2)
	}
	// No argument sends an empty line, which is confirm.
	cmd := strings.Join(fs.Args(), "")

	transport := remote.TransportTCP
	switch {
	case *useHTTP:
		transport = remote.TransportHTTP
	case *useWS:
		transport = remote.TransportWS
	}

	if err := remote.Send(ctx, *addr, transport, cmd); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: *** %v ***\n", err)
		os.Exit(1)
	}
	log.Debug("command sent", "addr", *addr, "transport", string(transport), "command", cmd)
}
