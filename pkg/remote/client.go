package remote

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-picam/internal/httpc"
	"github.com/teslashibe/go-picam/pkg/command"
	"github.com/teslashibe/go-picam/pkg/loop"
)

// Transport selects how Send reaches the server.
type Transport string

const (
	TransportTCP  Transport = "tcp"
	TransportHTTP Transport = "http"
	TransportWS   Transport = "ws"
)

// DialTimeout bounds connection setup for Send.
const DialTimeout = 5 * time.Second

// Send delivers one command to a running camera app. name may be a command
// name ("zoom-in") or a key ("w").
func Send(ctx context.Context, addr string, t Transport, name string) error {
	line, code := resolveLine(name)
	if code == command.None {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	switch t {
	case TransportTCP, "":
		return sendTCP(ctx, addr, line)
	case TransportHTTP:
		return sendHTTP(ctx, addr, code)
	case TransportWS:
		return sendWS(ctx, addr, line)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, t)
	}
}

func sendTCP(ctx context.Context, addr, line string) error {
	d := net.Dialer{Timeout: DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err = io.WriteString(conn, line)
	return err
}

func sendHTTP(ctx context.Context, addr string, code command.Code) error {
	resp, err := httpc.PostJSON(ctx, "http://"+addr+"/api/command", CommandRequest{Command: code.String()})
	if err != nil {
		return fmt.Errorf("post command: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrRejected, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func sendWS(ctx context.Context, addr, line string) error {
	dialer := websocket.Dialer{HandshakeTimeout: DialTimeout}
	conn, _, err := dialer.DialContext(ctx, "ws://"+addr+"/ws/command", nil)
	if err != nil {
		return fmt.Errorf("dial websocket %s: %w", addr, err)
	}
	defer conn.Close()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		return err
	}
	// Close handshake flushes the message before the connection drops.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// FetchStatus reads the loop snapshot from the HTTP API at addr.
func FetchStatus(ctx context.Context, addr string) (loop.Status, error) {
	var st loop.Status
	if err := httpc.GetJSON(ctx, "http://"+addr+"/api/status", &st); err != nil {
		return st, fmt.Errorf("fetch status: %w", err)
	}
	return st, nil
}
