// Package output writes the encoded video stream to its destination: a file,
// stdout, a TCP peer or RTP over UDP. Every output can be paused and resumed
// with Signal.
package output

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/teslashibe/go-picam/internal/log"
)

// Output is an encoded-stream sink.
type Output interface {
	// Write sends one encoded frame. Paused outputs drop it.
	Write(frame []byte, ts time.Time) error
	// Signal toggles between recording and paused.
	Signal()
	Recording() bool
	Close() error
}

// Options configure New.
type Options struct {
	// Paused starts the output paused.
	Paused bool
	// OnBrokenPipe runs once when the downstream peer goes away.
	OnBrokenPipe func()
	// DialTimeout bounds the TCP connect. Defaults to 5s.
	DialTimeout time.Duration
	// RTP settings for udp:// targets.
	PayloadType uint8
	MTU         int
}

// New opens the output named by target:
//
//	""               discard
//	"-"              stdout
//	"tcp://host:port" TCP client
//	"udp://host:port" RTP over UDP
//	anything else    a file path
func New(target string, opts Options) (Output, error) {
	var (
		w    io.WriteCloser
		kind string
		err  error
	)
	switch {
	case target == "":
		kind = "null"
		w = nopCloser{io.Discard}
	case target == "-":
		kind = "stdout"
		w = nopCloser{os.Stdout}
	case strings.HasPrefix(target, "tcp://"):
		kind = "tcp"
		w, err = dialTCP(strings.TrimPrefix(target, "tcp://"), opts.DialTimeout)
	case strings.HasPrefix(target, "udp://"):
		kind = "udp"
		var o *rtpOutput
		o, err = newRTP(strings.TrimPrefix(target, "udp://"), opts)
		if err != nil {
			return nil, err
		}
		o.base.init(kind, opts)
		log.Info("output opened", "kind", kind, "target", target, "recording", o.Recording())
		return o, nil
	case strings.Contains(target, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, target)
	default:
		kind = "file"
		w, err = os.Create(target)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s output: %w", kind, err)
	}
	o := &streamOutput{w: w}
	o.base.init(kind, opts)
	log.Info("output opened", "kind", kind, "target", target, "recording", o.Recording())
	return o, nil
}

// base holds the pause state and broken-pipe handling shared by outputs.
type base struct {
	kind      string
	recording atomic.Bool
	onBroken  func()
	brokenOne sync.Once
}

func (b *base) init(kind string, opts Options) {
	b.kind = kind
	b.recording.Store(!opts.Paused)
	b.onBroken = opts.OnBrokenPipe
}

// Signal implements Output.
func (b *base) Signal() {
	for {
		was := b.recording.Load()
		if b.recording.CompareAndSwap(was, !was) {
			log.Info("output toggled", "kind", b.kind, "recording", !was)
			return
		}
	}
}

// Recording implements Output.
func (b *base) Recording() bool {
	return b.recording.Load()
}

// checkWrite maps a write error onto ErrBrokenPipe and fires the callback once.
func (b *base) checkWrite(err error) error {
	if err == nil {
		return nil
	}
	if isBrokenPipe(err) {
		b.brokenOne.Do(func() {
			log.Warn("output peer went away", "kind", b.kind, "error", err)
			if b.onBroken != nil {
				b.onBroken()
			}
		})
		return fmt.Errorf("%w: %v", ErrBrokenPipe, err)
	}
	return fmt.Errorf("%s output: %w", b.kind, err)
}

func isBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed)
}

type streamOutput struct {
	base
	mu sync.Mutex
	w  io.WriteCloser
}

func (o *streamOutput) Write(frame []byte, _ time.Time) error {
	if !o.Recording() {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := o.w.Write(frame)
	return o.checkWrite(err)
}

func (o *streamOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.w.Close()
}

func dialTCP(addr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return net.DialTimeout("tcp", addr, timeout)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
