package command

import (
	"bufio"
	"io"
	"syscall"
)

// Source is one place a command can come from. Poll must not block.
type Source interface {
	Name() string
	Poll() Code
}

// InterruptSource turns the interrupt latch into Quit. It is consulted first every cycle.
type InterruptSource struct {
	Register *SignalRegister
}

// Name implements Source.
func (s *InterruptSource) Name() string { return "interrupt" }

// Poll implements Source.
func (s *InterruptSource) Poll() Code {
	if s.Register.Interrupted() {
		return Quit
	}
	return None
}

// DefaultSignalCodes maps the confirm and quit signals onto commands.
var DefaultSignalCodes = map[syscall.Signal]Code{
	syscall.SIGUSR1: Confirm,
	syscall.SIGUSR2: Quit,
}

// SignalSource consumes the edge-triggered signal register.
type SignalSource struct {
	Register *SignalRegister
	// Codes defaults to DefaultSignalCodes.
	Codes map[syscall.Signal]Code
}

// Name implements Source.
func (s *SignalSource) Name() string { return "signal" }

// Poll implements Source. A pending signal is cleared whether or not it maps
// onto a command.
func (s *SignalSource) Poll() Code {
	sig := s.Register.Take()
	if sig == 0 {
		return None
	}
	codes := s.Codes
	if codes == nil {
		codes = DefaultSignalCodes
	}
	return codes[sig]
}

// KeypressSource reads lines from a terminal in the background and hands them
// to the loop one per Poll.
type KeypressSource struct {
	lines chan string
}

// NewKeypressSource starts reading lines from r. Reading stops at EOF or error.
func NewKeypressSource(r io.Reader) *KeypressSource {
	s := &KeypressSource{lines: make(chan string, 16)}
	go s.read(r)
	return s
}

func (s *KeypressSource) read(r io.Reader) {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			s.lines <- line
		}
		if err != nil {
			return
		}
	}
}

// Name implements Source.
func (s *KeypressSource) Name() string { return "keypress" }

// Poll implements Source.
func (s *KeypressSource) Poll() Code {
	select {
	case line := <-s.lines:
		return Parse(line)
	default:
		return None
	}
}

// LatestReader is the remote command transport as seen by the loop.
type LatestReader interface {
	// ReadLatest returns the most recent complete line, or "". Non-blocking.
	ReadLatest() string
}

// RemoteSource reads the remote transport's latest line.
type RemoteSource struct {
	Reader LatestReader
}

// Name implements Source.
func (s *RemoteSource) Name() string { return "remote" }

// Poll implements Source.
func (s *RemoteSource) Poll() Code {
	return Parse(s.Reader.ReadLatest())
}
