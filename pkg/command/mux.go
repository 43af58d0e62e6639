package command

import (
	"syscall"

	"github.com/teslashibe/go-picam/internal/log"
)

// Multiplexer resolves one command per cycle from an ordered list of sources.
// The first source that yields a command wins; later sources are not polled.
type Multiplexer struct {
	sources []Source
}

// NewMultiplexer returns a multiplexer over sources in precedence order.
// Nil sources are skipped.
func NewMultiplexer(sources ...Source) *Multiplexer {
	m := &Multiplexer{}
	for _, s := range sources {
		if s != nil {
			m.sources = append(m.sources, s)
		}
	}
	return m
}

// Config selects which sources take part.
type Config struct {
	Register *SignalRegister
	// Signals enables the confirm/quit signal source.
	Signals bool
	// SignalCodes overrides DefaultSignalCodes.
	SignalCodes map[syscall.Signal]Code
	// Keypress is nil when terminal input is disabled.
	Keypress Source
	// Remote is nil when the remote listener is disabled.
	Remote LatestReader
}

// New builds the standard precedence: interrupt, signals, keypress, remote.
func New(cfg Config) *Multiplexer {
	var sources []Source
	if cfg.Register != nil {
		sources = append(sources, &InterruptSource{Register: cfg.Register})
		if cfg.Signals {
			sources = append(sources, &SignalSource{Register: cfg.Register, Codes: cfg.SignalCodes})
		}
	}
	if cfg.Keypress != nil {
		sources = append(sources, cfg.Keypress)
	}
	if cfg.Remote != nil {
		sources = append(sources, &RemoteSource{Reader: cfg.Remote})
	}
	return NewMultiplexer(sources...)
}

// Sources returns the source names in precedence order.
func (m *Multiplexer) Sources() []string {
	names := make([]string, len(m.sources))
	for i, s := range m.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first command produced this cycle, or None.
func (m *Multiplexer) Resolve() Code {
	for _, s := range m.sources {
		if c := s.Poll(); c != None {
			log.Debug("command resolved", "command", c.String(), "source", s.Name())
			return c
		}
	}
	return None
}
