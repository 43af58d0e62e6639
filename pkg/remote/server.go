// Package remote is the network side of the command sources: a line-based TCP
// listener that keeps the latest command line, and an optional HTTP/WebSocket
// API for commands, status and a live preview.
package remote

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-picam/internal/log"
	"github.com/teslashibe/go-picam/pkg/hub"
	"github.com/teslashibe/go-picam/pkg/loop"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// DefaultPort is the TCP command port.
const DefaultPort = 8080

// maxLineLength bounds a single command line.
const maxLineLength = 4096

// Config selects the listeners. An empty address disables that listener.
type Config struct {
	// LineAddr is the TCP command listener, e.g. ":8080".
	LineAddr string
	// HTTPAddr is the HTTP/WebSocket API, e.g. ":8081".
	HTTPAddr string
}

// Server holds the latest remote command line for the control loop.
type Server struct {
	cfg Config

	mu     sync.Mutex
	latest string

	statusMu sync.RWMutex
	status   loop.Status

	lineLn net.Listener
	httpLn net.Listener
	app    *fiber.App

	statusHub  *hub.Hub
	previewHub *hub.Hub
	commandHub *hub.Hub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a server. Nothing listens until Start.
func NewServer(cfg Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:        cfg,
		statusHub:  hub.New("status", hub.WithRetain()),
		previewHub: hub.New("preview"),
		commandHub: hub.New("command"),
		ctx:        ctx,
		cancel:     cancel,
	}
	if cfg.HTTPAddr != "" {
		s.app = s.newApp()
	}
	return s
}

// Start opens the configured listeners and begins accepting.
func (s *Server) Start() error {
	if s.cfg.LineAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.LineAddr)
		if err != nil {
			return fmt.Errorf("listen for commands on %s: %w", s.cfg.LineAddr, err)
		}
		s.lineLn = ln
		s.wg.Add(1)
		go s.acceptLines(ln)
		log.Info("remote command listener started", "addr", ln.Addr().String())
	}

	if s.app != nil {
		ln, err := net.Listen("tcp", s.cfg.HTTPAddr)
		if err != nil {
			s.Close()
			return fmt.Errorf("listen for http on %s: %w", s.cfg.HTTPAddr, err)
		}
		s.httpLn = ln
		for _, h := range []*hub.Hub{s.statusHub, s.previewHub, s.commandHub} {
			go h.Run(s.ctx)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.app.Listener(ln); err != nil {
				log.Warn("http server stopped", "error", err)
			}
		}()
		log.Info("remote http api started", "addr", ln.Addr().String())
	}
	return nil
}

// LineAddr returns the bound TCP command address, or nil.
func (s *Server) LineAddr() net.Addr {
	if s.lineLn == nil {
		return nil
	}
	return s.lineLn.Addr()
}

// HTTPAddr returns the bound HTTP address, or nil.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Submit records line as the latest command, replacing any unread one.
func (s *Server) Submit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		line = "\n"
	}
	s.mu.Lock()
	s.latest = line
	s.mu.Unlock()
	log.Debug("remote command received", "line", line)
}

// ReadLatest returns the latest complete line and clears it, so each delivery
// is seen once. It never blocks.
func (s *Server) ReadLatest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.latest
	s.latest = ""
	return l
}

// UpdateStatus stores the loop snapshot and pushes it to status subscribers.
func (s *Server) UpdateStatus(st loop.Status) {
	s.statusMu.Lock()
	s.status = st
	s.statusMu.Unlock()
	if s.app == nil {
		return
	}
	if err := s.statusHub.BroadcastJSON(st); err != nil {
		log.Warn("encode status", "error", err)
	}
}

// Status returns the latest loop snapshot.
func (s *Server) Status() loop.Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// SendPreviewFrame pushes a JPEG frame to preview subscribers.
func (s *Server) SendPreviewFrame(jpeg []byte) {
	s.previewHub.BroadcastBinary(jpeg)
}

// Show implements pipeline.PreviewSink for the web preview.
func (s *Server) Show(f *pipeline.Frame) error {
	s.SendPreviewFrame(f.Data)
	return nil
}

// Close stops all listeners.
func (s *Server) Close() error {
	s.cancel()
	var err error
	if s.lineLn != nil {
		err = s.lineLn.Close()
	}
	if s.app != nil && s.httpLn != nil {
		if e := s.app.Shutdown(); e != nil && err == nil {
			err = e
		}
	}
	s.wg.Wait()
	return err
}
