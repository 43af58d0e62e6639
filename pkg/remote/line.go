package remote

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"

	"github.com/teslashibe/go-picam/internal/log"
)

func (s *Server) acceptLines(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn("command listener accept failed", "error", err)
			}
			return
		}
		s.wg.Add(1)
		go s.readLines(conn)
	}
}

// readLines stores every complete line from conn. A trailing partial line is
// dropped, and a line longer than maxLineLength is discarded up to its newline.
func (s *Server) readLines(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer stop()
	log.Debug("command client connected", "remote", conn.RemoteAddr().String())

	r := bufio.NewReaderSize(conn, maxLineLength)
	for {
		line, err := r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			log.Warn("command line too long, ignored", "limit", maxLineLength)
			if err := skipLine(r); err != nil {
				return
			}
			continue
		}
		if err != nil {
			return
		}
		s.Submit(strings.TrimSuffix(string(line), "\n"))
	}
}

// skipLine drops input up to and including the next newline.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}
