package command

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/teslashibe/go-picam/internal/log"
)

// SignalRegister is the loop-owned record of signals delivered asynchronously.
//
// The interrupt latch is level-triggered: once SIGINT or SIGPIPE arrives it stays
// set. Every other signal is edge-triggered: Take returns it once and clears the register,
// and a newer delivery overwrites an unread one.
type SignalRegister struct {
	interrupted atomic.Bool
	pending     atomic.Int32
}

// Deliver records sig. Safe to call from any goroutine.
func (r *SignalRegister) Deliver(sig syscall.Signal) {
	if sig == syscall.SIGINT || sig == syscall.SIGPIPE {
		r.interrupted.Store(true)
		return
	}
	r.pending.Store(int32(sig))
}

// Interrupted reports whether SIGINT or SIGPIPE has been delivered.
func (r *SignalRegister) Interrupted() bool {
	return r.interrupted.Load()
}

// Take returns the pending signal, or 0, and clears it atomically.
func (r *SignalRegister) Take() syscall.Signal {
	return syscall.Signal(r.pending.Swap(0))
}

// Notify relays the given OS signals into r until ctx is done.
func (r *SignalRegister) Notify(ctx context.Context, sigs ...os.Signal) {
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, sigs...)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-ch:
				sig, ok := s.(syscall.Signal)
				if !ok {
					continue
				}
				log.Info("received signal", "signal", sig.String(), "number", int(sig))
				r.Deliver(sig)
			}
		}
	}()
}
