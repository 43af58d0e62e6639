package command

import (
	"io"
	"strings"
	"syscall"
	"testing"
	"time"
)

type stubSource struct {
	name  string
	codes []Code
	polls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Poll() Code {
	s.polls++
	if len(s.codes) == 0 {
		return None
	}
	c := s.codes[0]
	s.codes = s.codes[1:]
	return c
}

type stubRemote struct{ line string }

func (r *stubRemote) ReadLatest() string {
	l := r.line
	r.line = ""
	return l
}

func TestMultiplexer_FirstHitWins(t *testing.T) {
	a := &stubSource{name: "a"}
	b := &stubSource{name: "b", codes: []Code{ZoomIn}}
	c := &stubSource{name: "c", codes: []Code{Quit}}
	m := NewMultiplexer(a, nil, b, c)

	if got := m.Resolve(); got != ZoomIn {
		t.Fatalf("Resolve() = %v, want zoom-in", got)
	}
	if c.polls != 0 {
		t.Errorf("lower-precedence source polled %d times", c.polls)
	}
	if got := m.Resolve(); got != Quit {
		t.Fatalf("second Resolve() = %v, want quit", got)
	}
	if got := m.Resolve(); got != None {
		t.Fatalf("third Resolve() = %v, want none", got)
	}
}

func TestNew_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		interrupt bool
		signal    syscall.Signal
		signals   bool
		key       []Code
		remote    string
		want      Code
	}{
		{name: "nothing", want: None},
		{name: "interrupt beats all", interrupt: true, signal: syscall.SIGUSR1, signals: true, key: []Code{ZoomIn}, remote: "w", want: Quit},
		{name: "signal beats keypress", signal: syscall.SIGUSR1, signals: true, key: []Code{ZoomIn}, want: Confirm},
		{name: "usr2 quits", signal: syscall.SIGUSR2, signals: true, want: Quit},
		{name: "signals disabled", signal: syscall.SIGUSR1, key: []Code{AfTrigger}, want: AfTrigger},
		{name: "keypress beats remote", key: []Code{FocusNear}, remote: "d", want: FocusNear},
		{name: "remote alone", remote: "m\n", want: ZoomMax},
		{name: "unmapped signal ignored", signal: syscall.SIGHUP, signals: true, remote: "r", want: ZoomReset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &SignalRegister{}
			if tt.interrupt {
				reg.Deliver(syscall.SIGINT)
			}
			if tt.signal != 0 {
				reg.Deliver(tt.signal)
			}
			m := New(Config{
				Register: reg,
				Signals:  tt.signals,
				Keypress: &stubSource{name: "keypress", codes: tt.key},
				Remote:   &stubRemote{line: tt.remote},
			})
			if got := m.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNew_SourceOrder(t *testing.T) {
	m := New(Config{
		Register: &SignalRegister{},
		Signals:  true,
		Keypress: &stubSource{name: "keypress"},
		Remote:   &stubRemote{},
	})
	got := strings.Join(m.Sources(), ",")
	if got != "interrupt,signal,keypress,remote" {
		t.Errorf("Sources() = %s", got)
	}
	if n := len(New(Config{}).Sources()); n != 0 {
		t.Errorf("empty config has %d sources", n)
	}
}

func TestSignalRegister_TakeClears(t *testing.T) {
	reg := &SignalRegister{}
	if reg.Take() != 0 {
		t.Fatal("fresh register not empty")
	}
	reg.Deliver(syscall.SIGUSR1)
	reg.Deliver(syscall.SIGUSR2)
	if got := reg.Take(); got != syscall.SIGUSR2 {
		t.Errorf("Take() = %v, want newest delivery", got)
	}
	if got := reg.Take(); got != 0 {
		t.Errorf("second Take() = %v, want 0", got)
	}
}

func TestSignalRegister_InterruptLatches(t *testing.T) {
	reg := &SignalRegister{}
	reg.Deliver(syscall.SIGINT)
	reg.Deliver(syscall.SIGUSR1)
	if !reg.Interrupted() {
		t.Fatal("interrupt lost")
	}
	src := &InterruptSource{Register: reg}
	for i := 0; i < 3; i++ {
		if src.Poll() != Quit {
			t.Fatal("interrupt should stay set")
		}
	}
	if reg.Take() != syscall.SIGUSR1 {
		t.Error("interrupt should not clobber pending signal")
	}
}

func TestSignalRegister_BrokenPipeLatches(t *testing.T) {
	reg := &SignalRegister{}
	reg.Deliver(syscall.SIGPIPE)
	if !reg.Interrupted() {
		t.Error("SIGPIPE should latch the interrupt")
	}
	if reg.Take() != 0 {
		t.Error("SIGPIPE should not be left pending")
	}
}

func TestSignalSource_CustomCodes(t *testing.T) {
	reg := &SignalRegister{}
	src := &SignalSource{Register: reg, Codes: map[syscall.Signal]Code{syscall.SIGUSR1: Confirm}}
	reg.Deliver(syscall.SIGUSR2)
	if got := src.Poll(); got != None {
		t.Errorf("SIGUSR2 without mapping = %v", got)
	}
	if reg.Take() != 0 {
		t.Error("unmapped signal should still be consumed")
	}
}

func pollUntil(t *testing.T, s Source) Code {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c := s.Poll(); c != None {
			return c
		}
		time.Sleep(time.Millisecond)
	}
	return None
}

func TestKeypressSource_OneLinePerPoll(t *testing.T) {
	s := NewKeypressSource(strings.NewReader("w\nq\n\nX"))
	for i, w := range []Code{ZoomIn, Confirm, Quit} {
		if got := pollUntil(t, s); got != w {
			t.Fatalf("command %d: got %v, want %v", i, got, w)
		}
	}
	if got := s.Poll(); got != None {
		t.Errorf("Poll() after EOF = %v", got)
	}
}

func TestKeypressSource_NonBlocking(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	s := NewKeypressSource(r)

	start := time.Now()
	if got := s.Poll(); got != None {
		t.Fatalf("Poll() = %v with no input", got)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Poll blocked")
	}

	go w.Write([]byte("f\n"))
	if got := pollUntil(t, s); got != AfTrigger {
		t.Errorf("Poll() = %v, want af-trigger", got)
	}
}
