package loop

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-picam/pkg/camera"
	"github.com/teslashibe/go-picam/pkg/command"
	"github.com/teslashibe/go-picam/pkg/pipeline"
)

// maxWaits stops a runaway test loop.
const maxWaits = 10000

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// mockPipeline records every call and replays scripted events.
type mockPipeline struct {
	mu       sync.Mutex
	calls    []string
	waits    int
	stream   pipeline.Stream
	controls []camera.ControlSet
	crops    []camera.Crop
	saved    []*pipeline.Frame

	// event returns the type for the nth Wait (1-based). Defaults to FrameReady.
	event func(n int) pipeline.EventType
	// onWait runs before each Wait returns.
	onWait func(n int)
	waitErr error
	// encodeErr returns the error for the nth EncodeBuffer (1-based).
	encodeErr func(n int) error
	encodes   int
}

func (m *mockPipeline) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

func (m *mockPipeline) count(call string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

// tail returns the last n calls joined with commas.
func (m *mockPipeline) tail(n int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.calls) {
		n = len(m.calls)
	}
	return strings.Join(m.calls[len(m.calls)-n:], ",")
}

func (m *mockPipeline) OpenCamera() error { m.record("open"); return nil }

func (m *mockPipeline) ConfigureViewfinder() error {
	m.record("configure-viewfinder")
	m.stream = pipeline.StreamViewfinder
	return nil
}

func (m *mockPipeline) ConfigureStill() error {
	m.record("configure-still")
	m.stream = pipeline.StreamStill
	return nil
}

func (m *mockPipeline) ConfigureVideo(pipeline.VideoFlags) error {
	m.record("configure-video")
	m.stream = pipeline.StreamVideo
	return nil
}

func (m *mockPipeline) StartCamera() error { m.record("start-camera"); return nil }
func (m *mockPipeline) StopCamera() error  { m.record("stop-camera"); return nil }
func (m *mockPipeline) Teardown() error    { m.record("teardown"); return nil }

func (m *mockPipeline) Wait(ctx context.Context) (pipeline.Event, error) {
	m.waits++
	n := m.waits
	if m.onWait != nil {
		m.onWait(n)
	}
	if m.waitErr != nil {
		return pipeline.Event{}, m.waitErr
	}
	if n > maxWaits {
		return pipeline.Event{Type: pipeline.Quit}, nil
	}
	t := pipeline.FrameReady
	if m.event != nil {
		t = m.event(n)
	}
	ev := pipeline.Event{Type: t}
	if t == pipeline.FrameReady {
		ev.Frame = &pipeline.Frame{Seq: uint64(n), Stream: m.stream}
	}
	return ev, nil
}

func (m *mockPipeline) SetControls(cs camera.ControlSet) error {
	m.record("set-controls")
	m.controls = append(m.controls, cs)
	return nil
}

func (m *mockPipeline) SetScalerCrop(c camera.Crop) error {
	m.record("set-crop")
	m.crops = append(m.crops, c)
	return nil
}

func (m *mockPipeline) ShowPreview(*pipeline.Frame, pipeline.Stream) error {
	m.record("preview")
	return nil
}

func (m *mockPipeline) StartEncoder() error { m.record("start-encoder"); return nil }
func (m *mockPipeline) StopEncoder() error  { m.record("stop-encoder"); return nil }

func (m *mockPipeline) EncodeBuffer(*pipeline.Frame, pipeline.Stream) error {
	m.record("encode")
	m.encodes++
	if m.encodeErr != nil {
		return m.encodeErr(m.encodes)
	}
	return nil
}

func (m *mockPipeline) SaveStill(f *pipeline.Frame) error {
	m.record("save")
	m.saved = append(m.saved, f)
	return nil
}

var _ pipeline.Full = (*mockPipeline)(nil)

// scriptResolver returns cmds[n] on the nth Resolve (1-based).
type scriptResolver struct {
	cmds  map[int]command.Code
	calls int
}

func (s *scriptResolver) Resolve() command.Code {
	s.calls++
	return s.cmds[s.calls]
}

type countingToggler struct{ n int }

func (t *countingToggler) Signal() { t.n++ }

type recordingStatus struct {
	last  Status
	count int
}

func (r *recordingStatus) UpdateStatus(s Status) {
	r.last = s
	r.count++
}
