package hub

import (
	"context"
	"testing"
	"time"
)

func startHub(t *testing.T, h *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	go h.Run(ctx)
	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !h.IsRunning() {
		t.Fatal("hub never started")
	}
}

// join registers a connectionless client so its send queue can be inspected.
// It returns once the hub has counted the client.
func join(h *Hub, queue int) *Client {
	before := h.ClientCount()
	c := &Client{hub: h, send: make(chan Message, queue)}
	h.register <- c
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m := <-c.send:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	return Message{}
}

func TestHub_RunStopsWithContext(t *testing.T) {
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c := join(h, 8)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	if h.IsRunning() {
		t.Error("hub still running after stop")
	}
	if _, ok := <-c.send; ok {
		t.Error("client queue not closed on stop")
	}
	if NewClient(h, nil, nil) != nil {
		t.Error("stopped hub accepted a client")
	}
}

func TestHub_FanOut(t *testing.T) {
	h := New("test")
	startHub(t, h)
	a, b := join(h, 8), join(h, 8)

	h.BroadcastBinary([]byte{7})
	for _, c := range []*Client{a, b} {
		if m := receive(t, c); m.Type != BinaryMessage || m.Data[0] != 7 {
			t.Errorf("received %+v", m)
		}
	}
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount = %d, want 2", h.ClientCount())
	}
}

func TestHub_RetainReplaysLast(t *testing.T) {
	h := New("status", WithRetain())
	startHub(t, h)

	// No clients yet: nothing is queued, but the message is kept.
	h.BroadcastJSON(map[string]int{"cycles": 1})
	h.BroadcastJSON(map[string]int{"cycles": 2})

	c := join(h, 8)
	if m := receive(t, c); m.Type != JSONMessage || string(m.Data) != `{"cycles":2}` {
		t.Errorf("replayed %+v", m)
	}
}

func TestHub_NoRetainByDefault(t *testing.T) {
	h := New("preview")
	startHub(t, h)
	h.BroadcastBinary([]byte{1})

	c := join(h, 8)
	select {
	case m := <-c.send:
		t.Errorf("late client received %+v", m)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	h := New("test")
	startHub(t, h)
	join(h, 0)

	h.BroadcastBinary([]byte{1})
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 0 {
		t.Error("slow client still registered")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("test")
	h.clients[&Client{send: make(chan Message, 1)}] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.BroadcastBinary([]byte{byte(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked without a running hub")
	}
	if h.Dropped() == 0 {
		t.Error("full queue dropped nothing")
	}
}

func TestHub_BroadcastJSONError(t *testing.T) {
	h := New("test")
	if err := h.BroadcastJSON(make(chan int)); err == nil {
		t.Error("unencodable value accepted")
	}
}

func TestMessages(t *testing.T) {
	if m := NewTextMessage("w"); m.Type != TextMessage || string(m.Data) != "w" {
		t.Errorf("text message = %+v", m)
	}
	if m := NewBinaryMessage([]byte{1}); m.Type != BinaryMessage {
		t.Errorf("binary message = %+v", m)
	}
}
