package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-picam/internal/log"
)

// Option configures a Hub.
type Option func(*Hub)

// WithRetain keeps the last broadcast message and sends it to every client
// as it joins, so a status subscriber never starts empty.
func WithRetain() Option {
	return func(h *Hub) { h.retain = true }
}

// Hub tracks connected websocket clients of one topic and fans messages out
// to them. A client that cannot keep up is disconnected rather than slowing
// the publisher.
type Hub struct {
	name   string
	retain bool

	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	last    *Message
	running atomic.Bool
	dropped atomic.Uint64
}

// New creates a hub for the named topic.
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		name:       name,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c, "websocket client disconnected")
		case msg := <-h.broadcast:
			h.fanout(msg)
		}
	}
}

func (h *Hub) stop() {
	h.running.Store(false)
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	close(h.done)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- *h.last
	}
	count := len(h.clients)
	h.mu.Unlock()
	log.Info("websocket client connected", "hub", h.name, "clients", count)
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	log.Info(reason, "hub", h.name, "clients", count)
}

func (h *Hub) fanout(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			close(c.send)
			log.Warn("dropped slow websocket client", "hub", h.name)
		}
	}
}

// Broadcast queues msg for every client and never blocks. With no clients it
// only updates the retained message.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	if h.retain {
		h.last = &msg
	}
	idle := len(h.clients) == 0
	h.mu.Unlock()
	if idle {
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		log.Debug("broadcast queue full, message dropped", "hub", h.name)
	}
}

// BroadcastJSON encodes v and broadcasts it.
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts a binary payload such as a JPEG frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped counts messages lost to a full broadcast queue.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning reports whether Run is serving.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
