package adminapi

import (
	"encoding/json"
	"sync"
	"time"
)

// EventKind labels the four scheduler/agent lifecycle events the admin
// websocket stream announces (spec.md's adminapi §4.17).
type EventKind string

const (
	EventTaskStart      EventKind = "task_start"
	EventTaskEnd        EventKind = "task_end"
	EventAgentCreated   EventKind = "agent_created"
	EventAgentDisposed  EventKind = "agent_disposed"
)

// Event is one admin-stream notification.
type Event struct {
	Kind      EventKind `json:"kind"`
	AgentID   string    `json:"agent_id,omitempty"`
	Priority  string    `json:"priority,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans a stream of Events out to every connected websocket client. A
// client whose buffer is full misses that message (the client stays
// subscribed) rather than being allowed to block Publish — the stream is best-effort telemetry, not a delivery-guaranteed
// channel.
type Hub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Publish marshals evt and fans it out to every subscriber.
func (h *Hub) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c <- payload:
		default:
			// Slow subscriber; drop this message rather than block Publish.
		}
	}
}

// subscribe registers a new client channel and returns an unsubscribe func.
func (h *Hub) subscribe() (chan []byte, func()) {
	c := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	return c, func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c)
	}
}

// Subscribers reports how many clients currently have the stream open.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
