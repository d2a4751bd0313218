// Package events fans out point-of-sale notifications to live listeners.
package events

import (
	"sync"
	"time"
)

// Event types.
const (
	SyncCompleted      = "sync.completed"
	SyncNothing        = "sync.nothing"
	SyncFailed         = "sync.failed"
	ConnectivityChange = "connectivity.changed"
)

type Event struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(Event)
}

// Hub delivers every published event to every subscriber. A subscriber
// that falls behind by more than its buffer loses events rather than
// blocking publishers.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer}
}

func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a listener. The returned function unregisters it and
// closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of registered listeners.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
