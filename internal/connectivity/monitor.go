// Package connectivity tracks whether the remote server is believed reachable.
package connectivity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vbonduro/washpos/internal/events"
	"github.com/vbonduro/washpos/internal/remote"
)

// Monitor holds the online flag. It never checks the server on its own after
// startup; the flag changes through Set (explicit online/offline signals) and
// Observe (results of calls the process makes anyway).
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
	logger *slog.Logger
}

func NewMonitor(initial bool, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{online: initial, subs: make(map[int]chan bool), logger: logger}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the new state and notifies subscribers when it changed.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	m.logger.Info("connectivity changed", "online", online)
	for _, ch := range m.subs {
		// Subscribers only care about the latest state; drop a stale one.
		select {
		case ch <- online:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- online
		}
	}
}

// Subscribe returns a channel receiving every transition and a function
// that cancels the subscription.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}
}

// Observe updates the flag from the outcome of a remote call. A nil error or
// any server response means online; an unreachable server means offline.
// Context cancellation says nothing about the server and is ignored.
func (m *Monitor) Observe(err error) {
	switch {
	case err == nil:
		m.Set(true)
	case errors.Is(err, remote.ErrUnreachable):
		if errors.Is(err, context.Canceled) {
			return
		}
		m.Set(false)
	default:
		var se *remote.StatusError
		if errors.As(err, &se) {
			m.Set(true)
		}
	}
}

// HealthChecker is implemented by remote.Client.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Reachable asks the server's health endpoint once and reports whether it
// answered 2xx. Used once at startup to seed the monitor.
func Reachable(ctx context.Context, hc HealthChecker, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return hc.Health(ctx) == nil
}

// Forward publishes every transition to pub until ctx is cancelled.
func (m *Monitor) Forward(ctx context.Context, pub events.Publisher) {
	ch, cancel := m.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case online := <-ch:
			msg := "Back online"
			if !online {
				msg = "You are offline"
			}
			pub.Publish(events.Event{Type: events.ConnectivityChange, Message: msg, Data: map[string]bool{"online": online}})
		}
	}
}
