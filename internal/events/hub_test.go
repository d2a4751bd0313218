package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub(4)
	a, cancelA := h.Subscribe()
	defer cancelA()
	b, cancelB := h.Subscribe()
	defer cancelB()

	h.Publish(Event{Type: SyncCompleted, Message: "Synced 2 records"})

	for _, ch := range []<-chan Event{a, b} {
		e := <-ch
		assert.Equal(t, SyncCompleted, e.Type)
		assert.False(t, e.At.IsZero())
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(Event{Type: "one"})
	h.Publish(Event{Type: "two"})

	assert.Equal(t, "one", (<-ch).Type)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe()
	require.Equal(t, 1, h.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Zero(t, h.Subscribers())

	h.Publish(Event{Type: "after"})
}
