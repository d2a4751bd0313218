package connectivity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/washpos/internal/events"
	"github.com/vbonduro/washpos/internal/remote"
)

func TestMonitorSetNotifiesOnTransition(t *testing.T) {
	m := NewMonitor(false, nil)
	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(false)
	select {
	case <-ch:
		t.Fatal("no transition expected")
	default:
	}

	m.Set(true)
	require.True(t, m.Online())
	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("expected notification")
	}
}

func TestMonitorSlowSubscriberGetsLatest(t *testing.T) {
	m := NewMonitor(false, nil)
	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(true)
	m.Set(false)
	m.Set(true)

	assert.True(t, <-ch)
	select {
	case <-ch:
		t.Fatal("only the latest state should be buffered")
	default:
	}
}

func TestMonitorUnsubscribe(t *testing.T) {
	m := NewMonitor(true, nil)
	ch, cancel := m.Subscribe()
	cancel()
	cancel()

	m.Set(false)
	select {
	case <-ch:
		t.Fatal("cancelled subscriber was notified")
	default:
	}
}

func TestMonitorObserve(t *testing.T) {
	m := NewMonitor(true, nil)

	m.Observe(fmt.Errorf("post: %w", remote.ErrUnreachable))
	assert.False(t, m.Online())

	m.Observe(&remote.StatusError{Code: http.StatusBadRequest, Message: "bad"})
	assert.True(t, m.Online())

	m.Observe(fmt.Errorf("%w: %w", remote.ErrUnreachable, context.Canceled))
	assert.True(t, m.Online())

	m.Set(false)
	m.Observe(errors.New("decode failed"))
	assert.False(t, m.Online())

	m.Observe(nil)
	assert.True(t, m.Online())
}

func TestReachable(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()

	assert.True(t, Reachable(context.Background(), remote.NewClient(ok.URL, time.Second), time.Second))
	assert.False(t, Reachable(context.Background(), remote.NewClient(down.URL, time.Second), time.Second))
	assert.False(t, Reachable(context.Background(), remote.NewClient("http://127.0.0.1:1", time.Second), time.Second))
}

func TestMonitorForward(t *testing.T) {
	m := NewMonitor(true, nil)
	hub := events.NewHub(4)
	ch, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Forward(ctx, hub)
	}()

	require.Eventually(t, func() bool {
		m.Set(false)
		m.Set(true)
		select {
		case e := <-ch:
			return e.Type == events.ConnectivityChange
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
