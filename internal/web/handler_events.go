package web

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/vbonduro/washpos/internal/events"
)

const eventWriteTimeout = 5 * time.Second

// handleEvents streams hub events to a websocket client until either side
// goes away. Client messages are ignored.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()
	ctx := conn.CloseRead(r.Context())

	hello := events.Event{
		Type:    events.ConnectivityChange,
		Message: "connected",
		Data:    map[string]bool{"online": s.service.Online()},
		At:      time.Now().UTC(),
	}
	if err := s.writeEvent(ctx, conn, hello); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := s.writeEvent(ctx, conn, e); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, e events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}
