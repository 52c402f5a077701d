package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleTraceFeed upgrades to WebSocket and streams live trace events.
// An optional ?session= query parameter narrows the stream to one
// session; otherwise every session's events are delivered.
func (s *Server) handleTraceFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "feed_unavailable", "live trace feed is not enabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	filter := r.URL.Query().Get("session")
	s.log.Debug().Str("remote", r.RemoteAddr).Str("filter", filter).Msg("trace feed connected")

	events, cancel := s.feed.Subscribe()
	defer cancel()

	// Reader goroutine: the feed is one-way, reads only surface closes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case se, ok := <-events:
			if !ok {
				return
			}
			if filter != "" && se.SessionID != filter {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(se); err != nil {
				s.log.Debug().Err(err).Msg("trace feed write failed")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
