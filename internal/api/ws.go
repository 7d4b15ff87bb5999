package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// The control surface is reachable only via the owner-restricted socket
	// or an explicitly configured listener, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleEvents upgrades to a WebSocket and streams bus events as JSON until
// the client goes away. The stream is one-directional; inbound frames are
// read only to detect disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("events upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	id, ch := s.bus.Subscribe(64)
	defer s.bus.Unsubscribe(id)
	slog.Debug("event stream attached", "subscriber", id)

	// Reader: unblocks on client disconnect; control frames are handled
	// inside ReadMessage.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("event stream write failed", "err", err)
				return
			}
		}
	}
}
