package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"nexus.dev/research-console/internal/logging"
)

const eventWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler streams the session's phase, agent, log and message events
// over a websocket until either side closes it.
func (h *APIHandler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	// Subscribe before the handshake completes so no event after connect is missed.
	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("WebSocket upgrade failed for session %s: %v", sess.ID, err)
		return
	}
	defer conn.Close()

	// Clients only send control frames; a read error means they left.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				logging.Debugf("WebSocket write failed for session %s: %v", sess.ID, err)
				return
			}
		}
	}
}
