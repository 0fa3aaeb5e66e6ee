package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const eventsWriteTimeout = 10 * time.Second

// handleEventsWS streams speech task events to the client until it
// disconnects. Client messages are ignored.
func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("events: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := r.events.Subscribe()
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					r.logger.Printf("events: read error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-req.Context().Done():
			return
		case e := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteJSON(e); err != nil {
				r.logger.Printf("events: write error: %v", err)
				return
			}
		}
	}
}
