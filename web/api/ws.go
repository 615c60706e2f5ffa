package api

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope frames one event on the websocket
type wsEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// streamWS streams a run's events over a websocket. Each event is one
// text frame; the connection closes normally when the run's stream ends.
func (s *Server) streamWS(w http.ResponseWriter, r *http.Request, id string) {
	events, cancel, err := s.runs.Subscribe(id)
	if err != nil {
		writeError(w, controlStatus(err), err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		log.Printf("[api] upgrade failed: %v", err)
		return
	}

	go func() {
		defer cancel()
		defer conn.Close()

		// Read pump: drain client frames so close handshakes are seen
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
					conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
					return
				}
				if err := conn.WriteJSON(wsEnvelope{Type: string(ev.Kind()), Data: ev}); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						log.Printf("[api] write error: %v", err)
					}
					return
				}
			}
		}
	}()
}
