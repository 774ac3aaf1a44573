package http

import (
	"log"
	"net/http"

	"livequiz-service/internal/broadcast"

	"github.com/gorilla/websocket"
)

// WSHandler streams session events to connected clients. The stream is
// advisory: clients reconcile real state by re-fetching session status.
type WSHandler struct {
	broker   broadcast.Broker
	upgrader websocket.Upgrader
}

func NewWSHandler(broker broadcast.Broker) *WSHandler {
	return &WSHandler{
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards events for the session code
// in the query string until either side disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.broker.Subscribe(r.Context(), code)
	defer cancel()

	// Reader goroutine notices client disconnects; inbound content is
	// ignored, all requests go through the REST surface.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerGone:
			return
		}
	}
}
