package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ProgressEvent is one backtest progress update pushed to dashboard
// clients.
type ProgressEvent struct {
	Done  int       `json:"done"`
	Total int       `json:"total"`
	Date  time.Time `json:"date"`
}

// ProgressHub fans backtest progress out to websocket subscribers.
// Slow or dead clients are dropped rather than allowed to stall the run.
type ProgressHub struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]bool
}

// NewProgressHub creates an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish sends the event to all connected clients.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			log.Debug().Err(err).Msg("dropping slow progress subscriber")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close disconnects all subscribers.
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *ProgressHub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	// Drain control frames; unregister when the client goes away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.mu.Lock()
				if h.clients[conn] {
					conn.Close()
					delete(h.clients, conn)
				}
				h.mu.Unlock()
				return
			}
		}
	}()
}
