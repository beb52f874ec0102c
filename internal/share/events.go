package share

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Event describes a transfer on the share session
type Event struct {
	Type      string    `json:"type"`
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub broadcasts transfer events to connected websocket clients.
// A single room is enough here; there is only one share session per process.
type EventHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewEventHub creates an empty hub
func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[*websocket.Conn]bool)}
}

// Broadcast sends an event to every connected client, dropping clients
// whose connection has failed.
func (h *EventHub) Broadcast(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *EventHub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *EventHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The share session is deliberately unauthenticated plain HTTP.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Share] Websocket upgrade failed: %v", err)
		return
	}

	s.hub.register(conn)
	defer s.hub.unregister(conn)

	// Clients only listen; drain control frames until they disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
