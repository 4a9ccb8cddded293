// websocket.go - Event push to the presentation layer
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/compliance-checker/backend/internal/orchestrator"
)

// Server -> client message types.
const (
	MsgTypeConnected = "connected"
	MsgTypeEvent     = "event"
	MsgTypePong      = "pong"
)

// Client -> server message types.
const (
	MsgTypePing = "ping"
)

// WSMessage is the envelope for every websocket message.
type WSMessage struct {
	Type      string              `json:"type"`
	Event     *orchestrator.Event `json:"event,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

// wsClient wraps a connection with a write lock; gorilla connections allow
// only one concurrent writer.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) send(msg WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(msg)
}

// WebSocketHandler broadcasts orchestrator events to connected clients.
type WebSocketHandler struct {
	upgrader  websocket.Upgrader
	clientsMu sync.RWMutex
	clients   map[*wsClient]struct{}
}

// NewWebSocketHandler creates the event push handler. Wire it to the
// controller with handler.Broadcast as a listener.
func NewWebSocketHandler() *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The presentation runs on a different origin in development.
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// HandleEvents upgrades the connection and keeps it subscribed until the
// client disconnects.
func (h *WebSocketHandler) HandleEvents(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &wsClient{conn: ws}
	h.clientsMu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.clientsMu.Unlock()
	fmt.Printf("[WebSocket] Client connected (%d active)\n", count)

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, client)
		h.clientsMu.Unlock()
		ws.Close()
		fmt.Println("[WebSocket] Client disconnected")
	}()

	client.send(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			return nil
		}
		if msg.Type == MsgTypePing {
			client.send(WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()})
		}
	}
}

// Broadcast pushes an orchestrator event to every connected client. Safe to
// call from the orchestrator's mutating goroutine; slow clients are dropped.
func (h *WebSocketHandler) Broadcast(ev orchestrator.Event) {
	msg := WSMessage{Type: MsgTypeEvent, Event: &ev, Timestamp: time.Now().UnixMilli()}

	h.clientsMu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMu.RUnlock()

	for _, client := range clients {
		if err := client.send(msg); err != nil {
			h.clientsMu.Lock()
			delete(h.clients, client)
			h.clientsMu.Unlock()
			client.conn.Close()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}
