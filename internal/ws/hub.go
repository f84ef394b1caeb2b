// Package ws pushes reservation lifecycle events to connected admin
// dashboards. Connections are grouped by tenant; a dashboard only sees
// events for the tenant its token is scoped to.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// Event is one real-time message pushed to dashboards.
type Event struct {
	Type     string `json:"type"`
	ClientID string `json:"client_id"`
	Payload  any    `json:"payload,omitempty"`
}

type connection struct {
	clientID string
	conn     *websocket.Conn
	send     chan []byte
}

// Hub manages all active dashboard connections.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[*connection]struct{}),
	}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// Publish fans an event out to every connection of the tenant. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) Publish(clientID string, event string, payload any) {
	data, err := json.Marshal(Event{Type: event, ClientID: clientID, Payload: payload})
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if c.clientID != clientID {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ServeWS registers an upgraded connection and blocks until it drops.
func (h *Hub) ServeWS(conn *websocket.Conn, clientID string) {
	c := &connection{
		clientID: clientID,
		conn:     conn,
		send:     make(chan []byte, 64),
	}
	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Dashboards are receive-only; inbound frames keep the connection
	// alive and nothing else.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
