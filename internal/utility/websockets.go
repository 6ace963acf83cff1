package utility

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow CORS for development
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub holds the active connection of each session: map[sessionID] -> client.
// Push never blocks; a client that cannot keep up is dropped.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*wsClient
}

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*wsClient)}
}

// RegisterClient attaches conn to sessionID, replacing any older tab's
// connection, and starts its writer.
func (h *Hub) RegisterClient(sessionID string, conn *websocket.Conn) {
	c := &wsClient{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if old, ok := h.clients[sessionID]; ok {
		close(old.send)
	}
	h.clients[sessionID] = c
	h.mu.Unlock()

	go c.writePump()
	log.Info().Str("session_id", sessionID).Msg("WebSocket Client Connected")
}

// UnregisterClient removes conn if it is still the session's current client.
func (h *Hub) UnregisterClient(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[sessionID]; ok && c.conn == conn {
		close(c.send)
		delete(h.clients, sessionID)
		log.Info().Str("session_id", sessionID).Msg("WebSocket Client Disconnected")
	}
}

// Push sends v as JSON to the session's client, if one is connected.
func (h *Hub) Push(sessionID string, v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode WS message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[sessionID]
	if !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
		log.Warn().Str("session_id", sessionID).Msg("WS client too slow, removing client")
		close(c.send)
		delete(h.clients, sessionID)
	}
}

// Len reports the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Error().Err(err).Msg("Failed to send WS message")
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}
