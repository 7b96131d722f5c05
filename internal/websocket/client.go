package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	sendBufferSize = 64
)

// Client represents a WebSocket client connection
type Client struct {
	ID   string
	conn *websocket.Conn
	hub  *Hub
	send chan []byte

	mu    sync.RWMutex
	owner string
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type    string `json:"type"`
	OwnerID string `json:"owner_id,omitempty"`
}

// NewClient creates a client that only receives records for owner
// (all records when owner is empty).
func NewClient(owner string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:    uuid.NewString(),
		conn:  conn,
		hub:   hub,
		send:  make(chan []byte, sendBufferSize),
		owner: owner,
	}
}

// Owner returns the client's current owner filter
func (c *Client) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

func (c *Client) setOwner(owner string) {
	c.mu.Lock()
	c.owner = owner
	c.mu.Unlock()
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			response, _ := json.Marshal(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Format(time.RFC3339),
			})
			c.queue(response)

		case "subscribe":
			// takes effect from the next snapshot
			c.setOwner(msg.OwnerID)
			log.Printf("🔄 [WEBSOCKET] Client %s now following owner %q", c.ID, msg.OwnerID)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one frame per message so every frame is a complete JSON document
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// queue sends without blocking; the read loop must never stall on a
// slow writer.
func (c *Client) queue(data []byte) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
