package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ropacal-telemetry/internal/models"
)

// MessageTypeSnapshot tags every telemetry push
const MessageTypeSnapshot = "telemetry_snapshot"

// Message is the envelope written to clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains active WebSocket connections and pushes telemetry
// snapshots to them. It implements broadcast.Subscriber.
type Hub struct {
	// Registered clients (client ID -> Client)
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Mutex for thread-safe client map access
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes
// every remaining client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			log.Println("⏹️  [WEBSOCKET] Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   Client ID: %s", client.ID)
			log.Printf("   Owner filter: %q", client.Owner())
			log.Printf("   Total connected clients: %d", count)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (remaining: %d)", client.ID, len(h.clients))
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Notify pushes snapshot to every client, filtered by the client's
// owner when it has one. Clients with a full buffer miss this push.
func (h *Hub) Notify(snapshot []models.BinTelemetryRecord) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return nil
	}

	// encode once per distinct owner filter
	encoded := make(map[string][]byte)
	for _, client := range h.clients {
		owner := client.Owner()
		data, ok := encoded[owner]
		if !ok {
			var err error
			data, err = EncodeSnapshot(FilterByOwner(snapshot, owner))
			if err != nil {
				return err
			}
			encoded[owner] = data
		}

		select {
		case client.send <- data:
		default:
			log.Printf("⚠️ [WEBSOCKET] Client buffer full, skipping: %s", client.ID)
		}
	}
	return nil
}

// EncodeSnapshot builds the telemetry_snapshot envelope
func EncodeSnapshot(records []models.BinTelemetryRecord) ([]byte, error) {
	if records == nil {
		records = []models.BinTelemetryRecord{}
	}
	return json.Marshal(Message{Type: MessageTypeSnapshot, Data: records})
}

// FilterByOwner keeps records for owner; an empty owner keeps all
func FilterByOwner(records []models.BinTelemetryRecord, owner string) []models.BinTelemetryRecord {
	if owner == "" {
		return records
	}
	out := make([]models.BinTelemetryRecord, 0, len(records))
	for _, r := range records {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	return out
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetConnectedClientIDs returns the IDs of connected clients
func (h *Hub) GetConnectedClientIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
