package websocket

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ropacal-telemetry/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The dashboard is served from a different origin in development
		return true
	},
}

// SnapshotFunc returns the current records for an owner ("" = all)
type SnapshotFunc func(owner string) []models.BinTelemetryRecord

// HandleWebSocket upgrades the connection, sends the current snapshot
// immediately and then streams every broadcast. ?owner= restricts the
// stream to one owner's bins.
func HandleWebSocket(hub *Hub, snapshot SnapshotFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := r.URL.Query().Get("owner")

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(owner, conn, hub)

		if snapshot != nil {
			data, err := EncodeSnapshot(snapshot(owner))
			if err != nil {
				log.Printf("❌ Failed to encode initial snapshot: %v", err)
			} else {
				client.send <- data
			}
		}

		if !hub.add(client) {
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
