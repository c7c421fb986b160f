package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"tournament-ledger/internal/clock"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Heartbeat interval for version updates. Clients refetch status only
	// when the version changes, at most once per heartbeat.
	versionHeartbeatInterval = 2 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	messageTypeVersion = "VERSION_UPDATE"
)

// VersionSource reports how many times a tournament's standings changed
type VersionSource interface {
	GetLeaderboardVersion(ctx context.Context, tournamentID string) (int64, error)
}

// Client represents a WebSocket client connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts version changes of
// the current tournament to them
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	versions VersionSource
	clock    *clock.Clock

	mu sync.RWMutex

	// last broadcast state, owned by Run
	lastTournament string
	lastVersion    int64
}

// VersionUpdate represents the version heartbeat message
type VersionUpdate struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournamentId"`
	Version      int64  `json:"version"`
}

// NewHub creates a new WebSocket hub
func NewHub(versions VersionSource, c *clock.Clock) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		versions:   versions,
		clock:      c,
	}
}

// Run starts the WebSocket hub
func (h *Hub) Run(ctx context.Context) {
	log.Println("🚀 WebSocket Hub started")

	versionTicker := time.NewTicker(versionHeartbeatInterval)
	defer versionTicker.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("✅ Client connected (Total: %d)", total)

			h.sendInitialVersion(ctx, client)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			log.Printf("❌ Client disconnected (Total: %d)", total)

		case <-versionTicker.C:
			h.checkAndBroadcastVersion(ctx)

		case <-ctx.Done():
			log.Println("🛑 WebSocket Hub shutting down")
			return
		}
	}
}

func (h *Hub) currentVersion(ctx context.Context) (string, int64, error) {
	tournamentID := h.clock.CurrentTournamentID(h.clock.Now())
	version, err := h.versions.GetLeaderboardVersion(ctx, tournamentID)
	return tournamentID, version, err
}

// checkAndBroadcastVersion broadcasts when the version or the tournament changed
func (h *Hub) checkAndBroadcastVersion(ctx context.Context) {
	tournamentID, version, err := h.currentVersion(ctx)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard version: %v", err)
		return
	}

	if version == h.lastVersion && tournamentID == h.lastTournament {
		return
	}
	h.lastTournament = tournamentID
	h.lastVersion = version

	message, err := json.Marshal(VersionUpdate{
		Type:         messageTypeVersion,
		TournamentID: tournamentID,
		Version:      version,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal version update: %v", err)
		return
	}

	h.mu.RLock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Printf("⚠️ Client send buffer full, skipping")
		}
	}
	h.mu.RUnlock()
}

// sendInitialVersion sends the current version to a newly connected client
func (h *Hub) sendInitialVersion(ctx context.Context, client *Client) {
	tournamentID, version, err := h.currentVersion(ctx)
	if err != nil {
		log.Printf("❌ Failed to get initial version: %v", err)
		return
	}

	message, err := json.Marshal(VersionUpdate{
		Type:         messageTypeVersion,
		TournamentID: tournamentID,
		Version:      version,
	})
	if err != nil {
		log.Printf("❌ Failed to marshal initial version: %v", err)
		return
	}

	h.mu.RLock()
	_, exists := h.clients[client]
	h.mu.RUnlock()
	if !exists {
		return
	}

	select {
	case client.send <- message:
	case <-time.After(2 * time.Second):
		log.Println("⚠️ Timeout sending initial version - client may be slow")
	}
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains the connection until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("⚠️ WebSocket unexpected close: %v", err)
			}
			return
		}
		// client messages are ignored
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))

		w, err := c.conn.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)

		// Add queued messages to the current websocket message
		n := len(c.send)
		for i := 0; i < n; i++ {
			w.Write([]byte{'\n'})
			w.Write(<-c.send)
		}

		if err := w.Close(); err != nil {
			return
		}
	}

	// The hub closed the channel
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ServeWS handles WebSocket requests from clients
func ServeWS(hub *Hub, conn *websocket.Conn) {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	go client.writePump()

	// blocks until disconnect
	client.readPump()
}
