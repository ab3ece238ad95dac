package websocket

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub maintains the set of active clients and pushes read-model updates to
// them as the indexer projects new records.
type Hub struct {
	// Registered clients map: ClientID -> Client
	clients map[string]*Client

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex
}

// RecordMessage is pushed whenever the indexer projects a new record
type RecordMessage struct {
	Type   string      `json:"type"`
	Kind   string      `json:"kind"`
	Record interface{} `json:"record"`
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			log.Printf("🔌 Trace client connected: %s", client.ID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.send)
				log.Printf("🔌 Trace client disconnected: %s", client.ID)
			}
			h.mu.Unlock()
		}
	}
}

// RecordIndexed satisfies the indexer's Notifier: a freshly projected record
// is fanned out to every connected client.
func (h *Hub) RecordIndexed(kind string, payload interface{}) {
	h.Broadcast(RecordMessage{
		Type:   "record_indexed",
		Kind:   kind,
		Record: payload,
	})
}

// Broadcast sends a message to all connected clients. Slow clients are
// dropped rather than blocking the hub.
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("⚠️ WS broadcast marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		select {
		case client.send <- data:
		default:
			log.Printf("⚠️ WS client %s not keeping up, dropping message", id)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
