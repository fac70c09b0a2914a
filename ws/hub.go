package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Envelope is the wire shape of every outbound message: a type discriminator
// plus the payload.
type Envelope struct {
	Type    string `json:"type"`
	Message any    `json:"message,omitempty"`
}

// InboundEnvelope is the same shape for messages arriving from clients, with
// the payload left undecoded until the type is known.
type InboundEnvelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// Hub fans messages out to rooms of connected clients. Rooms are created on
// first join and dropped when the last client leaves. The hub knows nothing
// about what the rooms mean; receptions, arenas and user notification
// channels all map onto rooms by name.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
}

func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, roomID)
	}
}

// BroadcastToRoom sends an enveloped message to every client in the room.
// Slow clients are skipped rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomID string, eventType string, message any) {
	data, err := json.Marshal(Envelope{Type: eventType, Message: message})
	if err != nil {
		log.Printf("ws: marshal broadcast for room %s: %v", roomID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(data)
	}
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
