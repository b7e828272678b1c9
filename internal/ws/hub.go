package ws

import "sync"

// Hub indexes live clients by room subscription and by user. Broadcast
// ordering is scoped to a room: frames for one room reach its subscribers in
// the order they are broadcast, and nothing is guaranteed across rooms.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{} // roomID -> subscribed clients
	byUser map[string]map[*Client]struct{} // userID -> that user's clients
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		byUser: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.byUser[c.UserID]; !ok {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

// RemoveClient drops the client from the user index and every room. Room
// subscriptions die with the connection; nothing else is torn down.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.byUser[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	for roomID, set := range h.rooms {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Subscribe(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

func (h *Hub) Subscribed(roomID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][c]
	return ok
}

// BroadcastToRoom fans a frame out to every client subscribed to the room,
// including all of the sender's own connections.
func (h *Hub) BroadcastToRoom(roomID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.Enqueue(msg)
	}
}

// BroadcastToRoomExcept skips one connection; used for typing indicators,
// which are never echoed back to their origin.
func (h *Hub) BroadcastToRoomExcept(roomID string, except *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		if c == except {
			continue
		}
		c.Enqueue(msg)
	}
}

// SendToUser reaches every connection a user currently has.
func (h *Hub) SendToUser(userID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		c.Enqueue(msg)
	}
}
