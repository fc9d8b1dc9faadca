package realtime

import (
	"encoding/json"
	"sync"

	"github.com/arnold/studyplans-api/internal/logging"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Event types sent over WebSocket
const (
	EventMemberJoined   = "member_joined"
	EventMemberLeft     = "member_left"
	EventPlanApplied    = "plan_applied"
	EventPlanStarted    = "plan_started"
	EventPlanEnded      = "plan_ended"
	EventThreadCreated  = "thread_created"
	EventBlockCompleted = "block_completed"
)

// Event is the JSON message sent to connected clients
type Event struct {
	Type    string      `json:"type"`
	GroupID string      `json:"groupId"`
	UserID  string      `json:"userId"`
	Data    interface{} `json:"data,omitempty"`
}

// connection wraps a websocket connection with its user ID
type connection struct {
	conn   *websocket.Conn
	userID uuid.UUID
}

// Hub manages WebSocket connections per group
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*connection]bool // groupID -> set of connections
}

// WS is the global hub instance
var WS = &Hub{
	rooms: make(map[uuid.UUID]map[*connection]bool),
}

// Join adds a websocket connection to a group room and returns a leave
// func the caller must defer.
func (h *Hub) Join(groupID, userID uuid.UUID, conn *websocket.Conn) func() {
	c := &connection{conn: conn, userID: userID}
	h.mu.Lock()
	if h.rooms[groupID] == nil {
		h.rooms[groupID] = make(map[*connection]bool)
	}
	h.rooms[groupID][c] = true
	total := len(h.rooms[groupID])
	h.mu.Unlock()
	logging.L.Infow("ws join", "user", userID, "group", groupID, "total", total)

	return func() {
		h.mu.Lock()
		if conns, ok := h.rooms[groupID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.rooms, groupID)
			}
		}
		h.mu.Unlock()
		logging.L.Infow("ws leave", "user", userID, "group", groupID)
	}
}

// Broadcast sends an event to all connections in a group room,
// excluding the sender
func (h *Hub) Broadcast(groupID uuid.UUID, excludeUserID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, ok := h.rooms[groupID]
	if !ok {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		logging.L.Errorw("ws broadcast marshal", "err", err)
		return
	}

	for c := range conns {
		// Don't send to the user who triggered the event
		if c.userID == excludeUserID {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logging.L.Warnw("ws write", "err", err)
		}
	}
}
