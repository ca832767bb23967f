package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Dias221467/connections-chat/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Hub is the in-process subscriber registry of the live channel. It tracks
// websocket sessions, the sessions of each principal and the conversation
// rooms those sessions joined. Nothing here is durable.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	userSessions map[string]map[string]*Connection // userID -> sessionID -> connection
	rooms        map[string]map[string]*Connection // conversationID -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of conversationIDs
}

func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]map[string]*Connection),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

var _ Publisher = (*Hub)(nil)

// Attach registers a connection and starts its writer.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	byUser := h.userSessions[conn.UserID]
	if byUser == nil {
		byUser = make(map[string]*Connection)
		h.userSessions[conn.UserID] = byUser
	}
	byUser[conn.ID] = conn
	h.mu.Unlock()

	conn.Start()
}

// Detach removes a connection and all of its room memberships.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// Subscribe adds the connection to the conversation room. It reports false
// when the connection is no longer attached.
func (h *Hub) Subscribe(conversationID string, conn *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[conn.ID]; !ok {
		return false
	}

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conversationID] = room
	}
	room[conn.ID] = conn

	memberships := h.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[conn.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
	return true
}

func (h *Hub) Unsubscribe(conversationID string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(conversationID, conn.ID)
	h.mu.Unlock()
}

// Publish delivers locally. It never fails on slow or absent subscribers.
func (h *Hub) Publish(_ context.Context, d Delivery) error {
	payload, err := json.Marshal(d.Event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", d.Event.Type, err)
	}
	delivered := h.deliver(d, payload)
	logger.Log.WithFields(logrus.Fields{
		"event":           d.Event.Type,
		"conversation_id": d.Event.ConversationID,
		"delivered":       delivered,
	}).Debug("Live event published")
	return nil
}

// SubscriberCount returns the number of sessions in the conversation room.
func (h *Hub) SubscriberCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.userSessions = make(map[string]map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (h *Hub) deliver(d Delivery, payload []byte) int {
	h.mu.RLock()
	targets := make(map[string]*Connection)
	for id, conn := range h.rooms[d.Event.ConversationID] {
		targets[id] = conn
	}
	for _, userID := range d.Recipients {
		for id, conn := range h.userSessions[userID] {
			targets[id] = conn
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if d.Exclude != "" && conn.UserID == d.Exclude {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if byUser, ok := h.userSessions[conn.UserID]; ok {
		delete(byUser, sessionID)
		if len(byUser) == 0 {
			delete(h.userSessions, conn.UserID)
		}
	}

	for roomID := range h.sessionRooms[sessionID] {
		h.leaveLocked(roomID, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(conversationID string, sessionID string) {
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
		if len(memberships) == 0 {
			delete(h.sessionRooms, sessionID)
		}
	}
}
