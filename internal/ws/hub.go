package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"comms-service/internal/models"
	"comms-service/internal/observability"
)

// Hub is the live fan-out bus. It tracks subscriptions per channel plus a
// per-user destination for direct payloads such as call signaling. Delivery is
// at-most-once and best-effort: a failed write closes and drops the
// connection, never the publishing write path.
type Hub struct {
	channelRooms map[int]map[*websocket.Conn]bool
	userRooms    map[int]map[*websocket.Conn]bool
	channelInfo  map[int]map[*websocket.Conn]ConnInfo
	userInfo     map[int]map[*websocket.Conn]ConnInfo
	mu           sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		channelRooms: make(map[int]map[*websocket.Conn]bool),
		userRooms:    make(map[int]map[*websocket.Conn]bool),
		channelInfo:  make(map[int]map[*websocket.Conn]ConnInfo),
		userInfo:     make(map[int]map[*websocket.Conn]ConnInfo),
	}
}

// Subscribe registers a connection's interest in a channel.
func (h *Hub) Subscribe(channelID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.channelRooms[channelID]; !ok {
		h.channelRooms[channelID] = make(map[*websocket.Conn]bool)
	}
	h.channelRooms[channelID][conn] = true
	if _, ok := h.channelInfo[channelID]; !ok {
		h.channelInfo[channelID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.channelInfo[channelID][conn] = info
}

// Unsubscribe removes a connection from a channel room.
func (h *Hub) Unsubscribe(channelID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.channelRooms[channelID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.channelRooms, channelID)
		}
	}
	if infos, ok := h.channelInfo[channelID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.channelInfo, channelID)
		}
	}
}

// AddUserClient registers a connection as a direct destination for a user.
func (h *Hub) AddUserClient(userID int, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userRooms[userID]; !ok {
		h.userRooms[userID] = make(map[*websocket.Conn]bool)
	}
	h.userRooms[userID][conn] = true
	if _, ok := h.userInfo[userID]; !ok {
		h.userInfo[userID] = make(map[*websocket.Conn]ConnInfo)
	}
	h.userInfo[userID][conn] = info
}

// RemoveUserClient removes a user's direct connection.
func (h *Hub) RemoveUserClient(userID int, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userRooms[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userRooms, userID)
		}
	}
	if infos, ok := h.userInfo[userID]; ok {
		delete(infos, conn)
		if len(infos) == 0 {
			delete(h.userInfo, userID)
		}
	}
}

// BroadcastToChannel pushes an event to every live subscriber of the channel.
func (h *Hub) BroadcastToChannel(channelID int, event models.ChannelEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.channelRooms[channelID]))
	for conn := range h.channelRooms[channelID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.Unsubscribe(channelID, conn)
			h.publishWSError("channel", channelID, conn, err)
			observability.IncBroadcastDropped("channel")
		}
	}
}

// SendToUser pushes an event to every live direct connection of the user.
// Offline users simply miss the event.
func (h *Hub) SendToUser(userID int, event models.UserEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.userRooms[userID]))
	for conn := range h.userRooms[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	payload, _ := json.Marshal(event)
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.Close()
			h.RemoveUserClient(userID, conn)
			h.publishWSError("user", userID, conn, err)
			observability.IncBroadcastDropped("user")
		}
	}
}

// DropUserFromChannel closes and removes every connection the user holds in a
// channel room. Called when a membership is deactivated: delivery to the
// removed member stops immediately, an open socket does not outlive the
// roster row.
func (h *Hub) DropUserFromChannel(channelID, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	infos := h.channelInfo[channelID]
	for conn, info := range infos {
		if info.UserID != userID {
			continue
		}
		conn.Close()
		delete(h.channelRooms[channelID], conn)
		delete(infos, conn)
	}
	if len(h.channelRooms[channelID]) == 0 {
		delete(h.channelRooms, channelID)
	}
	if len(infos) == 0 {
		delete(h.channelInfo, channelID)
	}
}

// DropChannel closes every connection subscribed to the channel and removes
// the room. Called after a channel is closed.
func (h *Hub) DropChannel(channelID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.channelRooms[channelID] {
		conn.Close()
	}
	delete(h.channelRooms, channelID)
	delete(h.channelInfo, channelID)
}

// Stats reports live room and connection counts for the debug surface.
func (h *Hub) Stats() (channelRooms, channelConns, userRooms, userConns int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	channelRooms = len(h.channelRooms)
	userRooms = len(h.userRooms)
	for _, conns := range h.channelRooms {
		channelConns += len(conns)
	}
	for _, conns := range h.userRooms {
		userConns += len(conns)
	}
	return
}

func (h *Hub) publishWSError(kind string, resourceID int, conn *websocket.Conn, err error) {
	info, ok := h.getConnInfo(kind, resourceID, conn)
	if !ok {
		return
	}

	payload := observability.SocketLifecyclePayload{
		Socket: observability.SocketInfo{
			Kind:       kind,
			ResourceID: resourceID,
			Event:      "ws_error",
			ConnID:     info.ConnID,
			DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
			Reason:     err.Error(),
		},
		Identity: observability.SocketIdentity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func (h *Hub) getConnInfo(kind string, resourceID int, conn *websocket.Conn) (ConnInfo, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if kind == "channel" {
		if infos, ok := h.channelInfo[resourceID]; ok {
			info, exists := infos[conn]
			return info, exists
		}
		return ConnInfo{}, false
	}
	if infos, ok := h.userInfo[resourceID]; ok {
		info, exists := infos[conn]
		return info, exists
	}
	return ConnInfo{}, false
}

func wsRoutingKey(kind string) string {
	if kind == "user" {
		return "ws_events.users"
	}
	return "ws_events.channels"
}
