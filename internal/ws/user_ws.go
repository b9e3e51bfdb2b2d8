package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"comms-service/internal/calls"
	"comms-service/internal/directory"
	"comms-service/internal/models"
	"comms-service/internal/observability"
)

// UserSocketHandler upgrades the per-user connection that carries direct
// payloads: incoming call events, signaling frames, typing indicators and
// fresh notifications.
type UserSocketHandler struct {
	hub       *Hub
	directory *directory.Service
	calls     *calls.Manager
	jwtSecret string
}

// NewUserSocketHandler constructs a UserSocketHandler.
func NewUserSocketHandler(hub *Hub, dir *directory.Service, manager *calls.Manager, jwtSecret string) *UserSocketHandler {
	return &UserSocketHandler{hub: hub, directory: dir, calls: manager, jwtSecret: jwtSecret}
}

// inboundFrame is what clients write on the user socket. Typing frames carry a
// channel id; everything else addressed to a user is relayed as signaling.
type inboundFrame struct {
	Type      string          `json:"type"`
	ChannelID int             `json:"channel_id,omitempty"`
	To        int             `json:"to,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Handle upgrades the connection, registers it as the user's destination and
// pumps inbound frames until the connection closes.
func (h *UserSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("comms-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity, err := identityFromSocketRequest(c, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddUserClient(identity.UserID, conn, info)

	observability.IncWSActive("user")
	observability.IncWSEvent("user", "ws_connect")
	publishLifecycleEvent(ctx, "user", identity.UserID, info, "ws_connect", "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveUserClient(identity.UserID, conn)
			observability.DecWSActive("user")
			observability.IncWSEvent("user", "ws_disconnect")
			publishLifecycleEvent(ctx, "user", identity.UserID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("user", "ws_error")
					publishLifecycleEvent(ctx, "user", identity.UserID, info, "ws_error", closeReason)
				}
				return
			}
			h.dispatch(identity.UserID, raw)
		}
	}()
}

// dispatch routes an inbound frame. Typing is fire-and-forget with no
// durability; any other frame with an addressee is an opaque signaling payload
// relayed through the call manager. Malformed frames are dropped.
func (h *UserSocketHandler) dispatch(senderID int, raw []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}

	switch {
	case frame.Type == models.EventTyping && frame.ChannelID != 0:
		if err := h.directory.Authorize(context.Background(), frame.ChannelID, senderID, directory.ActionRead); err != nil {
			return
		}
		h.hub.BroadcastToChannel(frame.ChannelID, models.ChannelEvent{
			Type: models.EventTyping, ChannelID: frame.ChannelID, UserID: senderID,
		})
	case frame.To != 0:
		_ = h.calls.Relay(context.Background(), senderID, models.SignalFrame{
			Type: frame.Type, To: frame.To, Data: frame.Data,
		})
	}
}
