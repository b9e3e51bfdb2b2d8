package ws

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"comms-service/internal/directory"
	"comms-service/internal/middleware"
	"comms-service/internal/models"
	"comms-service/internal/observability"
)

// ChannelSocketHandler upgrades subscriber connections for a single channel.
type ChannelSocketHandler struct {
	hub       *Hub
	directory *directory.Service
	jwtSecret string
}

// NewChannelSocketHandler constructs a ChannelSocketHandler.
func NewChannelSocketHandler(hub *Hub, dir *directory.Service, jwtSecret string) *ChannelSocketHandler {
	return &ChannelSocketHandler{hub: hub, directory: dir, jwtSecret: jwtSecret}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authorizes the caller for the channel, upgrades the connection and
// keeps it subscribed until it closes.
func (h *ChannelSocketHandler) Handle(c *gin.Context) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return
	}

	ctx, span := otel.Tracer("comms-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	identity, err := identityFromSocketRequest(c, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if err := h.directory.Authorize(ctx, channelID, identity.UserID, directory.ActionRead); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for channel"})
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
	h.hub.Subscribe(channelID, conn, info)

	observability.IncWSActive("channel")
	observability.IncWSEvent("channel", "ws_connect")
	publishLifecycleEvent(ctx, "channel", channelID, info, "ws_connect", "")

	go func() {
		var closeReason string
		defer func() {
			h.hub.Unsubscribe(channelID, conn)
			observability.DecWSActive("channel")
			observability.IncWSEvent("channel", "ws_disconnect")
			publishLifecycleEvent(ctx, "channel", channelID, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("channel", "ws_error")
					publishLifecycleEvent(ctx, "channel", channelID, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}

// identityFromSocketRequest accepts the bearer header or, for browser clients
// that cannot set headers on websocket dials, a token query parameter.
func identityFromSocketRequest(c *gin.Context, secret string) (models.Identity, error) {
	token := ""
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		token = parts[1]
	} else {
		token = c.Query("token")
	}
	if token == "" {
		return models.Identity{}, errors.New("missing token")
	}
	return middleware.ParseToken(secret, token)
}
