package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"comms-service/internal/telemetry"
	"comms-service/internal/ws"
)

// RegisterDebugRoutes wires debug-only endpoints: a test emit for the audit
// pipeline and a live socket counters view.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, hub *ws.Hub, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), actorIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/sockets", func(c *gin.Context) {
		if hub == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hub not configured"})
			return
		}
		channelRooms, channelConns, userRooms, userConns := hub.Stats()
		c.JSON(http.StatusOK, gin.H{
			"channel_rooms":       channelRooms,
			"channel_connections": channelConns,
			"user_rooms":          userRooms,
			"user_connections":    userConns,
		})
	})
}
