package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"comms-service/internal/relay"
)

// RelayHandler serves short-lived NAT-traversal relay credentials.
type RelayHandler struct {
	issuer *relay.Issuer
}

// NewRelayHandler builds a RelayHandler.
func NewRelayHandler(issuer *relay.Issuer) *RelayHandler {
	return &RelayHandler{issuer: issuer}
}

// Credentials issues a credential for the caller. An optional ttl query
// parameter (seconds) shortens or extends the default lifetime.
func (h *RelayHandler) Credentials(c *gin.Context) {
	var ttl time.Duration
	if raw := c.Query("ttl"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl"})
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	c.JSON(http.StatusOK, h.issuer.Issue(c.GetInt("userID"), ttl))
}
