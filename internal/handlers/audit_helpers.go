package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// actorIDFromContext resolves the acting resident for audit records. Falls
// back to the X-User-ID header for routes outside the auth middleware.
func actorIDFromContext(c *gin.Context) *int64 {
	if id := c.GetInt("userID"); id != 0 {
		value := int64(id)
		return &value
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil && parsed != 0 {
			return &parsed
		}
	}

	return nil
}
