package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"comms-service/internal/models"
)

// respondError maps the shared error taxonomy onto HTTP statuses. Unknown
// errors become opaque 500s so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotAMember),
		errors.Is(err, models.ErrNotOwner),
		errors.Is(err, models.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvariantViolation),
		errors.Is(err, models.ErrInvalidCallState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
