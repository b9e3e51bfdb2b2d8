package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/notify"
)

// NotificationHandler manages per-recipient notification endpoints.
type NotificationHandler struct {
	fanout *notify.Fanout
}

// NewNotificationHandler builds a NotificationHandler.
func NewNotificationHandler(fanout *notify.Fanout) *NotificationHandler {
	return &NotificationHandler{fanout: fanout}
}

// ListNotifications returns the caller's newest notifications.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.fanout.List(c.Request.Context(), c.GetInt("userID"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// UnreadCount returns the caller's unread total, optionally per building.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	var buildingID *int
	if raw := c.Query("building_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid building id"})
			return
		}
		buildingID = &id
	}

	count, err := h.fanout.UnreadCount(c.Request.Context(), c.GetInt("userID"), buildingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notificationID, err := strconv.ParseInt(c.Param("notification_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.fanout.MarkRead(c.Request.Context(), notificationID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.fanout.MarkAllRead(c.Request.Context(), c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
