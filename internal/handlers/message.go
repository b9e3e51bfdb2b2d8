package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/messagelog"
	"comms-service/internal/models"
)

// MessageHandler manages message log endpoints.
type MessageHandler struct {
	log *messagelog.Service
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(log *messagelog.Service) *MessageHandler {
	return &MessageHandler{log: log}
}

// PostMessage appends a message to the channel log and broadcasts it.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Content      string  `json:"content" binding:"required"`
		Type         string  `json:"type"`
		ReplyToID    *int64  `json:"reply_to_id"`
		AttachmentID *string `json:"attachment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.log.Append(c.Request.Context(), messagelog.AppendInput{
		ChannelID:    channelID,
		SenderID:     c.GetInt("userID"),
		Content:      req.Content,
		Type:         models.MessageType(req.Type),
		ReplyToID:    req.ReplyToID,
		AttachmentID: req.AttachmentID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// GetMessages pages the channel log newest-first, restartable via cursor.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	before, limit := pageParams(c)

	msgs, err := h.log.Page(c.Request.Context(), channelID, c.GetInt("userID"), before, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	var next int64
	if len(msgs) > 0 {
		next = msgs[len(msgs)-1].ID
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "next_cursor": next})
}

// GetMedia pages media messages of one type.
func (h *MessageHandler) GetMedia(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	mediaType := c.Query("type")
	if mediaType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing media type"})
		return
	}
	before, limit := pageParams(c)

	msgs, err := h.log.MediaPage(c.Request.Context(), channelID, c.GetInt("userID"), models.MessageType(mediaType), before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// EditMessage replaces a message's content (sender only).
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.log.Edit(c.Request.Context(), messageID, req.Content, c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage soft-deletes a message (sender only).
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	if err := h.log.SoftDelete(c.Request.Context(), messageID, c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func messageIDParam(c *gin.Context) (int64, bool) {
	messageID, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return messageID, true
}

func pageParams(c *gin.Context) (int64, int) {
	before, _ := strconv.ParseInt(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	return before, limit
}
