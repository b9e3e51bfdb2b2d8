package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/calls"
	"comms-service/internal/models"
)

// CallHandler manages call lifecycle and signaling endpoints.
type CallHandler struct {
	manager *calls.Manager
}

// NewCallHandler builds a CallHandler.
func NewCallHandler(manager *calls.Manager) *CallHandler {
	return &CallHandler{manager: manager}
}

// StartCall initiates a call towards a channel peer.
func (h *CallHandler) StartCall(c *gin.Context) {
	var req struct {
		ChannelID  int  `json:"channel_id" binding:"required"`
		ReceiverID int  `json:"receiver_id" binding:"required"`
		IsVideo    bool `json:"is_video"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call, err := h.manager.Start(c.Request.Context(), req.ChannelID, c.GetInt("userID"), req.ReceiverID, req.IsVideo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, call)
}

// AnswerCall transitions the call to ANSWERED (receiver only).
func (h *CallHandler) AnswerCall(c *gin.Context) {
	h.transition(c, h.manager.Answer)
}

// RejectCall transitions the call to REJECTED (receiver only).
func (h *CallHandler) RejectCall(c *gin.Context) {
	h.transition(c, h.manager.Reject)
}

// EndCall transitions the call to ENDED (either party).
func (h *CallHandler) EndCall(c *gin.Context) {
	h.transition(c, h.manager.End)
}

// Signal relays an opaque signaling frame to its addressee.
func (h *CallHandler) Signal(c *gin.Context) {
	var frame models.SignalFrame
	if err := c.ShouldBindJSON(&frame); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if frame.Type == "" || frame.To == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "signal frame needs type and to"})
		return
	}

	if err := h.manager.Relay(c.Request.Context(), c.GetInt("userID"), frame); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *CallHandler) transition(c *gin.Context, op func(ctx context.Context, callID, actorID int) (models.Call, error)) {
	callID, err := strconv.Atoi(c.Param("call_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid call id"})
		return
	}

	call, opErr := op(c.Request.Context(), callID, c.GetInt("userID"))
	if opErr != nil {
		respondError(c, opErr)
		return
	}
	c.JSON(http.StatusOK, call)
}
