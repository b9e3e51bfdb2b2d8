package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comms-service/internal/directory"
	"comms-service/internal/middleware"
	"comms-service/internal/models"
)

// ChannelHandler manages channel and membership endpoints.
type ChannelHandler struct {
	directory *directory.Service
}

// NewChannelHandler builds a ChannelHandler.
func NewChannelHandler(dir *directory.Service) *ChannelHandler {
	return &ChannelHandler{directory: dir}
}

// CreateChannel creates a group-style channel with the caller as owner.
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req struct {
		Kind       string `json:"kind" binding:"required"`
		BuildingID *int   `json:"building_id"`
		GroupID    *int   `json:"group_id"`
		Private    bool   `json:"private"`
		MemberIDs  []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	ch, err := h.directory.CreateChannel(c.Request.Context(), directory.CreateChannelInput{
		Kind:       models.ChannelKind(req.Kind),
		CreatorID:  userID,
		BuildingID: req.BuildingID,
		GroupID:    req.GroupID,
		Private:    req.Private,
		MemberIDs:  req.MemberIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ch)
}

// StartDirect returns the active direct channel with the peer, creating it on
// first contact.
func (h *ChannelHandler) StartDirect(c *gin.Context) {
	var req struct {
		PeerID     int  `json:"peer_id" binding:"required"`
		BuildingID *int `json:"building_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	ch, err := h.directory.GetOrCreateOneToOne(c.Request.Context(), userID, req.PeerID, req.BuildingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// ListChannels returns the channels the caller actively belongs to.
func (h *ChannelHandler) ListChannels(c *gin.Context) {
	channels, err := h.directory.ListChannels(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// GetBuildingChannel returns the building-wide channel, creating it and
// enrolling residents on first access.
func (h *ChannelHandler) GetBuildingChannel(c *gin.Context) {
	buildingID, err := strconv.Atoi(c.Param("building_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid building id"})
		return
	}

	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	ch, err := h.directory.GetOrCreateBuildingChannel(c.Request.Context(), buildingID, identity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

// ListMembers returns the active roster of a channel.
func (h *ChannelHandler) ListMembers(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	members, err := h.directory.ListMembers(c.Request.Context(), channelID, c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember enrolls a user into a channel.
func (h *ChannelHandler) AddMember(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.directory.AddMember(c.Request.Context(), channelID, req.UserID, c.GetInt("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveMember deactivates a membership.
func (h *ChannelHandler) RemoveMember(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.directory.RemoveMember(c.Request.Context(), channelID, userID, c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeRole updates a member's role.
func (h *ChannelHandler) ChangeRole(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.directory.ChangeRole(c.Request.Context(), channelID, userID, models.MemberRole(req.Role), c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetWritable toggles a member's write permission.
func (h *ChannelHandler) SetWritable(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req struct {
		CanWrite *bool `json:"can_write" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.directory.SetWritable(c.Request.Context(), channelID, userID, *req.CanWrite, c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CloseChannel logically closes a channel.
func (h *ChannelHandler) CloseChannel(c *gin.Context) {
	channelID, ok := channelIDParam(c)
	if !ok {
		return
	}
	if err := h.directory.CloseChannel(c.Request.Context(), channelID, c.GetInt("userID")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func channelIDParam(c *gin.Context) (int, bool) {
	channelID, err := strconv.Atoi(c.Param("channel_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid channel id"})
		return 0, false
	}
	return channelID, true
}
