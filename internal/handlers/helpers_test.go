package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"comms-service/internal/models"
)

// nopBus satisfies the broadcaster and notifier interfaces of the services
// under test without a live hub.
type nopBus struct{}

func (nopBus) BroadcastToChannel(int, models.ChannelEvent) {}
func (nopBus) SendToUser(int, models.UserEvent)            {}
func (nopBus) DropUserFromChannel(int, int)                {}
func (nopBus) DropChannel(int)                             {}

type nopFanout struct{}

func (nopFanout) OnMessageAppended(context.Context, models.Message) {}
func (nopFanout) OnCallEvent(context.Context, models.Call, string)  {}

func authAs(userID int, identity models.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("identity", identity)
		c.Next()
	}
}
