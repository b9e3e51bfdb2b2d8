// Package notify derives per-recipient notification records from channel and
// call events and tracks their read state. Derivation is idempotent: the dedup
// key built from (event, recipient) makes reprocessing a no-op.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"comms-service/internal/models"
	"comms-service/internal/observability"
	"comms-service/internal/repositories"
)

// Roster resolves the active recipients of a channel.
type Roster interface {
	ListActiveMemberIDs(ctx context.Context, channelID int) ([]int, error)
}

// Notifier pushes fresh notifications to online recipients.
type Notifier interface {
	SendToUser(userID int, event models.UserEvent)
}

// Fanout implements notification derivation and read-state tracking.
type Fanout struct {
	notifications repositories.NotificationRepository
	channels      repositories.ChannelRepository
	roster        Roster
	hub           Notifier
}

// NewFanout constructs the notification fan-out.
func NewFanout(notifications repositories.NotificationRepository, channels repositories.ChannelRepository, roster Roster, hub Notifier) *Fanout {
	return &Fanout{notifications: notifications, channels: channels, roster: roster, hub: hub}
}

// OnMessageAppended creates one unread notification per active channel member
// except the sender. Failures are logged, never propagated: the durable write
// this derives from has already succeeded.
func (f *Fanout) OnMessageAppended(ctx context.Context, msg models.Message) {
	recipients, err := f.roster.ListActiveMemberIDs(ctx, msg.ChannelID)
	if err != nil {
		log.Printf("notify: roster lookup failed for channel %d: %v", msg.ChannelID, err)
		return
	}

	payload := messagePayload(msg)
	eventKey := fmt.Sprintf("msg:%d", msg.ID)
	buildingID := f.buildingOf(ctx, msg.ChannelID)
	for _, recipient := range recipients {
		if recipient == msg.SenderID {
			continue
		}
		f.deliver(ctx, models.Notification{
			ResidentID: recipient,
			BuildingID: buildingID,
			EventKey:   eventKey,
			Payload:    payload,
		})
	}
}

// OnCallEvent creates a notification for the receiver of a call event.
func (f *Fanout) OnCallEvent(ctx context.Context, call models.Call, kind string) {
	payload, _ := json.Marshal(map[string]interface{}{
		"kind":      "call",
		"event":     kind,
		"call_id":   call.ID,
		"caller_id": call.CallerID,
		"is_video":  call.IsVideo,
	})
	f.deliver(ctx, models.Notification{
		ResidentID: call.ReceiverID,
		BuildingID: f.buildingOf(ctx, call.ChannelID),
		EventKey:   fmt.Sprintf("call:%d:%s", call.ID, kind),
		Payload:    string(payload),
	})
}

func (f *Fanout) buildingOf(ctx context.Context, channelID int) *int {
	if f.channels == nil {
		return nil
	}
	ch, err := f.channels.GetChannel(ctx, channelID)
	if err != nil {
		return nil
	}
	return ch.BuildingID
}

// MarkRead transitions one notification to read; the transition never reverts.
func (f *Fanout) MarkRead(ctx context.Context, notificationID int64) error {
	err := f.notifications.MarkRead(ctx, notificationID)
	if err == repositories.ErrNotificationNotFound {
		return fmt.Errorf("%w: notification %d", models.ErrNotFound, notificationID)
	}
	return err
}

// MarkAllRead marks every unread notification of the resident as read.
func (f *Fanout) MarkAllRead(ctx context.Context, residentID int) error {
	return f.notifications.MarkAllRead(ctx, residentID)
}

// UnreadCount returns the resident's unread total, optionally per building.
func (f *Fanout) UnreadCount(ctx context.Context, residentID int, buildingID *int) (int, error) {
	return f.notifications.UnreadCount(ctx, residentID, buildingID)
}

// List returns the newest notifications for the resident.
func (f *Fanout) List(ctx context.Context, residentID int, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return f.notifications.ListForResident(ctx, residentID, limit)
}

func (f *Fanout) deliver(ctx context.Context, n models.Notification) {
	created, fresh, err := f.notifications.InsertIfAbsent(ctx, n)
	if err != nil {
		log.Printf("notify: insert failed for resident %d key %s: %v", n.ResidentID, n.EventKey, err)
		return
	}
	if !fresh {
		return
	}
	observability.IncNotificationCreated()
	if f.hub != nil {
		f.hub.SendToUser(created.ResidentID, models.UserEvent{
			Type: models.EventNotification, Notification: &created,
		})
	}
}

func messagePayload(msg models.Message) string {
	payload, _ := json.Marshal(map[string]interface{}{
		"kind":       "message",
		"message_id": msg.ID,
		"channel_id": msg.ChannelID,
		"sender_id":  msg.SenderID,
		"type":       msg.Type,
	})
	return string(payload)
}
