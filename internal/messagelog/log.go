// Package messagelog is the append-only ordered message store. Append is the
// single durable write that live fan-out and notification derivation key off:
// once it returns, the message is retrievable via Page even if every live
// delivery failed.
package messagelog

import (
	"context"
	"fmt"
	"strings"

	"comms-service/internal/models"
	"comms-service/internal/observability"
	"comms-service/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Broadcaster pushes message events to live channel subscribers.
type Broadcaster interface {
	BroadcastToChannel(channelID int, event models.ChannelEvent)
}

// Fanout derives per-recipient notifications from appended messages.
type Fanout interface {
	OnMessageAppended(ctx context.Context, msg models.Message)
}

// Service implements the message log.
type Service struct {
	messages repositories.MessageRepository
	members  repositories.MembershipRepository
	hub      Broadcaster
	fanout   Fanout
}

// NewService constructs the message log service.
func NewService(messages repositories.MessageRepository, members repositories.MembershipRepository, hub Broadcaster, fanout Fanout) *Service {
	return &Service{messages: messages, members: members, hub: hub, fanout: fanout}
}

// AppendInput carries the attributes of a new message.
type AppendInput struct {
	ChannelID    int
	SenderID     int
	Content      string
	Type         models.MessageType
	ReplyToID    *int64
	AttachmentID *string
	CallID       *int
}

// Append durably stores a message, then broadcasts it and hands it to the
// notification fan-out. The sender needs an active membership with write
// permission. Fan-out failures never fail the append.
func (s *Service) Append(ctx context.Context, in AppendInput) (models.Message, error) {
	m, err := s.members.GetMember(ctx, in.ChannelID, in.SenderID)
	if err == repositories.ErrMemberNotFound {
		return models.Message{}, fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, in.SenderID, in.ChannelID)
	}
	if err != nil {
		return models.Message{}, err
	}
	if !m.Active || !m.CanWrite {
		return models.Message{}, fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, in.SenderID, in.ChannelID)
	}

	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageText
	}

	msg, err := s.messages.Insert(ctx, models.Message{
		ChannelID:    in.ChannelID,
		SenderID:     in.SenderID,
		Content:      in.Content,
		Type:         msgType,
		ReplyToID:    in.ReplyToID,
		AttachmentID: in.AttachmentID,
		CallID:       in.CallID,
	})
	if err != nil {
		return models.Message{}, err
	}
	observability.IncMessageAppended(string(msgType))

	s.hub.BroadcastToChannel(msg.ChannelID, models.ChannelEvent{
		Type: models.EventMessage, ChannelID: msg.ChannelID, Message: &msg,
	})
	if s.fanout != nil {
		s.fanout.OnMessageAppended(ctx, msg)
	}
	return msg, nil
}

// Edit replaces a message's content. Only the original sender may edit; id and
// created_at stay untouched and the edited flag is set.
func (s *Service) Edit(ctx context.Context, messageID int64, newContent string, actorID int) (models.Message, error) {
	msg, err := s.messages.Get(ctx, messageID)
	if err == repositories.ErrMessageNotFound {
		return models.Message{}, fmt.Errorf("%w: message %d", models.ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != actorID {
		return models.Message{}, fmt.Errorf("%w: message %d", models.ErrNotOwner, messageID)
	}
	if msg.Deleted {
		return models.Message{}, fmt.Errorf("%w: message %d", models.ErrNotFound, messageID)
	}

	updated, err := s.messages.UpdateContent(ctx, messageID, newContent)
	if err == repositories.ErrMessageNotFound {
		return models.Message{}, fmt.Errorf("%w: message %d", models.ErrNotFound, messageID)
	}
	if err != nil {
		return models.Message{}, err
	}

	s.hub.BroadcastToChannel(updated.ChannelID, models.ChannelEvent{
		Type: models.EventMessageEdited, ChannelID: updated.ChannelID, Message: &updated,
	})
	return updated, nil
}

// SoftDelete hides a message from delivery and listing while retaining the row
// for audit. Only the original sender may delete.
func (s *Service) SoftDelete(ctx context.Context, messageID int64, actorID int) error {
	msg, err := s.messages.Get(ctx, messageID)
	if err == repositories.ErrMessageNotFound {
		return fmt.Errorf("%w: message %d", models.ErrNotFound, messageID)
	}
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return fmt.Errorf("%w: message %d", models.ErrNotOwner, messageID)
	}

	if err := s.messages.SoftDelete(ctx, messageID); err != nil {
		if err == repositories.ErrMessageNotFound {
			return fmt.Errorf("%w: message %d", models.ErrNotFound, messageID)
		}
		return err
	}

	s.hub.BroadcastToChannel(msg.ChannelID, models.ChannelEvent{
		Type: models.EventMessageDeleted, ChannelID: msg.ChannelID, MessageID: messageID,
	})
	return nil
}

// Page lists messages in descending (created_at, id) order, restartable via
// the before cursor. The caller must be an active member.
func (s *Service) Page(ctx context.Context, channelID, userID int, before int64, limit int) ([]models.Message, error) {
	if err := s.requireActiveMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	return s.messages.Page(ctx, channelID, before, clampLimit(limit))
}

// MediaPage lists media messages of one type, same ordering as Page.
func (s *Service) MediaPage(ctx context.Context, channelID, userID int, typeFilter models.MessageType, before int64, limit int) ([]models.Message, error) {
	if err := s.requireActiveMember(ctx, channelID, userID); err != nil {
		return nil, err
	}
	filter := models.MessageType(strings.ToUpper(string(typeFilter)))
	if !models.MediaTypes[filter] {
		return nil, fmt.Errorf("%w: media type %q", models.ErrNotFound, typeFilter)
	}
	return s.messages.MediaPage(ctx, channelID, filter, before, clampLimit(limit))
}

func (s *Service) requireActiveMember(ctx context.Context, channelID, userID int) error {
	m, err := s.members.GetMember(ctx, channelID, userID)
	if err == repositories.ErrMemberNotFound {
		return fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, userID, channelID)
	}
	if err != nil {
		return err
	}
	if !m.Active {
		return fmt.Errorf("%w: user %d in channel %d", models.ErrNotAMember, userID, channelID)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
