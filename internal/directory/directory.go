// Package directory owns the channel and membership roster. Every roster
// mutation goes through here; the message log and broadcaster never touch
// membership rows directly.
package directory

import (
	"context"
	"fmt"

	"comms-service/internal/locks"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
	"comms-service/internal/telemetry"
)

// Action is a channel operation checked by Authorize.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionManage Action = "manage"
)

// Broadcaster pushes roster events to live channel subscribers and evicts
// connections whose membership ended.
type Broadcaster interface {
	BroadcastToChannel(channelID int, event models.ChannelEvent)
	DropUserFromChannel(channelID, userID int)
	DropChannel(channelID int)
}

// Service implements the membership directory.
type Service struct {
	channels repositories.ChannelRepository
	members  repositories.MembershipRepository
	locks    *locks.KeyedMutex
	hub      Broadcaster
	audit    *telemetry.AuditEmitter
}

// NewService constructs the directory service.
func NewService(channels repositories.ChannelRepository, members repositories.MembershipRepository, hub Broadcaster, audit *telemetry.AuditEmitter) *Service {
	return &Service{
		channels: channels,
		members:  members,
		locks:    locks.NewKeyedMutex(),
		hub:      hub,
		audit:    audit,
	}
}

// CreateChannelInput carries the attributes of an explicit channel creation.
type CreateChannelInput struct {
	Kind       models.ChannelKind
	CreatorID  int
	BuildingID *int
	GroupID    *int
	Private    bool
	MemberIDs  []int
}

// CreateChannel creates a GROUP, BUILDING_GROUP or PUBLIC channel and enrolls
// the creator as OWNER plus the listed members.
func (s *Service) CreateChannel(ctx context.Context, in CreateChannelInput) (models.Channel, error) {
	switch in.Kind {
	case models.ChannelGroup, models.ChannelBuildingGroup, models.ChannelPublic:
	default:
		return models.Channel{}, fmt.Errorf("%w: kind %s is not created explicitly", models.ErrInvariantViolation, in.Kind)
	}

	ch, err := s.channels.CreateChannel(ctx, models.Channel{
		Kind:       in.Kind,
		BuildingID: in.BuildingID,
		GroupID:    in.GroupID,
		CreatorID:  in.CreatorID,
		Private:    in.Private,
	})
	if err != nil {
		return models.Channel{}, err
	}

	if _, err := s.members.UpsertMember(ctx, ch.ID, in.CreatorID, models.RoleOwner, true); err != nil {
		return models.Channel{}, err
	}
	for _, id := range in.MemberIDs {
		if id == in.CreatorID {
			continue
		}
		if _, err := s.members.UpsertMember(ctx, ch.ID, id, models.RoleMember, true); err != nil {
			return models.Channel{}, err
		}
	}

	s.emitAudit(ctx, "channel_created", in.CreatorID, ch.ID)
	return ch, nil
}

// GetOrCreateOneToOne returns the single active direct channel for an
// unordered pair of users within a building scope, creating it on first
// contact. Concurrent callers converge on one channel: the insert races on a
// partial unique index and the loser re-reads the winner's row.
func (s *Service) GetOrCreateOneToOne(ctx context.Context, userA, userB int, buildingID *int) (models.Channel, error) {
	if userA == userB {
		return models.Channel{}, fmt.Errorf("%w: cannot open a direct channel with yourself", models.ErrInvariantViolation)
	}
	low, high := userA, userB
	if low > high {
		low, high = high, low
	}

	ch, err := s.channels.FindActiveOneToOne(ctx, low, high, buildingID)
	if err == nil {
		return ch, nil
	}
	if err != repositories.ErrChannelNotFound {
		return models.Channel{}, err
	}

	ch, created, err := s.channels.InsertOneToOne(ctx, low, high, buildingID, userA)
	if err != nil {
		return models.Channel{}, err
	}
	if !created {
		// Lost the race; the winner's channel is now visible.
		return s.channels.FindActiveOneToOne(ctx, low, high, buildingID)
	}

	if _, err := s.members.UpsertMember(ctx, ch.ID, userA, models.RoleMember, true); err != nil {
		return models.Channel{}, err
	}
	if _, err := s.members.UpsertMember(ctx, ch.ID, userB, models.RoleMember, true); err != nil {
		return models.Channel{}, err
	}
	s.emitAudit(ctx, "direct_channel_created", userA, ch.ID)
	return ch, nil
}

// GetOrCreateBuildingChannel returns the building-wide channel, creating it on
// first access and enrolling every current resident of the building.
func (s *Service) GetOrCreateBuildingChannel(ctx context.Context, buildingID int, identity models.Identity) (models.Channel, error) {
	ch, err := s.channels.FindActiveBuildingChannel(ctx, buildingID)
	if err == repositories.ErrChannelNotFound {
		var created bool
		ch, created, err = s.channels.InsertBuildingChannel(ctx, buildingID, identity.UserID)
		if err != nil {
			return models.Channel{}, err
		}
		if !created {
			ch, err = s.channels.FindActiveBuildingChannel(ctx, buildingID)
		}
	}
	if err != nil {
		return models.Channel{}, err
	}

	// Auto-enroll residents instead of requiring explicit invitations. Done on
	// every access so residents who moved in after creation are picked up.
	s.locks.Lock(ch.ID)
	defer s.locks.Unlock(ch.ID)

	residents, err := s.channels.ListResidents(ctx, buildingID)
	if err != nil {
		return models.Channel{}, err
	}
	for _, id := range residents {
		if _, err := s.members.GetMember(ctx, ch.ID, id); err == repositories.ErrMemberNotFound {
			if _, err := s.members.UpsertMember(ctx, ch.ID, id, models.RoleMember, true); err != nil {
				return models.Channel{}, err
			}
		} else if err != nil {
			return models.Channel{}, err
		}
	}
	return ch, nil
}

// AddMember enrolls a user. The actor must hold OWNER or ADMIN.
func (s *Service) AddMember(ctx context.Context, channelID, userID, actorID int) (models.Membership, error) {
	s.locks.Lock(channelID)
	defer s.locks.Unlock(channelID)

	if err := s.requireManager(ctx, channelID, actorID); err != nil {
		return models.Membership{}, err
	}

	m, err := s.members.UpsertMember(ctx, channelID, userID, models.RoleMember, true)
	if err != nil {
		return models.Membership{}, err
	}

	s.hub.BroadcastToChannel(channelID, models.ChannelEvent{
		Type: models.EventMemberAdded, ChannelID: channelID, UserID: userID,
	})
	s.emitAudit(ctx, "member_added", actorID, channelID)
	return m, nil
}

// RemoveMember deactivates a membership. The actor must hold OWNER or ADMIN,
// or be removing themselves. Removing the last OWNER is rejected.
func (s *Service) RemoveMember(ctx context.Context, channelID, userID, actorID int) error {
	s.locks.Lock(channelID)
	defer s.locks.Unlock(channelID)

	if actorID != userID {
		if err := s.requireManager(ctx, channelID, actorID); err != nil {
			return err
		}
	}

	target, err := s.members.GetMember(ctx, channelID, userID)
	if err == repositories.ErrMemberNotFound {
		return fmt.Errorf("%w: membership", models.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if !target.Active {
		return fmt.Errorf("%w: membership", models.ErrNotFound)
	}

	if target.Role == models.RoleOwner {
		owners, err := s.members.CountActiveByRole(ctx, channelID, models.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return fmt.Errorf("%w: cannot remove the last owner", models.ErrInvariantViolation)
		}
	}

	if err := s.members.DeactivateMember(ctx, channelID, userID); err != nil {
		return err
	}

	s.hub.BroadcastToChannel(channelID, models.ChannelEvent{
		Type: models.EventMemberRemoved, ChannelID: channelID, UserID: userID,
	})
	s.hub.DropUserFromChannel(channelID, userID)
	s.emitAudit(ctx, "member_removed", actorID, channelID)
	return nil
}

// ChangeRole updates a member's role. The actor must hold OWNER or ADMIN, and
// demoting the last OWNER is rejected.
func (s *Service) ChangeRole(ctx context.Context, channelID, userID int, role models.MemberRole, actorID int) error {
	s.locks.Lock(channelID)
	defer s.locks.Unlock(channelID)

	if err := s.requireManager(ctx, channelID, actorID); err != nil {
		return err
	}

	target, err := s.members.GetMember(ctx, channelID, userID)
	if err == repositories.ErrMemberNotFound {
		return fmt.Errorf("%w: membership", models.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if target.Role == models.RoleOwner && role != models.RoleOwner {
		owners, err := s.members.CountActiveByRole(ctx, channelID, models.RoleOwner)
		if err != nil {
			return err
		}
		if owners <= 1 {
			return fmt.Errorf("%w: cannot demote the last owner", models.ErrInvariantViolation)
		}
	}

	if err := s.members.SetRole(ctx, channelID, userID, role); err != nil {
		return err
	}
	s.emitAudit(ctx, "role_changed", actorID, channelID)
	return nil
}

// SetWritable toggles a member's write permission, e.g. muting a member in a
// building-wide announcement channel. The actor must hold OWNER or ADMIN.
func (s *Service) SetWritable(ctx context.Context, channelID, userID int, canWrite bool, actorID int) error {
	s.locks.Lock(channelID)
	defer s.locks.Unlock(channelID)

	if err := s.requireManager(ctx, channelID, actorID); err != nil {
		return err
	}

	if err := s.members.SetCanWrite(ctx, channelID, userID, canWrite); err != nil {
		if err == repositories.ErrMemberNotFound {
			return fmt.Errorf("%w: membership", models.ErrNotFound)
		}
		return err
	}
	s.emitAudit(ctx, "write_permission_changed", actorID, channelID)
	return nil
}

// CloseChannel logically closes a channel. Only an OWNER or ADMIN may close.
func (s *Service) CloseChannel(ctx context.Context, channelID, actorID int) error {
	s.locks.Lock(channelID)
	defer s.locks.Unlock(channelID)

	if err := s.requireManager(ctx, channelID, actorID); err != nil {
		return err
	}
	if err := s.channels.CloseChannel(ctx, channelID); err != nil {
		if err == repositories.ErrChannelNotFound {
			return fmt.Errorf("%w: channel %d", models.ErrNotFound, channelID)
		}
		return err
	}

	s.hub.BroadcastToChannel(channelID, models.ChannelEvent{
		Type: models.EventChannelClosed, ChannelID: channelID,
	})
	s.hub.DropChannel(channelID)
	s.emitAudit(ctx, "channel_closed", actorID, channelID)
	return nil
}

// GetChannel fetches a channel, mapping missing rows to the shared taxonomy.
func (s *Service) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	ch, err := s.channels.GetChannel(ctx, channelID)
	if err == repositories.ErrChannelNotFound {
		return models.Channel{}, fmt.Errorf("%w: channel %d", models.ErrNotFound, channelID)
	}
	return ch, err
}

// ListChannels returns the caller's active channels.
func (s *Service) ListChannels(ctx context.Context, userID int) ([]models.Channel, error) {
	return s.channels.ListChannelsForUser(ctx, userID)
}

// ListMembers returns the active roster of a channel, caller must be a member.
func (s *Service) ListMembers(ctx context.Context, channelID, actorID int) ([]models.Membership, error) {
	if err := s.Authorize(ctx, channelID, actorID, ActionRead); err != nil {
		return nil, err
	}
	return s.members.ListActiveMembers(ctx, channelID)
}

// ActiveRecipients returns the active member ids of a channel.
func (s *Service) ActiveRecipients(ctx context.Context, channelID int) ([]int, error) {
	return s.members.ListActiveMemberIDs(ctx, channelID)
}

// Authorize checks whether a user may perform an action on a channel.
// Reads require active membership, writes additionally require can_write, and
// manage requires OWNER or ADMIN.
func (s *Service) Authorize(ctx context.Context, channelID, userID int, action Action) error {
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

	switch action {
	case ActionRead:
		return nil
	case ActionWrite:
		if !m.CanWrite {
			return fmt.Errorf("%w: user %d has no write permission in channel %d", models.ErrNotAMember, userID, channelID)
		}
		return nil
	case ActionManage:
		if !m.Role.CanManageMembers() {
			return fmt.Errorf("%w: role %s cannot manage channel %d", models.ErrUnauthorized, m.Role, channelID)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q", models.ErrUnauthorized, action)
	}
}

func (s *Service) requireManager(ctx context.Context, channelID, actorID int) error {
	return s.Authorize(ctx, channelID, actorID, ActionManage)
}

func (s *Service) emitAudit(ctx context.Context, event string, actorID, channelID int) {
	if s.audit == nil {
		return
	}
	actor := int64(actorID)
	s.audit.Emit(ctx, "INFO", fmt.Sprintf("%s channel=%d", event, channelID), "", &actor)
}
