package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

type ChannelRepositoryMock struct {
	mock.Mock
}

func (m *ChannelRepositoryMock) CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error) {
	args := m.Called(ctx, ch)
	var created models.Channel
	if val := args.Get(0); val != nil {
		created = val.(models.Channel)
	}
	return created, args.Error(1)
}

func (m *ChannelRepositoryMock) GetChannel(ctx context.Context, channelID int) (models.Channel, error) {
	args := m.Called(ctx, channelID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) ListChannelsForUser(ctx context.Context, userID int) ([]models.Channel, error) {
	args := m.Called(ctx, userID)
	var list []models.Channel
	if val := args.Get(0); val != nil {
		list = val.([]models.Channel)
	}
	return list, args.Error(1)
}

func (m *ChannelRepositoryMock) CloseChannel(ctx context.Context, channelID int) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *ChannelRepositoryMock) FindActiveOneToOne(ctx context.Context, lowID, highID int, buildingID *int) (models.Channel, error) {
	args := m.Called(ctx, lowID, highID, buildingID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) InsertOneToOne(ctx context.Context, lowID, highID int, buildingID *int, creatorID int) (models.Channel, bool, error) {
	args := m.Called(ctx, lowID, highID, buildingID, creatorID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Bool(1), args.Error(2)
}

func (m *ChannelRepositoryMock) FindActiveBuildingChannel(ctx context.Context, buildingID int) (models.Channel, error) {
	args := m.Called(ctx, buildingID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Error(1)
}

func (m *ChannelRepositoryMock) InsertBuildingChannel(ctx context.Context, buildingID, creatorID int) (models.Channel, bool, error) {
	args := m.Called(ctx, buildingID, creatorID)
	var ch models.Channel
	if val := args.Get(0); val != nil {
		ch = val.(models.Channel)
	}
	return ch, args.Bool(1), args.Error(2)
}

func (m *ChannelRepositoryMock) ListResidents(ctx context.Context, buildingID int) ([]int, error) {
	args := m.Called(ctx, buildingID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

type MembershipRepositoryMock struct {
	mock.Mock
}

func (m *MembershipRepositoryMock) UpsertMember(ctx context.Context, channelID, userID int, role models.MemberRole, canWrite bool) (models.Membership, error) {
	args := m.Called(ctx, channelID, userID, role, canWrite)
	var member models.Membership
	if val := args.Get(0); val != nil {
		member = val.(models.Membership)
	}
	return member, args.Error(1)
}

func (m *MembershipRepositoryMock) GetMember(ctx context.Context, channelID, userID int) (models.Membership, error) {
	args := m.Called(ctx, channelID, userID)
	var member models.Membership
	if val := args.Get(0); val != nil {
		member = val.(models.Membership)
	}
	return member, args.Error(1)
}

func (m *MembershipRepositoryMock) ListActiveMembers(ctx context.Context, channelID int) ([]models.Membership, error) {
	args := m.Called(ctx, channelID)
	var members []models.Membership
	if val := args.Get(0); val != nil {
		members = val.([]models.Membership)
	}
	return members, args.Error(1)
}

func (m *MembershipRepositoryMock) ListActiveMemberIDs(ctx context.Context, channelID int) ([]int, error) {
	args := m.Called(ctx, channelID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *MembershipRepositoryMock) CountActiveByRole(ctx context.Context, channelID int, role models.MemberRole) (int, error) {
	args := m.Called(ctx, channelID, role)
	return args.Int(0), args.Error(1)
}

func (m *MembershipRepositoryMock) SetRole(ctx context.Context, channelID, userID int, role models.MemberRole) error {
	args := m.Called(ctx, channelID, userID, role)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) SetCanWrite(ctx context.Context, channelID, userID int, canWrite bool) error {
	args := m.Called(ctx, channelID, userID, canWrite)
	return args.Error(0)
}

func (m *MembershipRepositoryMock) DeactivateMember(ctx context.Context, channelID, userID int) error {
	args := m.Called(ctx, channelID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Insert(ctx context.Context, msg models.Message) (models.Message, error) {
	args := m.Called(ctx, msg)
	var created models.Message
	if val := args.Get(0); val != nil {
		created = val.(models.Message)
	}
	return created, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, messageID int64) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID int64, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) Page(ctx context.Context, channelID int, before int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, before, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) MediaPage(ctx context.Context, channelID int, mediaType models.MessageType, before int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, channelID, mediaType, before, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type CallRepositoryMock struct {
	mock.Mock
}

func (m *CallRepositoryMock) Insert(ctx context.Context, call models.Call) (models.Call, error) {
	args := m.Called(ctx, call)
	var created models.Call
	if val := args.Get(0); val != nil {
		created = val.(models.Call)
	}
	return created, args.Error(1)
}

func (m *CallRepositoryMock) Get(ctx context.Context, callID int) (models.Call, error) {
	args := m.Called(ctx, callID)
	var call models.Call
	if val := args.Get(0); val != nil {
		call = val.(models.Call)
	}
	return call, args.Error(1)
}

func (m *CallRepositoryMock) UpdateState(ctx context.Context, call models.Call) (models.Call, error) {
	args := m.Called(ctx, call)
	var updated models.Call
	if val := args.Get(0); val != nil {
		updated = val.(models.Call)
	}
	return updated, args.Error(1)
}

func (m *CallRepositoryMock) FindActiveByPair(ctx context.Context, callerID, receiverID int) (models.Call, error) {
	args := m.Called(ctx, callerID, receiverID)
	var call models.Call
	if val := args.Get(0); val != nil {
		call = val.(models.Call)
	}
	return call, args.Error(1)
}

type NotificationRepositoryMock struct {
	mock.Mock
}

func (m *NotificationRepositoryMock) InsertIfAbsent(ctx context.Context, n models.Notification) (models.Notification, bool, error) {
	args := m.Called(ctx, n)
	var created models.Notification
	if val := args.Get(0); val != nil {
		created = val.(models.Notification)
	}
	return created, args.Bool(1), args.Error(2)
}

func (m *NotificationRepositoryMock) Get(ctx context.Context, notificationID int64) (models.Notification, error) {
	args := m.Called(ctx, notificationID)
	var n models.Notification
	if val := args.Get(0); val != nil {
		n = val.(models.Notification)
	}
	return n, args.Error(1)
}

func (m *NotificationRepositoryMock) MarkRead(ctx context.Context, notificationID int64) error {
	args := m.Called(ctx, notificationID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) MarkAllRead(ctx context.Context, residentID int) error {
	args := m.Called(ctx, residentID)
	return args.Error(0)
}

func (m *NotificationRepositoryMock) UnreadCount(ctx context.Context, residentID int, buildingID *int) (int, error) {
	args := m.Called(ctx, residentID, buildingID)
	return args.Int(0), args.Error(1)
}

func (m *NotificationRepositoryMock) ListForResident(ctx context.Context, residentID int, limit int) ([]models.Notification, error) {
	args := m.Called(ctx, residentID, limit)
	var list []models.Notification
	if val := args.Get(0); val != nil {
		list = val.([]models.Notification)
	}
	return list, args.Error(1)
}

var _ repositories.ChannelRepository = (*ChannelRepositoryMock)(nil)
var _ repositories.MembershipRepository = (*MembershipRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.CallRepository = (*CallRepositoryMock)(nil)
var _ repositories.NotificationRepository = (*NotificationRepositoryMock)(nil)
