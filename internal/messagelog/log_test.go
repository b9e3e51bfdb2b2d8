package messagelog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

type broadcasterStub struct {
	events []models.ChannelEvent
}

func (b *broadcasterStub) BroadcastToChannel(_ int, event models.ChannelEvent) {
	b.events = append(b.events, event)
}

type fanoutStub struct {
	appended []models.Message
}

func (f *fanoutStub) OnMessageAppended(_ context.Context, msg models.Message) {
	f.appended = append(f.appended, msg)
}

func writer(channelID, userID int) models.Membership {
	return models.Membership{ChannelID: channelID, UserID: userID, Role: models.RoleMember, CanWrite: true, Active: true}
}

func TestAppendRejectsNonMember(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	members.On("GetMember", mock.Anything, 5, 1).
		Return(models.Membership{}, repositories.ErrMemberNotFound).Once()
	svc := NewService(new(mocks.MessageRepositoryMock), members, &broadcasterStub{}, nil)

	_, err := svc.Append(context.Background(), AppendInput{ChannelID: 5, SenderID: 1, Content: "hi"})
	require.ErrorIs(t, err, models.ErrNotAMember)
}

func TestAppendRejectsReadOnlyMember(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	muted := writer(5, 1)
	muted.CanWrite = false
	members.On("GetMember", mock.Anything, 5, 1).Return(muted, nil).Once()
	svc := NewService(new(mocks.MessageRepositoryMock), members, &broadcasterStub{}, nil)

	_, err := svc.Append(context.Background(), AppendInput{ChannelID: 5, SenderID: 1, Content: "hi"})
	require.ErrorIs(t, err, models.ErrNotAMember)
}

func TestAppendBroadcastsAndFansOut(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	hub := &broadcasterStub{}
	fanout := &fanoutStub{}
	svc := NewService(messages, members, hub, fanout)

	members.On("GetMember", mock.Anything, 5, 1).Return(writer(5, 1), nil).Once()
	stored := models.Message{ID: 100, ChannelID: 5, SenderID: 1, Content: "hi", Type: models.MessageText}
	messages.On("Insert", mock.Anything, mock.MatchedBy(func(m models.Message) bool {
		// An empty type defaults to TEXT before the insert.
		return m.Type == models.MessageText && m.ChannelID == 5
	})).Return(stored, nil).Once()

	msg, err := svc.Append(context.Background(), AppendInput{ChannelID: 5, SenderID: 1, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), msg.ID)

	require.Len(t, hub.events, 1)
	assert.Equal(t, models.EventMessage, hub.events[0].Type)
	assert.Equal(t, int64(100), hub.events[0].Message.ID)
	require.Len(t, fanout.appended, 1)
	assert.Equal(t, int64(100), fanout.appended[0].ID)
	messages.AssertExpectations(t)
}

func TestEditRejectsNonSender(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	svc := NewService(messages, new(mocks.MembershipRepositoryMock), &broadcasterStub{}, nil)

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1}, nil).Once()

	_, err := svc.Edit(context.Background(), 100, "new", 2)
	require.ErrorIs(t, err, models.ErrNotOwner)
}

func TestEditDeletedMessageNotFound(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	svc := NewService(messages, new(mocks.MembershipRepositoryMock), &broadcasterStub{}, nil)

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1, Deleted: true}, nil).Once()

	_, err := svc.Edit(context.Background(), 100, "new", 1)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestEditBroadcastsUpdatedContent(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	hub := &broadcasterStub{}
	svc := NewService(messages, new(mocks.MembershipRepositoryMock), hub, nil)

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1, Content: "old"}, nil).Once()
	messages.On("UpdateContent", mock.Anything, int64(100), "new").
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1, Content: "new", Edited: true}, nil).Once()

	msg, err := svc.Edit(context.Background(), 100, "new", 1)
	require.NoError(t, err)
	assert.True(t, msg.Edited)
	assert.Equal(t, "new", msg.Content)

	require.Len(t, hub.events, 1)
	assert.Equal(t, models.EventMessageEdited, hub.events[0].Type)
}

func TestSoftDeleteRejectsNonSender(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	svc := NewService(messages, new(mocks.MembershipRepositoryMock), &broadcasterStub{}, nil)

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1}, nil).Once()

	err := svc.SoftDelete(context.Background(), 100, 2)
	require.ErrorIs(t, err, models.ErrNotOwner)
}

func TestSoftDeleteBroadcastsMessageID(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	hub := &broadcasterStub{}
	svc := NewService(messages, new(mocks.MembershipRepositoryMock), hub, nil)

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1}, nil).Once()
	messages.On("SoftDelete", mock.Anything, int64(100)).Return(nil).Once()

	require.NoError(t, svc.SoftDelete(context.Background(), 100, 1))
	require.Len(t, hub.events, 1)
	assert.Equal(t, models.EventMessageDeleted, hub.events[0].Type)
	assert.Equal(t, int64(100), hub.events[0].MessageID)
}

func TestPageRequiresActiveMembership(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	left := writer(5, 1)
	left.Active = false
	members.On("GetMember", mock.Anything, 5, 1).Return(left, nil).Once()
	svc := NewService(new(mocks.MessageRepositoryMock), members, &broadcasterStub{}, nil)

	_, err := svc.Page(context.Background(), 5, 1, 0, 10)
	require.ErrorIs(t, err, models.ErrNotAMember)
}

func TestPageClampsLimit(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	svc := NewService(messages, members, &broadcasterStub{}, nil)

	members.On("GetMember", mock.Anything, 5, 1).Return(writer(5, 1), nil)
	messages.On("Page", mock.Anything, 5, int64(0), defaultPageSize).Return([]models.Message(nil), nil).Once()
	messages.On("Page", mock.Anything, 5, int64(0), maxPageSize).Return([]models.Message(nil), nil).Once()

	_, err := svc.Page(context.Background(), 5, 1, 0, 0)
	require.NoError(t, err)
	_, err = svc.Page(context.Background(), 5, 1, 0, 10000)
	require.NoError(t, err)
	messages.AssertExpectations(t)
}

func TestMediaPageRejectsNonMediaType(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	members.On("GetMember", mock.Anything, 5, 1).Return(writer(5, 1), nil)
	svc := NewService(new(mocks.MessageRepositoryMock), members, &broadcasterStub{}, nil)

	_, err := svc.MediaPage(context.Background(), 5, 1, models.MessageText, 0, 10)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestMediaPageNormalizesTypeCase(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	svc := NewService(messages, members, &broadcasterStub{}, nil)

	members.On("GetMember", mock.Anything, 5, 1).Return(writer(5, 1), nil).Once()
	messages.On("MediaPage", mock.Anything, 5, models.MessageImage, int64(0), 10).
		Return([]models.Message{{ID: 1, Type: models.MessageImage}}, nil).Once()

	msgs, err := svc.MediaPage(context.Background(), 5, 1, models.MessageType("image"), 0, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	messages.AssertExpectations(t)
}
