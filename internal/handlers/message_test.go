package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"comms-service/internal/messagelog"
	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

func setupMessageRouter(messages *mocks.MessageRepositoryMock, members *mocks.MembershipRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := messagelog.NewService(messages, members, nopBus{}, nopFanout{})
	handler := NewMessageHandler(svc)

	r := gin.New()
	r.Use(authAs(1, models.Identity{UserID: 1}))
	r.POST("/channels/:channel_id/messages", handler.PostMessage)
	r.GET("/channels/:channel_id/messages", handler.GetMessages)
	r.GET("/channels/:channel_id/media", handler.GetMedia)
	r.PATCH("/messages/:message_id", handler.EditMessage)
	r.DELETE("/messages/:message_id", handler.DeleteMessage)
	return r
}

func activeWriter(channelID, userID int) models.Membership {
	return models.Membership{ChannelID: channelID, UserID: userID, Role: models.RoleMember, CanWrite: true, Active: true}
}

func TestPostMessageSuccess(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	members := new(mocks.MembershipRepositoryMock)
	router := setupMessageRouter(messages, members)

	members.On("GetMember", mock.Anything, 5, 1).Return(activeWriter(5, 1), nil).Once()
	messages.On("Insert", mock.Anything, mock.Anything).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1, Content: "hi", Type: models.MessageText}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, int64(100), resp.ID)
	messages.AssertExpectations(t)
}

func TestPostMessageForbiddenForNonMember(t *testing.T) {
	members := new(mocks.MembershipRepositoryMock)
	router := setupMessageRouter(new(mocks.MessageRepositoryMock), members)

	members.On("GetMember", mock.Anything, 5, 1).
		Return(models.Membership{}, repositories.ErrMemberNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/channels/5/messages", bytes.NewBufferString(`{"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPostMessageMissingContent(t *testing.T) {
	router := setupMessageRouter(new(mocks.MessageRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/channels/5/messages", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMessagesReturnsCursor(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	members := new(mocks.MembershipRepositoryMock)
	router := setupMessageRouter(messages, members)

	members.On("GetMember", mock.Anything, 5, 1).Return(activeWriter(5, 1), nil).Once()
	messages.On("Page", mock.Anything, 5, int64(0), 50).
		Return([]models.Message{{ID: 102, ChannelID: 5}, {ID: 101, ChannelID: 5}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels/5/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages   []models.Message `json:"messages"`
		NextCursor int64            `json:"next_cursor"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Messages, 2)
	require.Equal(t, int64(101), resp.NextCursor)
}

func TestGetMessagesForwardsCursor(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	members := new(mocks.MembershipRepositoryMock)
	router := setupMessageRouter(messages, members)

	members.On("GetMember", mock.Anything, 5, 1).Return(activeWriter(5, 1), nil).Once()
	messages.On("Page", mock.Anything, 5, int64(101), 20).
		Return([]models.Message(nil), nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels/5/messages?cursor=101&limit=20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messages.AssertExpectations(t)
}

func TestGetMediaRequiresType(t *testing.T) {
	router := setupMessageRouter(new(mocks.MessageRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodGet, "/channels/5/media", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMediaFiltersByType(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	members := new(mocks.MembershipRepositoryMock)
	router := setupMessageRouter(messages, members)

	members.On("GetMember", mock.Anything, 5, 1).Return(activeWriter(5, 1), nil).Once()
	messages.On("MediaPage", mock.Anything, 5, models.MessageImage, int64(0), 50).
		Return([]models.Message{{ID: 1, Type: models.MessageImage}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/channels/5/media?type=IMAGE", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messages.AssertExpectations(t)
}

func TestEditMessageForbiddenForNonSender(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(messages, new(mocks.MembershipRepositoryMock))

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 2}, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/messages/100", bytes.NewBufferString(`{"content":"new"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteMessageSuccess(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(messages, new(mocks.MembershipRepositoryMock))

	messages.On("Get", mock.Anything, int64(100)).
		Return(models.Message{ID: 100, ChannelID: 5, SenderID: 1}, nil).Once()
	messages.On("SoftDelete", mock.Anything, int64(100)).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/100", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	messages.AssertExpectations(t)
}

func TestDeleteMessageInvalidID(t *testing.T) {
	router := setupMessageRouter(new(mocks.MessageRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodDelete, "/messages/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
