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

	"comms-service/internal/calls"
	"comms-service/internal/mocks"
	"comms-service/internal/models"
	"comms-service/internal/repositories"
)

func setupCallRouter(callRepo *mocks.CallRepositoryMock, members *mocks.MembershipRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	manager := calls.NewManager(callRepo, members, nopBus{}, nopFanout{}, 0)
	handler := NewCallHandler(manager)

	r := gin.New()
	r.Use(authAs(1, models.Identity{UserID: 1}))
	r.POST("/calls", handler.StartCall)
	r.POST("/calls/:call_id/answer", handler.AnswerCall)
	r.POST("/calls/:call_id/reject", handler.RejectCall)
	r.POST("/calls/:call_id/end", handler.EndCall)
	r.POST("/calls/signal", handler.Signal)
	return r
}

func TestStartCallSuccess(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	members := new(mocks.MembershipRepositoryMock)
	router := setupCallRouter(callRepo, members)

	for _, id := range []int{1, 2} {
		members.On("GetMember", mock.Anything, 5, id).
			Return(models.Membership{ChannelID: 5, UserID: id, Active: true, CanWrite: true}, nil).Once()
	}
	callRepo.On("FindActiveByPair", mock.Anything, 1, 2).
		Return(models.Call{}, repositories.ErrCallNotFound).Once()
	callRepo.On("FindActiveByPair", mock.Anything, 2, 1).
		Return(models.Call{}, repositories.ErrCallNotFound).Once()
	callRepo.On("Insert", mock.Anything, mock.Anything).
		Return(models.Call{ID: 9, ChannelID: 5, CallerID: 1, ReceiverID: 2, Status: models.CallInitiated}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/calls", bytes.NewBufferString(`{"channel_id":5,"receiver_id":2}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Call
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, models.CallInitiated, resp.Status)
	callRepo.AssertExpectations(t)
}

func TestStartCallMissingReceiver(t *testing.T) {
	router := setupCallRouter(new(mocks.CallRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/calls", bytes.NewBufferString(`{"channel_id":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnswerCallConflictWhenTerminal(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	router := setupCallRouter(callRepo, new(mocks.MembershipRepositoryMock))

	callRepo.On("Get", mock.Anything, 9).
		Return(models.Call{ID: 9, CallerID: 2, ReceiverID: 1, Status: models.CallEnded}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/calls/9/answer", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAnswerCallForbiddenForCaller(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	router := setupCallRouter(callRepo, new(mocks.MembershipRepositoryMock))

	// The authenticated user is the caller, so answering is not allowed.
	callRepo.On("Get", mock.Anything, 9).
		Return(models.Call{ID: 9, CallerID: 1, ReceiverID: 2, Status: models.CallInitiated}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/calls/9/answer", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEndCallNotFound(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	router := setupCallRouter(callRepo, new(mocks.MembershipRepositoryMock))

	callRepo.On("Get", mock.Anything, 9).
		Return(models.Call{}, repositories.ErrCallNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/calls/9/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallTransitionInvalidID(t *testing.T) {
	router := setupCallRouter(new(mocks.CallRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/calls/abc/end", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalAccepted(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	router := setupCallRouter(callRepo, new(mocks.MembershipRepositoryMock))

	callRepo.On("FindActiveByPair", mock.Anything, 1, 2).
		Return(models.Call{ID: 9, CallerID: 1, ReceiverID: 2, Status: models.CallAnswered}, nil).Once()

	body := bytes.NewBufferString(`{"type":"ice_candidate","to":2,"data":{"candidate":"c"}}`)
	req := httptest.NewRequest(http.MethodPost, "/calls/signal", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	callRepo.AssertExpectations(t)
}

func TestSignalRequiresAddressee(t *testing.T) {
	router := setupCallRouter(new(mocks.CallRepositoryMock), new(mocks.MembershipRepositoryMock))

	req := httptest.NewRequest(http.MethodPost, "/calls/signal", bytes.NewBufferString(`{"type":"offer"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignalWithoutLiveCallNotFound(t *testing.T) {
	callRepo := new(mocks.CallRepositoryMock)
	router := setupCallRouter(callRepo, new(mocks.MembershipRepositoryMock))

	callRepo.On("FindActiveByPair", mock.Anything, 1, 2).
		Return(models.Call{}, repositories.ErrCallNotFound).Once()
	callRepo.On("FindActiveByPair", mock.Anything, 2, 1).
		Return(models.Call{}, repositories.ErrCallNotFound).Once()

	body := bytes.NewBufferString(`{"type":"offer","to":2,"data":{}}`)
	req := httptest.NewRequest(http.MethodPost, "/calls/signal", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
