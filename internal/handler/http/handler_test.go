package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/dto"
	"github.com/tombee-studio/doresore-server/internal/game"
	handlerhttp "github.com/tombee-studio/doresore-server/internal/handler/http"
	"github.com/tombee-studio/doresore-server/internal/middleware"
	"github.com/tombee-studio/doresore-server/internal/repository"
	"github.com/tombee-studio/doresore-server/internal/repository/mocks"
	"github.com/tombee-studio/doresore-server/internal/service"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Deliver([]domain.Notification) {}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, url string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionHandler_CreateAndMe(t *testing.T) {
	sessions, err := service.NewSessionService(new(mocks.PresenceRepository), "secret", 1)
	require.NoError(t, err)
	h := handlerhttp.NewSessionHandler(sessions)
	r := gin.New()
	r.POST("/api/session", h.Create)
	r.GET("/api/session", middleware.Auth(sessions), h.Me)

	w := serve(r, http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp dto.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	w = serve(r, http.MethodGet, "/api/session", map[string]string{"Authorization": "Bearer " + resp.Token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessionId":"`+resp.SessionID+`"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/api/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoomHandler(t *testing.T) {
	codes, err := game.NewCodePool("0123456789", 4, nil)
	require.NoError(t, err)
	reg := game.NewRegistry(codes, game.DefaultSettings(), game.Deps{Broadcaster: nopBroadcaster{}})
	t.Cleanup(reg.Shutdown)
	room, err := reg.Create(game.Options{Name: "hunt", Password: "pw", Capacity: 2})
	require.NoError(t, err)
	_, err = room.Host(domain.NewMember("u1", "alice", ""))
	require.NoError(t, err)

	h := handlerhttp.NewRoomHandler(reg)
	r := gin.New()
	r.GET("/api/rooms", h.List)
	r.GET("/api/rooms/:code", h.Get)

	w := serve(r, http.MethodGet, "/api/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rooms []game.Summary `json:"rooms"`
		Count int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "hunt", list.Rooms[0].Name)
	assert.Equal(t, "1/2", list.Rooms[0].Members)
	assert.True(t, list.Rooms[0].Locked)
	assert.NotContains(t, w.Body.String(), "pw")

	w = serve(r, http.MethodGet, "/api/rooms/"+room.Code(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), room.ID())

	w = serve(r, http.MethodGet, "/api/rooms/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHistoryHandler_List(t *testing.T) {
	rounds := new(mocks.RoundRepository)
	rounds.On("ListRecent", mock.Anything, 20).Return([]domain.RoundRecord{
		{ID: 2, RoomID: "r2", Cause: "GAME_OVER", MemberCount: 2, WinnerID: "u1", FinishedAt: time.Unix(1700000000, 0)},
	}, nil).Once()
	rounds.On("ListRecent", mock.Anything, 100).Return(nil, errors.New("db down")).Once()

	h := handlerhttp.NewHistoryHandler(rounds)
	r := gin.New()
	r.GET("/api/rounds", h.List)

	w := serve(r, http.MethodGet, "/api/rounds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"winnerId":"u1"`)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = serve(r, http.MethodGet, "/api/rounds?limit=500", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "limit 超过上限时截断为 100")

	w = serve(r, http.MethodGet, "/api/rounds?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	rounds.AssertExpectations(t)
}

func TestHistoryHandler_Get(t *testing.T) {
	rec, err := domain.NewRoundRecord(domain.Result{
		RoomID: "r1",
		Cause:  domain.StateTimeOver,
		Members: []domain.MemberResult{
			{MemberID: "u1", Name: "alice", Count: 2, Rank: 1},
			{MemberID: "u2", Name: "bob", Count: 0, Rank: 2},
		},
	})
	require.NoError(t, err)
	rec.ID = 7

	rounds := new(mocks.RoundRepository)
	rounds.On("FindByID", mock.Anything, uint(7)).Return(rec, nil)
	rounds.On("FindByID", mock.Anything, uint(8)).Return(nil, repository.ErrRoundNotFound)

	h := handlerhttp.NewHistoryHandler(rounds)
	r := gin.New()
	r.GET("/api/rounds/:id", h.Get)

	w := serve(r, http.MethodGet, "/api/rounds/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Standings []domain.MemberResult `json:"standings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Standings, 2)
	assert.Equal(t, "alice", body.Standings[0].Name)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/rounds/8", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/api/rounds/abc", nil).Code)
}
