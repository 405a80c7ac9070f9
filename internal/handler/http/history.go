package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// HistoryHandler 查询已归档的回合结果，只在配置了数据库时注册
type HistoryHandler struct {
	rounds repository.RoundRepository
}

// NewHistoryHandler 创建 HistoryHandler 实例
func NewHistoryHandler(rounds repository.RoundRepository) *HistoryHandler {
	if rounds == nil {
		panic("RoundRepository cannot be nil for HistoryHandler")
	}
	return &HistoryHandler{rounds: rounds}
}

type roundResponse struct {
	ID          uint                  `json:"id"`
	RoomID      string                `json:"roomId"`
	RoomName    string                `json:"roomName"`
	Cause       string                `json:"cause"`
	MemberCount int                   `json:"memberCount"`
	WinnerID    string                `json:"winnerId,omitempty"`
	FinishedAt  int64                 `json:"finishedAt"`
	Standings   []domain.MemberResult `json:"standings,omitempty"`
}

func toRoundResponse(rec *domain.RoundRecord) roundResponse {
	return roundResponse{
		ID:          rec.ID,
		RoomID:      rec.RoomID,
		RoomName:    rec.RoomName,
		Cause:       rec.Cause,
		MemberCount: rec.MemberCount,
		WinnerID:    rec.WinnerID,
		FinishedAt:  rec.FinishedAt.UnixMilli(),
	}
}

// List 处理 GET /api/rounds?limit=
func (h *HistoryHandler) List(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	records, err := h.rounds.ListRecent(c.Request.Context(), limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	rounds := make([]roundResponse, 0, len(records))
	for i := range records {
		rounds = append(rounds, toRoundResponse(&records[i]))
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rounds": rounds, "count": len(rounds)})
}

// Get 处理 GET /api/rounds/:id，包含完整排名
func (h *HistoryHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid round ID format")
		return
	}
	rec, err := h.rounds.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	resp := toRoundResponse(rec)
	resp.Standings, err = rec.ParseStandings()
	if err != nil {
		logrus.WithError(err).WithField("round_id", rec.ID).Error("Handler.GetRound: corrupt standings")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	SuccessResponse(c, http.StatusOK, resp)
}
