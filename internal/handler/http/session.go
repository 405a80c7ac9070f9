package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tombee-studio/doresore-server/internal/dto"
	"github.com/tombee-studio/doresore-server/internal/middleware"
	"github.com/tombee-studio/doresore-server/internal/service"
)

// SessionHandler 会话签发。会话 ID 同时作为成员 ID，WebSocket 连接时需要携带令牌。
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	if sessionService == nil {
		panic("SessionService cannot be nil for SessionHandler")
	}
	return &SessionHandler{sessionService: sessionService}
}

// Create 处理 POST /api/session
func (h *SessionHandler) Create(c *gin.Context) {
	sessionID, token, expiresAt, err := h.sessionService.Issue()
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, dto.SessionResponse{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
	})
}

// Me 处理 GET /api/session，需要 Auth 中间件
func (h *SessionHandler) Me(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	if sessionID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "Session not authenticated")
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"sessionId": sessionID})
}
