package websocket

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/hub"
	"github.com/tombee-studio/doresore-server/internal/middleware"
)

// WebSocketHandler 负责处理 WebSocket 升级请求和客户端注册
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
// allowedOrigins 为空或包含 "*" 时允许所有来源。
func NewWebSocketHandler(h *hub.Hub, allowedOrigins []string) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub: h,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return set[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// HandleConnection 处理 WebSocket 连接请求，URL: /ws?token=...
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	sessionID := c.GetString(middleware.ContextSessionID)
	if sessionID == "" {
		logrus.Warn("WS Handler: Session ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session not authenticated"})
		return
	}
	logCtx := logrus.WithField("session_id", sessionID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 会自行写入 HTTP 错误响应
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		return
	}
	logCtx.Info("WS Handler: Connection upgraded to WebSocket")

	if !hub.NewClient(h.hub, conn, sessionID).Run() {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
	}
}
