package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
)

// ContextSessionID 中间件把会话 ID 存入 gin.Context 使用的键
const ContextSessionID = "session_id"

// TokenParser 验证会话令牌并返回会话 ID，由 service.SessionService 实现
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// Auth 返回一个 Gin 中间件，用于验证会话 JWT。
// 浏览器的 WebSocket 无法设置请求头，因此也接受 ?token= 查询参数。
func Auth(parser TokenParser) gin.HandlerFunc {
	if parser == nil {
		panic("TokenParser cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Warn("Auth middleware: Missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			} else {
				logrus.Warnf("Auth middleware: Malformed token format: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token format"})
			}
			c.Abort()
			return
		}

		sessionID, err := parser.ParseToken(tokenStr)
		if err != nil {
			logCtx := logrus.WithError(err)
			logCtx.Warn("Auth middleware: Invalid token")
			var validationError *jwt.ValidationError
			if errors.As(err, &validationError) && validationError.Errors&jwt.ValidationErrorExpired != 0 {
				logCtx.Warn("Reason: Token is expired")
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextSessionID, sessionID)
		logrus.WithField("session_id", sessionID).Debug("Auth middleware: Session authenticated via JWT")
		c.Next()
	}
}

// ErrMissingAuthHeader 定义一个自定义错误，用于表示缺少 Authorization 头
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// extractToken 从 Authorization: Bearer <token> 或 token 查询参数中提取令牌
func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", jwt.ErrTokenMalformed
	}
	return parts[1], nil
}
