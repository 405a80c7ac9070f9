package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/repository"
)

// session 一个 WebSocket 连接对应的会话状态
type session struct {
	member *domain.Member // 登录后才有
	roomID string         // 当前所在房间，Room 关闭后可能已失效
}

// SessionService 负责会话签发、登录和会话与房间的绑定。
// 会话 ID 同时也是成员 ID。
type SessionService struct {
	presence  repository.PresenceRepository
	jwtSecret []byte
	jwtExpiry time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(presence repository.PresenceRepository, jwtSecretKey string, jwtExpiryHours int) (*SessionService, error) {
	if presence == nil {
		panic("PresenceRepository cannot be nil for SessionService")
	}
	if jwtSecretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if jwtExpiryHours <= 0 {
		jwtExpiryHours = 24
	}
	return &SessionService{
		presence:  presence,
		jwtSecret: []byte(jwtSecretKey),
		jwtExpiry: time.Duration(jwtExpiryHours) * time.Hour,
		sessions:  make(map[string]*session),
	}, nil
}

// Issue 生成新的会话 ID 和对应的 JWT
func (s *SessionService) Issue() (sessionID, token string, expiresAt time.Time, err error) {
	sessionID = uuid.NewString()
	expiresAt = time.Now().Add(s.jwtExpiry)
	token, err = s.generateJWT(sessionID, expiresAt)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate session token")
		return "", "", time.Time{}, ErrInternalServer
	}
	logrus.WithField("session_id", sessionID).Debug("Session issued")
	return sessionID, token, expiresAt, nil
}

// ParseToken 验证 JWT 并返回会话 ID
func (s *SessionService) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	sessionID, ok := claims["session_id"].(string)
	if !ok || sessionID == "" {
		return "", ErrInvalidToken
	}
	return sessionID, nil
}

func (s *SessionService) generateJWT(sessionID string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"session_id": sessionID,
		"exp":        expiresAt.Unix(),
		"iat":        time.Now().Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Open 连接建立时登记会话，重复调用无副作用
func (s *SessionService) Open(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		s.sessions[sessionID] = &session{}
	}
}

// Close 连接断开时删除会话。调用前应先 Logout。
func (s *SessionService) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Login 以 name 登录。同一会话重复登录或名字已在线时返回 domain.ErrDuplicateLogin。
func (s *SessionService) Login(ctx context.Context, sessionID, name, avatar string) (*domain.Member, error) {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "name": name})

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok && sess.member != nil {
		s.mu.Unlock()
		logCtx.Warn("Login rejected: session already logged in")
		return nil, domain.ErrDuplicateLogin
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	if err := s.presence.Register(ctx, sessionID, name); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("Login rejected: name already online")
			return nil, domain.ErrDuplicateLogin
		}
		logCtx.WithError(err).Error("Failed to register presence")
		return nil, ErrInternalServer
	}

	member := domain.NewMember(sessionID, name, avatar)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok = s.sessions[sessionID]
	if !ok {
		// 登录过程中连接已断开
		if err := s.presence.Unregister(ctx, sessionID); err != nil {
			logCtx.WithError(err).Error("Failed to roll back presence for closed session")
		}
		return nil, ErrSessionNotFound
	}
	sess.member = member
	logCtx.Info("Member logged in")
	return member, nil
}

// Logout 退出登录，同时解除房间绑定。调用方负责先让成员离开房间。
func (s *SessionService) Logout(ctx context.Context, sessionID string) (*domain.Member, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.member == nil {
		s.mu.Unlock()
		return nil, domain.ErrNotLoggedIn
	}
	member := sess.member
	sess.member = nil
	sess.roomID = ""
	s.mu.Unlock()

	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "name": member.Name})
	if err := s.presence.Unregister(ctx, sessionID); err != nil {
		// 本地状态已清除，在线记录留给下次启动时清理
		logCtx.WithError(err).Error("Failed to unregister presence")
	}
	logCtx.Info("Member logged out")
	return member, nil
}

// Member 返回已登录会话的成员
func (s *SessionService) Member(sessionID string) (*domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.member == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return sess.member, nil
}

// RoomOf 会话绑定的房间 ID，没有时为空
func (s *SessionService) RoomOf(sessionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.roomID
	}
	return ""
}

// Bind 记录会话所在的房间
func (s *SessionService) Bind(sessionID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.roomID = roomID
	}
}

// Unbind 只在当前绑定的仍是 roomID 时解除绑定
func (s *SessionService) Unbind(sessionID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok && sess.roomID == roomID {
		sess.roomID = ""
	}
}

// OnlineCount 在线人数
func (s *SessionService) OnlineCount(ctx context.Context) (int, error) {
	n, err := s.presence.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count online members: %w", err)
	}
	return n, nil
}
