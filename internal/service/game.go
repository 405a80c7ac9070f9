package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/dto"
	"github.com/tombee-studio/doresore-server/internal/game"
)

// GameService 把客户端消息分发到房间操作，返回需要投递的通知。
// 同一会话的消息由调用方按顺序传入。
type GameService struct {
	sessions   *SessionService
	registry   *game.Registry
	recognizer Recognizer
	timeout    time.Duration
	validator  binding.StructValidator
}

// NewGameService 创建 GameService 实例
func NewGameService(sessions *SessionService, registry *game.Registry, recognizer Recognizer, recognitionTimeout time.Duration) *GameService {
	if sessions == nil {
		panic("SessionService cannot be nil for GameService")
	}
	if registry == nil {
		panic("Registry cannot be nil for GameService")
	}
	if recognizer == nil {
		panic("Recognizer cannot be nil for GameService")
	}
	if recognitionTimeout <= 0 {
		recognitionTimeout = 10 * time.Second
	}
	return &GameService{
		sessions:   sessions,
		registry:   registry,
		recognizer: recognizer,
		timeout:    recognitionTimeout,
		validator:  binding.Validator,
	}
}

// Connect 新连接建立
func (s *GameService) Connect(ctx context.Context, sessionID string) []domain.Notification {
	s.sessions.Open(sessionID)
	if note, ok := s.onlineCount(ctx, domain.ScopeSender, sessionID); ok {
		return []domain.Notification{note}
	}
	return nil
}

// Disconnect 连接断开：离开房间、退出登录、删除会话
func (s *GameService) Disconnect(ctx context.Context, sessionID string) []domain.Notification {
	logCtx := logrus.WithField("session_id", sessionID)
	var notes []domain.Notification

	if room, err := s.currentRoom(sessionID); err == nil {
		left, err := s.leave(room, sessionID)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to leave room on disconnect")
		}
		notes = append(notes, left...)
	}
	if _, err := s.sessions.Logout(ctx, sessionID); err == nil {
		if note, ok := s.onlineCount(ctx, domain.ScopeAll, ""); ok {
			notes = append(notes, note)
		}
	}
	s.sessions.Close(sessionID)
	logCtx.Debug("Session disconnected")
	return notes
}

// Handle 处理一条原始消息。业务错误会变成发给发送者的 runtime error 通知。
func (s *GameService) Handle(ctx context.Context, sessionID string, raw []byte) []domain.Notification {
	var env dto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logrus.WithField("session_id", sessionID).WithError(err).Warn("Dropped message with invalid JSON")
		return []domain.Notification{domain.ErrBadMessage.With("reason", "invalid json").Notify(sessionID)}
	}
	if err := s.validator.ValidateStruct(&env); err != nil {
		logrus.WithField("session_id", sessionID).WithError(err).Warn("Dropped message without type")
		return []domain.Notification{domain.ErrBadMessage.With("reason", "missing type").Notify(sessionID)}
	}

	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "type": env.Type})
	notes, err := s.dispatch(ctx, sessionID, env)
	if err != nil {
		if re, ok := game.IsRuleError(err); ok {
			if re.Code == domain.CodeBadMessage {
				logCtx.WithError(err).Warn("Dropped invalid message")
			} else {
				logCtx.WithField("code", re.Code).Debug("Message rejected")
			}
			return append(notes, re.Notify(sessionID))
		}
		logCtx.WithError(err).Error("Failed to handle message")
		return append(notes, domain.ErrInternal.Notify(sessionID))
	}
	return notes
}

func (s *GameService) dispatch(ctx context.Context, sessionID string, env dto.Envelope) ([]domain.Notification, error) {
	switch env.Type {
	case dto.TypeLogin:
		var req dto.LoginRequest
		if err := s.decode(env.Data, &req); err != nil {
			return nil, err
		}
		return s.login(ctx, sessionID, req)
	case dto.TypeLogout:
		return s.logout(ctx, sessionID)
	case dto.TypeMakeRoom:
		var req dto.MakeRoomRequest
		if err := s.decode(env.Data, &req); err != nil {
			return nil, err
		}
		return s.makeRoom(sessionID, req)
	case dto.TypeJoinRoom:
		var req dto.JoinRoomRequest
		if err := s.decode(env.Data, &req); err != nil {
			return nil, err
		}
		return s.joinRoom(sessionID, req)
	case dto.TypeSearchRooms:
		rooms := s.registry.List()
		return []domain.Notification{{
			Event:      domain.EventRooms,
			Scope:      domain.ScopeSender,
			Recipients: []string{sessionID},
			Payload:    dto.RoomListResponse{Rooms: rooms, Count: len(rooms)},
		}}, nil
	case dto.TypeSendImage:
		var req dto.SendImageRequest
		if err := s.decode(env.Data, &req); err != nil {
			return nil, err
		}
		return s.sendImage(ctx, sessionID, req)
	case dto.TypeReady:
		return s.withRoom(sessionID, (*game.Room).Ready)
	case dto.TypeStartGame:
		return s.withRoom(sessionID, (*game.Room).Start)
	case dto.TypeAckResult:
		return s.withRoom(sessionID, (*game.Room).Acknowledge)
	case dto.TypeGetResult:
		return s.withRoom(sessionID, (*game.Room).ResultFor)
	case dto.TypeDisbandRoom:
		return s.withRoom(sessionID, (*game.Room).Disband)
	case dto.TypeLeaveRoom:
		room, err := s.currentRoom(sessionID)
		if err != nil {
			return nil, err
		}
		return s.leave(room, sessionID)
	default:
		return nil, domain.ErrBadMessage.With("reason", "unknown type")
	}
}

func (s *GameService) decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.ErrBadMessage.With("reason", "invalid data")
	}
	if err := s.validator.ValidateStruct(out); err != nil {
		return domain.ErrBadMessage.With("reason", err.Error())
	}
	return nil
}

func (s *GameService) login(ctx context.Context, sessionID string, req dto.LoginRequest) ([]domain.Notification, error) {
	member, err := s.sessions.Login(ctx, sessionID, req.Name, req.Avatar)
	if err != nil {
		return nil, err
	}
	notes := []domain.Notification{{
		Event:      domain.EventLoggedIn,
		Scope:      domain.ScopeSender,
		Recipients: []string{sessionID},
		Payload:    member,
	}}
	if note, ok := s.onlineCount(ctx, domain.ScopeAll, ""); ok {
		notes = append(notes, note)
	}
	return notes, nil
}

func (s *GameService) logout(ctx context.Context, sessionID string) ([]domain.Notification, error) {
	if _, err := s.sessions.Member(sessionID); err != nil {
		return nil, err
	}
	var notes []domain.Notification
	if room, err := s.currentRoom(sessionID); err == nil {
		left, err := s.leave(room, sessionID)
		if err != nil {
			return left, err
		}
		notes = append(notes, left...)
	}
	if _, err := s.sessions.Logout(ctx, sessionID); err != nil {
		return notes, err
	}
	if note, ok := s.onlineCount(ctx, domain.ScopeAll, ""); ok {
		notes = append(notes, note)
	}
	return notes, nil
}

func (s *GameService) makeRoom(sessionID string, req dto.MakeRoomRequest) ([]domain.Notification, error) {
	member, err := s.sessions.Member(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.currentRoom(sessionID); err == nil {
		return nil, domain.ErrAlreadyInRoom
	}

	room, err := s.registry.Create(game.Options{
		Name:      req.Name,
		Icon:      req.Icon,
		Password:  req.Password,
		Capacity:  req.NumMembers,
		Certified: req.Certified,
	})
	if err != nil {
		return nil, err
	}
	notes, err := room.Host(member)
	if err != nil {
		s.registry.Delete(room.ID())
		return nil, err
	}
	s.sessions.Bind(sessionID, room.ID())
	return notes, nil
}

func (s *GameService) joinRoom(sessionID string, req dto.JoinRoomRequest) ([]domain.Notification, error) {
	member, err := s.sessions.Member(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.currentRoom(sessionID); err == nil {
		return nil, domain.ErrAlreadyInRoom
	}

	var (
		room *game.Room
		ok   bool
	)
	if req.RoomID != "" {
		room, ok = s.registry.Lookup(req.RoomID)
	} else {
		room, ok = s.registry.LookupByCode(req.Code)
	}
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	notes, err := room.Join(member, req.Password)
	if err != nil {
		return nil, err
	}
	s.sessions.Bind(sessionID, room.ID())
	return notes, nil
}

// sendImage 识别调用在房间锁之外进行，结果回来后由 Room 重新校验成员和状态
func (s *GameService) sendImage(ctx context.Context, sessionID string, req dto.SendImageRequest) ([]domain.Notification, error) {
	room, err := s.currentRoom(sessionID)
	if err != nil {
		return nil, err
	}
	evidence, photo, err := DecodePhoto(req.Image)
	if err != nil {
		return nil, domain.ErrBadMessage.With("reason", err.Error())
	}

	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "room_id": room.ID(), "bytes": len(photo)})
	detectCtx, cancel := context.WithTimeout(ctx, s.timeout)
	detections, err := s.recognizer.Detect(detectCtx, photo)
	cancel()
	if err != nil {
		logCtx.WithError(err).Error("Recognition failed, treating as no detections")
		detections = nil
	}
	logCtx.WithField("detections", len(detections)).Debug("Photo recognized")

	_, notes, err := room.Submit(sessionID, evidence, detections)
	s.reap(room)
	return notes, err
}

func (s *GameService) withRoom(sessionID string, op func(*game.Room, string) ([]domain.Notification, error)) ([]domain.Notification, error) {
	room, err := s.currentRoom(sessionID)
	if err != nil {
		return nil, err
	}
	notes, err := op(room, sessionID)
	s.reap(room)
	return notes, err
}

func (s *GameService) leave(room *game.Room, sessionID string) ([]domain.Notification, error) {
	notes, err := room.Leave(sessionID)
	s.sessions.Unbind(sessionID, room.ID())
	s.reap(room)
	return notes, err
}

// currentRoom 返回会话所在且仍然有效的房间，失效的绑定会被清除
func (s *GameService) currentRoom(sessionID string) (*game.Room, error) {
	if _, err := s.sessions.Member(sessionID); err != nil {
		return nil, err
	}
	roomID := s.sessions.RoomOf(sessionID)
	if roomID == "" {
		return nil, domain.ErrNotInRoom
	}
	room, ok := s.registry.Lookup(roomID)
	if ok && !room.Closed() {
		if _, isMember := room.Member(sessionID); isMember {
			return room, nil
		}
	}
	s.sessions.Unbind(sessionID, roomID)
	return nil, domain.ErrNotInRoom
}

// reap 房间关闭后从注册表删除
func (s *GameService) reap(room *game.Room) {
	if room.Closed() {
		s.registry.Delete(room.ID())
	}
}

func (s *GameService) onlineCount(ctx context.Context, scope domain.Scope, recipient string) (domain.Notification, bool) {
	n, err := s.sessions.OnlineCount(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to read online count")
		return domain.Notification{}, false
	}
	note := domain.Notification{
		Event:   domain.EventOnlineCount,
		Scope:   scope,
		Payload: map[string]int{"count": n},
	}
	if recipient != "" {
		note.Recipients = []string{recipient}
	}
	return note, true
}
