package domain

import (
	"fmt"
)

// Scope 通知的投递范围
type Scope string

const (
	ScopeRoom   Scope = "room"   // 房间内所有成员
	ScopeOthers Scope = "others" // 除发送者以外的成员
	ScopeSender Scope = "sender" // 仅发送者
	ScopeAll    Scope = "all"    // 所有在线连接（房间外的全局消息）
)

// 下发给客户端的事件名
const (
	EventRoomRoster     = "room roster"
	EventReadyState     = "ready state"
	EventRoundStarted   = "round started"
	EventRoundTick      = "round tick"
	EventClaimSucceeded = "claim succeeded"
	EventClaimObserved  = "claim observed"
	EventClaimRejected  = "claim rejected"
	EventRoundCleared   = "round cleared"
	EventRoundTimedOut  = "round timed out"
	EventMemberLeft     = "member left"
	EventRoomClosed     = "room closed"
	EventResult         = "result"
	EventRoomJoined     = "room joined"
	EventRooms          = "rooms"
	EventOnlineCount    = "online count"
	EventLoggedIn       = "logged in"
	EventRuntimeError   = "runtime error"
)

// Notification 是房间操作产生的一条待投递消息。
// Recipients 在生成时就已解析为成员 ID，投递层不需要再去查房间。
type Notification struct {
	Event      string   `json:"type"`
	Scope      Scope    `json:"-"`
	Recipients []string `json:"-"`
	Payload    any      `json:"data"`
}

// 错误码
const (
	CodeRoomFull       = 10
	CodeWrongPassword  = 11
	CodeRoomNotFound   = 12
	CodeNotHost        = 13
	CodeNotAllReady    = 14
	CodeInvalidState   = 15
	CodeAlreadyInRoom  = 16
	CodeNotInRoom      = 17
	CodeDuplicateLogin = 20
	CodeNotLoggedIn    = 21
	CodeBadMessage     = 30 // 无法解析或校验失败的消息
	CodeInternal       = 50
)

// RuleError 违反业务规则的错误，会以 "runtime error" 通知返回给请求者
type RuleError struct {
	Code    int
	Message string
	Extra   map[string]any
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule violation %d: %s", e.Code, e.Message)
}

// Is 只比较错误码，便于 errors.Is(err, domain.ErrRoomFull)
func (e *RuleError) Is(target error) bool {
	t, ok := target.(*RuleError)
	return ok && t.Code == e.Code
}

// With 复制错误并附加额外字段，kv 为 key, value 成对出现
func (e *RuleError) With(kv ...any) *RuleError {
	cp := &RuleError{Code: e.Code, Message: e.Message, Extra: make(map[string]any, len(e.Extra)+len(kv)/2)}
	for k, v := range e.Extra {
		cp.Extra[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			cp.Extra[key] = kv[i+1]
		}
	}
	return cp
}

// Payload 生成发送给客户端的错误数据
func (e *RuleError) Payload() map[string]any {
	p := map[string]any{"code": e.Code, "message": e.Message}
	for k, v := range e.Extra {
		p[k] = v
	}
	return p
}

// Notify 包装成发给单个成员的错误通知
func (e *RuleError) Notify(recipient string) Notification {
	return Notification{
		Event:      EventRuntimeError,
		Scope:      ScopeSender,
		Recipients: []string{recipient},
		Payload:    e.Payload(),
	}
}

var (
	ErrRoomFull       = &RuleError{Code: CodeRoomFull, Message: "the room has reached its member limit"}
	ErrWrongPassword  = &RuleError{Code: CodeWrongPassword, Message: "wrong room password"}
	ErrRoomNotFound   = &RuleError{Code: CodeRoomNotFound, Message: "room not found"}
	ErrNotHost        = &RuleError{Code: CodeNotHost, Message: "only the host can do this"}
	ErrNotAllReady    = &RuleError{Code: CodeNotAllReady, Message: "not every member is ready"}
	ErrInvalidState   = &RuleError{Code: CodeInvalidState, Message: "operation not allowed in the current room state"}
	ErrAlreadyInRoom  = &RuleError{Code: CodeAlreadyInRoom, Message: "already in a room"}
	ErrNotInRoom      = &RuleError{Code: CodeNotInRoom, Message: "not in a room"}
	ErrDuplicateLogin = &RuleError{Code: CodeDuplicateLogin, Message: "this user is already logged in"}
	ErrNotLoggedIn    = &RuleError{Code: CodeNotLoggedIn, Message: "login required"}
	ErrBadMessage     = &RuleError{Code: CodeBadMessage, Message: "malformed message"}
	ErrInternal       = &RuleError{Code: CodeInternal, Message: "internal server error"}
)
