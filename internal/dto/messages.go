package dto

import "encoding/json"

// 客户端发送的消息类型
const (
	TypeLogin       = "login"
	TypeLogout      = "logout"
	TypeMakeRoom    = "make room"
	TypeJoinRoom    = "join room"
	TypeSearchRooms = "search rooms"
	TypeReady       = "ready"
	TypeStartGame   = "start game"
	TypeSendImage   = "send image"
	TypeLeaveRoom   = "leave room"
	TypeDisbandRoom = "disband room"
	TypeAckResult   = "ack result"
	TypeGetResult   = "get result"
)

// Envelope 表示从客户端 WebSocket 消息中解析出的外层结构，Data 按 Type 再次解析
type Envelope struct {
	Type string          `json:"type" binding:"required"`
	Data json.RawMessage `json:"data"`
}

type LoginRequest struct {
	Name   string `json:"name" binding:"required,max=32"`
	Avatar string `json:"avatar" binding:"omitempty,max=512"`
}

type MakeRoomRequest struct {
	Name       string `json:"name" binding:"max=64"`
	Icon       string `json:"icon" binding:"max=512"`
	Password   string `json:"password" binding:"max=64"`
	NumMembers int    `json:"numMembers" binding:"omitempty,min=1,max=16"`
	Certified  bool   `json:"certified"`
}

// JoinRoomRequest 可以用房间 ID 或房间码加入
type JoinRoomRequest struct {
	RoomID   string `json:"roomId" binding:"required_without=Code"`
	Code     string `json:"code" binding:"required_without=RoomID"`
	Password string `json:"password" binding:"max=64"`
}

// SendImageRequest Image 为 base64 编码的照片，可以带 data URL 前缀
type SendImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// SessionResponse POST /api/session 的响应
type SessionResponse struct {
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// RoomListResponse GET /api/rooms 的响应
type RoomListResponse struct {
	Rooms any `json:"rooms"`
	Count int `json:"count"`
}
