package domain

// RoomState 房间一回合的生命周期状态。只能 WAITING -> PLAYING -> TIME_OVER/GAME_OVER。
type RoomState string

const (
	StateWaiting  RoomState = "waiting"
	StatePlaying  RoomState = "playing"
	StateTimeOver RoomState = "timeover"
	StateGameOver RoomState = "gameover"
)

// Terminal 是否为回合终止状态
func (s RoomState) Terminal() bool {
	return s == StateTimeOver || s == StateGameOver
}

// CanTransition 检查状态迁移是否合法
func (s RoomState) CanTransition(to RoomState) bool {
	switch s {
	case StateWaiting:
		return to == StatePlaying
	case StatePlaying:
		return to == StateTimeOver || to == StateGameOver
	default:
		return false
	}
}
