package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// 定义任务类型常量
const (
	TypeRoundArchive = "round:archive" // 回合结果归档任务类型
	TypeRoomSweep    = "room:sweep"    // 周期性清理空闲房间
)

// RoundArchivePayload 定义了回合归档任务的数据结构。
// 证据照片在入队前已被去掉，避免任务体积过大。
type RoundArchivePayload struct {
	Result domain.Result
}

// NewRoundArchivePayload 创建回合归档任务的 payload
func NewRoundArchivePayload(res domain.Result) ([]byte, error) {
	stripped := res
	stripped.Members = make([]domain.MemberResult, len(res.Members))
	for i, m := range res.Members {
		m.Evidence = nil
		stripped.Members[i] = m
	}
	payloadBytes, err := json.Marshal(RoundArchivePayload{Result: stripped})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal round archive payload: %w", err)
	}
	return payloadBytes, nil
}

// RoomSweepPayload 周期性清理任务，MaxIdleSeconds 为空闲上限
type RoomSweepPayload struct {
	MaxIdleSeconds int
}

// NewRoomSweepPayload 创建清理任务的 payload
func NewRoomSweepPayload(maxIdleSeconds int) ([]byte, error) {
	payloadBytes, err := json.Marshal(RoomSweepPayload{MaxIdleSeconds: maxIdleSeconds})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal room sweep payload: %w", err)
	}
	return payloadBytes, nil
}
