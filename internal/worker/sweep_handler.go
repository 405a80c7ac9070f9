package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/tasks"
)

// RoomSweeper 清理空闲房间，由 game.Registry 实现
type RoomSweeper interface {
	Sweep(now time.Time, maxIdle time.Duration) int
}

// RoomSweepHandler 处理周期性的房间清理任务
type RoomSweepHandler struct {
	sweeper RoomSweeper
	now     func() time.Time
}

// NewRoomSweepHandler 创建 Handler 实例
func NewRoomSweepHandler(sweeper RoomSweeper) *RoomSweepHandler {
	if sweeper == nil {
		panic("RoomSweeper cannot be nil for RoomSweepHandler")
	}
	return &RoomSweepHandler{sweeper: sweeper, now: time.Now}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoomSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.RoomSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.MaxIdleSeconds <= 0 {
		return fmt.Errorf("invalid max idle seconds %d: %w", payload.MaxIdleSeconds, asynq.SkipRetry)
	}

	removed := h.sweeper.Sweep(h.now(), time.Duration(payload.MaxIdleSeconds)*time.Second)
	if removed > 0 {
		logCtx.WithField("removed", removed).Info("Idle rooms swept")
	} else {
		logCtx.Debug("Room sweep found nothing to remove")
	}
	return nil
}
