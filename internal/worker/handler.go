package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/repository"
	"github.com/tombee-studio/doresore-server/internal/tasks"
)

// RoundArchiveHandler 处理回合归档任务
type RoundArchiveHandler struct {
	roundRepo repository.RoundRepository
}

// NewRoundArchiveHandler 创建 Handler 实例
func NewRoundArchiveHandler(roundRepo repository.RoundRepository) *RoundArchiveHandler {
	if roundRepo == nil {
		panic("RoundRepository cannot be nil for RoundArchiveHandler")
	}
	return &RoundArchiveHandler{roundRepo: roundRepo}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *RoundArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})
	if rw := t.ResultWriter(); rw != nil {
		logCtx = logCtx.WithField("task_id", rw.TaskID())
	}

	var payload tasks.RoundArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("room_id", payload.Result.RoomID)

	record, err := domain.NewRoundRecord(payload.Result)
	if err != nil {
		logCtx.WithError(err).Error("Failed to build round record")
		return fmt.Errorf("failed to build round record: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.roundRepo.Save(ctx, record); err != nil {
		logCtx.WithError(err).Error("Failed to save round record")
		return fmt.Errorf("failed to save round record for room %s: %w", payload.Result.RoomID, err)
	}

	logCtx.WithField("record_id", record.ID).Info("Round archived successfully")
	return nil
}
