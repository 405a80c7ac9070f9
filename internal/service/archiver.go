package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/tasks"
)

// ResultArchiver 保存已结束回合的结果
type ResultArchiver interface {
	Archive(ctx context.Context, res domain.Result) error
}

// TaskEnqueuer 由 *asynq.Client 实现
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqArchiver 把结果作为后台任务入队，由 worker 写入数据库
type AsynqArchiver struct {
	client TaskEnqueuer
}

func NewAsynqArchiver(client TaskEnqueuer) *AsynqArchiver {
	if client == nil {
		panic("TaskEnqueuer cannot be nil for AsynqArchiver")
	}
	return &AsynqArchiver{client: client}
}

func (a *AsynqArchiver) Archive(ctx context.Context, res domain.Result) error {
	payload, err := tasks.NewRoundArchivePayload(res)
	if err != nil {
		return err
	}
	task := asynq.NewTask(tasks.TypeRoundArchive, payload)
	info, err := a.client.EnqueueContext(ctx, task,
		asynq.Queue("low"),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("asynq: failed to enqueue round archive for room %s: %w", res.RoomID, err)
	}
	logrus.WithFields(logrus.Fields{"room_id": res.RoomID, "task_id": info.ID}).Debug("Round archive task enqueued")
	return nil
}

// NoopArchiver 未配置数据库时使用
type NoopArchiver struct{}

func (NoopArchiver) Archive(_ context.Context, res domain.Result) error {
	logrus.WithField("room_id", res.RoomID).Debug("Round archive disabled, result dropped")
	return nil
}

// ArchiveHook 适配为 game.Deps.OnResult
func ArchiveHook(archiver ResultArchiver, timeout time.Duration) func(domain.Result) {
	return func(res domain.Result) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := archiver.Archive(ctx, res); err != nil {
			logrus.WithError(err).WithField("room_id", res.RoomID).Error("Failed to archive round result")
		}
	}
}
