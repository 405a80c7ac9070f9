package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/service"
	"github.com/tombee-studio/doresore-server/internal/tasks"
)

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func TestAsynqArchiver_Archive(t *testing.T) {
	enq := &fakeEnqueuer{}
	archiver := service.NewAsynqArchiver(enq)
	res := domain.Result{
		RoomID: "r1",
		Cause:  domain.StateGameOver,
		Members: []domain.MemberResult{
			{MemberID: "u1", Rank: 1, Count: 1, Items: []string{"book"}, Evidence: []string{"photo"}},
		},
	}

	require.NoError(t, archiver.Archive(context.Background(), res))
	require.Equal(t, 1, enq.count())
	task := enq.tasks[0]
	assert.Equal(t, tasks.TypeRoundArchive, task.Type())

	var payload tasks.RoundArchivePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "r1", payload.Result.RoomID)
	assert.NotContains(t, string(task.Payload()), "photo", "证据照片不应进入任务队列")
}

func TestAsynqArchiver_EnqueueError(t *testing.T) {
	archiver := service.NewAsynqArchiver(&fakeEnqueuer{err: errors.New("redis down")})
	err := archiver.Archive(context.Background(), domain.Result{RoomID: "r1"})
	assert.Error(t, err)
}

func TestArchiveHook(t *testing.T) {
	enq := &fakeEnqueuer{}
	hook := service.ArchiveHook(service.NewAsynqArchiver(enq), time.Second)
	hook(domain.Result{RoomID: "r1"})
	assert.Equal(t, 1, enq.count())

	// 失败只记录日志
	failing := service.ArchiveHook(service.NewAsynqArchiver(&fakeEnqueuer{err: errors.New("x")}), time.Second)
	assert.NotPanics(t, func() { failing(domain.Result{RoomID: "r2"}) })
	assert.NotPanics(t, func() { service.ArchiveHook(service.NoopArchiver{}, time.Second)(domain.Result{}) })
}
