package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/repository"
	"github.com/tombee-studio/doresore-server/internal/tasks"
)

// WorkerServer 封装了 Asynq Worker Server 的启动和关闭逻辑
type WorkerServer struct {
	server    *asynq.Server
	log       *logrus.Entry
	roundRepo repository.RoundRepository // 为空时不处理归档任务
	sweeper   RoomSweeper
	queues    map[string]int
}

// NewWorkerServer 创建一个新的 WorkerServer 实例
// sweepQueue 是本实例专用的清理队列，共享队列里的清理任务可能被别的实例消费。
func NewWorkerServer(redisOpt asynq.RedisClientOpt, roundRepo repository.RoundRepository, sweeper RoomSweeper, sweepQueue string, logger *logrus.Logger) *WorkerServer {
	if sweeper == nil {
		panic("RoomSweeper cannot be nil for WorkerServer")
	}
	if sweepQueue == "" {
		panic("sweep queue cannot be empty for WorkerServer")
	}
	logEntry := logger.WithField("component", "worker_server")
	queues := map[string]int{
		"critical": 6,
		"default":  3,
		sweepQueue: 2,
		"low":      1,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	return &WorkerServer{
		server:    server,
		log:       logEntry,
		roundRepo: roundRepo,
		sweeper:   sweeper,
		queues:    queues,
	}
}

// Queues 返回 Worker 监听的队列及其优先级
func (ws *WorkerServer) Queues() map[string]int {
	out := make(map[string]int, len(ws.queues))
	for q, p := range ws.queues {
		out[q] = p
	}
	return out
}

// Mux 注册所有任务处理器
func (ws *WorkerServer) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	if ws.roundRepo != nil {
		mux.HandleFunc(tasks.TypeRoundArchive, NewRoundArchiveHandler(ws.roundRepo).ProcessTask)
	} else {
		ws.log.Info("Round archive disabled, archive tasks will not be processed")
	}
	mux.HandleFunc(tasks.TypeRoomSweep, NewRoomSweepHandler(ws.sweeper).ProcessTask)
	return mux
}

// Start 运行 Worker Server，应该在一个单独的 goroutine 中调用
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.Mux()); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
