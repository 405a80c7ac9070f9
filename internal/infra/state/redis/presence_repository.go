package redisstate

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/tombee-studio/doresore-server/internal/repository"
)

// RedisPresenceRepository 是 PresenceRepository 接口的 Redis 实现，多个实例共享在线状态
type RedisPresenceRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisPresenceRepository 创建 RedisPresenceRepository 实例
func NewRedisPresenceRepository(client *redis.Client, keyPrefix string) *RedisPresenceRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisPresenceRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "hunt:"
	}
	return &RedisPresenceRepository{client: client, keyPrefix: keyPrefix}
}

// --- Key Generation Helpers ---
func (r *RedisPresenceRepository) sessionsKey() string {
	return r.keyPrefix + "presence:sessions"
}

func (r *RedisPresenceRepository) namesKey() string {
	return r.keyPrefix + "presence:names"
}

// Register 先占用名字再占用 session，第二步失败时回滚第一步
func (r *RedisPresenceRepository) Register(ctx context.Context, sessionID, name string) error {
	logCtx := logrus.WithFields(logrus.Fields{"session_id": sessionID, "name": name})

	ok, err := r.client.HSetNX(ctx, r.namesKey(), name, sessionID).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to reserve name %q: %w", name, err)
	}
	if !ok {
		return repository.ErrNameTaken
	}

	ok, err = r.client.HSetNX(ctx, r.sessionsKey(), sessionID, name).Result()
	if err != nil || !ok {
		if delErr := r.client.HDel(ctx, r.namesKey(), name).Err(); delErr != nil {
			logCtx.WithError(delErr).Error("Failed to roll back reserved name")
		}
		if err != nil {
			return fmt.Errorf("redis: failed to register session %s: %w", sessionID, err)
		}
		return repository.ErrDuplicateEntry
	}
	logCtx.Debug("Presence registered")
	return nil
}

// Unregister 注销 session 并释放名字
func (r *RedisPresenceRepository) Unregister(ctx context.Context, sessionID string) error {
	name, err := r.client.HGet(ctx, r.sessionsKey(), sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: failed to read session %s: %w", sessionID, err)
	}

	// 使用 Pipeline 同时删除两个映射
	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, r.sessionsKey(), sessionID)
	pipe.HDel(ctx, r.namesKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to unregister session %s: %w", sessionID, err)
	}
	return nil
}

// Count 在线人数
func (r *RedisPresenceRepository) Count(ctx context.Context) (int, error) {
	n, err := r.client.HLen(ctx, r.sessionsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to count sessions: %w", err)
	}
	return int(n), nil
}

// Reset 清空在线状态，进程启动时调用，避免上次异常退出留下的记录阻止登录
func (r *RedisPresenceRepository) Reset(ctx context.Context) error {
	if err := r.client.Del(ctx, r.sessionsKey(), r.namesKey()).Err(); err != nil {
		return fmt.Errorf("redis: failed to reset presence: %w", err)
	}
	return nil
}
