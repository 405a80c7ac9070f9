package redisstate_test

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstate "github.com/tombee-studio/doresore-server/internal/infra/state/redis"
	"github.com/tombee-studio/doresore-server/internal/repository"
)

// 需要真实的 Redis，设置 REDIS_TEST_ADDR 后运行
func newTestRepo(t *testing.T) *redisstate.RedisPresenceRepository {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	repo := redisstate.NewRedisPresenceRepository(client, "test:"+uuid.NewString()+":")
	t.Cleanup(func() { _ = repo.Reset(context.Background()) })
	return repo
}

func TestRedisPresence_RegisterUnregister(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, "s1", "alice"))
	require.NoError(t, repo.Register(ctx, "s2", "bob"))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.ErrorIs(t, repo.Register(ctx, "s3", "alice"), repository.ErrDuplicateEntry)
	assert.ErrorIs(t, repo.Register(ctx, "s1", "carol"), repository.ErrDuplicateEntry)

	// 回滚后 carol 仍然可用
	require.NoError(t, repo.Register(ctx, "s3", "carol"))

	require.NoError(t, repo.Unregister(ctx, "s1"))
	require.NoError(t, repo.Unregister(ctx, "s1"), "重复注销不报错")
	require.NoError(t, repo.Register(ctx, "s4", "alice"))

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRedisPresence_Reset(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Register(ctx, "s1", "alice"))
	require.NoError(t, repo.Reset(ctx))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Register(ctx, "s2", "alice"))
}

func TestNewRedisPresenceRepository_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { redisstate.NewRedisPresenceRepository(nil, "") })
}
