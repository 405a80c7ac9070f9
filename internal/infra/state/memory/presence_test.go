package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/repository"
)

func TestPresenceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPresenceRepository()

	require.NoError(t, repo.Register(ctx, "s1", "alice"))
	assert.ErrorIs(t, repo.Register(ctx, "s1", "other"), repository.ErrDuplicateEntry)
	assert.ErrorIs(t, repo.Register(ctx, "s2", "alice"), repository.ErrNameTaken)
	require.NoError(t, repo.Register(ctx, "s2", "bob"))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.Unregister(ctx, "s1"))
	require.NoError(t, repo.Unregister(ctx, "missing"))
	require.NoError(t, repo.Register(ctx, "s3", "alice"), "注销后名字可以再次使用")
	n, _ = repo.Count(ctx)
	assert.Equal(t, 2, n)
}
