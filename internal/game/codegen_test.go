package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePool_AcquireUnique(t *testing.T) {
	pool, err := NewCodePool("01", 3, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	assert.Equal(t, 8, pool.Available())

	seen := map[string]bool{}
	for i := 0; i < 8; i++ {
		code, err := pool.Acquire()
		require.NoError(t, err)
		assert.Len(t, code, 3)
		assert.False(t, seen[code], "房间码 %s 被重复分配", code)
		seen[code] = true
	}
	_, err = pool.Acquire()
	assert.ErrorIs(t, err, ErrCodesExhausted)
}

func TestCodePool_ReleaseOnlyInUse(t *testing.T) {
	pool, err := NewCodePool("ab", 1, nil)
	require.NoError(t, err)

	code, err := pool.Acquire()
	require.NoError(t, err)
	pool.Release("zz")
	assert.Equal(t, 1, pool.Available(), "未分配的房间码不应被放回")

	pool.Release(code)
	pool.Release(code)
	assert.Equal(t, 2, pool.Available())
}

func TestNewCodePool_Invalid(t *testing.T) {
	_, err := NewCodePool("", 4, nil)
	assert.Error(t, err)
	_, err = NewCodePool("0123456789", 0, nil)
	assert.Error(t, err)
	_, err = NewCodePool("0123456789", 7, nil)
	assert.Error(t, err, "过大的房间码空间应被拒绝")
}
