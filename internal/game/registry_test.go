package game

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

func newTestRegistry(t *testing.T, alphabet string, length int) (*Registry, *CodePool) {
	t.Helper()
	codes, err := NewCodePool(alphabet, length, rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	reg := NewRegistry(codes, testSettings(), Deps{Broadcaster: &recorder{}, Ticker: newManualTicker()})
	t.Cleanup(reg.Shutdown)
	return reg, codes
}

func TestRegistry_CreateLookupDelete(t *testing.T) {
	reg, codes := newTestRegistry(t, "0123456789", 2)

	room, err := reg.Create(Options{Name: "hunt", Capacity: 2})
	require.NoError(t, err)
	assert.Len(t, room.Code(), 2)
	assert.Equal(t, 99, codes.Available())

	got, ok := reg.Lookup(room.ID())
	require.True(t, ok)
	assert.Same(t, room, got)
	got, ok = reg.LookupByCode(room.Code())
	require.True(t, ok)
	assert.Same(t, room, got)

	reg.Delete(room.ID())
	_, ok = reg.Lookup(room.ID())
	assert.False(t, ok)
	assert.True(t, room.Closed())
	assert.Equal(t, 100, codes.Available(), "删除房间后应回收房间码")

	// 重复删除不应有副作用
	reg.Delete(room.ID())
	assert.Equal(t, 100, codes.Available())
}

func TestRegistry_Create_DefaultNameAndPassword(t *testing.T) {
	reg, _ := newTestRegistry(t, "AB", 3)

	room, err := reg.Create(Options{Password: "pw"})
	require.NoError(t, err)
	s := room.Summary()
	assert.Equal(t, "Room "+room.Code(), s.Name)
	assert.True(t, s.Locked)

	_, err = room.Host(domain.NewMember("u1", "alice", ""))
	require.NoError(t, err)
	_, err = room.Join(domain.NewMember("u2", "bob", ""), "pw")
	assert.NoError(t, err)
}

func TestRegistry_Create_CodesExhausted(t *testing.T) {
	reg, _ := newTestRegistry(t, "X", 1)

	_, err := reg.Create(Options{})
	require.NoError(t, err)
	_, err = reg.Create(Options{})
	assert.ErrorIs(t, err, ErrCodesExhausted)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_List(t *testing.T) {
	reg, _ := newTestRegistry(t, "0123456789", 4)

	a, err := reg.Create(Options{Name: "a"})
	require.NoError(t, err)
	b, err := reg.Create(Options{Name: "b"})
	require.NoError(t, err)
	_, err = a.Host(domain.NewMember("u1", "alice", ""))
	require.NoError(t, err)

	list := reg.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, ids)

	b.Close()
	list = reg.List()
	require.Len(t, list, 1, "已关闭的房间不应出现在列表中")
	assert.Equal(t, "1/3", list[0].Members)
}

func TestRegistry_Sweep(t *testing.T) {
	rec := &recorder{}
	codes, err := NewCodePool("0123456789", 2, nil)
	require.NoError(t, err)
	now := time.Unix(1700000000, 0)
	reg := NewRegistry(codes, testSettings(), Deps{
		Broadcaster: rec,
		Ticker:      newManualTicker(),
		Now:         func() time.Time { return now },
	})
	t.Cleanup(reg.Shutdown)

	idle, err := reg.Create(Options{Name: "idle"})
	require.NoError(t, err)
	_, err = idle.Host(domain.NewMember("u1", "alice", ""))
	require.NoError(t, err)
	closed, err := reg.Create(Options{Name: "closed"})
	require.NoError(t, err)
	closed.Close()

	assert.Equal(t, 1, reg.Sweep(now.Add(time.Minute), time.Hour), "未超时的房间应保留")
	assert.Equal(t, 1, reg.Len())

	assert.Equal(t, 1, reg.Sweep(now.Add(2*time.Hour), time.Hour))
	assert.Equal(t, 0, reg.Len())
	assert.True(t, idle.Closed())
	assert.Equal(t, 1, rec.count(domain.EventRoomClosed))
}
