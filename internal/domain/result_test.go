package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

func memberWith(id string, items ...string) *domain.Member {
	m := domain.NewMember(id, id, "")
	for _, it := range items {
		m.AddItem(it)
	}
	return m
}

func TestComputeResult_DenseRanking(t *testing.T) {
	pool := domain.Sample([]domain.CatalogEntry{{Name: "a"}, {Name: "b"}, {Name: "c"}, {Name: "d"}, {Name: "e"}, {Name: "f"}, {Name: "g"}}, 7, nil)
	for _, claim := range [][2]string{{"a", "x"}, {"b", "x"}, {"c", "x"}, {"d", "y"}, {"e", "y"}, {"f", "y"}, {"g", "z"}} {
		require.NoError(t, pool.Claim(claim[0], claim[1], "img-"+claim[0]))
	}
	participants := []domain.Participant{
		{Member: memberWith("z", "g")},
		{Member: memberWith("x", "a", "b", "c")},
		{Member: memberWith("y", "d", "e", "f"), Left: true},
	}

	res := domain.ComputeResult(domain.StateGameOver, participants, pool, 3)
	require.Len(t, res, 3)
	assert.Equal(t, []string{"x", "y", "z"}, []string{res[0].MemberID, res[1].MemberID, res[2].MemberID})
	assert.Equal(t, []int{1, 1, 2}, []int{res[0].Rank, res[1].Rank, res[2].Rank})
	assert.True(t, res[1].Left)
	assert.Equal(t, []string{"img-a", "img-b", "img-c"}, res[0].Evidence)
	assert.Equal(t, []string{"img-g", "", ""}, res[2].Evidence, "证据照片应补齐到固定数量")
}

func TestComputeResult_NoClaims(t *testing.T) {
	res := domain.ComputeResult(domain.StateTimeOver, []domain.Participant{
		{Member: memberWith("a")}, {Member: memberWith("b")},
	}, nil, 2)
	require.Len(t, res, 2)
	assert.Equal(t, 1, res[0].Rank)
	assert.Equal(t, 1, res[1].Rank)
	assert.Equal(t, "a", res[0].MemberID, "数量相同时保持加入顺序")
}

func TestNewRoundRecord(t *testing.T) {
	res := domain.Result{
		RoomID:     "r1",
		RoomName:   "hunt",
		Cause:      domain.StateGameOver,
		FinishedAt: time.Unix(1700000000, 0),
		Members: []domain.MemberResult{
			{MemberID: "u1", Count: 3, Rank: 1, Items: []string{"a"}, Evidence: []string{"big-image"}},
			{MemberID: "u2", Count: 0, Rank: 2},
		},
	}
	rec, err := domain.NewRoundRecord(res)
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.WinnerID)
	assert.Equal(t, 2, rec.MemberCount)
	assert.NotContains(t, rec.Standings, "big-image", "证据照片不应入库")

	standings, err := rec.ParseStandings()
	require.NoError(t, err)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, "u2", standings[1].MemberID)
}

func TestRuleError(t *testing.T) {
	err := domain.ErrRoomFull.With("numMembers", 3)
	assert.True(t, errors.Is(err, domain.ErrRoomFull))
	assert.False(t, errors.Is(err, domain.ErrWrongPassword))
	assert.Nil(t, domain.ErrRoomFull.Extra, "With 不应修改原错误")

	note := err.Notify("u1")
	assert.Equal(t, domain.EventRuntimeError, note.Event)
	assert.Equal(t, []string{"u1"}, note.Recipients)
	payload := note.Payload.(map[string]any)
	assert.Equal(t, domain.CodeRoomFull, payload["code"])
	assert.Equal(t, 3, payload["numMembers"])
}
