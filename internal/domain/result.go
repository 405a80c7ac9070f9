package domain

import (
	"sort"
	"time"
)

// MemberResult 单个成员的结算信息
type MemberResult struct {
	MemberID string   `json:"userId"`
	Name     string   `json:"name"`
	Avatar   string   `json:"avatar"`
	Color    Color    `json:"color"`
	Count    int      `json:"count"`
	Rank     int      `json:"rank"`
	Items    []string `json:"items"`
	Evidence []string `json:"evidence"`
	Left     bool     `json:"left"`
}

// Result 一回合的最终结果
type Result struct {
	RoomID     string         `json:"roomId"`
	RoomName   string         `json:"roomName"`
	Cause      RoomState      `json:"cause"`
	Members    []MemberResult `json:"members"`
	FinishedAt time.Time      `json:"finishedAt"`
}

// Participant 是参与结算的成员，Left 表示回合中途离开
type Participant struct {
	Member *Member
	Left   bool
}

// ComputeResult 按占领数量降序排名。数量相同名次相同，下一个不同数量的名次为前一名次 + 1，
// 例如 [3,3,1] -> [1,1,2]。每个成员的证据照片用空字符串补齐到 slots 个。
func ComputeResult(cause RoomState, participants []Participant, pool *ItemPool, slots int) []MemberResult {
	results := make([]MemberResult, 0, len(participants))
	for _, p := range participants {
		m := p.Member
		evidence := make([]string, 0, len(m.Items))
		for _, name := range m.Items {
			if pool != nil {
				if it, ok := pool.Find(name); ok {
					evidence = append(evidence, it.Evidence)
					continue
				}
			}
			evidence = append(evidence, "")
		}
		for len(evidence) < slots {
			evidence = append(evidence, "")
		}
		results = append(results, MemberResult{
			MemberID: m.ID,
			Name:     m.Name,
			Avatar:   m.Avatar,
			Color:    m.Color,
			Count:    len(m.Items),
			Items:    append([]string{}, m.Items...),
			Evidence: evidence,
			Left:     p.Left,
		})
	}

	// 稳定排序：数量相同时保持加入顺序
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Count > results[j].Count
	})
	Rank(results)
	return results
}

// Rank 为已按数量降序排列的结果分配名次
func Rank(sorted []MemberResult) {
	for i := range sorted {
		switch {
		case i == 0:
			sorted[i].Rank = 1
		case sorted[i].Count == sorted[i-1].Count:
			sorted[i].Rank = sorted[i-1].Rank
		default:
			sorted[i].Rank = sorted[i-1].Rank + 1
		}
	}
}
