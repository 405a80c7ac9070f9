package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RoundRecord 已结束回合的归档记录
type RoundRecord struct {
	ID          uint      `gorm:"primaryKey"`
	RoomID      string    `gorm:"size:64;index;not null"`
	RoomName    string    `gorm:"size:191"`
	Cause       string    `gorm:"size:20;not null"`
	MemberCount int       `gorm:"not null"`
	WinnerID    string    `gorm:"size:64"`
	Standings   string    `gorm:"type:text;not null"` // JSON 格式的 []MemberResult（不含证据照片）
	FinishedAt  time.Time `gorm:"index;not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// NewRoundRecord 从结果生成归档记录。证据照片体积大，不入库。
func NewRoundRecord(res Result) (*RoundRecord, error) {
	standings := make([]MemberResult, len(res.Members))
	for i, m := range res.Members {
		m.Evidence = nil
		standings[i] = m
	}
	raw, err := json.Marshal(standings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal standings: %w", err)
	}
	rec := &RoundRecord{
		RoomID:      res.RoomID,
		RoomName:    res.RoomName,
		Cause:       string(res.Cause),
		MemberCount: len(res.Members),
		Standings:   string(raw),
		FinishedAt:  res.FinishedAt,
	}
	if len(res.Members) > 0 && res.Members[0].Count > 0 {
		rec.WinnerID = res.Members[0].MemberID
	}
	return rec, nil
}

// ParseStandings 解析归档的排名
func (r *RoundRecord) ParseStandings() ([]MemberResult, error) {
	var standings []MemberResult
	if err := json.Unmarshal([]byte(r.Standings), &standings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal standings: %w", err)
	}
	return standings, nil
}
