package repository

import (
	"context"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// RoundRepository 定义了已结束回合的归档操作。
type RoundRepository interface {
	// Save 保存一条回合记录，成功后 record.ID 被填充。
	Save(ctx context.Context, record *domain.RoundRecord) error

	// FindByID 根据记录 ID 查找，不存在时返回 ErrRoundNotFound。
	FindByID(ctx context.Context, id uint) (*domain.RoundRecord, error)

	// ListRecent 按结束时间倒序返回最近的 limit 条记录。
	ListRecent(ctx context.Context, limit int) ([]domain.RoundRecord, error)
}
