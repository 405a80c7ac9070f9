package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/tombee-studio/doresore-server/internal/domain"
	"github.com/tombee-studio/doresore-server/internal/repository"
)

// GormRoundRepository 是 RoundRepository 接口的 GORM 实现
type GormRoundRepository struct {
	db *gorm.DB
}

// NewGormRoundRepository 创建 GormRoundRepository 实例
func NewGormRoundRepository(db *gorm.DB) *GormRoundRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoundRepository")
	}
	return &GormRoundRepository{db: db}
}

// Save 插入一条回合记录
func (r *GormRoundRepository) Save(ctx context.Context, record *domain.RoundRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save round record (room_id: %s): %w", record.RoomID, err)
	}
	return nil
}

// FindByID 根据记录 ID 查找
func (r *GormRoundRepository) FindByID(ctx context.Context, id uint) (*domain.RoundRecord, error) {
	var record domain.RoundRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoundNotFound
		}
		return nil, fmt.Errorf("gorm: find round record by id %d: %w", id, err)
	}
	return &record, nil
}

// ListRecent 按结束时间倒序查询
func (r *GormRoundRepository) ListRecent(ctx context.Context, limit int) ([]domain.RoundRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []domain.RoundRecord
	err := r.db.WithContext(ctx).Order("finished_at DESC").Limit(limit).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list recent round records: %w", err)
	}
	return records, nil
}
