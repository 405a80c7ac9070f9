package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tombee-studio/doresore-server/internal/domain"
)

// RoundRepository 是 repository.RoundRepository 的 Mock 实现
type RoundRepository struct {
	mock.Mock
}

func (m *RoundRepository) Save(ctx context.Context, record *domain.RoundRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *RoundRepository) FindByID(ctx context.Context, id uint) (*domain.RoundRecord, error) {
	args := m.Called(ctx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*domain.RoundRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoundRepository) ListRecent(ctx context.Context, limit int) ([]domain.RoundRecord, error) {
	args := m.Called(ctx, limit)
	if recs := args.Get(0); recs != nil {
		return recs.([]domain.RoundRecord), args.Error(1)
	}
	return nil, args.Error(1)
}
