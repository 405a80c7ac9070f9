package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// PresenceRepository 是 repository.PresenceRepository 的 Mock 实现
type PresenceRepository struct {
	mock.Mock
}

func (m *PresenceRepository) Register(ctx context.Context, sessionID, name string) error {
	args := m.Called(ctx, sessionID, name)
	return args.Error(0)
}

func (m *PresenceRepository) Unregister(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *PresenceRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
