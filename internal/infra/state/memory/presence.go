package memory

import (
	"context"
	"sync"

	"github.com/tombee-studio/doresore-server/internal/repository"
)

// PresenceRepository 是进程内的 PresenceRepository 实现，单实例部署或测试时使用
type PresenceRepository struct {
	mu       sync.Mutex
	sessions map[string]string // sessionID -> name
	names    map[string]string // name -> sessionID
}

func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{
		sessions: make(map[string]string),
		names:    make(map[string]string),
	}
}

func (r *PresenceRepository) Register(_ context.Context, sessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; ok {
		return repository.ErrDuplicateEntry
	}
	if _, ok := r.names[name]; ok {
		return repository.ErrNameTaken
	}
	r.sessions[sessionID] = name
	r.names[name] = sessionID
	return nil
}

func (r *PresenceRepository) Unregister(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name, ok := r.sessions[sessionID]; ok {
		delete(r.names, name)
		delete(r.sessions, sessionID)
	}
	return nil
}

func (r *PresenceRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions), nil
}
