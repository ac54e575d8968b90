package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	ids   []string // insertion order, for stable listing
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[string]*domain.User),
	}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	return u.Clone(), nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	if offset >= len(r.ids) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(r.ids) {
		end = len(r.ids)
	}

	out := make([]*domain.User, 0, end-offset)
	for _, id := range r.ids[offset:end] {
		out = append(out, r.users[id].Clone())
	}
	return out, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	_ = ctx
	if user == nil || user.ID == "" {
		return fmt.Errorf("user repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; exists {
		return fmt.Errorf("user repository: user %s already exists", user.ID)
	}
	r.users[user.ID] = user.Clone()
	r.ids = append(r.ids, user.ID)
	return nil
}
