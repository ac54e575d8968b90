package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/workboxhq/workbox/internal/domain/inventory"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type InventoryRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
	ids   []string // insertion order, for stable listing
}

func NewInventoryRepository() *InventoryRepository {
	return &InventoryRepository{
		items: make(map[string]*domain.Item),
	}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	return item.Clone(), nil
}

func (r *InventoryRepository) List(ctx context.Context, offset, limit int) ([]*domain.Item, error) {
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

	out := make([]*domain.Item, 0, end-offset)
	for _, id := range r.ids[offset:end] {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}

func (r *InventoryRepository) Insert(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("inventory repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("inventory repository: item %s already exists", item.ID)
	}
	r.items[item.ID] = item.Clone()
	r.ids = append(r.ids, item.ID)
	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return fmt.Errorf("inventory repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; !exists {
		return errs.NewNotFound(domain.Kind, item.ID)
	}
	r.items[item.ID] = item.Clone()
	return nil
}
