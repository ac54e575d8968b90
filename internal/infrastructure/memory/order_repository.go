package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/workboxhq/workbox/internal/domain/order"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	byUser map[string][]string
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[string]*domain.Order),
		byUser: make(map[string][]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("order repository: order %s already exists", order.ID)
	}
	r.orders[order.ID] = order.Clone()
	r.byUser[order.UserID] = append(r.byUser[order.UserID], order.ID)
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	return order.Clone(), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	out := make([]*domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.orders[id].Clone())
	}
	return out, nil
}
