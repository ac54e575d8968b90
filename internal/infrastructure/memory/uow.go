package memory

import (
	"context"
	"sync"

	apptx "github.com/workboxhq/workbox/internal/application/tx"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

// UnitOfWork serializes stock transactions (order submission, restock) over
// the in-memory repositories. A single mutex makes each Execute call fully
// isolated, which gives the same last-unit-of-stock guarantee the SQL store
// gets from row locks. Writes are staged on overlay copies and applied to the
// base repositories only when fn returns nil.
type UnitOfWork struct {
	mu        sync.Mutex
	inventory *InventoryRepository
	orders    *OrderRepository
}

func NewUnitOfWork(inventory *InventoryRepository, orders *OrderRepository) *UnitOfWork {
	return &UnitOfWork{inventory: inventory, orders: orders}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, s apptx.Stores) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &txStores{
		base:         u,
		itemUpdates:  make(map[string]*dominv.Item),
		orderInserts: nil,
	}
	if err := fn(ctx, tx); err != nil {
		return err // staged writes are discarded
	}
	return tx.commit(ctx)
}

type txStores struct {
	base         *UnitOfWork
	itemUpdates  map[string]*dominv.Item
	orderInserts []*domorder.Order
}

func (t *txStores) Inventory() dominv.Repository { return &txInventory{t} }
func (t *txStores) Orders() domorder.Repository  { return &txOrders{t} }

func (t *txStores) commit(ctx context.Context) error {
	for _, item := range t.itemUpdates {
		if err := t.base.inventory.Update(ctx, item); err != nil {
			return errs.NewPersistence("commit inventory update", err)
		}
	}
	for _, o := range t.orderInserts {
		if err := t.base.orders.Insert(ctx, o); err != nil {
			return errs.NewPersistence("commit order insert", err)
		}
	}
	return nil
}

type txInventory struct{ tx *txStores }

func (r *txInventory) Get(ctx context.Context, id string) (*dominv.Item, error) {
	if staged, ok := r.tx.itemUpdates[id]; ok {
		return staged.Clone(), nil
	}
	return r.tx.base.inventory.Get(ctx, id)
}

func (r *txInventory) List(ctx context.Context, offset, limit int) ([]*dominv.Item, error) {
	items, err := r.tx.base.inventory.List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if staged, ok := r.tx.itemUpdates[item.ID]; ok {
			items[i] = staged.Clone()
		}
	}
	return items, nil
}

func (r *txInventory) Insert(ctx context.Context, item *dominv.Item) error {
	_ = ctx
	return errs.NewValidation("inventory: insert is not supported inside a stock transaction")
}

func (r *txInventory) Update(ctx context.Context, item *dominv.Item) error {
	_ = ctx
	if item == nil || item.ID == "" {
		return errs.NewValidation("inventory: id is required")
	}
	r.tx.itemUpdates[item.ID] = item.Clone()
	return nil
}

type txOrders struct{ tx *txStores }

func (r *txOrders) Insert(ctx context.Context, order *domorder.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return errs.NewValidation("order: id is required")
	}
	r.tx.orderInserts = append(r.tx.orderInserts, order.Clone())
	return nil
}

func (r *txOrders) Get(ctx context.Context, id string) (*domorder.Order, error) {
	for _, o := range r.tx.orderInserts {
		if o.ID == id {
			return o.Clone(), nil
		}
	}
	return r.tx.base.orders.Get(ctx, id)
}

func (r *txOrders) ListByUser(ctx context.Context, userID string) ([]*domorder.Order, error) {
	out, err := r.tx.base.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, o := range r.tx.orderInserts {
		if o.UserID == userID {
			out = append(out, o.Clone())
		}
	}
	return out, nil
}
