package postgres

import (
	"context"
	"database/sql"

	apptx "github.com/workboxhq/workbox/internal/application/tx"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

// UnitOfWork runs stock-mutating critical sections (submit order, restock)
// inside one SQL transaction. Item reads lock their rows (FOR UPDATE), so
// validation and mutation of the same item serialize across concurrent
// callers.
type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(s *Store) *UnitOfWork {
	return &UnitOfWork{db: s.DB}
}

func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, s apptx.Stores) error) error {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errs.NewPersistence("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &txStores{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.NewPersistence("commit transaction", err)
	}
	return nil
}

type txStores struct {
	tx *sql.Tx
}

func (s *txStores) Inventory() dominv.Repository {
	return &InventoryRepository{q: s.tx, forUpdate: true}
}

func (s *txStores) Orders() domorder.Repository {
	return &OrderRepository{q: s.tx}
}
