package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/workboxhq/workbox/internal/domain/inventory"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type InventoryRepository struct {
	q querier
	// forUpdate locks fetched rows for the duration of the enclosing
	// transaction; set only on transactional repositories.
	forUpdate bool
}

func NewInventoryRepository(s *Store) *InventoryRepository {
	return &InventoryRepository{q: s.DB}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	query := `
		SELECT id, name, unit_price, stock, created_at, updated_at
		FROM inventory_items
		WHERE id = $1`
	if r.forUpdate {
		query += " FOR UPDATE"
	}

	var item domain.Item
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Name, &item.UnitPrice, &item.Stock, &item.CreatedAt, &item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get inventory item: %w", err)
	}
	return &item, nil
}

func (r *InventoryRepository) List(ctx context.Context, offset, limit int) ([]*domain.Item, error) {
	query := `
		SELECT id, name, unit_price, stock, created_at, updated_at
		FROM inventory_items
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list inventory items: %w", err)
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.UnitPrice, &item.Stock, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan inventory item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *InventoryRepository) Insert(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO inventory_items (id, name, unit_price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.Name, item.UnitPrice, item.Stock, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert inventory item: %w", err)
	}
	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, item *domain.Item) error {
	query := `
		UPDATE inventory_items
		SET name = $2, unit_price = $3, stock = $4, updated_at = $5
		WHERE id = $1`

	res, err := r.q.ExecContext(ctx, query,
		item.ID, item.Name, item.UnitPrice, item.Stock, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update inventory item: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return errs.NewNotFound(domain.Kind, item.ID)
	}
	return nil
}
