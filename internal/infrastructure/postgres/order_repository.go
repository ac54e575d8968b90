package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/workboxhq/workbox/internal/domain/order"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type OrderRepository struct {
	q querier
}

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{q: s.DB}
}

// Insert persists the order and its lines. Lines never exist without their
// order; the schema cascades deletes from orders to order_lines.
func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	orderQuery := `
		INSERT INTO orders (id, user_id, total, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.ExecContext(ctx, orderQuery,
		order.ID, order.UserID, order.Total, string(order.Status), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}

	lineQuery := `
		INSERT INTO order_lines (order_id, position, item_id, item_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, l := range order.Lines {
		if _, err := r.q.ExecContext(ctx, lineQuery,
			order.ID, i, l.ItemID, l.ItemName, l.Quantity, l.UnitPrice,
		); err != nil {
			return fmt.Errorf("postgres: insert order line: %w", err)
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, user_id, total, status, created_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	var status string
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get order: %w", err)
	}
	o.Status = domain.Status(status)

	lines, err := r.lines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return &o, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := `
		SELECT id, user_id, total, status, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		o.Status = domain.Status(status)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		lines, err := r.lines(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		o.Lines = lines
	}
	return orders, nil
}

func (r *OrderRepository) lines(ctx context.Context, orderID string) ([]domain.Line, error) {
	query := `
		SELECT item_id, item_name, quantity, unit_price
		FROM order_lines
		WHERE order_id = $1
		ORDER BY position`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.Line
	for rows.Next() {
		var l domain.Line
		if err := rows.Scan(&l.ItemID, &l.ItemName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, fmt.Errorf("postgres: scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
