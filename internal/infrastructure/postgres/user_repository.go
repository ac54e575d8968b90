package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type UserRepository struct {
	q querier
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{q: s.DB}
}

func (r *UserRepository) Get(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, full_name, created_at
		FROM users
		WHERE id = $1`

	var u domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Username, &u.FullName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NewNotFound(domain.Kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*domain.User, error) {
	query := `
		SELECT id, username, full_name, created_at
		FROM users
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2`

	rows, err := r.q.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Insert(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, full_name, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.q.ExecContext(ctx, query, user.ID, user.Username, user.FullName, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}
