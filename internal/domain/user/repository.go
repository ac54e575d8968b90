package user

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context, offset, limit int) ([]*User, error)
	Insert(ctx context.Context, user *User) error
}
