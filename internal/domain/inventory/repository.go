package inventory

import "context"

type Repository interface {
	Get(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, offset, limit int) ([]*Item, error)
	Insert(ctx context.Context, item *Item) error
	Update(ctx context.Context, item *Item) error
}
