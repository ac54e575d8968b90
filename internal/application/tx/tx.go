// Package tx defines the transactional boundary shared by every use case
// that mutates stock: order submission and restocking both run inside it, so
// their writes serialize against each other.
package tx

import (
	"context"

	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
)

// Stores is the set of repositories bound to one transaction.
type Stores interface {
	Inventory() dominv.Repository
	Orders() domorder.Repository
}

// UnitOfWork runs fn inside one transactional boundary. Reads inside fn see a
// consistent view with items locked against concurrent mutations; writes
// become visible only if fn returns nil and the commit succeeds.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
