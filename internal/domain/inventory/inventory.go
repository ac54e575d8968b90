package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

// Kind is the entity kind reported by not-found errors.
const Kind = "inventory_item"

// Item is a stocked product. Stock never goes negative; any deduction past
// zero is rejected before the item is mutated.
type Item struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewItem(id, name string, unitPrice decimal.Decimal, stock int) (*Item, error) {
	if id == "" {
		return nil, errs.NewValidation("inventory: id is required")
	}
	if name == "" {
		return nil, errs.NewValidation("inventory: name is required")
	}
	if unitPrice.IsNegative() {
		return nil, errs.NewValidation("inventory: unit price must be zero or greater")
	}
	if stock < 0 {
		return nil, errs.NewValidation("inventory: stock must be zero or greater")
	}

	now := time.Now().UTC()
	return &Item{
		ID:        id,
		Name:      name,
		UnitPrice: unitPrice,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanDeduct reports whether quantity units are available without mutating the item.
func (i *Item) CanDeduct(quantity int) error {
	if quantity <= 0 {
		return errs.NewValidation("inventory: quantity must be greater than zero")
	}
	if quantity > i.Stock {
		return &errs.InsufficientStockError{
			ItemID:    i.ID,
			Requested: quantity,
			Available: i.Stock,
		}
	}
	return nil
}

func (i *Item) Deduct(quantity int) error {
	if err := i.CanDeduct(quantity); err != nil {
		return err
	}
	i.Stock -= quantity
	i.touch()
	return nil
}

func (i *Item) Restock(quantity int) error {
	if quantity <= 0 {
		return errs.NewValidation("inventory: quantity must be greater than zero")
	}
	i.Stock += quantity
	i.touch()
	return nil
}

func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	return &clone
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
