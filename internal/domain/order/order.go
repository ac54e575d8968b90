package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

// Kind is the entity kind reported by not-found errors.
const Kind = "order"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Line is one item/quantity pairing within an order. UnitPrice is the price
// snapshotted at order time; it is never re-read after commit.
type Line struct {
	ItemID    string
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is created atomically with its lines and is immutable once confirmed.
// Total always equals the sum of each line's quantity times its snapshot price.
type Order struct {
	ID        string
	UserID    string
	Lines     []Line
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
}

func New(id, userID string, lines []Line) (*Order, error) {
	if id == "" {
		return nil, errs.NewValidation("order: id is required")
	}
	if userID == "" {
		return nil, errs.NewValidation("order: user id is required")
	}
	if len(lines) == 0 {
		return nil, errs.NewValidation("order: at least one line is required")
	}

	total := decimal.Zero
	for _, l := range lines {
		if l.ItemID == "" {
			return nil, errs.NewValidation("order: line item id is required")
		}
		if l.Quantity <= 0 {
			return nil, errs.NewValidation("order: line quantity must be greater than zero")
		}
		if l.UnitPrice.IsNegative() {
			return nil, errs.NewValidation("order: line unit price must be zero or greater")
		}
		total = total.Add(l.Subtotal())
	}

	return &Order{
		ID:        id,
		UserID:    userID,
		Lines:     append([]Line(nil), lines...),
		Total:     total,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Confirm transitions a pending order to its terminal confirmed state.
func (o *Order) Confirm() error {
	if o.Status != StatusPending {
		return errs.NewValidation("order: only a pending order can be confirmed")
	}
	o.Status = StatusConfirmed
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}
