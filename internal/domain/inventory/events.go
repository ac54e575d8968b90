package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpdatedEvent is emitted after a committed stock change so realtime
// observers can refresh their view of the item.
type UpdatedEvent struct {
	ItemID     string          `json:"item_id"`
	Name       string          `json:"name"`
	Stock      int             `json:"stock"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (UpdatedEvent) EventName() string { return "inventory_update" }

func NewUpdatedEvent(i *Item) UpdatedEvent {
	return UpdatedEvent{
		ItemID:     i.ID,
		Name:       i.Name,
		Stock:      i.Stock,
		UnitPrice:  i.UnitPrice,
		OccurredAt: time.Now().UTC(),
	}
}
