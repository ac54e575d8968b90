package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineSummary is the per-line slice of an order carried on the placed event.
type LineSummary struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlacedEvent is emitted exactly once per committed order, after the
// inventory updates for its lines.
type PlacedEvent struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	Total      decimal.Decimal `json:"total"`
	Lines      []LineSummary   `json:"lines"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (PlacedEvent) EventName() string { return "order_placed" }

func NewPlacedEvent(o *Order) PlacedEvent {
	lines := make([]LineSummary, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineSummary{
			ItemName:  l.ItemName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return PlacedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Total:      o.Total,
		Lines:      lines,
		OccurredAt: time.Now().UTC(),
	}
}
