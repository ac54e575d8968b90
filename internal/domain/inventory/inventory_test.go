package inventory

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

func TestNewItemValidation(t *testing.T) {
	price := decimal.RequireFromString("9.99")

	tests := []struct {
		name    string
		id      string
		label   string
		price   decimal.Decimal
		stock   int
		wantErr bool
	}{
		{"valid", "i1", "Widget", price, 10, false},
		{"zero stock ok", "i1", "Widget", price, 0, false},
		{"free item ok", "i1", "Widget", decimal.Zero, 1, false},
		{"missing id", "", "Widget", price, 10, true},
		{"missing name", "i1", "", price, 10, true},
		{"negative price", "i1", "Widget", decimal.RequireFromString("-1"), 10, true},
		{"negative stock", "i1", "Widget", price, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewItem(tt.id, tt.label, tt.price, tt.stock)
			if tt.wantErr != (err != nil) {
				t.Errorf("NewItem() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestDeduct(t *testing.T) {
	item, err := NewItem("i1", "Widget", decimal.RequireFromString("2.50"), 5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	if err := item.Deduct(3); err != nil {
		t.Fatalf("Deduct(3): %v", err)
	}
	if item.Stock != 2 {
		t.Errorf("stock = %d, want 2", item.Stock)
	}

	// Down to exactly zero is allowed.
	if err := item.Deduct(2); err != nil {
		t.Fatalf("Deduct(2): %v", err)
	}
	if item.Stock != 0 {
		t.Errorf("stock = %d, want 0", item.Stock)
	}

	err = item.Deduct(1)
	var stockErr *errs.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.ItemID != "i1" || stockErr.Requested != 1 || stockErr.Available != 0 {
		t.Errorf("stockErr = %+v", stockErr)
	}
	if item.Stock != 0 {
		t.Errorf("failed deduct mutated stock to %d", item.Stock)
	}
}

func TestDeductRejectsNonPositiveQuantity(t *testing.T) {
	item, _ := NewItem("i1", "Widget", decimal.Zero, 5)
	for _, q := range []int{0, -1} {
		if err := item.Deduct(q); !errs.IsValidation(err) {
			t.Errorf("Deduct(%d) err = %v, want validation error", q, err)
		}
	}
	if item.Stock != 5 {
		t.Errorf("stock = %d, want 5", item.Stock)
	}
}

func TestRestock(t *testing.T) {
	item, _ := NewItem("i1", "Widget", decimal.Zero, 2)
	if err := item.Restock(3); err != nil {
		t.Fatalf("Restock: %v", err)
	}
	if item.Stock != 5 {
		t.Errorf("stock = %d, want 5", item.Stock)
	}
	if err := item.Restock(0); !errs.IsValidation(err) {
		t.Errorf("Restock(0) err = %v, want validation error", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	item, _ := NewItem("i1", "Widget", decimal.RequireFromString("1.00"), 5)
	clone := item.Clone()
	if err := clone.Deduct(5); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if item.Stock != 5 {
		t.Errorf("clone mutation leaked: stock = %d, want 5", item.Stock)
	}
}
