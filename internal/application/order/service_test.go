package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	apporder "github.com/workboxhq/workbox/internal/application/order"
	"github.com/workboxhq/workbox/internal/application/tx"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	domuser "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/infrastructure/memory"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

type seqIDGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) captured() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

type fixture struct {
	service   *apporder.Service
	inventory *memory.InventoryRepository
	orders    *memory.OrderRepository
	users     *memory.UserRepository
	publisher *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	inventory := memory.NewInventoryRepository()
	orders := memory.NewOrderRepository()
	users := memory.NewUserRepository()
	publisher := &capturePublisher{}

	service := apporder.NewService(
		users,
		orders,
		memory.NewUnitOfWork(inventory, orders),
		&seqIDGenerator{},
		publisher,
		nil,
	)
	return &fixture{
		service:   service,
		inventory: inventory,
		orders:    orders,
		users:     users,
		publisher: publisher,
	}
}

func (f *fixture) seedUser(t *testing.T, id string) {
	t.Helper()
	u, err := domuser.New(id, "user-"+id, "")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := f.users.Insert(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (f *fixture) seedItem(t *testing.T, id, name, price string, stock int) {
	t.Helper()
	item, err := dominv.NewItem(id, name, decimal.RequireFromString(price), stock)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	if err := f.inventory.Insert(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	item, err := f.inventory.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get item %s: %v", id, err)
	}
	return item.Stock
}

func TestSubmitOrderTotalAndStock(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)
	f.seedItem(t, "gadget", "Gadget", "5.00", 3)

	got, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines: []apporder.LineRequest{
			{ItemID: "widget", Quantity: 2},
			{ItemID: "gadget", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	if want := decimal.RequireFromString("25.00"); !got.Total.Equal(want) {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
	if got.Status != "confirmed" {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
	if n := f.stock(t, "widget"); n != 3 {
		t.Errorf("widget stock = %d, want 3", n)
	}
	if n := f.stock(t, "gadget"); n != 2 {
		t.Errorf("gadget stock = %d, want 2", n)
	}

	stored, err := f.orders.Get(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("stored order: %v", err)
	}
	if len(stored.Lines) != 2 {
		t.Errorf("stored lines = %d, want 2", len(stored.Lines))
	}
}

func TestSubmitOrderEventSequence(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)
	f.seedItem(t, "gadget", "Gadget", "5.00", 3)

	_, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines: []apporder.LineRequest{
			{ItemID: "widget", Quantity: 2},
			{ItemID: "gadget", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	events := f.publisher.captured()
	wantNames := []string{"inventory_update", "inventory_update", "order_placed"}
	if len(events) != len(wantNames) {
		t.Fatalf("got %d events, want %d", len(events), len(wantNames))
	}
	for i, name := range wantNames {
		if events[i].EventName() != name {
			t.Errorf("event[%d] = %s, want %s", i, events[i].EventName(), name)
		}
	}

	// inventory_update carries the post-decrement stock, in line order.
	first, ok := events[0].(dominv.UpdatedEvent)
	if !ok {
		t.Fatalf("event[0] is %T, want inventory.UpdatedEvent", events[0])
	}
	if first.ItemID != "widget" || first.Stock != 3 {
		t.Errorf("event[0] = %s/%d, want widget/3", first.ItemID, first.Stock)
	}
}

func TestSubmitOrderRepeatedItemDeduplicatesEvents(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	got, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines: []apporder.LineRequest{
			{ItemID: "widget", Quantity: 2},
			{ItemID: "widget", Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	if want := decimal.RequireFromString("30.00"); !got.Total.Equal(want) {
		t.Errorf("total = %s, want %s", got.Total, want)
	}
	if n := f.stock(t, "widget"); n != 2 {
		t.Errorf("widget stock = %d, want 2", n)
	}

	// One inventory_update per distinct item, then the placed event.
	events := f.publisher.captured()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].EventName() != "inventory_update" || events[1].EventName() != "order_placed" {
		t.Errorf("event names = %s,%s", events[0].EventName(), events[1].EventName())
	}
}

func TestSubmitOrderRepeatedItemCumulativeStock(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	_, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines: []apporder.LineRequest{
			{ItemID: "widget", Quantity: 3},
			{ItemID: "widget", Quantity: 3},
		},
	})
	if !errs.IsInsufficientStock(err) {
		t.Fatalf("err = %v, want insufficient stock", err)
	}
	if n := f.stock(t, "widget"); n != 5 {
		t.Errorf("widget stock = %d, want 5 (unchanged)", n)
	}
}

func TestSubmitOrderAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "plenty", "Plenty", "1.00", 100)
	f.seedItem(t, "scarce", "Scarce", "1.00", 1)

	t.Run("insufficient stock on a later line", func(t *testing.T) {
		_, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
			UserID: "u1",
			Lines: []apporder.LineRequest{
				{ItemID: "plenty", Quantity: 10},
				{ItemID: "scarce", Quantity: 2},
			},
		})

		var stockErr *errs.InsufficientStockError
		if !errors.As(err, &stockErr) {
			t.Fatalf("err = %v, want InsufficientStockError", err)
		}
		if stockErr.ItemID != "scarce" || stockErr.Requested != 2 || stockErr.Available != 1 {
			t.Errorf("stockErr = %+v", stockErr)
		}
		if n := f.stock(t, "plenty"); n != 100 {
			t.Errorf("plenty stock = %d, want 100 (untouched)", n)
		}
	})

	t.Run("missing item on a later line", func(t *testing.T) {
		_, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
			UserID: "u1",
			Lines: []apporder.LineRequest{
				{ItemID: "plenty", Quantity: 10},
				{ItemID: "ghost", Quantity: 1},
			},
		})
		if !errs.IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
		if n := f.stock(t, "plenty"); n != 100 {
			t.Errorf("plenty stock = %d, want 100 (untouched)", n)
		}
	})

	if events := f.publisher.captured(); len(events) != 0 {
		t.Errorf("failed submissions emitted %d events, want 0", len(events))
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	tests := []struct {
		name  string
		input apporder.SubmitOrderInput
	}{
		{"empty user", apporder.SubmitOrderInput{
			Lines: []apporder.LineRequest{{ItemID: "widget", Quantity: 1}},
		}},
		{"empty lines", apporder.SubmitOrderInput{UserID: "u1"}},
		{"empty item id", apporder.SubmitOrderInput{
			UserID: "u1",
			Lines:  []apporder.LineRequest{{ItemID: "", Quantity: 1}},
		}},
		{"zero quantity", apporder.SubmitOrderInput{
			UserID: "u1",
			Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: 0}},
		}},
		{"negative quantity", apporder.SubmitOrderInput{
			UserID: "u1",
			Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: -3}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.SubmitOrder(context.Background(), tt.input)
			if !errs.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}

	if n := f.stock(t, "widget"); n != 5 {
		t.Errorf("widget stock = %d, want 5", n)
	}
	if events := f.publisher.captured(); len(events) != 0 {
		t.Errorf("rejected submissions emitted %d events, want 0", len(events))
	}
}

func TestSubmitOrderUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	_, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "nobody",
		Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: 1}},
	})
	if !errs.IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if n := f.stock(t, "widget"); n != 5 {
		t.Errorf("widget stock = %d, want 5", n)
	}
}

func TestSubmitOrderConcurrentLastUnit(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedUser(t, "u2")
	f.seedItem(t, "last", "Last One", "99.99", 1)

	input := func(userID string) apporder.SubmitOrderInput {
		return apporder.SubmitOrderInput{
			UserID: userID,
			Lines:  []apporder.LineRequest{{ItemID: "last", Quantity: 1}},
		}
	}

	results := make(chan error, 2)
	var start sync.WaitGroup
	start.Add(1)
	for _, userID := range []string{"u1", "u2"} {
		go func(userID string) {
			start.Wait()
			_, err := f.service.SubmitOrder(context.Background(), input(userID))
			results <- err
		}(userID)
	}
	start.Done()

	var successes, stockFailures int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			successes++
		case errs.IsInsufficientStock(err):
			stockFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if successes != 1 || stockFailures != 1 {
		t.Errorf("successes = %d, stock failures = %d; want 1 and 1", successes, stockFailures)
	}
	if n := f.stock(t, "last"); n != 0 {
		t.Errorf("stock = %d, want 0", n)
	}
}

type failingUoW struct{}

func (failingUoW) Execute(ctx context.Context, fn func(ctx context.Context, s tx.Stores) error) error {
	return errs.NewPersistence("commit", errors.New("disk full"))
}

func TestSubmitOrderCommitFailureEmitsNothing(t *testing.T) {
	users := memory.NewUserRepository()
	u, _ := domuser.New("u1", "user-u1", "")
	if err := users.Insert(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	publisher := &capturePublisher{}

	service := apporder.NewService(
		users,
		memory.NewOrderRepository(),
		failingUoW{},
		&seqIDGenerator{},
		publisher,
		nil,
	)

	_, err := service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: 1}},
	})
	if !errs.IsPersistence(err) {
		t.Fatalf("err = %v, want persistence error", err)
	}
	if events := publisher.captured(); len(events) != 0 {
		t.Errorf("failed commit emitted %d events, want 0", len(events))
	}
}

func TestSubmitOrderPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	got, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	// A later price change never rewrites the committed order.
	item, _ := f.inventory.Get(context.Background(), "widget")
	item.UnitPrice = decimal.RequireFromString("999.00")
	if err := f.inventory.Update(context.Background(), item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	stored, err := f.orders.Get(context.Background(), got.ID)
	if err != nil {
		t.Fatalf("stored order: %v", err)
	}
	if want := decimal.RequireFromString("10.00"); !stored.Total.Equal(want) {
		t.Errorf("stored total = %s, want %s", stored.Total, want)
	}
	if want := decimal.RequireFromString("10.00"); !stored.Lines[0].UnitPrice.Equal(want) {
		t.Errorf("line price = %s, want %s", stored.Lines[0].UnitPrice, want)
	}
}

func TestGetAndListByUser(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "u1")
	f.seedItem(t, "widget", "Widget", "10.00", 5)

	placed, err := f.service.SubmitOrder(context.Background(), apporder.SubmitOrderInput{
		UserID: "u1",
		Lines:  []apporder.LineRequest{{ItemID: "widget", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	got, err := f.service.Get(context.Background(), placed.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != placed.ID {
		t.Errorf("Get returned %s, want %s", got.ID, placed.ID)
	}

	if _, err := f.service.Get(context.Background(), "missing"); !errs.IsNotFound(err) {
		t.Errorf("Get(missing) err = %v, want not found", err)
	}

	list, err := f.service.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListByUser returned %d orders, want 1", len(list))
	}

	empty, err := f.service.ListByUser(context.Background(), "u2")
	if err != nil {
		t.Fatalf("ListByUser(u2): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByUser(u2) returned %d orders, want 0", len(empty))
	}
}
