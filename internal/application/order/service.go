package order

import (
	"context"
	"time"

	"github.com/workboxhq/workbox/internal/application/tx"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domorder "github.com/workboxhq/workbox/internal/domain/order"
	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	domuser "github.com/workboxhq/workbox/internal/domain/user"
	"github.com/workboxhq/workbox/internal/observability"
	"github.com/workboxhq/workbox/internal/observability/logctx"
	"github.com/workboxhq/workbox/internal/pkg/errs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseSubmitOrder = "order.submit"
	spanPrefix         = "UC."
	publishTimeout     = 300 * time.Millisecond
)

// Service converts order requests into committed orders while preserving the
// stock invariant, and emits domain events after a successful commit.
type Service struct {
	users       domuser.Repository
	orders      domorder.Repository
	uow         tx.UnitOfWork
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
	tel         observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewService(
	users domuser.Repository,
	orders domorder.Repository,
	uow tx.UnitOfWork,
	idGen IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		users:        users,
		orders:       orders,
		uow:          uow,
		idGenerator:  idGen,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("component", "order_service")),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// LineRequest is one (inventory item, quantity) pairing of a submission.
type LineRequest struct {
	ItemID   string
	Quantity int
}

type SubmitOrderInput struct {
	UserID string
	Lines  []LineRequest
}

// SubmitOrder validates every line before touching any stock, then commits
// the order, its lines, and all stock decrements as one transaction. A
// multi-line order either commits every decrement or none of them. Events are
// emitted only after the commit succeeds: one inventory_update per distinct
// mutated item, then exactly one order_placed.
func (s *Service) SubmitOrder(ctx context.Context, input SubmitOrderInput) (_ *domorder.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseSubmitOrder))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"SubmitOrder",
		attribute.String("use_case", useCaseSubmitOrder),
		attribute.String("order.user_id", input.UserID),
		attribute.Int("order.lines", len(input.Lines)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCaseSubmitOrder),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCaseSubmitOrder),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if input.UserID == "" {
		outcome, statusText = "error", "USER_ID_REQUIRED"
		return nil, errs.NewValidation("order: user id is required")
	}
	if len(input.Lines) == 0 {
		outcome, statusText = "error", "ORDER_EMPTY"
		return nil, errs.NewValidation("order: at least one line is required")
	}
	for _, l := range input.Lines {
		if l.ItemID == "" {
			outcome, statusText = "error", "ITEM_ID_REQUIRED"
			return nil, errs.NewValidation("order: line item id is required")
		}
		if l.Quantity <= 0 {
			outcome, statusText = "error", "QUANTITY_INVALID"
			return nil, errs.NewValidation("order: quantity must be greater than zero for item %s", l.ItemID)
		}
	}

	if _, err := s.users.Get(ctx, input.UserID); err != nil {
		outcome, statusText = "error", "USER_LOOKUP_FAILED"
		return nil, passThroughOr(err, "get user")
	}

	var (
		committed *domorder.Order
		mutated   []*dominv.Item
	)
	txErr := s.uow.Execute(ctx, func(ctx context.Context, st tx.Stores) error {
		entity, items, ferr := s.prepare(ctx, st, input)
		if ferr != nil {
			return ferr
		}
		for _, item := range items {
			if uerr := st.Inventory().Update(ctx, item); uerr != nil {
				return uerr
			}
		}
		if ierr := st.Orders().Insert(ctx, entity); ierr != nil {
			return ierr
		}
		committed = entity
		mutated = items
		return nil
	})
	if txErr != nil {
		outcome, statusText = "error", submitFailureStatus(txErr)
		return nil, passThroughOr(txErr, "submit order")
	}

	span.SetAttributes(attribute.String("order.id", committed.ID))
	logger.Info("order_committed",
		observability.F("order_id", committed.ID),
		observability.F("user_id", committed.UserID),
		observability.F("total", committed.Total.String()),
	)

	s.emitEvents(ctx, committed, mutated, logger)

	return committed, nil
}

// prepare runs the full validation pass over every line and stages the
// resulting decrements on in-memory copies. Nothing is written to any store
// until all lines have passed; repeated references to the same item are
// validated against its cumulative remaining stock.
func (s *Service) prepare(ctx context.Context, st tx.Stores, input SubmitOrderInput) (*domorder.Order, []*dominv.Item, error) {
	staged := make(map[string]*dominv.Item, len(input.Lines))
	ordered := make([]*dominv.Item, 0, len(input.Lines))
	lines := make([]domorder.Line, 0, len(input.Lines))

	for _, req := range input.Lines {
		item, ok := staged[req.ItemID]
		if !ok {
			loaded, err := st.Inventory().Get(ctx, req.ItemID)
			if err != nil {
				return nil, nil, err
			}
			item = loaded
			staged[req.ItemID] = item
			ordered = append(ordered, item)
		}

		// Price is snapshotted here, before the decrement is persisted.
		lines = append(lines, domorder.Line{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  req.Quantity,
			UnitPrice: item.UnitPrice,
		})

		if err := item.Deduct(req.Quantity); err != nil {
			return nil, nil, err
		}
	}

	entity, err := domorder.New(s.idGenerator.NewID(), input.UserID, lines)
	if err != nil {
		return nil, nil, err
	}
	if err := entity.Confirm(); err != nil {
		return nil, nil, err
	}
	return entity, ordered, nil
}

// emitEvents publishes post-commit notifications. Publish failures are logged
// and dropped; the order's success never depends on event delivery.
func (s *Service) emitEvents(ctx context.Context, o *domorder.Order, items []*dominv.Item, logger observability.Logger) {
	if s.publisher == nil {
		return
	}

	events := make([]domoutbox.Event, 0, len(items)+1)
	for _, item := range items {
		events = append(events, dominv.NewUpdatedEvent(item))
	}
	events = append(events, domorder.NewPlacedEvent(o))

	for _, e := range events {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		err := s.publisher.Publish(pubCtx, e)
		cancel()
		if err != nil {
			logger.Warn("event_publish_failed",
				observability.F("event", e.EventName()),
				observability.F("order_id", o.ID),
				observability.F("error", err.Error()),
			)
		}
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domorder.Order, error) {
	if id == "" {
		return nil, errs.NewValidation("order: id is required")
	}
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, passThroughOr(err, "get order")
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]*domorder.Order, error) {
	if userID == "" {
		return nil, errs.NewValidation("order: user id is required")
	}
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, passThroughOr(err, "list orders")
	}
	return orders, nil
}

// passThroughOr keeps taxonomy errors intact and wraps anything else as a
// persistence failure.
func passThroughOr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsInsufficientStock(err) {
		return err
	}
	if errs.IsPersistence(err) {
		return err
	}
	return errs.NewPersistence(op, err)
}

func submitFailureStatus(err error) string {
	switch {
	case errs.IsNotFound(err):
		return "ENTITY_NOT_FOUND"
	case errs.IsInsufficientStock(err):
		return "INSUFFICIENT_STOCK"
	case errs.IsValidation(err):
		return "VALIDATION_FAILED"
	default:
		return "COMMIT_FAILED"
	}
}
