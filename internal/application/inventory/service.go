package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/workboxhq/workbox/internal/application/tx"
	dominv "github.com/workboxhq/workbox/internal/domain/inventory"
	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/observability"
	"github.com/workboxhq/workbox/internal/observability/logctx"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

const publishTimeout = 300 * time.Millisecond

type IDGenerator interface {
	NewID() string
}

// Service covers inventory management around the order flow: creating items,
// restocking, and reads for the HTTP surface. Restock mutates stock and so
// runs inside the same unit of work that serializes order submissions.
type Service struct {
	repo        dominv.Repository
	uow         tx.UnitOfWork
	idGenerator IDGenerator
	publisher   domoutbox.Publisher
	log         observability.Logger
}

func NewService(repo dominv.Repository, uow tx.UnitOfWork, idGen IDGenerator, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:        repo,
		uow:         uow,
		idGenerator: idGen,
		publisher:   publisher,
		log:         tel.Logger().With(observability.F("component", "inventory_service")),
	}
}

type CreateItemInput struct {
	Name      string
	UnitPrice decimal.Decimal
	Stock     int
}

func (s *Service) Create(ctx context.Context, input CreateItemInput) (*dominv.Item, error) {
	item, err := dominv.NewItem(s.idGenerator.NewID(), input.Name, input.UnitPrice, input.Stock)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, errs.NewPersistence("insert inventory item", err)
	}

	logger := logctx.FromOr(ctx, s.log)
	logger.Info("inventory_item_created",
		observability.F("item_id", item.ID),
		observability.F("name", item.Name),
		observability.F("stock", item.Stock),
	)

	s.publish(ctx, dominv.NewUpdatedEvent(item), logger)
	return item, nil
}

// Restock raises an item's stock, e.g. goods-in. It runs inside the stock
// unit of work so the locked read-increment-write cannot interleave with an
// order transaction decrementing the same item.
func (s *Service) Restock(ctx context.Context, itemID string, quantity int) (*dominv.Item, error) {
	var restocked *dominv.Item
	err := s.uow.Execute(ctx, func(ctx context.Context, st tx.Stores) error {
		item, err := st.Inventory().Get(ctx, itemID)
		if err != nil {
			return err
		}
		if err := item.Restock(quantity); err != nil {
			return err
		}
		if err := st.Inventory().Update(ctx, item); err != nil {
			return err
		}
		restocked = item
		return nil
	})
	if err != nil {
		if errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsPersistence(err) {
			return nil, err
		}
		return nil, errs.NewPersistence("restock inventory item", err)
	}

	logger := logctx.FromOr(ctx, s.log)
	logger.Info("inventory_item_restocked",
		observability.F("item_id", restocked.ID),
		observability.F("stock", restocked.Stock),
	)

	s.publish(ctx, dominv.NewUpdatedEvent(restocked), logger)
	return restocked, nil
}

func (s *Service) Get(ctx context.Context, id string) (*dominv.Item, error) {
	if id == "" {
		return nil, errs.NewValidation("inventory: id is required")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]*dominv.Item, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event, logger observability.Logger) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		logger.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
