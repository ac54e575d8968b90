// Package rediscache adds a read-through cache in front of the inventory
// repository. Only the HTTP read surface goes through it; the order
// transaction always reads locked rows from the store itself. Stock changes
// invalidate cached entries via the event bus.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domain "github.com/workboxhq/workbox/internal/domain/inventory"
	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/observability"
)

const componentCache = "inventory_cache"

type Cache struct {
	client *redis.Client
	ttl    time.Duration
	log    observability.Logger
}

func New(ctx context.Context, addr string, ttl time.Duration, tel observability.Observability) (*Cache, error) {
	if tel == nil {
		tel = observability.Nop()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rediscache: ping: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
		log:    tel.Logger().With(observability.F("component", componentCache)),
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func itemKey(id string) string {
	return "inventory:item:" + id
}

// InventoryRepository is the cached decorator over the persistent repository.
type InventoryRepository struct {
	repo  domain.Repository
	cache *Cache
}

func NewInventoryRepository(repo domain.Repository, cache *Cache) *InventoryRepository {
	return &InventoryRepository{repo: repo, cache: cache}
}

func (r *InventoryRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	key := itemKey(id)

	val, err := r.cache.client.Get(ctx, key).Result()
	if err == nil {
		var item domain.Item
		if uerr := json.Unmarshal([]byte(val), &item); uerr == nil {
			return &item, nil
		}
		// Unreadable entry; fall through to the store and rewrite it.
	} else if !errors.Is(err, redis.Nil) {
		r.cache.log.Warn("cache_get_failed",
			observability.F("key", key),
			observability.F("error", err.Error()),
		)
	}

	item, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(item); merr == nil {
		if serr := r.cache.client.Set(ctx, key, data, r.cache.ttl).Err(); serr != nil {
			r.cache.log.Warn("cache_set_failed",
				observability.F("key", key),
				observability.F("error", serr.Error()),
			)
		}
	}
	return item, nil
}

// List is not cached; pagination windows churn too much to be worth keys.
func (r *InventoryRepository) List(ctx context.Context, offset, limit int) ([]*domain.Item, error) {
	return r.repo.List(ctx, offset, limit)
}

func (r *InventoryRepository) Insert(ctx context.Context, item *domain.Item) error {
	if err := r.repo.Insert(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, item.ID)
	return nil
}

func (r *InventoryRepository) Update(ctx context.Context, item *domain.Item) error {
	if err := r.repo.Update(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, item.ID)
	return nil
}

func (r *InventoryRepository) invalidate(ctx context.Context, id string) {
	if err := r.cache.client.Del(ctx, itemKey(id)).Err(); err != nil {
		r.cache.log.Warn("cache_invalidate_failed",
			observability.F("item_id", id),
			observability.F("error", err.Error()),
		)
	}
}

// HandleEvent drops the cached entry for any item whose stock changed through
// the order transaction, which bypasses the decorator.
func (c *Cache) HandleEvent(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domain.UpdatedEvent)
	if !ok {
		return nil
	}
	if err := c.client.Del(ctx, itemKey(evt.ItemID)).Err(); err != nil {
		c.log.Warn("cache_invalidate_failed",
			observability.F("item_id", evt.ItemID),
			observability.F("error", err.Error()),
		)
	}
	return nil
}
