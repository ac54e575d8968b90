// Package realtime implements the best-effort broadcast hub behind the /ws
// feed. The hub owns nothing but transport connections: events fan out to
// every registered observer, a failed or slow observer is silently dropped,
// and no event is ever retried, acknowledged, or persisted. An observer that
// connects after a broadcast never sees it. Callers must not mistake this
// for reliable delivery.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/observability"
	"github.com/workboxhq/workbox/internal/observability/logctx"
	"github.com/workboxhq/workbox/internal/pkg/errs"
)

const (
	componentHub       = "broadcast_hub"
	defaultSendTimeout = 5 * time.Second
)

type envelope struct {
	Event string          `json:"event"`
	Data  domoutbox.Event `json:"data"`
}

type Hub struct {
	mu        sync.Mutex
	observers map[Observer]struct{}

	sendTimeout time.Duration
	log         observability.Logger
	deliveries  observability.Counter
	connected   observability.Gauge
}

func NewHub(tel observability.Observability) *Hub {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Hub{
		observers:   make(map[Observer]struct{}),
		sendTimeout: defaultSendTimeout,
		log:         tel.Logger().With(observability.F("component", componentHub)),
		deliveries:  tel.Metrics().Counter(observability.MBroadcastDeliveries),
		connected:   tel.Metrics().Gauge(observability.MObserversConnected),
	}
}

// Register adds a newly accepted connection to the active set. The observer
// becomes a broadcast target immediately.
func (h *Hub) Register(obs Observer) {
	if obs == nil {
		return
	}
	h.mu.Lock()
	h.observers[obs] = struct{}{}
	n := len(h.observers)
	h.mu.Unlock()

	h.connected.Set(float64(n))
	h.log.Info("observer_registered",
		observability.F("observer_id", obs.ID()),
		observability.F("connected", n),
	)
}

// Unregister removes an observer from the active set. Unregistering an
// observer that was already removed is a no-op.
func (h *Hub) Unregister(obs Observer) {
	if obs == nil {
		return
	}
	h.mu.Lock()
	_, present := h.observers[obs]
	if present {
		delete(h.observers, obs)
	}
	n := len(h.observers)
	h.mu.Unlock()

	if !present {
		return
	}
	h.connected.Set(float64(n))
	h.log.Info("observer_unregistered",
		observability.F("observer_id", obs.ID()),
		observability.F("connected", n),
	)
}

// Len reports the current number of registered observers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}

// Broadcast delivers the event to every currently registered observer,
// each on its own goroutine with a bounded send so one stalled connection
// cannot delay the rest. A per-observer failure downgrades to a silent
// unregister; it never aborts delivery to the remaining observers and never
// surfaces to the caller.
func (h *Hub) Broadcast(ctx context.Context, e domoutbox.Event) {
	if e == nil {
		return
	}
	logger := logctx.FromOr(ctx, h.log).With(observability.F("event", e.EventName()))

	payload, err := json.Marshal(envelope{Event: e.EventName(), Data: e})
	if err != nil {
		logger.Error("event_encode_failed", observability.F("error", err.Error()))
		return
	}

	h.mu.Lock()
	targets := make([]Observer, 0, len(h.observers))
	for obs := range h.observers {
		targets = append(targets, obs)
	}
	h.mu.Unlock()

	if len(targets) == 0 {
		logger.Debug("broadcast_no_observers")
		return
	}

	var wg sync.WaitGroup
	for _, obs := range targets {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			h.deliver(ctx, obs, payload, logger)
		}(obs)
	}
	wg.Wait()

	logger.Debug("event_broadcast",
		observability.F("observers", len(targets)),
	)
}

func (h *Hub) deliver(ctx context.Context, obs Observer, payload []byte, logger observability.Logger) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.sendTimeout)
	defer cancel()

	if err := obs.Send(sendCtx, payload); err != nil {
		h.deliveries.Add(1, observability.L("outcome", "failed"))

		// Delivery failures degrade to removal; the hub has no fatal path.
		dErr := &errs.DeliveryError{ObserverID: obs.ID(), Err: err}
		logger.Warn("observer_delivery_failed",
			observability.F("observer_id", obs.ID()),
			observability.F("error", dErr.Error()),
		)
		h.Unregister(obs)
		_ = obs.Close()
		return
	}
	h.deliveries.Add(1, observability.L("outcome", "sent"))
}

// HandleEvent adapts the hub to the event bus handler contract. Broadcast
// outcomes never fail the bus dispatch.
func (h *Hub) HandleEvent(ctx context.Context, e domoutbox.Event) error {
	h.Broadcast(ctx, e)
	return nil
}
