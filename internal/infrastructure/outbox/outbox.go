package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/observability"
	"github.com/workboxhq/workbox/internal/observability/logctx"
)

// Bus is an in-memory event bus used as the post-commit event dispatcher.
// Events are consumed in publish order by a single dispatch goroutine, and
// each event's handler fanout completes before the next event starts, so
// subscribers see events in the order they were published.
// It is not durable; events published while down are lost.
type Bus struct {
	mu          sync.RWMutex
	subs        map[string][]domoutbox.Handler
	queue       chan domoutbox.Event
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	stop        chan struct{}
	done        chan struct{}
	concurrency int
	log         observability.Logger
	published   observability.Counter
}

const componentOutbox = "outbox"

// ErrStopped is returned by Publish once Stop has begun; late events are
// dropped rather than dispatched into a shutting-down bus.
var ErrStopped = errors.New("outbox: bus stopped")

// NewBus creates a bus with a buffered queue and a concurrency cap.
func NewBus(tel observability.Observability) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Bus{
		subs:        make(map[string][]domoutbox.Handler),
		queue:       make(chan domoutbox.Event, 1024), // buffer for backpressure
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		concurrency: 8, // per-event handler fanout cap
		log:         tel.Logger().With(observability.F("component", componentOutbox)),
		published:   tel.Metrics().Counter(observability.MEventsPublished),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		b.cancel = cancel
		go b.dispatchLoop(bg)
		logger := logctx.FromOr(ctx, b.log)
		logger.Info("event_bus_started")
	})
}

// Stop signals the dispatch goroutine, waits for it to drain the queue, and
// then stops. The queue channel is never closed, so a Publish racing Stop
// cannot panic; it either wins the enqueue or gets ErrStopped.
func (b *Bus) Stop(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.stop)
		<-b.done
		if b.cancel != nil {
			b.cancel()
		}
		logger := logctx.FromOr(ctx, b.log)
		logger.Info("event_bus_stopped")
	})
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	select {
	case <-b.stop:
		logctx.FromOr(ctx, b.log).Warn("event_dropped_bus_stopped",
			observability.F("event", e.EventName()),
		)
		return ErrStopped
	default:
	}
	select {
	case b.queue <- e:
		b.published.Add(1, observability.L("event", e.EventName()))
		logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
		logger.Debug("event_enqueued")
		return nil
	case <-b.stop:
		logctx.FromOr(ctx, b.log).Warn("event_dropped_bus_stopped",
			observability.F("event", e.EventName()),
		)
		return ErrStopped
	case <-ctx.Done():
		logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
		logger.Warn("event_enqueue_aborted",
			observability.F("error", ctx.Err()),
		)
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case e := <-b.queue:
			b.fanout(ctx, e)
		case <-b.stop:
			// Drain whatever was accepted before the stop signal.
			for {
				select {
				case e := <-b.queue:
					b.fanout(ctx, e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		logger := logctx.FromOr(ctx, b.log).With(observability.F("event", name))
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	ctx = context.WithoutCancel(ctx)
	baseLogger := b.log
	ctx = logctx.With(ctx, baseLogger)

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger := logctx.FromOr(ctx, b.log).With(observability.F("event", name))
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			ctx = logctx.With(ctx, baseLogger.With(observability.F("event", name)))
			err := h(ctx, e)
			cancel()
			if err != nil {
				baseLogger.Warn("event_handler_error",
					observability.F("event", name),
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()

	baseLogger.Debug("event_fanned_out",
		observability.F("event", name),
		observability.F("handlers", len(handlers)),
	)
}
