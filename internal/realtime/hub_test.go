package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	domoutbox "github.com/workboxhq/workbox/internal/domain/outbox"
	"github.com/workboxhq/workbox/internal/realtime"
)

type stubEvent struct {
	Value string `json:"value"`
}

func (stubEvent) EventName() string { return "stub_event" }

type stubObserver struct {
	id      string
	failure error

	mu       sync.Mutex
	payloads [][]byte
	closed   bool
}

func (o *stubObserver) ID() string { return o.id }

func (o *stubObserver) Send(_ context.Context, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failure != nil {
		return o.failure
	}
	o.payloads = append(o.payloads, append([]byte(nil), payload...))
	return nil
}

func (o *stubObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *stubObserver) received() [][]byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([][]byte(nil), o.payloads...)
}

func (o *stubObserver) wasClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func TestBroadcastReachesAllObservers(t *testing.T) {
	hub := realtime.NewHub(nil)
	observers := make([]*stubObserver, 3)
	for i := range observers {
		observers[i] = &stubObserver{id: fmt.Sprintf("obs-%d", i)}
		hub.Register(observers[i])
	}

	hub.Broadcast(context.Background(), stubEvent{Value: "hello"})

	for _, obs := range observers {
		got := obs.received()
		if len(got) != 1 {
			t.Fatalf("observer %s received %d payloads, want 1", obs.id, len(got))
		}

		var envelope struct {
			Event string    `json:"event"`
			Data  stubEvent `json:"data"`
		}
		if err := json.Unmarshal(got[0], &envelope); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if envelope.Event != "stub_event" {
			t.Errorf("envelope.Event = %q, want stub_event", envelope.Event)
		}
		if envelope.Data.Value != "hello" {
			t.Errorf("envelope.Data.Value = %q, want hello", envelope.Data.Value)
		}
	}
}

func TestBroadcastFailingObserverIsDroppedOthersDeliver(t *testing.T) {
	hub := realtime.NewHub(nil)
	healthy1 := &stubObserver{id: "healthy-1"}
	broken := &stubObserver{id: "broken", failure: errors.New("connection reset")}
	healthy2 := &stubObserver{id: "healthy-2"}
	hub.Register(healthy1)
	hub.Register(broken)
	hub.Register(healthy2)

	hub.Broadcast(context.Background(), stubEvent{Value: "first"})

	if got := len(healthy1.received()); got != 1 {
		t.Errorf("healthy-1 received %d, want 1", got)
	}
	if got := len(healthy2.received()); got != 1 {
		t.Errorf("healthy-2 received %d, want 1", got)
	}
	if !broken.wasClosed() {
		t.Error("failing observer was not closed")
	}
	if hub.Len() != 2 {
		t.Errorf("hub.Len() = %d, want 2 after drop", hub.Len())
	}

	// The dropped observer sees nothing on subsequent broadcasts.
	hub.Broadcast(context.Background(), stubEvent{Value: "second"})
	if got := len(healthy1.received()); got != 2 {
		t.Errorf("healthy-1 received %d, want 2", got)
	}
	if got := len(broken.received()); got != 0 {
		t.Errorf("dropped observer received %d, want 0", got)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := realtime.NewHub(nil)
	obs := &stubObserver{id: "obs"}
	hub.Register(obs)
	hub.Unregister(obs)

	hub.Broadcast(context.Background(), stubEvent{Value: "ignored"})

	if got := len(obs.received()); got != 0 {
		t.Errorf("unregistered observer received %d payloads, want 0", got)
	}
	if hub.Len() != 0 {
		t.Errorf("hub.Len() = %d, want 0", hub.Len())
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := realtime.NewHub(nil)
	obs := &stubObserver{id: "obs"}
	hub.Register(obs)

	hub.Unregister(obs)
	hub.Unregister(obs)
	hub.Unregister(&stubObserver{id: "never-registered"})

	if hub.Len() != 0 {
		t.Errorf("hub.Len() = %d, want 0", hub.Len())
	}
}

func TestBroadcastNoObserversIsNoop(t *testing.T) {
	hub := realtime.NewHub(nil)
	hub.Broadcast(context.Background(), stubEvent{Value: "void"})
	if hub.Len() != 0 {
		t.Errorf("hub.Len() = %d, want 0", hub.Len())
	}
}

func TestHandleEventNeverFailsDispatch(t *testing.T) {
	hub := realtime.NewHub(nil)
	hub.Register(&stubObserver{id: "broken", failure: errors.New("gone")})

	var handler domoutbox.Handler = hub.HandleEvent
	if err := handler(context.Background(), stubEvent{Value: "x"}); err != nil {
		t.Errorf("HandleEvent returned %v, want nil", err)
	}
}

func TestConcurrentRegisterBroadcast(t *testing.T) {
	hub := realtime.NewHub(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			obs := &stubObserver{id: fmt.Sprintf("obs-%d", i)}
			hub.Register(obs)
			hub.Unregister(obs)
		}(i)
		go func(i int) {
			defer wg.Done()
			hub.Broadcast(context.Background(), stubEvent{Value: fmt.Sprintf("v-%d", i)})
		}(i)
	}
	wg.Wait()

	if hub.Len() != 0 {
		t.Errorf("hub.Len() = %d, want 0", hub.Len())
	}
}
