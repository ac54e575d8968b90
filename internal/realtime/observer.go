package realtime

import "context"

// Observer is one connected realtime client. Implementations wrap a live
// transport connection; an observer is created on connect and thrown away on
// disconnect or send failure, never reused.
type Observer interface {
	// ID identifies the connection for logging. Uniqueness is not assumed;
	// the same physical client may hold several observers.
	ID() string
	// Send delivers one encoded event. It must respect the context deadline
	// so a stalled peer cannot block the caller indefinitely.
	Send(ctx context.Context, payload []byte) error
	// Close releases the underlying connection. Idempotent.
	Close() error
}
