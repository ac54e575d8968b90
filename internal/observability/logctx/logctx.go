// Package logctx threads a request-scoped logger through context. The HTTP
// middleware installs a logger carrying request_id and trace fields; services
// and the event bus pick it up with FromOr so every log line of one request
// shares the same correlation fields.
package logctx

import (
	"context"

	"github.com/workboxhq/workbox/internal/observability"
)

type ctxKey struct{}

// With returns a context carrying logger. A nil logger leaves ctx unchanged.
func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From reports the logger stored on ctx, if any.
func From(ctx context.Context) (observability.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(ctxKey{}).(observability.Logger)
	return logger, ok
}

// FromOr is From with a fallback for callers outside a request scope.
func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if logger, ok := From(ctx); ok {
		return logger
	}
	return fallback
}
