package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ToContext stores a scoped logger in the context. Middleware uses this to
// propagate per-request fields.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the scoped logger from the context, or the singleton when the
// context carries none. Safe with a nil context.
func From(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return L()
	}
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return L()
}
