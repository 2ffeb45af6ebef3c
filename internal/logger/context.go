package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithDocument scopes the context logger to one document.
// The returned context carries the scoped logger so background work keeps the field.
func WithDocument(ctx context.Context, id string) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(zap.String("document_id", id))
	return ContextWithLogger(ctx, l), l
}
