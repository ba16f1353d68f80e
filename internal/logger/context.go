package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

var nop = zap.NewNop()

// ContextWithLogger returns ctx carrying l. The HTTP middleware stores a
// request-scoped logger here.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return nop
}

// ForType tags the context logger with a record type.
func ForType(ctx context.Context, recordType string) *zap.Logger {
	return FromContext(ctx).With(zap.String("type", recordType))
}

// ForRecord tags the context logger with a record type and primary key.
func ForRecord(ctx context.Context, recordType, id string) *zap.Logger {
	return FromContext(ctx).With(zap.String("type", recordType), zap.String("id", id))
}
