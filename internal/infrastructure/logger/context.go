package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	companyIDKey contextKey = "company_id"
	runIDKey     contextKey = "run_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, falling back to a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithCompanyID stores the tenant on the context and returns the enriched logger
func WithCompanyID(ctx context.Context, logger *zap.Logger, companyID int64) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, companyIDKey, companyID)
	enriched := logger.With(zap.Int64("company_id", companyID))
	return WithContext(ctx, enriched), enriched
}

// WithRunID stores the run correlation id on the context and returns the enriched logger
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, runIDKey, runID)
	enriched := logger.With(zap.String("run_id", runID))
	return WithContext(ctx, enriched), enriched
}

// GetCompanyID returns the tenant stored on the context, or 0
func GetCompanyID(ctx context.Context) int64 {
	if id, ok := ctx.Value(companyIDKey).(int64); ok {
		return id
	}
	return 0
}

// GetRunID returns the run correlation id stored on the context
func GetRunID(ctx context.Context) string {
	if id, ok := ctx.Value(runIDKey).(string); ok {
		return id
	}
	return ""
}
