package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/infrastructure/config"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool          // Enable database tracing
	LogFullSQL      bool          // Include query variables in spans (dev only)
	SlowQueryThresh time.Duration // Threshold for marking queries as slow
	DBSystem        string        // Database system name
}

// DBTracingConfigFrom maps the telemetry config onto the database tracing settings
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	return DBTracingConfig{
		Enabled:         cfg.Enabled && cfg.DBTraceEnabled,
		LogFullSQL:      cfg.DBLogFullSQL,
		SlowQueryThresh: cfg.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin wraps the otelgorm plugin with slow query detection.
type DBTracingPlugin struct {
	config   DBTracingConfig
	logger   *zap.Logger
	provider trace.TracerProvider
}

// DBTracingOption configures a DBTracingPlugin
type DBTracingOption func(*DBTracingPlugin)

// WithDBTracerProvider makes otelgorm use tp instead of the global provider
func WithDBTracerProvider(tp trace.TracerProvider) DBTracingOption {
	return func(p *DBTracingPlugin) { p.provider = tp }
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger, opts ...DBTracingOption) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &DBTracingPlugin{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterOtelGorm installs otelgorm and the slow query callbacks on db.
// It does nothing when database tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.provider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.provider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type callbackRegistration struct {
	name     string
	register func(name string, fn func(*gorm.DB)) error
}

// registerCallbacks stamps the start time before each statement and inspects
// it afterwards, ahead of otelgorm ending the span.
func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	before := []callbackRegistration{
		{"otel_timing:before_create", cb.Create().Before("gorm:create").Register},
		{"otel_timing:before_query", cb.Query().Before("gorm:query").Register},
		{"otel_timing:before_update", cb.Update().Before("gorm:update").Register},
		{"otel_timing:before_delete", cb.Delete().Before("gorm:delete").Register},
		{"otel_timing:before_row", cb.Row().Before("gorm:row").Register},
		{"otel_timing:before_raw", cb.Raw().Before("gorm:raw").Register},
	}
	after := []callbackRegistration{
		{"otel_slow_query:create", cb.Create().After("gorm:create").Before("otel:after:create").Register},
		{"otel_slow_query:query", cb.Query().After("gorm:query").Before("otel:after:query").Register},
		{"otel_slow_query:update", cb.Update().After("gorm:update").Before("otel:after:update").Register},
		{"otel_slow_query:delete", cb.Delete().After("gorm:delete").Before("otel:after:delete").Register},
		{"otel_slow_query:row", cb.Row().After("gorm:row").Before("otel:after:row").Register},
		{"otel_slow_query:raw", cb.Raw().After("gorm:raw").Before("otel:after:raw").Register},
	}

	for _, r := range before {
		if err := r.register(r.name, stampQueryStart); err != nil {
			return err
		}
	}
	for _, r := range after {
		if err := r.register(r.name, p.slowQueryCallback); err != nil {
			return err
		}
	}
	return nil
}

func stampQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

// slowQueryCallback adds table, row count and slow query markers to the statement span
func (p *DBTracingPlugin) slowQueryCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		RecordError(span, db.Error)
	}

	startTime, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"
