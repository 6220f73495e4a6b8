package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/movmais/backend/internal/infrastructure/config"
)

// setupTracerWithRecorder creates a tracer provider with a span recorder for testing
func setupTracerWithRecorder(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, recorder
}

// useGlobalTracerProvider installs tp globally for the duration of the test
func useGlobalTracerProvider(t *testing.T, tp trace.TracerProvider) {
	t.Helper()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func setupMockGorm(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestStartSpan(t *testing.T) {
	tp, recorder := setupTracerWithRecorder(t)
	useGlobalTracerProvider(t, tp)

	ctx, span := StartSpan(context.Background(), "vendor.fetch",
		WithSpanKind(trace.SpanKindClient),
		WithAttribute(SpanAttrURL, "http://vendor/orders"),
	)
	assert.NotEmpty(t, GetTraceID(ctx))
	SetAttributes(span, SpanAttrStatus, 200, 42, "skipped")
	AddEvent(span, "retry", SpanAttrRetryKind, "rate_limit")
	RecordError(span, errors.New("boom"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "vendor.fetch", got.Name())
	assert.Equal(t, trace.SpanKindClient, got.SpanKind())
	assert.Equal(t, codes.Error, got.Status().Code)
	require.Len(t, got.Events(), 2)
	assert.Equal(t, "retry", got.Events()[0].Name)

	attrs := map[string]string{}
	for _, kv := range got.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "http://vendor/orders", attrs[SpanAttrURL])
	assert.Equal(t, "200", attrs[SpanAttrStatus])
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewTracerProvider_ExportsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{
		Enabled:       true,
		SamplingRatio: 1.0,
		ServiceName:   "movmais-test",
	}, zap.NewNop(), WithSpanExporter(exporter))
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := StartSpan(context.Background(), "ingestion.run")
	span.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "ingestion.run", spans[0].Name)
	require.NoError(t, tp.Shutdown(context.Background()))
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := DBTracingConfigFrom(config.TelemetryConfig{
		Enabled:           true,
		DBTraceEnabled:    true,
		DBSlowQueryThresh: time.Second,
	})
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Second, cfg.SlowQueryThresh)
	assert.Equal(t, "postgresql", cfg.DBSystem)

	assert.False(t, DBTracingConfigFrom(config.TelemetryConfig{DBTraceEnabled: true}).Enabled)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db, mock := setupMockGorm(t)
	tp, recorder := setupTracerWithRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: false}, zap.NewNop(), WithDBTracerProvider(tp))
	require.NoError(t, plugin.RegisterOtelGorm(db))

	mock.ExpectExec("DELETE FROM run_logs").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, db.Exec("DELETE FROM run_logs").Error)

	assert.Empty(t, recorder.Ended())
}

func TestDBTracingPlugin_RecordsStatementSpans(t *testing.T) {
	db, mock := setupMockGorm(t)
	tp, recorder := setupTracerWithRecorder(t)

	plugin := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.NewNop(),
		WithDBTracerProvider(tp))
	require.NoError(t, plugin.RegisterOtelGorm(db))

	mock.ExpectExec("UPDATE freight_orders").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, db.Exec("UPDATE freight_orders SET order_day = NULL").Error)

	mock.ExpectExec("UPDATE freight_quotes").WillReturnError(errors.New("relation does not exist"))
	require.Error(t, db.Exec("UPDATE freight_quotes SET best_cost = NULL").Error)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, trace.SpanKindClient, s.SpanKind())
	}
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
