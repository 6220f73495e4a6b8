package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/infrastructure/telemetry"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("alive", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing()

		assert.NoError(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("down", func(t *testing.T) {
		db, mock := newMockDatabase(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		assert.Error(t, db.Ping())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock := newMockDatabase(t)
	mock.ExpectClose()

	require.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseOptions_WithTracing(t *testing.T) {
	db, mock := newMockDatabase(t)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: true}, zap.NewNop(),
		telemetry.WithDBTracerProvider(tp))

	o := &databaseOptions{}
	WithTracing(plugin)(o)
	require.NoError(t, o.attach(db.DB))

	mock.ExpectExec("UPDATE freight_orders").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, db.DB.Exec("UPDATE freight_orders SET order_day = NULL WHERE id = 1").Error)

	assert.Len(t, recorder.Ended(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type failingPlugin struct{}

func (failingPlugin) RegisterOtelGorm(*gorm.DB) error { return errors.New("callback name taken") }

func TestDatabaseOptions_PluginFailure(t *testing.T) {
	db, _ := newMockDatabase(t)

	o := &databaseOptions{}
	WithTracing(failingPlugin{})(o)
	err := o.attach(db.DB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database tracing")
}
