package persistence

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/logger"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// Plugin is attached to the GORM handle once the pool is open
type Plugin interface {
	RegisterOtelGorm(db *gorm.DB) error
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	plugins []Plugin
}

// WithTracing attaches the query tracing plugin
func WithTracing(p Plugin) DatabaseOption {
	return func(o *databaseOptions) { o.plugins = append(o.plugins, p) }
}

func (o *databaseOptions) attach(db *gorm.DB) error {
	for _, p := range o.plugins {
		if err := p.RegisterOtelGorm(db); err != nil {
			return fmt.Errorf("failed to register database tracing: %w", err)
		}
	}
	return nil
}

// NewDatabase opens the Postgres connection pool with SQL logged through zap.
// Unique violations are logged at debug level since ingestion relies on them.
func NewDatabase(cfg *config.DatabaseConfig, zapLogger *zap.Logger, logLevel string, opts ...DatabaseOption) (*Database, error) {
	gormLogger := logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(logLevel),
		logger.WithSlowThreshold(cfg.SlowQueryThresh),
		logger.WithExpectedError(PostgresErrorClassifier{}.IsUniqueViolation),
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	o := &databaseOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.attach(db); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
