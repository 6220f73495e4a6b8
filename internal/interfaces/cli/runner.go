package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	appintegration "github.com/movmais/backend/internal/application/integration"
	"github.com/movmais/backend/internal/domain/catalog"
	"github.com/movmais/backend/internal/domain/freight"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/cache"
	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/ecommerce"
	"github.com/movmais/backend/internal/infrastructure/logger"
	"github.com/movmais/backend/internal/infrastructure/persistence"
	"github.com/movmais/backend/internal/infrastructure/telemetry"
)

// Stores bundles the repositories the jobs read and write
type Stores struct {
	Companies integration.CompanyRepository
	Platforms integration.CompanyPlatformRepository
	RunLogs   integration.RunLogRepository
	Quotes    freight.QuoteRepository
	Orders    freight.OrderRepository
	Products  catalog.ProductRepository
}

// NewGormStores builds every repository on one connection pool
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Companies: persistence.NewGormCompanyRepository(db),
		Platforms: persistence.NewGormCompanyPlatformRepository(db),
		RunLogs:   persistence.NewGormRunLogRepository(db),
		Quotes:    persistence.NewGormFreightQuoteRepository(db),
		Orders:    persistence.NewGormFreightOrderRepository(db),
		Products:  persistence.NewGormProductRepository(db),
	}
}

// Job is one invocation of a job command for a tenant installation.
// CompanyID 0 means the job spans every company.
type Job struct {
	Command   string
	CompanyID int64
	Platform  integration.PlatformSlug
	Run       func(ctx context.Context, log *zap.Logger) (map[string]any, error)
}

// Runner executes jobs under the run lock and run bookkeeping
type Runner struct {
	ingestion  config.IngestionConfig
	location   *time.Location
	stores     Stores
	lock       cache.RunLock
	recorder   *appintegration.RunRecorder
	metrics    *telemetry.Metrics
	fetcher    ecommerce.JSONFetcher
	classifier freight.ErrorClassifier
	logger     *zap.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithFetcher replaces the vendor HTTP client
func WithFetcher(f ecommerce.JSONFetcher) RunnerOption {
	return func(r *Runner) { r.fetcher = f }
}

// WithMetrics sets the metrics sink
func WithMetrics(m *telemetry.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

// WithClassifier replaces the driver error classifier
func WithClassifier(c freight.ErrorClassifier) RunnerOption {
	return func(r *Runner) { r.classifier = c }
}

// NewRunner creates a Runner. The vendor fetcher defaults to one built from
// the ingestion config, reporting retries to the metrics sink.
func NewRunner(ingestion config.IngestionConfig, stores Stores, lock cache.RunLock, logger *zap.Logger, opts ...RunnerOption) (*Runner, error) {
	loc, err := time.LoadLocation(ingestion.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load ingestion timezone: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		ingestion:  ingestion,
		location:   loc,
		stores:     stores,
		lock:       lock,
		recorder:   appintegration.NewRunRecorder(stores.RunLogs, logger),
		classifier: persistence.PostgresErrorClassifier{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = telemetry.NewMetrics()
	}
	if r.fetcher == nil {
		r.fetcher = ecommerce.NewFetcher(FetchConfigFrom(ingestion),
			ecommerce.WithRetryObserver(r.metrics),
			ecommerce.WithFetchLogger(logger),
		)
	}
	return r, nil
}

// FetchConfigFrom maps the ingestion config onto the vendor retry policy
func FetchConfigFrom(cfg config.IngestionConfig) ecommerce.FetchConfig {
	return ecommerce.FetchConfig{
		Timeout:              cfg.RequestTimeout,
		TransientAttempts:    cfg.TransientRetries,
		TransientBaseDelay:   cfg.TransientBaseDelay,
		TransientMaxDelay:    cfg.TransientMaxDelay,
		RateLimitRetries:     cfg.RateLimitRetries,
		RateLimitDefaultWait: cfg.RateLimitDefaultWait,
		RateLimitMaxWait:     cfg.RateLimitMaxWait,
		RequestsPerSecond:    cfg.RequestsPerSecond,
	}
}

// Location returns the default ingestion timezone
func (r *Runner) Location() *time.Location {
	return r.location
}

// Metrics returns the metrics sink
func (r *Runner) Metrics() *telemetry.Metrics {
	return r.metrics
}

// Execute runs job once. When another run holds the job's lock the job is not
// run and an error wrapping cache.ErrLockHeld is returned.
func (r *Runner) Execute(ctx context.Context, job Job) error {
	key := cache.RunLockKey(job.Command, job.CompanyID, job.Platform.String())
	release, err := r.lock.Acquire(ctx, key, r.ingestion.LockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		r.metrics.ObserveLockSkip(job.Command)
		r.logger.Info("Run already in progress, skipping",
			zap.String("command", job.Command),
			zap.Int64("company_id", job.CompanyID),
			zap.String("lock_key", key),
		)
		return fmt.Errorf("%s: %w", job.Command, err)
	}
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", key, err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Warn("Failed to release run lock", zap.String("lock_key", key), zap.Error(err))
		}
	}()

	run := appintegration.NewRun(job.CompanyID, job.Platform, job.Command)
	log := logger.ForRun(r.logger, job.CompanyID, job.Platform.String(), job.Command, run.RunID)
	ctx = logger.WithContext(ctx, log)

	ctx, span := telemetry.StartSpan(ctx, "ingestion."+job.Command,
		telemetry.WithAttribute(telemetry.SpanAttrCommand, job.Command),
		telemetry.WithAttribute(telemetry.SpanAttrCompanyID, job.CompanyID),
		telemetry.WithAttribute(telemetry.SpanAttrPlatform, job.Platform.String()),
	)
	defer span.End()

	log.Info("Run started")
	started := time.Now()
	counters, err := r.recorder.Record(ctx, run, func(ctx context.Context) (map[string]any, error) {
		return job.Run(ctx, log)
	})
	elapsed := time.Since(started)

	telemetry.SetAttributes(span, "run_id", run.RunID)
	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.ObserveRun(job.Command, string(integration.RunStatusError), elapsed, counters)
		log.Error("Run failed", zap.Duration("elapsed", elapsed), zap.Any("counters", counters), zap.Error(err))
		return err
	}
	r.metrics.ObserveRun(job.Command, string(integration.RunStatusFinished), elapsed, counters)
	log.Info("Run finished", zap.Duration("elapsed", elapsed), zap.Any("counters", counters))
	return nil
}
