package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/infrastructure/cache"
	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/logger"
	"github.com/movmais/backend/internal/infrastructure/persistence"
	"github.com/movmais/backend/internal/infrastructure/telemetry"
)

// Exit codes
const (
	ExitOK    = 0
	ExitError = 1
)

// JobBuilder turns parsed flags into a job once the runner exists
type JobBuilder func(r *Runner) (Job, error)

// Prepare parses the flags of command before any connection is opened
func Prepare(command string, args []string, cfg config.IngestionConfig) (JobBuilder, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load ingestion timezone: %w", err)
	}

	switch command {
	case CommandFreightOrders:
		opts, err := ParseOrdersOptions(args, loc, cfg.DefaultPageSize)
		if err != nil {
			return nil, err
		}
		return func(r *Runner) (Job, error) { return r.OrdersJob(*opts), nil }, nil

	case CommandFreightBestOption:
		opts, err := ParseBatchOptions(command, args, loc)
		if err != nil {
			return nil, err
		}
		return func(r *Runner) (Job, error) { return r.BestOptionJob(*opts), nil }, nil

	case CommandBackfillDatetime:
		opts, err := ParseDateBackfillOptions(args, loc)
		if err != nil {
			return nil, err
		}
		return func(r *Runner) (Job, error) { return r.DateBackfillJob(*opts) }, nil

	case CommandBackfillQuoteOptions:
		opts, err := ParseBatchOptions(command, args, loc)
		if err != nil {
			return nil, err
		}
		return func(r *Runner) (Job, error) { return r.QuoteOptionsBackfillJob(*opts), nil }, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, command)
}

// ExitCode maps a run result to the process exit code. A run skipped because
// another run held the lock is a success.
func ExitCode(err error) int {
	if err == nil || errors.Is(err, cache.ErrLockHeld) {
		return ExitOK
	}
	return ExitError
}

// Main is the body of every job binary: load config, parse flags, open the
// store, take the run lock, run the job and report. Errors go to stderr.
func Main(command string, args []string, stderr io.Writer) int {
	err := run(command, args)
	code := ExitCode(err)
	if code != ExitOK {
		fmt.Fprintf(stderr, "%s: %v\n", command, err)
	}
	return code
}

func run(command string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	build, err := Prepare(command, args, cfg.Ingestion)
	if err != nil {
		return err
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	tracer, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level,
		persistence.WithTracing(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)))
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}()

	lock, err := cache.NewRunLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		return err
	}
	if closer, ok := lock.(io.Closer); ok {
		defer closer.Close()
	}

	runner, err := NewRunner(cfg.Ingestion, NewGormStores(db.DB), lock, log)
	if err != nil {
		return err
	}
	job, err := build(runner)
	if err != nil {
		return err
	}

	// No cancellation: a started run finishes or fails on its own.
	runErr := runner.Execute(context.Background(), job)

	if cfg.Metrics.PushGateway != "" {
		jobName := "movmais_" + strings.ReplaceAll(command, "-", "_")
		if err := runner.Metrics().Push(cfg.Metrics.PushGateway, jobName); err != nil {
			log.Warn("Failed to push metrics", zap.String("gateway", cfg.Metrics.PushGateway), zap.Error(err))
		}
	}
	return runErr
}
