// Command scheduler polls every active freight hub installation on an
// interval and runs the ingestion jobs on a bounded worker pool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/infrastructure/cache"
	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/logger"
	"github.com/movmais/backend/internal/infrastructure/persistence"
	"github.com/movmais/backend/internal/infrastructure/scheduler"
	"github.com/movmais/backend/internal/infrastructure/telemetry"
	"github.com/movmais/backend/internal/interfaces/cli"
)

// bestOptionBatchSize is the keyset page used by scheduled best-option runs
const bestOptionBatchSize = 1000

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if !cfg.Scheduler.Enabled {
		log.Info("Scheduler disabled, exiting")
		return
	}

	tracer, err := telemetry.NewTracerProvider(context.Background(), cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level,
		persistence.WithTracing(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	lock, err := cache.NewRunLockFactory(cfg.Redis, cache.WithLogger(log)).CreateLock()
	if err != nil {
		log.Fatal("Failed to create run lock", zap.Error(err))
	}
	if closer, ok := lock.(io.Closer); ok {
		defer closer.Close()
	}

	stores := cli.NewGormStores(db.DB)
	runner, err := cli.NewRunner(cfg.Ingestion, stores, lock, log)
	if err != nil {
		log.Fatal("Failed to create job runner", zap.Error(err))
	}

	pool, err := scheduler.NewIngestionScheduler(
		scheduler.IngestionSchedulerConfigFrom(cfg.Scheduler),
		newExecutor(runner, cfg.Ingestion.DefaultPageSize),
		log,
	)
	if err != nil {
		log.Fatal("Failed to create ingestion scheduler", zap.Error(err))
	}

	trigger, err := scheduler.NewTenantTrigger(
		scheduler.TenantTriggerConfigFrom(cfg.Scheduler, cli.CommandFreightOrders, cli.CommandFreightBestOption),
		pool,
		stores.Platforms,
		log,
	)
	if err != nil {
		log.Fatal("Failed to create tenant trigger", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, runner.Metrics().Handler())
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Info("Metrics server starting", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start ingestion scheduler", zap.Error(err))
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start tenant trigger", zap.Error(err))
	}

	<-ctx.Done()
	log.Info("Shutting down scheduler...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.JobTimeout+30*time.Second)
	defer cancel()
	if err := trigger.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop tenant trigger", zap.Error(err))
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop ingestion scheduler", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}
	log.Info("Scheduler exited gracefully")
}

// jobRunner is the part of cli.Runner the scheduler drives
type jobRunner interface {
	OrdersJob(opts cli.OrdersOptions) cli.Job
	BestOptionJob(opts cli.BatchOptions) cli.Job
	Execute(ctx context.Context, job cli.Job) error
}

// newExecutor turns scheduled jobs into runner jobs. A job whose lock is held
// by another run is reported as skipped.
func newExecutor(r jobRunner, pageSize int) scheduler.JobExecutorFunc {
	return func(ctx context.Context, job *scheduler.IngestionJob) error {
		var run cli.Job
		switch job.Command {
		case cli.CommandFreightOrders:
			run = r.OrdersJob(cli.OrdersOptions{
				CompanyID: job.CompanyID,
				Platform:  job.Platform.String(),
				Start:     job.Start,
				End:       job.End,
				Limit:     pageSize,
			})
		case cli.CommandFreightBestOption:
			from, to := job.Start, job.End
			run = r.BestOptionJob(cli.BatchOptions{
				CompanyID: job.CompanyID,
				From:      &from,
				To:        &to,
				BatchSize: bestOptionBatchSize,
			})
		default:
			return fmt.Errorf("unsupported scheduled command %q", job.Command)
		}

		err := r.Execute(ctx, run)
		if errors.Is(err, cache.ErrLockHeld) {
			return fmt.Errorf("%w: %v", scheduler.ErrJobSkipped, err)
		}
		return err
	}
}
