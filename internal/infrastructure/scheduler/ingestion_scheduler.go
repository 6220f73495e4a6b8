package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// JobExecutor Interface
// ---------------------------------------------------------------------------

// JobExecutor runs one ingestion job to completion.
// Returning ErrJobSkipped marks the job as skipped instead of failed.
type JobExecutor interface {
	Execute(ctx context.Context, job *IngestionJob) error
}

// JobExecutorFunc adapts a function to JobExecutor
type JobExecutorFunc func(ctx context.Context, job *IngestionJob) error

// Execute calls f(ctx, job)
func (f JobExecutorFunc) Execute(ctx context.Context, job *IngestionJob) error {
	return f(ctx, job)
}

// ---------------------------------------------------------------------------
// IngestionSchedulerConfig
// ---------------------------------------------------------------------------

// IngestionSchedulerConfig holds configuration for the ingestion worker pool
type IngestionSchedulerConfig struct {
	// MaxConcurrentJobs is the number of job slots
	MaxConcurrentJobs int
	// JobTimeout is the maximum time a job can run
	JobTimeout time.Duration
	// QueueSize bounds how many jobs may wait for a slot
	QueueSize int
	// MaxHistory bounds the in-memory job history
	MaxHistory int
}

// DefaultIngestionSchedulerConfig returns default configuration
func DefaultIngestionSchedulerConfig() IngestionSchedulerConfig {
	return IngestionSchedulerConfig{
		MaxConcurrentJobs: 1,
		JobTimeout:        time.Hour,
		QueueSize:         100,
		MaxHistory:        100,
	}
}

// IngestionSchedulerConfigFrom maps application configuration onto the pool settings
func IngestionSchedulerConfigFrom(cfg config.SchedulerConfig) IngestionSchedulerConfig {
	out := DefaultIngestionSchedulerConfig()
	if cfg.MaxConcurrentJobs > 0 {
		out.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.JobTimeout > 0 {
		out.JobTimeout = cfg.JobTimeout
	}
	return out
}

// Validate validates the configuration
func (c *IngestionSchedulerConfig) Validate() error {
	if c.MaxConcurrentJobs <= 0 {
		return ErrInvalidConfig
	}
	if c.JobTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.QueueSize <= 0 {
		return ErrInvalidConfig
	}
	if c.MaxHistory < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// IngestionScheduler
// ---------------------------------------------------------------------------

// IngestionScheduler runs submitted ingestion jobs on a bounded worker pool.
// Stopping the scheduler stops workers from taking new jobs; a job already
// running finishes under its own timeout.
type IngestionScheduler struct {
	config   IngestionSchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	jobs      chan *IngestionJob
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	stopped   bool

	historyMu sync.RWMutex
	history   []*IngestionJob
}

// NewIngestionScheduler creates a new ingestion scheduler
func NewIngestionScheduler(config IngestionSchedulerConfig, executor JobExecutor, logger *zap.Logger) (*IngestionScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &IngestionScheduler{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan *IngestionJob, config.QueueSize),
		history:  make([]*IngestionJob, 0, config.MaxHistory),
	}, nil
}

// Start starts the worker pool
func (s *IngestionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Ingestion scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop stops accepting jobs and waits for running jobs to finish
func (s *IngestionScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.stopped = true
	close(s.jobs)
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Ingestion scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Ingestion scheduler stop timed out")
		return ctx.Err()
	}
}

// SubmitJob enqueues a job without blocking
func (s *IngestionScheduler) SubmitJob(job *IngestionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Ingestion job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("command", job.Command),
			zap.Int64("company_id", job.CompanyID),
			zap.String("platform", job.Platform.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// Schedule submits a job for one tenant installation over [start, end]
func (s *IngestionScheduler) Schedule(command string, companyID int64, platform integration.PlatformSlug, start, end time.Time) (*IngestionJob, error) {
	job := NewIngestionJob(command, companyID, platform, start, end)
	if err := s.SubmitJob(job); err != nil {
		return nil, err
	}
	return job, nil
}

// worker processes jobs from the queue
func (s *IngestionScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Ingestion worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

// processJob executes a single job. The job context is detached from the
// scheduler context so a shutdown does not abort an in-flight run.
func (s *IngestionScheduler) processJob(ctx context.Context, job *IngestionJob, workerID int) {
	fields := []zap.Field{
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("command", job.Command),
		zap.Int64("company_id", job.CompanyID),
		zap.String("platform", job.Platform.String()),
	}

	job.Begin()
	s.logger.Info("Processing ingestion job", append(fields,
		zap.Time("start", job.Start),
		zap.Time("end", job.End),
	)...)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	switch {
	case err == nil:
		job.Complete()
		s.logger.Info("Ingestion job completed", append(fields, zap.Duration("duration", job.Duration()))...)
	case errors.Is(err, ErrJobSkipped):
		job.Skip()
		s.logger.Info("Ingestion job skipped, run already in progress", fields...)
	default:
		job.Fail(err.Error())
		s.logger.Error("Ingestion job failed", append(fields, zap.Error(err))...)
	}

	s.addToHistory(job)
}

// addToHistory adds a finished job to history
func (s *IngestionScheduler) addToHistory(job *IngestionJob) {
	if s.config.MaxHistory == 0 {
		return
	}
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append([]*IngestionJob{job}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
}

// GetJobHistory returns recent job history, newest first
func (s *IngestionScheduler) GetJobHistory(limit int) []*IngestionJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	result := make([]*IngestionJob, limit)
	copy(result, s.history[:limit])
	return result
}

// GetJobHistoryByCompany returns job history for one tenant
func (s *IngestionScheduler) GetJobHistoryByCompany(companyID int64, limit int) []*IngestionJob {
	s.historyMu.RLock()
	defer s.historyMu.RUnlock()

	result := make([]*IngestionJob, 0)
	for _, job := range s.history {
		if job.CompanyID == companyID {
			result = append(result, job)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result
}
