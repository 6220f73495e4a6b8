package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/integration"
)

// RunRecorder writes the run audit log. Every write is best-effort: a failure
// is logged as a warning and never reaches the caller.
type RunRecorder struct {
	repo   integration.RunLogRepository
	logger *zap.Logger
}

// NewRunRecorder creates a new RunRecorder; a nil repo records nothing
func NewRunRecorder(repo integration.RunLogRepository, logger *zap.Logger) *RunRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunRecorder{repo: repo, logger: logger}
}

// NewRun builds a processing run log with a fresh run id
func NewRun(companyID int64, platform integration.PlatformSlug, command string) *integration.RunLog {
	return &integration.RunLog{
		RunID:     uuid.NewString(),
		CompanyID: companyID,
		Platform:  platform,
		Command:   command,
		Status:    integration.RunStatusProcessing,
		StartedAt: time.Now(),
	}
}

// Start inserts the processing row
func (r *RunRecorder) Start(ctx context.Context, run *integration.RunLog) {
	if r.repo == nil {
		return
	}
	run.Status = integration.RunStatusProcessing
	if err := r.repo.Create(ctx, run); err != nil {
		r.logger.Warn("Failed to write run log start", zap.String("run_id", run.RunID), zap.Error(err))
	}
}

// Finish records a successful run with its final counters
func (r *RunRecorder) Finish(ctx context.Context, run *integration.RunLog, counters map[string]any) {
	run.Finish(counters)
	r.persist(ctx, run)
}

// Fail records a failed run with the counters collected so far
func (r *RunRecorder) Fail(ctx context.Context, run *integration.RunLog, counters map[string]any, runErr error) {
	run.Fail(counters, runErr)
	r.persist(ctx, run)
}

// Record wraps fn with Start and Finish/Fail and returns fn's own result untouched
func (r *RunRecorder) Record(ctx context.Context, run *integration.RunLog, fn func(ctx context.Context) (map[string]any, error)) (map[string]any, error) {
	r.Start(ctx, run)
	counters, err := fn(ctx)
	if err != nil {
		r.Fail(ctx, run, counters, err)
		return counters, err
	}
	r.Finish(ctx, run, counters)
	return counters, nil
}

// persist updates the row, or inserts it when Start never managed to
func (r *RunRecorder) persist(ctx context.Context, run *integration.RunLog) {
	if r.repo == nil {
		return
	}
	// The run context may already be cancelled; the audit row should still land.
	ctx = context.WithoutCancel(ctx)

	var err error
	if run.ID == 0 {
		err = r.repo.Create(ctx, run)
	} else {
		err = r.repo.Update(ctx, run)
	}
	if err != nil {
		r.logger.Warn("Failed to write run log",
			zap.String("run_id", run.RunID),
			zap.String("status", string(run.Status)),
			zap.Error(err),
		)
	}
}
