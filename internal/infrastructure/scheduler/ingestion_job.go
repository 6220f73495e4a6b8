package scheduler

import (
	"time"

	"github.com/google/uuid"

	"github.com/movmais/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Ingestion Job Types
// ---------------------------------------------------------------------------

// JobStatus represents the status of an ingestion job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusSkipped JobStatus = "SKIPPED"
	JobStatusFailed  JobStatus = "FAILED"
)

// IngestionJob is one scheduled run of a job command for a tenant installation
type IngestionJob struct {
	ID          uuid.UUID
	Command     string
	CompanyID   int64
	Platform    integration.PlatformSlug
	Start       time.Time
	End         time.Time
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// NewIngestionJob creates a pending job over [start, end]
func NewIngestionJob(command string, companyID int64, platform integration.PlatformSlug, start, end time.Time) *IngestionJob {
	return &IngestionJob{
		ID:        uuid.New(),
		Command:   command,
		CompanyID: companyID,
		Platform:  platform,
		Start:     start,
		End:       end,
		Status:    JobStatusPending,
	}
}

// Begin marks the job as running
func (j *IngestionJob) Begin() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *IngestionJob) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Skip marks the job as a no-op because an overlapping run held the lock
func (j *IngestionJob) Skip() {
	now := time.Now()
	j.Status = JobStatusSkipped
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *IngestionJob) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Duration returns how long the job ran, or zero if it has not finished
func (j *IngestionJob) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
