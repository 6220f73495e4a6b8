package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func testSchedulerConfig() IngestionSchedulerConfig {
	cfg := DefaultIngestionSchedulerConfig()
	cfg.MaxConcurrentJobs = 2
	cfg.JobTimeout = 5 * time.Second
	cfg.QueueSize = 10
	return cfg
}

type stubProvider struct {
	installs []integration.CompanyPlatform
	err      error
	calls    atomic.Int32
}

func (p *stubProvider) ListActive(_ context.Context, _ integration.PlatformSlug) ([]integration.CompanyPlatform, error) {
	p.calls.Add(1)
	return p.installs, p.err
}

type recordingSubmitter struct {
	mu   sync.Mutex
	jobs []*IngestionJob
	err  error
}

func (r *recordingSubmitter) SubmitJob(job *IngestionJob) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	return nil
}

// ---------------------------------------------------------------------------
// IngestionJob Tests
// ---------------------------------------------------------------------------

func TestNewIngestionJob(t *testing.T) {
	start := time.Now().Add(-48 * time.Hour)
	end := time.Now()

	job := NewIngestionJob("freight-orders", 7, integration.PlatformFreightHub, start, end)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, "freight-orders", job.Command)
	assert.Equal(t, int64(7), job.CompanyID)
	assert.Equal(t, integration.PlatformFreightHub, job.Platform)
	assert.Equal(t, start, job.Start)
	assert.Equal(t, end, job.End)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Nil(t, job.StartedAt)
	assert.Zero(t, job.Duration())
}

func TestIngestionJob_Lifecycle(t *testing.T) {
	job := NewIngestionJob("freight-orders", 1, integration.PlatformFreightHub, time.Now(), time.Now())
	job.Error = "previous error"

	job.Begin()
	assert.Equal(t, JobStatusRunning, job.Status)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.StartedAt)

	job.Fail("vendor unreachable")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "vendor unreachable", job.Error)
	assert.NotNil(t, job.CompletedAt)
	assert.GreaterOrEqual(t, job.Duration(), time.Duration(0))
}

// ---------------------------------------------------------------------------
// IngestionSchedulerConfig Tests
// ---------------------------------------------------------------------------

func TestIngestionSchedulerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*IngestionSchedulerConfig)
		wantErr bool
	}{
		{"default config is valid", func(c *IngestionSchedulerConfig) {}, false},
		{"zero workers", func(c *IngestionSchedulerConfig) { c.MaxConcurrentJobs = 0 }, true},
		{"zero timeout", func(c *IngestionSchedulerConfig) { c.JobTimeout = 0 }, true},
		{"zero queue", func(c *IngestionSchedulerConfig) { c.QueueSize = 0 }, true},
		{"negative history", func(c *IngestionSchedulerConfig) { c.MaxHistory = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultIngestionSchedulerConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIngestionSchedulerConfigFrom(t *testing.T) {
	cfg := IngestionSchedulerConfigFrom(config.SchedulerConfig{MaxConcurrentJobs: 3, JobTimeout: time.Minute})
	assert.Equal(t, 3, cfg.MaxConcurrentJobs)
	assert.Equal(t, time.Minute, cfg.JobTimeout)
	assert.Equal(t, 100, cfg.QueueSize)

	cfg = IngestionSchedulerConfigFrom(config.SchedulerConfig{})
	assert.Equal(t, DefaultIngestionSchedulerConfig(), cfg)
}

// ---------------------------------------------------------------------------
// IngestionScheduler Tests
// ---------------------------------------------------------------------------

func TestIngestionScheduler_SubmitBeforeStart(t *testing.T) {
	s, err := NewIngestionScheduler(testSchedulerConfig(), JobExecutorFunc(func(context.Context, *IngestionJob) error {
		return nil
	}), newTestLogger())
	require.NoError(t, err)

	err = s.SubmitJob(NewIngestionJob("freight-orders", 1, integration.PlatformFreightHub, time.Now(), time.Now()))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestIngestionScheduler_ProcessesJobs(t *testing.T) {
	var executed atomic.Int32
	executor := JobExecutorFunc(func(_ context.Context, job *IngestionJob) error {
		executed.Add(1)
		switch job.CompanyID {
		case 2:
			return errors.New("schema missing")
		case 3:
			return ErrJobSkipped
		}
		return nil
	})

	s, err := NewIngestionScheduler(testSchedulerConfig(), executor, newTestLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))

	for _, companyID := range []int64{1, 2, 3} {
		_, err := s.Schedule("freight-orders", companyID, integration.PlatformFreightHub, time.Now().Add(-time.Hour), time.Now())
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return len(s.GetJobHistory(0)) == 3
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop(ctx))

	assert.Equal(t, int32(3), executed.Load())

	statuses := map[int64]JobStatus{}
	for _, job := range s.GetJobHistory(0) {
		statuses[job.CompanyID] = job.Status
	}
	assert.Equal(t, JobStatusSuccess, statuses[1])
	assert.Equal(t, JobStatusFailed, statuses[2])
	assert.Equal(t, JobStatusSkipped, statuses[3])

	failed := s.GetJobHistoryByCompany(2, 10)
	require.Len(t, failed, 1)
	assert.Equal(t, "schema missing", failed[0].Error)
}

func TestIngestionScheduler_QueueFull(t *testing.T) {
	release := make(chan struct{})
	executor := JobExecutorFunc(func(context.Context, *IngestionJob) error {
		<-release
		return nil
	})

	cfg := testSchedulerConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.QueueSize = 1
	s, err := NewIngestionScheduler(cfg, executor, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))

	newJob := func() *IngestionJob {
		return NewIngestionJob("freight-orders", 1, integration.PlatformFreightHub, time.Now(), time.Now())
	}

	// the first job occupies the only worker
	require.NoError(t, s.SubmitJob(newJob()))
	require.Eventually(t, func() bool { return len(s.jobs) == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SubmitJob(newJob()))
	assert.ErrorIs(t, s.SubmitJob(newJob()), ErrJobQueueFull)

	close(release)
	require.NoError(t, s.Stop(context.Background()))
}

func TestIngestionScheduler_StopLetsRunningJobFinish(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	executor := JobExecutorFunc(func(ctx context.Context, _ *IngestionJob) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})

	s, err := NewIngestionScheduler(testSchedulerConfig(), executor, newTestLogger())
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.SubmitJob(NewIngestionJob("freight-orders", 1, integration.PlatformFreightHub, time.Now(), time.Now())))

	<-started
	require.NoError(t, s.Stop(context.Background()))

	assert.False(t, sawCancel.Load())
	history := s.GetJobHistory(1)
	require.Len(t, history, 1)
	assert.Equal(t, JobStatusSuccess, history[0].Status)

	assert.ErrorIs(t, s.SubmitJob(NewIngestionJob("freight-orders", 1, integration.PlatformFreightHub, time.Now(), time.Now())), ErrSchedulerNotRunning)
}

// ---------------------------------------------------------------------------
// TenantTrigger Tests
// ---------------------------------------------------------------------------

func TestTenantTriggerConfig_Validate(t *testing.T) {
	valid := TenantTriggerConfigFrom(config.SchedulerConfig{Interval: time.Hour, TenantDelay: time.Second, LookbackDays: 2}, "freight-orders")
	require.NoError(t, valid.Validate())
	assert.Equal(t, 48*time.Hour, valid.Lookback)

	noCommands := valid
	noCommands.Commands = nil
	assert.ErrorIs(t, noCommands.Validate(), ErrInvalidConfig)

	noLookback := valid
	noLookback.Lookback = 0
	assert.ErrorIs(t, noLookback.Validate(), ErrInvalidConfig)
}

func TestTenantTrigger_Tick(t *testing.T) {
	provider := &stubProvider{installs: []integration.CompanyPlatform{
		{CompanyID: 1, Platform: integration.PlatformFreightHub, Active: true},
		{CompanyID: 2, Platform: integration.PlatformFreightHub, Active: true},
	}}
	submitter := &recordingSubmitter{}

	cfg := TenantTriggerConfig{
		Interval:    time.Hour,
		TenantDelay: time.Millisecond,
		Lookback:    48 * time.Hour,
		Platform:    integration.PlatformFreightHub,
		Commands:    []string{"freight-orders", "freight-best-option"},
	}
	trigger, err := NewTenantTrigger(cfg, submitter, provider, newTestLogger())
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	trigger.now = func() time.Time { return now }

	submitted := trigger.Tick(context.Background())
	assert.Equal(t, 4, submitted)
	require.Len(t, submitter.jobs, 4)

	assert.Equal(t, "freight-orders", submitter.jobs[0].Command)
	assert.Equal(t, "freight-best-option", submitter.jobs[1].Command)
	assert.Equal(t, int64(1), submitter.jobs[0].CompanyID)
	assert.Equal(t, int64(2), submitter.jobs[2].CompanyID)
	assert.Equal(t, now.Add(-48*time.Hour), submitter.jobs[0].Start)
	assert.Equal(t, now, submitter.jobs[0].End)
}

func TestTenantTrigger_TickErrors(t *testing.T) {
	cfg := TenantTriggerConfig{
		Interval: time.Hour,
		Lookback: time.Hour,
		Platform: integration.PlatformFreightHub,
		Commands: []string{"freight-orders"},
	}

	t.Run("provider failure schedules nothing", func(t *testing.T) {
		submitter := &recordingSubmitter{}
		trigger, err := NewTenantTrigger(cfg, submitter, &stubProvider{err: errors.New("db down")}, newTestLogger())
		require.NoError(t, err)

		assert.Equal(t, 0, trigger.Tick(context.Background()))
		assert.Empty(t, submitter.jobs)
	})

	t.Run("full queue is not counted", func(t *testing.T) {
		provider := &stubProvider{installs: []integration.CompanyPlatform{{CompanyID: 1, Platform: integration.PlatformFreightHub}}}
		trigger, err := NewTenantTrigger(cfg, &recordingSubmitter{err: ErrJobQueueFull}, provider, newTestLogger())
		require.NoError(t, err)

		assert.Equal(t, 0, trigger.Tick(context.Background()))
	})
}

func TestTenantTrigger_StartRunsImmediately(t *testing.T) {
	provider := &stubProvider{installs: []integration.CompanyPlatform{{CompanyID: 9, Platform: integration.PlatformFreightHub}}}
	submitter := &recordingSubmitter{}
	cfg := TenantTriggerConfig{
		Interval: time.Hour,
		Lookback: time.Hour,
		Platform: integration.PlatformFreightHub,
		Commands: []string{"freight-orders"},
	}
	trigger, err := NewTenantTrigger(cfg, submitter, provider, newTestLogger())
	require.NoError(t, err)

	require.NoError(t, trigger.Start(context.Background()))
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, trigger.Stop(context.Background()))

	submitter.mu.Lock()
	defer submitter.mu.Unlock()
	require.Len(t, submitter.jobs, 1)
	assert.Equal(t, int64(9), submitter.jobs[0].CompanyID)
}
