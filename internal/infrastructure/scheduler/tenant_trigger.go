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
// Installation provider
// ---------------------------------------------------------------------------

// InstallationProvider lists the tenant installations that should be polled
type InstallationProvider interface {
	ListActive(ctx context.Context, platform integration.PlatformSlug) ([]integration.CompanyPlatform, error)
}

// JobSubmitter accepts jobs for execution
type JobSubmitter interface {
	SubmitJob(job *IngestionJob) error
}

// ---------------------------------------------------------------------------
// TenantTriggerConfig
// ---------------------------------------------------------------------------

// TenantTriggerConfig holds configuration for the periodic tenant trigger
type TenantTriggerConfig struct {
	// Interval is how often every active installation is scheduled
	Interval time.Duration
	// TenantDelay is the pause between two tenant submissions
	TenantDelay time.Duration
	// Lookback is the window length ending at tick time
	Lookback time.Duration
	// Platform selects which installations are polled
	Platform integration.PlatformSlug
	// Commands are submitted in order for each installation
	Commands []string
}

// TenantTriggerConfigFrom maps application configuration onto the trigger settings
func TenantTriggerConfigFrom(cfg config.SchedulerConfig, commands ...string) TenantTriggerConfig {
	return TenantTriggerConfig{
		Interval:    cfg.Interval,
		TenantDelay: cfg.TenantDelay,
		Lookback:    time.Duration(cfg.LookbackDays) * 24 * time.Hour,
		Platform:    integration.PlatformFreightHub,
		Commands:    commands,
	}
}

// Validate validates the configuration
func (c *TenantTriggerConfig) Validate() error {
	if c.Interval <= 0 || c.TenantDelay < 0 || c.Lookback <= 0 {
		return ErrInvalidConfig
	}
	if !c.Platform.IsValid() || len(c.Commands) == 0 {
		return ErrInvalidConfig
	}
	return nil
}

// ---------------------------------------------------------------------------
// TenantTrigger
// ---------------------------------------------------------------------------

// TenantTrigger submits one job per active installation on every tick
type TenantTrigger struct {
	config    TenantTriggerConfig
	submitter JobSubmitter
	provider  InstallationProvider
	logger    *zap.Logger
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTenantTrigger creates a new tenant trigger
func NewTenantTrigger(config TenantTriggerConfig, submitter JobSubmitter, provider InstallationProvider, logger *zap.Logger) (*TenantTrigger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TenantTrigger{
		config:    config,
		submitter: submitter,
		provider:  provider,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Start runs a first tick immediately and then one per interval
func (t *TenantTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Tenant trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Duration("tenant_delay", t.config.TenantDelay),
		zap.Duration("lookback", t.config.Lookback),
		zap.Strings("commands", t.config.Commands),
	)
	return nil
}

// Stop stops the trigger loop
func (t *TenantTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Tenant trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *TenantTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	t.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick schedules every active installation once and returns how many jobs were submitted
func (t *TenantTrigger) Tick(ctx context.Context) int {
	installs, err := t.provider.ListActive(ctx, t.config.Platform)
	if err != nil {
		t.logger.Error("Failed to list active installations", zap.Error(err))
		return 0
	}
	if len(installs) == 0 {
		t.logger.Debug("No active installations found", zap.String("platform", t.config.Platform.String()))
		return 0
	}

	end := t.now()
	start := end.Add(-t.config.Lookback)
	submitted := 0

	for i, inst := range installs {
		if i > 0 && t.config.TenantDelay > 0 {
			select {
			case <-ctx.Done():
				return submitted
			case <-time.After(t.config.TenantDelay):
			}
		}

		for _, command := range t.config.Commands {
			job := NewIngestionJob(command, inst.CompanyID, inst.Platform, start, end)
			if err := t.submitter.SubmitJob(job); err != nil {
				level := t.logger.Warn
				if errors.Is(err, ErrSchedulerNotRunning) {
					level = t.logger.Debug
				}
				level("Failed to submit ingestion job",
					zap.String("command", command),
					zap.Int64("company_id", inst.CompanyID),
					zap.Error(err),
				)
				continue
			}
			submitted++
		}
	}

	t.logger.Info("Tenant tick scheduled jobs",
		zap.Int("installations", len(installs)),
		zap.Int("submitted", submitted),
	)
	return submitted
}
