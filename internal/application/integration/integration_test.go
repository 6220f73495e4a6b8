package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/movmais/backend/internal/domain/integration"
)

// MockRunLogRepository is a mock implementation of RunLogRepository
type MockRunLogRepository struct {
	mock.Mock
}

func (m *MockRunLogRepository) Create(ctx context.Context, log *integration.RunLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockRunLogRepository) Update(ctx context.Context, log *integration.RunLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

// MockCompanyRepository is a mock implementation of CompanyRepository
type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Create(ctx context.Context, company *integration.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id int64) (*integration.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Company), args.Error(1)
}

// MockCompanyPlatformRepository is a mock implementation of CompanyPlatformRepository
type MockCompanyPlatformRepository struct {
	mock.Mock
}

func (m *MockCompanyPlatformRepository) Save(ctx context.Context, cp *integration.CompanyPlatform) error {
	args := m.Called(ctx, cp)
	return args.Error(0)
}

func (m *MockCompanyPlatformRepository) FindByCompanyAndPlatform(ctx context.Context, companyID int64, platform integration.PlatformSlug) (*integration.CompanyPlatform, error) {
	args := m.Called(ctx, companyID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.CompanyPlatform), args.Error(1)
}

func (m *MockCompanyPlatformRepository) ListByCompany(ctx context.Context, companyID int64) ([]integration.CompanyPlatform, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CompanyPlatform), args.Error(1)
}

func (m *MockCompanyPlatformRepository) ListActive(ctx context.Context, platform integration.PlatformSlug) ([]integration.CompanyPlatform, error) {
	args := m.Called(ctx, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.CompanyPlatform), args.Error(1)
}

func TestRunRecorder_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("records processing then finished", func(t *testing.T) {
		repo := new(MockRunLogRepository)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*integration.RunLog")).
			Run(func(args mock.Arguments) { args.Get(1).(*integration.RunLog).ID = 12 }).
			Return(nil).Once()
		repo.On("Update", mock.Anything, mock.MatchedBy(func(r *integration.RunLog) bool {
			return r.ID == 12 && r.Status == integration.RunStatusFinished && r.Counters["inserted"] == 4
		})).Return(nil).Once()

		run := NewRun(7, integration.PlatformFreightHub, "freight-orders")
		counters, err := NewRunRecorder(repo, nil).Record(ctx, run, func(context.Context) (map[string]any, error) {
			return map[string]any{"inserted": 4}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 4, counters["inserted"])
		assert.NotEmpty(t, run.RunID)
		assert.NotNil(t, run.FinishedAt)
		repo.AssertExpectations(t)
	})

	t.Run("log failures never replace the run error", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		repo := new(MockRunLogRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("run_logs is gone"))

		runErr := errors.New("vendor down")
		run := NewRun(7, integration.PlatformFreightHub, "freight-orders")
		_, err := NewRunRecorder(repo, zap.New(core)).Record(ctx, run, func(context.Context) (map[string]any, error) {
			return map[string]any{"pages_fetched": 1}, runErr
		})

		assert.Same(t, runErr, err)
		assert.Equal(t, integration.RunStatusError, run.Status)
		require.NotNil(t, run.Error)
		assert.Equal(t, "vendor down", run.Error.Message)
		// start failed, so the error row is inserted rather than updated
		repo.AssertNumberOfCalls(t, "Create", 2)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		assert.Equal(t, 2, logs.Len())
	})

	t.Run("nil repository records nothing", func(t *testing.T) {
		run := NewRun(7, integration.PlatformFreightHub, "freight-best-option")
		_, err := NewRunRecorder(nil, nil).Record(ctx, run, func(context.Context) (map[string]any, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, integration.RunStatusFinished, run.Status)
	})
}

func TestCompanyService(t *testing.T) {
	ctx := context.Background()

	t.Run("creates company", func(t *testing.T) {
		companies := new(MockCompanyRepository)
		companies.On("Create", ctx, mock.AnythingOfType("*integration.Company")).
			Run(func(args mock.Arguments) { args.Get(1).(*integration.Company).ID = 7 }).
			Return(nil)

		resp, err := NewCompanyService(companies, nil).CreateCompany(ctx, CreateCompanyRequest{Name: " Loja "})
		require.NoError(t, err)
		assert.Equal(t, int64(7), resp.ID)
		assert.Equal(t, "Loja", resp.Name)
		assert.True(t, resp.Active)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := NewCompanyService(new(MockCompanyRepository), nil).CreateCompany(ctx, CreateCompanyRequest{Name: " "})
		assert.ErrorIs(t, err, integration.ErrInvalidCompany)
	})

	t.Run("installs platform without echoing credentials", func(t *testing.T) {
		companies := new(MockCompanyRepository)
		platforms := new(MockCompanyPlatformRepository)
		companies.On("FindByID", ctx, int64(7)).Return(&integration.Company{ID: 7}, nil)
		platforms.On("Save", ctx, mock.MatchedBy(func(cp *integration.CompanyPlatform) bool {
			return cp.CompanyID == 7 && cp.Config.Token == "secret" && !cp.Active
		})).Return(nil)

		inactive := false
		resp, err := NewCompanyService(companies, platforms).InstallPlatform(ctx, 7, "freighthub", InstallPlatformRequest{
			Token:  "secret",
			Active: &inactive,
		})
		require.NoError(t, err)
		assert.True(t, resp.HasToken)
		assert.False(t, resp.HasQuoteToken)
		assert.False(t, resp.Active)
		platforms.AssertExpectations(t)
	})

	t.Run("unknown platform is rejected before any lookup", func(t *testing.T) {
		companies := new(MockCompanyRepository)
		_, err := NewCompanyService(companies, nil).InstallPlatform(ctx, 7, "shopify", InstallPlatformRequest{})
		assert.ErrorIs(t, err, integration.ErrInvalidPlatform)
		companies.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("missing company", func(t *testing.T) {
		companies := new(MockCompanyRepository)
		companies.On("FindByID", ctx, int64(9)).Return(nil, integration.ErrCompanyNotFound)
		_, err := NewCompanyService(companies, nil).ListPlatforms(ctx, 9)
		assert.ErrorIs(t, err, integration.ErrCompanyNotFound)
	})

	t.Run("lists platforms", func(t *testing.T) {
		companies := new(MockCompanyRepository)
		platforms := new(MockCompanyPlatformRepository)
		companies.On("FindByID", ctx, int64(7)).Return(&integration.Company{ID: 7}, nil)
		platforms.On("ListByCompany", ctx, int64(7)).Return([]integration.CompanyPlatform{
			{ID: 1, CompanyID: 7, Platform: integration.PlatformFreightHub, Active: true,
				Config: integration.PlatformConfig{QuoteToken: "q"}},
		}, nil)

		list, err := NewCompanyService(companies, platforms).ListPlatforms(ctx, 7)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.True(t, list[0].HasQuoteToken)
	})
}
