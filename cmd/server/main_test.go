package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/movmais/backend/internal/application/integration"
	"github.com/movmais/backend/internal/domain/integration"
	"github.com/movmais/backend/internal/infrastructure/auth"
	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/telemetry"
)

type noCompanies struct{}

func (noCompanies) Create(context.Context, *integration.Company) error { return nil }
func (noCompanies) FindByID(context.Context, int64) (*integration.Company, error) {
	return nil, integration.ErrCompanyNotFound
}

type noPlatforms struct{}

func (noPlatforms) Save(context.Context, *integration.CompanyPlatform) error { return nil }
func (noPlatforms) FindByCompanyAndPlatform(context.Context, int64, integration.PlatformSlug) (*integration.CompanyPlatform, error) {
	return nil, integration.ErrPlatformNotInstalled
}
func (noPlatforms) ListByCompany(context.Context, int64) ([]integration.CompanyPlatform, error) {
	return nil, nil
}
func (noPlatforms) ListActive(context.Context, integration.PlatformSlug) ([]integration.CompanyPlatform, error) {
	return nil, nil
}

type okPinger struct{}

func (okPinger) Ping() error { return nil }

type testServer struct {
	engine  *gin.Engine
	metrics *telemetry.Metrics
	token   string
}

func newTestServer(t *testing.T, metricsEnabled bool, swagger config.SwaggerConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		App:     config.AppConfig{Name: "movmais-backend"},
		HTTP:    config.HTTPConfig{MaxBodySize: 1 << 10},
		Metrics: config.MetricsConfig{Enabled: metricsEnabled, Path: "/metrics"},
		JWT: config.JWTConfig{
			Secret:   "test-secret-key-at-least-32-chars",
			Issuer:   "movmais-backend",
			TokenTTL: time.Hour,
		},
		Swagger: swagger,
	}
	tokens, err := auth.NewTokenService(cfg.JWT)
	require.NoError(t, err)
	token, _, err := tokens.Issue("ops")
	require.NoError(t, err)

	metrics := telemetry.NewMetrics()
	service := appintegration.NewCompanyService(noCompanies{}, noPlatforms{})
	return &testServer{
		engine:  newEngine(cfg, zap.NewNop(), service, okPinger{}, metrics, tokens),
		metrics: metrics,
		token:   token,
	}
}

func (s *testServer) serve(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestNewEngine_Routes(t *testing.T) {
	s := newTestServer(t, false, config.SwaggerConfig{})

	w := s.serve(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusNotFound, s.serve(http.MethodGet, "/api/v1/companies/3", s.token).Code)
	assert.Equal(t, http.StatusOK, s.serve(http.MethodGet, "/api/v1/system/info", s.token).Code)
	assert.Equal(t, http.StatusNotFound, s.serve(http.MethodGet, "/metrics", "").Code)
}

func TestNewEngine_RequiresBearerToken(t *testing.T) {
	s := newTestServer(t, false, config.SwaggerConfig{})

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/companies"},
		{http.MethodGet, "/api/v1/companies/3"},
		{http.MethodGet, "/api/v1/companies/3/platforms"},
		{http.MethodPut, "/api/v1/companies/3/platforms/freighthub"},
		{http.MethodGet, "/api/v1/system/info"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, s.serve(tt.method, tt.path, "").Code)
			assert.Equal(t, http.StatusUnauthorized, s.serve(tt.method, tt.path, "forged").Code)
		})
	}

	assert.Equal(t, http.StatusOK, s.serve(http.MethodGet, "/health", "").Code)
}

func TestNewEngine_Metrics(t *testing.T) {
	s := newTestServer(t, true, config.SwaggerConfig{})

	s.serve(http.MethodGet, "/api/v1/companies/3", s.token)

	w := s.serve(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(),
		telemetry.MetricHTTPRequestsTotal+`{method="GET",route="/api/v1/companies/:id",status="404"} 1`)
}

func TestNewEngine_Swagger(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, false, config.SwaggerConfig{})
		assert.Equal(t, http.StatusNotFound, s.serve(http.MethodGet, "/swagger/doc.json", "").Code)
	})

	t.Run("enabled behind auth", func(t *testing.T) {
		s := newTestServer(t, false, config.SwaggerConfig{Enabled: true, RequireAuth: true})
		assert.Equal(t, http.StatusUnauthorized, s.serve(http.MethodGet, "/swagger/doc.json", "").Code)

		w := s.serve(http.MethodGet, "/swagger/doc.json", s.token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/companies/{id}/platforms/{platform}")
	})
}
