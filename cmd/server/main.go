// Command server runs the tenant and platform registration API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/movmais/backend/docs"
	appintegration "github.com/movmais/backend/internal/application/integration"
	"github.com/movmais/backend/internal/infrastructure/auth"
	"github.com/movmais/backend/internal/infrastructure/config"
	"github.com/movmais/backend/internal/infrastructure/logger"
	"github.com/movmais/backend/internal/infrastructure/persistence"
	"github.com/movmais/backend/internal/infrastructure/telemetry"
	"github.com/movmais/backend/internal/interfaces/http/handler"
	"github.com/movmais/backend/internal/interfaces/http/middleware"
	"github.com/movmais/backend/internal/interfaces/http/router"
)

//	@title			MovMais Registration API
//	@version		1.0
//	@description	Tenant and freight platform installation registration.
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token minted by cmd/issue-token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting registration API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		log.Fatal("Registration API requires jwt.secret", zap.Error(err))
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

	service := appintegration.NewCompanyService(
		persistence.NewGormCompanyRepository(db.DB),
		persistence.NewGormCompanyPlatformRepository(db.DB),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics := telemetry.NewMetrics()
	engine := newEngine(cfg, log, service, db, metrics, tokens)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// newEngine assembles the middleware stack and routes: request id, tracing,
// recovery, request log, security headers, body limit and metrics on every
// route, bearer authentication on /api/v1.
func newEngine(cfg *config.Config, log *zap.Logger, service *appintegration.CompanyService, db handler.Pinger, metrics *telemetry.Metrics, tokens middleware.TokenValidator) *gin.Engine {
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health", cfg.Metrics.Path},
	}))
	engine.Use(middleware.SpanAttributes())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.Metrics.Enabled {
		engine.Use(middleware.HTTPMetrics(metrics))
		engine.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	system := handler.NewSystemHandler(cfg.App.Name, db)
	engine.GET("/health", system.Health)

	jwtAuth := middleware.JWTAuth(tokens, log)
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtAuth),
		ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NewRouter(engine, router.WithMiddleware(jwtAuth)).
		Register(handler.NewCompanyHandler(service).Routes()).
		Register(router.NewDomainGroup("system", "/system").GET("/info", system.GetSystemInfo)).
		Setup()

	return engine
}
