package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Ingestion IngestionConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
	Telemetry TelemetryConfig
	JWT       JWTConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowQueryThresh time.Duration
}

// RedisConfig holds Redis connection settings.
// An empty Host disables Redis and run locks fall back to in-process locking.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds registration API server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// IngestionConfig holds vendor polling settings shared by all ingestion jobs
type IngestionConfig struct {
	BaseURL              string
	RequestTimeout       time.Duration
	TransientRetries     int
	TransientBaseDelay   time.Duration
	TransientMaxDelay    time.Duration
	RateLimitRetries     int
	RateLimitDefaultWait time.Duration
	RateLimitMaxWait     time.Duration
	RequestsPerSecond    float64 // 0 = unlimited
	Timezone             string
	LockTTL              time.Duration
	DefaultPageSize      int
}

// SchedulerConfig holds the periodic ingestion scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	Interval          time.Duration
	TenantDelay       time.Duration
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	LookbackDays      int
}

// MetricsConfig holds Prometheus exposition settings
type MetricsConfig struct {
	Enabled     bool
	Addr        string
	Path        string
	PushGateway string // receives the metrics of one-shot job runs; empty disables pushing
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold marked on spans
}

// JWTConfig holds the bearer token settings of the registration API
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration // lifetime of tokens minted by cmd/issue-token
}

// SwaggerConfig holds Swagger documentation endpoint configuration
type SwaggerConfig struct {
	Enabled     bool     // Whether to enable Swagger endpoint
	RequireAuth bool     // Require a bearer token to access Swagger
	AllowedIPs  []string // IP whitelist (empty = allow all)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MOVMAIS_ prefix (e.g., MOVMAIS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MOVMAIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowQueryThresh: v.GetDuration("database.slow_query_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Ingestion: IngestionConfig{
			BaseURL:              v.GetString("ingestion.base_url"),
			RequestTimeout:       v.GetDuration("ingestion.request_timeout"),
			TransientRetries:     v.GetInt("ingestion.transient_retries"),
			TransientBaseDelay:   v.GetDuration("ingestion.transient_base_delay"),
			TransientMaxDelay:    v.GetDuration("ingestion.transient_max_delay"),
			RateLimitRetries:     v.GetInt("ingestion.rate_limit_retries"),
			RateLimitDefaultWait: v.GetDuration("ingestion.rate_limit_default_wait"),
			RateLimitMaxWait:     v.GetDuration("ingestion.rate_limit_max_wait"),
			RequestsPerSecond:    v.GetFloat64("ingestion.requests_per_second"),
			Timezone:             v.GetString("ingestion.timezone"),
			LockTTL:              v.GetDuration("ingestion.lock_ttl"),
			DefaultPageSize:      v.GetInt("ingestion.default_page_size"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           v.GetBool("scheduler.enabled"),
			Interval:          v.GetDuration("scheduler.interval"),
			TenantDelay:       v.GetDuration("scheduler.tenant_delay"),
			MaxConcurrentJobs: v.GetInt("scheduler.max_concurrent_jobs"),
			JobTimeout:        v.GetDuration("scheduler.job_timeout"),
			LookbackDays:      v.GetInt("scheduler.lookback_days"),
		},
		Metrics: MetricsConfig{
			Enabled:     v.GetBool("metrics.enabled"),
			Addr:        v.GetString("metrics.addr"),
			Path:        v.GetString("metrics.path"),
			PushGateway: v.GetString("metrics.push_gateway"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			Issuer:   v.GetString("jwt.issuer"),
			TokenTTL: v.GetDuration("jwt.token_ttl"),
		},
		Swagger: SwaggerConfig{
			Enabled:     v.GetBool("swagger.enabled"),
			RequireAuth: v.GetBool("swagger.require_auth"),
			AllowedIPs:  v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "movmais-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "movmais"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowQueryThresh == 0 {
		cfg.Database.SlowQueryThresh = 500 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.Ingestion.BaseURL == "" {
		cfg.Ingestion.BaseURL = "https://api.freighthub.com.br/v1"
	}
	if cfg.Ingestion.RequestTimeout == 0 {
		cfg.Ingestion.RequestTimeout = 60 * time.Second
	}
	if cfg.Ingestion.TransientRetries == 0 {
		cfg.Ingestion.TransientRetries = 5
	}
	if cfg.Ingestion.TransientBaseDelay == 0 {
		cfg.Ingestion.TransientBaseDelay = 2 * time.Second
	}
	if cfg.Ingestion.TransientMaxDelay == 0 {
		cfg.Ingestion.TransientMaxDelay = 60 * time.Second
	}
	if cfg.Ingestion.RateLimitRetries == 0 {
		cfg.Ingestion.RateLimitRetries = 10
	}
	if cfg.Ingestion.RateLimitDefaultWait == 0 {
		cfg.Ingestion.RateLimitDefaultWait = 60 * time.Second
	}
	if cfg.Ingestion.RateLimitMaxWait == 0 {
		cfg.Ingestion.RateLimitMaxWait = 15 * time.Minute
	}
	if cfg.Ingestion.Timezone == "" {
		cfg.Ingestion.Timezone = "America/Sao_Paulo"
	}
	if cfg.Ingestion.LockTTL == 0 {
		cfg.Ingestion.LockTTL = 2 * time.Hour
	}
	if cfg.Ingestion.DefaultPageSize == 0 {
		cfg.Ingestion.DefaultPageSize = 100
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Hour
	}
	if cfg.Scheduler.TenantDelay == 0 {
		cfg.Scheduler.TenantDelay = 5 * time.Second
	}
	if cfg.Scheduler.MaxConcurrentJobs == 0 {
		cfg.Scheduler.MaxConcurrentJobs = 1
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = time.Hour
	}
	if cfg.Scheduler.LookbackDays == 0 {
		cfg.Scheduler.LookbackDays = 2
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9100"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = cfg.App.Name
	}
	if cfg.JWT.TokenTTL == 0 {
		cfg.JWT.TokenTTL = 24 * time.Hour
	}
}

// minJWTSecretLength is the shortest accepted HMAC secret
const minJWTSecretLength = 32

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if _, err := url.ParseRequestURI(c.Ingestion.BaseURL); err != nil {
		return fmt.Errorf("ingestion.base_url is not a valid URL: %w", err)
	}
	if c.Ingestion.TransientRetries < 1 {
		return fmt.Errorf("ingestion.transient_retries must be at least 1")
	}
	if c.Ingestion.RateLimitRetries < 0 {
		return fmt.Errorf("ingestion.rate_limit_retries cannot be negative")
	}
	if c.Ingestion.RateLimitMaxWait < c.Ingestion.RateLimitDefaultWait {
		return fmt.Errorf("ingestion.rate_limit_max_wait (%s) cannot be below ingestion.rate_limit_default_wait (%s)",
			c.Ingestion.RateLimitMaxWait, c.Ingestion.RateLimitDefaultWait)
	}
	if c.Ingestion.RequestsPerSecond < 0 {
		return fmt.Errorf("ingestion.requests_per_second cannot be negative")
	}
	if c.Ingestion.DefaultPageSize < 1 || c.Ingestion.DefaultPageSize > 500 {
		return fmt.Errorf("ingestion.default_page_size must be between 1 and 500, got %d", c.Ingestion.DefaultPageSize)
	}
	if _, err := time.LoadLocation(c.Ingestion.Timezone); err != nil {
		return fmt.Errorf("ingestion.timezone %q is not a valid IANA zone: %w", c.Ingestion.Timezone, err)
	}
	if c.Scheduler.MaxConcurrentJobs < 1 {
		return fmt.Errorf("scheduler.max_concurrent_jobs must be at least 1")
	}

	if c.JWT.Secret != "" && len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf("jwt.secret must be at least %d characters", minJWTSecretLength)
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Swagger.Enabled && !c.Swagger.RequireAuth && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger endpoint must be disabled, require authentication, or have IP restriction in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis server
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether a Redis server is configured
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}
