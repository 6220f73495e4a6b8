package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/movmais/backend/internal/infrastructure/telemetry"
)

// maxResponseSize caps how much of a vendor response body is read (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Retry kinds reported to a RetryObserver
const (
	RetryKindTransient = "transient"
	RetryKindRateLimit = "rate_limit"
)

// FetchConfig configures the retry policy of the vendor HTTP client
type FetchConfig struct {
	Timeout time.Duration

	// TransientAttempts is the total attempt budget for network-level failures
	TransientAttempts  int
	TransientBaseDelay time.Duration
	TransientMaxDelay  time.Duration

	// RateLimitRetries is the separate budget for HTTP 429 responses
	RateLimitRetries     int
	RateLimitDefaultWait time.Duration
	// RateLimitMaxWait caps the wait a vendor can ask for in Retry-After
	RateLimitMaxWait time.Duration

	// RequestsPerSecond paces outgoing requests; 0 disables pacing
	RequestsPerSecond float64
}

// DefaultFetchConfig returns the production retry policy
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		Timeout:              60 * time.Second,
		TransientAttempts:    5,
		TransientBaseDelay:   2 * time.Second,
		TransientMaxDelay:    60 * time.Second,
		RateLimitRetries:     10,
		RateLimitDefaultWait: 60 * time.Second,
		RateLimitMaxWait:     15 * time.Minute,
	}
}

// JSONResponse is a vendor response. JSON is nil when the body is empty or not valid JSON.
type JSONResponse struct {
	Status int
	JSON   any
	Raw    string
	Header http.Header
}

// OK reports a 2xx status
func (r *JSONResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// RetryObserver is notified before every retry wait
type RetryObserver interface {
	ObserveRetry(kind string, wait time.Duration)
}

// JSONFetcher issues authenticated GET requests returning JSON
type JSONFetcher interface {
	FetchJSON(ctx context.Context, rawURL, token string) (*JSONResponse, error)
}

// Fetcher is the vendor HTTP client with transient and rate-limit retry budgets
type Fetcher struct {
	cfg        FetchConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	observer   RetryObserver
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithRetryObserver registers a retry observer
func WithRetryObserver(o RetryObserver) FetcherOption {
	return func(f *Fetcher) { f.observer = o }
}

// WithFetchLogger sets the logger used for retry warnings
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithSleep replaces the wait between retries
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

// NewFetcher creates a Fetcher, filling unset budgets from DefaultFetchConfig
func NewFetcher(cfg FetchConfig, opts ...FetcherOption) *Fetcher {
	def := DefaultFetchConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.TransientAttempts <= 0 {
		cfg.TransientAttempts = def.TransientAttempts
	}
	if cfg.TransientBaseDelay <= 0 {
		cfg.TransientBaseDelay = def.TransientBaseDelay
	}
	if cfg.TransientMaxDelay <= 0 {
		cfg.TransientMaxDelay = def.TransientMaxDelay
	}
	if cfg.RateLimitRetries < 0 {
		cfg.RateLimitRetries = 0
	}
	if cfg.RateLimitDefaultWait <= 0 {
		cfg.RateLimitDefaultWait = def.RateLimitDefaultWait
	}
	if cfg.RateLimitMaxWait <= 0 {
		cfg.RateLimitMaxWait = def.RateLimitMaxWait
	}
	if cfg.RateLimitDefaultWait > cfg.RateLimitMaxWait {
		cfg.RateLimitDefaultWait = cfg.RateLimitMaxWait
	}

	f := &Fetcher{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
		sleep:      sleepContext,
		now:        time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ JSONFetcher = (*Fetcher)(nil)

// FetchJSON performs a GET with a bearer token.
// Transient network errors are retried with exponential backoff until the attempt
// budget is spent, then returned. 429 responses are retried on their own budget
// and the last 429 is returned, not raised. Any other status is returned as-is.
// The whole exchange, retries included, is one client span.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL, token string) (*JSONResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "vendor.fetch",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrURL, redactURL(rawURL)),
	)
	defer span.End()

	resp, err := f.fetch(ctx, rawURL, token)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrStatus, resp.Status)
	return resp, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, token string) (*JSONResponse, error) {
	transientAttempt := 0
	rateLimited := 0

	for {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := f.do(ctx, rawURL, token)
		if err != nil {
			transientAttempt++
			if ctx.Err() != nil || !IsTransientError(err) || transientAttempt >= f.cfg.TransientAttempts {
				return nil, err
			}
			delay := f.backoff(transientAttempt)
			f.logger.Warn("Transient vendor error, retrying",
				zap.String("url", redactURL(rawURL)),
				zap.Int("attempt", transientAttempt),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			if err := f.wait(ctx, RetryKindTransient, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.Status == http.StatusTooManyRequests {
			if rateLimited >= f.cfg.RateLimitRetries {
				return resp, nil
			}
			rateLimited++
			delay := retryAfter(resp.Header.Get("Retry-After"), f.now(), f.cfg.RateLimitDefaultWait, f.cfg.RateLimitMaxWait)
			f.logger.Warn("Vendor rate limit hit, waiting",
				zap.String("url", redactURL(rawURL)),
				zap.Int("attempt", rateLimited),
				zap.Duration("delay", delay),
			)
			if err := f.wait(ctx, RetryKindRateLimit, delay); err != nil {
				return nil, err
			}
			continue
		}

		return resp, nil
	}
}

func (f *Fetcher) wait(ctx context.Context, kind string, d time.Duration) error {
	if f.observer != nil {
		f.observer.ObserveRetry(kind, d)
	}
	telemetry.AddEvent(trace.SpanFromContext(ctx), "retry",
		telemetry.SpanAttrRetryKind, kind,
		telemetry.SpanAttrRetryWait, d.Milliseconds(),
	)
	return f.sleep(ctx, d)
}

// backoff returns min(max, base * 2^(attempt-1))
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := f.cfg.TransientBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= f.cfg.TransientMaxDelay {
			return f.cfg.TransientMaxDelay
		}
	}
	if delay > f.cfg.TransientMaxDelay {
		return f.cfg.TransientMaxDelay
	}
	return delay
}

func (f *Fetcher) do(ctx context.Context, rawURL, token string) (*JSONResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ecommerce: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	out := &JSONResponse{
		Status: resp.StatusCode,
		Raw:    string(body),
		Header: resp.Header,
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var v any
		if dec.Decode(&v) == nil {
			out.JSON = v
		}
	}
	return out, nil
}

// IsTransientError reports network-level failures worth retrying
func IsTransientError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"fetch failed", "timeout", "connection reset", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
// Unusable values fall back to def and every result is capped at ceiling.
func retryAfter(header string, now time.Time, def, ceiling time.Duration) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return def
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
			return def
		}
		if secs >= ceiling.Seconds() {
			return ceiling
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(header); err == nil {
		d := at.Sub(now)
		switch {
		case d <= 0:
			return 0
		case d > ceiling:
			return ceiling
		}
		return d
	}
	return def
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// redactURL drops the query string so tokens passed as parameters never reach the logs
func redactURL(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
