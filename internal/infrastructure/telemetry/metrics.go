// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing for
// ingestion runs, the vendor client and the registration API.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metric names
const (
	MetricRunsTotal          = "movmais_ingestion_runs_total"
	MetricRunDurationSeconds = "movmais_ingestion_run_duration_seconds"
	MetricRunCountersTotal   = "movmais_ingestion_rows_total"
	MetricRetriesTotal       = "movmais_vendor_retries_total"
	MetricRetryWaitSeconds   = "movmais_vendor_retry_wait_seconds"
	MetricLockSkipsTotal     = "movmais_ingestion_lock_skips_total"
	MetricHTTPRequestsTotal  = "movmais_http_requests_total"
	MetricHTTPDuration       = "movmais_http_request_duration_seconds"
)

// Metrics holds the collectors of one process. It satisfies the vendor
// client's retry observer.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	countersTotal *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	retryWait     *prometheus.HistogramVec
	lockSkips     *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a private registry, with Go and process collectors
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRunsTotal,
			Help: "Ingestion runs by command and final status.",
		}, []string{"command", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRunDurationSeconds,
			Help:    "Wall time of ingestion runs.",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}, []string{"command"}),
		countersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRunCountersTotal,
			Help: "Run counters (inserted, skipped_existing, ...) summed over runs.",
		}, []string{"command", "counter"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRetriesTotal,
			Help: "Vendor HTTP retries by kind (transient, rate_limit).",
		}, []string{"kind"}),
		retryWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricRetryWaitSeconds,
			Help:    "Wait before each vendor HTTP retry.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 60, 120},
		}, []string{"kind"}),
		lockSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricLockSkipsTotal,
			Help: "Runs skipped because the same job already held the run lock.",
		}, []string{"command"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "Registration API requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPDuration,
			Help:    "Registration API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsTotal, m.runDuration, m.countersTotal, m.retriesTotal, m.retryWait, m.lockSkips,
		m.httpRequests, m.httpDuration,
	)
	return m
}

// ObserveRetry records one vendor retry and its wait
func (m *Metrics) ObserveRetry(kind string, wait time.Duration) {
	m.retriesTotal.WithLabelValues(kind).Inc()
	m.retryWait.WithLabelValues(kind).Observe(wait.Seconds())
}

// ObserveRun records a finished run. Numeric counters are added to the row totals.
func (m *Metrics) ObserveRun(command, status string, elapsed time.Duration, counters map[string]any) {
	m.runsTotal.WithLabelValues(command, status).Inc()
	m.runDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	for name, v := range counters {
		if f, ok := asFloat(v); ok && f > 0 {
			m.countersTotal.WithLabelValues(command, name).Add(f)
		}
	}
}

// ObserveLockSkip records a run that did not start because the lock was held
func (m *Metrics) ObserveLockSkip(command string) {
	m.lockSkips.WithLabelValues(command).Inc()
}

// ObserveHTTP records one served request. route is the matched route pattern.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to a Pushgateway under the given job name
func (m *Metrics) Push(gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.registry).Push()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
