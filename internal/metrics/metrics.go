package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/bistpro/internal/contracts"
)

const namespace = "bistpro"

// Registry holds all Prometheus metrics of the screener
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	registry *prometheus.Registry

	ScanDuration   *prometheus.HistogramVec
	Scans          *prometheus.CounterVec
	ScanQualified  prometheus.Gauge
	Outcomes       *prometheus.CounterVec
	CacheLookups   *prometheus.CounterVec
	PortfolioLock  prometheus.Gauge
	DaysRemaining  prometheus.Gauge
	JobRuns        *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDurationMs *prometheus.HistogramVec
}

// NewRegistry creates a registry with the Go and process collectors plus
// the screener metrics
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		ScanDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of market scans in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"status"},
		),

		Scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of market scans by status",
			},
			[]string{"status"},
		),

		ScanQualified: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "scan_qualified_candidates",
				Help:      "Qualifying candidates in the last completed scan",
			},
		),

		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instrument_outcomes_total",
				Help:      "Per-instrument scan outcomes",
			},
			[]string{"status"},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_cache_lookups_total",
				Help:      "Scan result cache lookups by result",
			},
			[]string{"result"},
		),

		PortfolioLock: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_locked",
				Help:      "1 while the committed selection is in its holding period",
			},
		),

		DaysRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "portfolio_days_remaining",
				Help:      "Days until the committed selection unlocks",
			},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_job_runs_total",
				Help:      "Scheduled job executions by job and result",
			},
			[]string{"job", "result"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),

		HTTPDurationMs: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_ms",
				Help:      "HTTP request latency in milliseconds",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000, 30000},
			},
			[]string{"route"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ScanDuration,
		r.Scans,
		r.ScanQualified,
		r.Outcomes,
		r.CacheLookups,
		r.PortfolioLock,
		r.DaysRemaining,
		r.JobRuns,
		r.HTTPRequests,
		r.HTTPDurationMs,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// ============================================================================
// selection.Recorder
// ============================================================================

// ObserveScan records one finished scan
func (r *Registry) ObserveScan(status contracts.ScanStatus, duration time.Duration, qualified int) {
	r.Scans.WithLabelValues(string(status)).Inc()
	r.ScanDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	if status == contracts.ScanStatusOK {
		r.ScanQualified.Set(float64(qualified))
	}
}

// ObserveOutcome records one instrument result
func (r *Registry) ObserveOutcome(status contracts.OutcomeStatus) {
	r.Outcomes.WithLabelValues(string(status)).Inc()
}

// ObserveCacheHit records a cache lookup
func (r *Registry) ObserveCacheHit(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

// ============================================================================
// Portfolio / scheduler / HTTP
// ============================================================================

// SetLockState publishes the current lock state
func (r *Registry) SetLockState(state contracts.LockState) {
	locked := 0.0
	if state.Locked {
		locked = 1
	}
	r.PortfolioLock.Set(locked)
	r.DaysRemaining.Set(float64(state.DaysRemaining))
}

// ObserveJob records a scheduled job run
func (r *Registry) ObserveJob(job string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.JobRuns.WithLabelValues(job, result).Inc()
}

// ObserveRequest records one HTTP request
func (r *Registry) ObserveRequest(route string, code int, duration time.Duration) {
	r.HTTPRequests.WithLabelValues(route, statusText(code)).Inc()
	r.HTTPDurationMs.WithLabelValues(route).Observe(float64(duration.Microseconds()) / 1000)
}

func statusText(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
