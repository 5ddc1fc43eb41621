package service

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the sweep
// agents and the operational HTTP surface.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	sweepDuration    *prometheus.HistogramVec
	sweepRuns        *prometheus.CounterVec
	sweepSkips       *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	sweepErrors      *prometheus.CounterVec
	purgedProjects   prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetricsService registers all collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Duration of sweep agent runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"agent"})

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Completed sweep runs by agent and outcome",
	}, []string{"agent", "outcome"})

	sweepSkips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_skips_total",
		Help: "Triggers skipped because a run was already in progress",
	}, []string{"agent"})

	stateTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "workflow_state_transitions_total",
		Help: "Workflow step transitions applied by sweeps",
	}, []string{"agent"})

	sweepErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_entity_errors_total",
		Help: "Per-entity failures isolated during sweeps",
	}, []string{"agent"})

	purgedProjects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "purged_projects_total",
		Help: "Projects removed by the retention sweep",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "step_cache_hits_total",
		Help: "Step catalog cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "step_cache_misses_total",
		Help: "Step catalog cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, sweepDuration, sweepRuns, sweepSkips, stateTransitions, sweepErrors, purgedProjects, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		sweepDuration:    sweepDuration,
		sweepRuns:        sweepRuns,
		sweepSkips:       sweepSkips,
		stateTransitions: stateTransitions,
		sweepErrors:      sweepErrors,
		purgedProjects:   purgedProjects,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveHTTPRequest records one handled HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"method": method, "path": path, "status": httpStatusLabel(status)}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

// ObserveSweep records one completed agent run.
func (m *MetricsService) ObserveSweep(agent string, duration time.Duration, transitions, errors int, failed bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	m.sweepDuration.WithLabelValues(agent).Observe(duration.Seconds())
	m.sweepRuns.WithLabelValues(agent, outcome).Inc()
	m.stateTransitions.WithLabelValues(agent).Add(float64(transitions))
	m.sweepErrors.WithLabelValues(agent).Add(float64(errors))
}

// ObserveSweepSkip records a trigger rejected by the single-flight guard.
func (m *MetricsService) ObserveSweepSkip(agent string) {
	if m == nil {
		return
	}
	m.sweepSkips.WithLabelValues(agent).Inc()
}

// ObservePurged records removed projects.
func (m *MetricsService) ObservePurged(count int) {
	if m == nil {
		return
	}
	m.purgedProjects.Add(float64(count))
}

// ObserveCacheHit records a step catalog cache hit.
func (m *MetricsService) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// ObserveCacheMiss records a step catalog cache miss.
func (m *MetricsService) ObserveCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func httpStatusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
