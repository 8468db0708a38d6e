package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lms-grading-api/internal/models"
)

const metricsNamespace = "lms_grading"

// MetricsService owns a private Prometheus registry. Alongside the collectors
// it keeps plain counters so /metrics/summary can answer without scraping.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	cacheRatio   prometheus.Gauge
	dbDuration   *prometheus.HistogramVec
	calcTotal    *prometheus.CounterVec
	calcDuration prometheus.Histogram
	pending      prometheus.Gauge

	requests     atomic.Uint64
	requestNanos atomic.Uint64
	cacheHits    atomic.Uint64
	cacheMisses  atomic.Uint64
	dbQueries    atomic.Uint64
	dbNanos      atomic.Uint64
	calculations atomic.Uint64
	pendingJobs  atomic.Int64
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &MetricsService{
		handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		httpTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template.",
		}, []string{"method", "route", "status"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome.",
		}, []string{"result"}),
		cacheLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "operation_duration_seconds",
			Help:      "Result cache latency by operation.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"op"}),
		cacheRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Hits over lookups since start.",
		}),
		dbDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Latency of instrumented queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		calcTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "calculations_total",
			Help:      "Student grade calculations by outcome.",
		}, []string{"outcome"}),
		calcDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "calculation_duration_seconds",
			Help:      "Latency of one student grade calculation.",
			Buckets:   prometheus.DefBuckets,
		}),
		pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "recompute",
			Name:      "pending_jobs",
			Help:      "Recompute jobs waiting in the background queue.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.httpTotal.WithLabelValues(method, route, code).Inc()
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts one lookup. Backend errors count as misses.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.cacheHits.Add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.cacheMisses.Add(1)
	}
	m.cacheRatio.Set(ratio(m.cacheHits.Load(), m.cacheMisses.Load()))
}

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.Add(1)
	m.dbNanos.Add(uint64(duration.Nanoseconds()))
}

// ObserveGradeCalculation records one calculation attempt for a student.
func (m *MetricsService) ObserveGradeCalculation(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.calcTotal.WithLabelValues(outcome).Inc()
	m.calcDuration.Observe(duration.Seconds())
	m.calculations.Add(1)
}

// SetRecomputePending publishes the background queue depth.
func (m *MetricsService) SetRecomputePending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
	m.pendingJobs.Store(int64(n))
}

// Snapshot returns the counters served by /metrics/summary.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()
	requests, dbQueries := m.requests.Load(), m.dbQueries.Load()
	return models.SystemMetrics{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMs(m.requestNanos.Load(), requests),
		DBQueryCount:             dbQueries,
		AverageDBQueryDurationMs: averageMs(m.dbNanos.Load(), dbQueries),
		GradeCalculations:        m.calculations.Load(),
		RecomputePending:         m.pendingJobs.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func ratio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

func averageMs(totalNanos, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalNanos) / float64(n) / float64(time.Millisecond)
}
