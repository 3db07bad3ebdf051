package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "wfh_gateway"

// MetricsSnapshot is a JSON-friendly summary of the gateway counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	ChunkFetches             uint64    `json:"chunk_fetches"`
	ChunkFailures            uint64    `json:"chunk_failures"`
	Submissions              uint64    `json:"submissions"`
	Decisions                uint64    `json:"decisions"`
	Withdrawals              uint64    `json:"withdrawals"`
	ActiveWorkspaces         int64     `json:"active_workspaces"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService owns the gateway's Prometheus collectors. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpLatency  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	cacheLookups *prometheus.HistogramVec
	cacheWrites  prometheus.Histogram
	cacheRatio   prometheus.Gauge
	chunkLatency *prometheus.HistogramVec
	submissions  *prometheus.CounterVec
	decisions    *prometheus.CounterVec
	withdrawals  *prometheus.CounterVec
	workspaces   prometheus.Gauge

	totals struct {
		requests      atomic.Uint64
		requestNanos  atomic.Uint64
		cacheHits     atomic.Uint64
		cacheMisses   atomic.Uint64
		chunks        atomic.Uint64
		chunkFailures atomic.Uint64
		submissions   atomic.Uint64
		decisions     atomic.Uint64
		withdrawals   atomic.Uint64
		workspaces    atomic.Int64
	}
}

// NewMetricsService registers the gateway collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http",
		Name:    "request_duration_seconds",
		Help:    "Duration of HTTP requests served by the gateway, including calls made to the backend.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by route template and status.",
	}, []string{"method", "path", "status"})

	m.cacheLookups = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "profile_cache",
		Name:    "lookup_duration_seconds",
		Help:    "Staff profile cache lookups by result.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
	}, []string{"result"})
	m.cacheWrites = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "profile_cache",
		Name:    "write_duration_seconds",
		Help:    "Staff profile cache writes.",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
	})
	m.cacheRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "profile_cache",
		Name: "hit_ratio",
		Help: "Share of profile lookups answered by the cache since start.",
	})

	m.chunkLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "calendar",
		Name:    "chunk_fetch_duration_seconds",
		Help:    "Schedule summary chunk fetches by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	m.submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "request_submissions_total",
		Help:      "WFH request submissions by outcome.",
	}, []string{"outcome"})
	m.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "request_decisions_total",
		Help:      "Manager decisions by status and outcome.",
	}, []string{"status", "outcome"})
	m.withdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "withdrawals_total",
		Help:      "Withdrawal requests by outcome.",
	}, []string{"outcome"})
	m.workspaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "active_workspaces",
		Help:      "Per-user workspaces held in memory.",
	})

	m.registry.MustRegister(
		m.httpLatency, m.httpRequests,
		m.cacheLookups, m.cacheWrites, m.cacheRatio,
		m.chunkLatency, m.submissions, m.decisions, m.withdrawals, m.workspaces,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one request against its route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpLatency.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.totals.requests.Add(1)
	m.totals.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a profile cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.totals.cacheHits.Add(1)
	} else {
		m.totals.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
	m.cacheRatio.Set(m.hitRatio())
}

// ObserveCacheWrite records a profile cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveChunkFetch records one schedule chunk fetch.
func (m *MetricsService) ObserveChunkFetch(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.chunkLatency.WithLabelValues(outcomeLabel(ok)).Observe(duration.Seconds())
	m.totals.chunks.Add(1)
	if !ok {
		m.totals.chunkFailures.Add(1)
	}
}

// RecordSubmission counts a WFH request submission.
func (m *MetricsService) RecordSubmission(ok bool) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcomeLabel(ok)).Inc()
	m.totals.submissions.Add(1)
}

// RecordDecision counts an approve or reject call.
func (m *MetricsService) RecordDecision(status string, ok bool) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(status, outcomeLabel(ok)).Inc()
	m.totals.decisions.Add(1)
}

// RecordWithdrawal counts a withdrawal request.
func (m *MetricsService) RecordWithdrawal(ok bool) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(outcomeLabel(ok)).Inc()
	m.totals.withdrawals.Add(1)
}

// SetActiveWorkspaces publishes the registry size.
func (m *MetricsService) SetActiveWorkspaces(n int) {
	if m == nil {
		return
	}
	m.workspaces.Set(float64(n))
	m.totals.workspaces.Store(int64(n))
}

// Snapshot returns the counters served by the metrics summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}

	requests := m.totals.requests.Load()
	var avgMs float64
	if requests > 0 {
		avgMs = float64(m.totals.requestNanos.Load()) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgMs,
		CacheHits:                m.totals.cacheHits.Load(),
		CacheMisses:              m.totals.cacheMisses.Load(),
		CacheHitRatio:            m.hitRatio(),
		ChunkFetches:             m.totals.chunks.Load(),
		ChunkFailures:            m.totals.chunkFailures.Load(),
		Submissions:              m.totals.submissions.Load(),
		Decisions:                m.totals.decisions.Load(),
		Withdrawals:              m.totals.withdrawals.Load(),
		ActiveWorkspaces:         m.totals.workspaces.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() float64 {
	hits := m.totals.cacheHits.Load()
	total := hits + m.totals.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
