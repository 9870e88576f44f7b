package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is the aggregated view of process metrics shown to administrators.
type MetricsSnapshot struct {
	CacheHitRatio            float64           `json:"cache_hit_ratio"`
	CacheHits                uint64            `json:"cache_hits"`
	CacheMisses              uint64            `json:"cache_misses"`
	RequestsTotal            uint64            `json:"requests_total"`
	AverageRequestDurationMs float64           `json:"average_request_duration_ms"`
	DBQueryCount             uint64            `json:"db_query_count"`
	AverageDBQueryDurationMs float64           `json:"average_db_query_duration_ms"`
	FileViews                map[string]uint64 `json:"file_views"`
	Goroutines               int               `json:"goroutines"`
	GeneratedAt              time.Time         `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	fileViews       *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	bundleSize      prometheus.Observer

	fileViewMu     sync.Mutex
	fileViewCounts map[string]uint64

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
}

const metricsNamespace = "dmr"

// NewMetricsService registers the HTTP, cache, database and workflow collectors
// on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	seconds := func(name, help string) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: metricsNamespace, Name: name, Help: help, Buckets: prometheus.DefBuckets}
	}
	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{Namespace: metricsNamespace, Name: name, Help: help}
	}

	m := &MetricsService{
		registry:        registry,
		requestDuration: factory.NewHistogramVec(seconds("http_request_duration_seconds", "HTTP request latency"), []string{"method", "path", "status"}),
		requestTotal:    factory.NewCounterVec(counter("http_requests_total", "HTTP requests served"), []string{"method", "path", "status"}),
		cacheLatency:    factory.NewHistogram(seconds("cache_read_seconds", "Cache lookup latency")),
		cacheWrite:      factory.NewHistogram(seconds("cache_write_seconds", "Cache store latency")),
		cacheHitRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "cache_hit_ratio",
			Help:      "Share of cache lookups served from cache",
		}),
		cacheHits:       factory.NewCounter(counter("cache_hits_total", "Cache lookups served from cache")),
		cacheMisses:     factory.NewCounter(counter("cache_misses_total", "Cache lookups that fell through")),
		dbQueryDuration: factory.NewHistogramVec(seconds("db_query_duration_seconds", "Database round trip latency by query"), []string{"query"}),
		fileViews:       factory.NewCounterVec(counter("file_views_total", "File content requests by access outcome"), []string{"outcome"}),
		transitions:     factory.NewCounterVec(counter("request_transitions_total", "Diagnostic request status transitions"), []string{"kind", "from", "to"}),
		bundleSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "observation_bundle_size",
			Help:      "Observations persisted per bundle",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
		fileViewCounts: make(map[string]uint64),
	}
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "goroutines",
		Help:      "Live goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation counts a cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	m.cacheHitRatio.Set(ratio(atomic.LoadUint64(&m.cacheHitCount), atomic.LoadUint64(&m.cacheMissCount)))
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordFileView counts a file content request by outcome (served, denied, not_found, invalid).
func (m *MetricsService) RecordFileView(outcome string) {
	if m == nil {
		return
	}
	m.fileViews.WithLabelValues(outcome).Inc()
	m.fileViewMu.Lock()
	m.fileViewCounts[outcome]++
	m.fileViewMu.Unlock()
}

// RecordTransition counts an applied diagnostic request status change.
func (m *MetricsService) RecordTransition(kind, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, from, to).Inc()
}

// ObserveBundle records how many observations one bundle persisted.
func (m *MetricsService) ObserveBundle(size int) {
	if m == nil {
		return
	}
	m.bundleSize.Observe(float64(size))
}

// Snapshot returns aggregated metrics for the administrator dashboard.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)
	dbDuration := atomic.LoadUint64(&m.dbQueryDurationTotal)

	avgMs := func(total, count uint64) float64 {
		if count == 0 {
			return 0
		}
		return float64(total) / float64(count) / float64(time.Millisecond)
	}

	m.fileViewMu.Lock()
	views := make(map[string]uint64, len(m.fileViewCounts))
	for k, v := range m.fileViewCounts {
		views[k] = v
	}
	m.fileViewMu.Unlock()

	return MetricsSnapshot{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgMs(reqDuration, requests),
		DBQueryCount:             dbCount,
		AverageDBQueryDurationMs: avgMs(dbDuration, dbCount),
		FileViews:                views,
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
