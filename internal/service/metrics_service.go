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

	"github.com/noah-isme/sma-timetable/internal/models"
)

const metricsNamespace = "sma"

// counter pairs a Prometheus counter with a plain total for the JSON summary.
type counter struct {
	total uint64
}

func (c *counter) add(n uint64) { atomic.AddUint64(&c.total, n) }
func (c *counter) load() uint64 { return atomic.LoadUint64(&c.total) }

// MetricsService owns a private registry with HTTP, cache, database,
// scheduling and archive collectors. A nil *MetricsService records nothing.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	httpDuration *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency prometheus.Histogram
	cacheWrites  prometheus.Histogram
	cacheRatio   prometheus.Gauge
	dbDuration   *prometheus.HistogramVec
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	placed       prometheus.Counter
	short        *prometheus.CounterVec
	rebalances   *prometheus.CounterVec
	archiveJobs  *prometheus.CounterVec
	archiveFiles prometheus.Counter

	requests, requestNanos counter
	hits, misses           counter
	dbQueries, dbNanos     counter
	runCount, placedCount  counter
	shortCount, rebalanced counter
	archived               counter
}

// NewMetricsService registers every collector on a fresh registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	f := promauto.With(registry)

	m := &MetricsService{registry: registry}
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	m.httpDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency by route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.httpRequests = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route template and status",
	}, []string{"method", "path", "status"})

	m.cacheLookups = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "lookups_total",
		Help: "Run cache lookups by result",
	}, []string{"result"})
	m.cacheLatency = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "lookup_seconds",
		Help:    "Run cache lookup latency",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
	m.cacheWrites = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "write_seconds",
		Help:    "Run cache write latency",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})
	m.cacheRatio = f.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "hit_ratio",
		Help: "Share of run cache lookups that hit",
	})

	m.dbDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "db", Name: "query_duration_seconds",
		Help:    "Timetable persistence latency by operation",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	m.runs = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "runs_total",
		Help: "Scheduling runs by outcome",
	}, []string{"outcome"})
	m.runDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "run_duration_seconds",
		Help:    "Duration of scheduling runs",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})
	m.placed = f.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "periods_placed_total",
		Help: "Subject periods placed by scheduling runs",
	})
	m.short = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "periods_short_total",
		Help: "Subject periods that could not be placed",
	}, []string{"reason"})
	m.rebalances = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "rebalances_total",
		Help: "Single-day rebalances by outcome",
	}, []string{"outcome"})
	m.archiveJobs = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "archive_jobs_total",
		Help: "Archive render jobs by outcome",
	}, []string{"outcome"})
	m.archiveFiles = f.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace, Subsystem: "timetable", Name: "archive_files_total",
		Help: "Class timetables written to the archive",
	})
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

// ObserveHTTPRequest records one served request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.requests.add(1)
	m.requestNanos.add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a run cache lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.hits.add(1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		m.misses.add(1)
	}
	m.cacheRatio.Set(ratio(m.hits.load(), m.misses.load()))
}

// ObserveCacheWrite records a run cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrites.Observe(duration.Seconds())
}

// ObserveDBQuery records a persistence operation such as "timetable_save".
func (m *MetricsService) ObserveDBQuery(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.dbQueries.add(1)
	m.dbNanos.add(uint64(duration.Nanoseconds()))
}

// ObserveTimetableRun records the outcome of one scheduling run. Outcome is
// "complete", "short" or "invalid".
func (m *MetricsService) ObserveTimetableRun(outcome string, placed int, short map[string]int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.placed.Add(float64(placed))
	m.runCount.add(1)
	m.placedCount.add(uint64(placed))
	for reason, periods := range short {
		m.short.WithLabelValues(reason).Add(float64(periods))
		m.shortCount.add(uint64(periods))
	}
}

// ObserveRebalance counts a rebalance by outcome.
func (m *MetricsService) ObserveRebalance(outcome string) {
	if m == nil {
		return
	}
	m.rebalances.WithLabelValues(outcome).Inc()
	m.rebalanced.add(1)
}

// ObserveArchive counts an archive job and the files it wrote.
func (m *MetricsService) ObserveArchive(outcome string, files int) {
	if m == nil {
		return
	}
	m.archiveJobs.WithLabelValues(outcome).Inc()
	m.archiveFiles.Add(float64(files))
	m.archived.add(uint64(files))
}

// Snapshot returns aggregated metrics for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits, misses := m.hits.load(), m.misses.load()
	requests, dbQueries := m.requests.load(), m.dbQueries.load()
	return models.SystemMetrics{
		CacheHitRatio:            ratio(hits, misses),
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMillis(m.requestNanos.load(), requests),
		DBQueryCount:             dbQueries,
		AverageDBQueryDurationMs: averageMillis(m.dbNanos.load(), dbQueries),
		TimetableRuns:            m.runCount.load(),
		PeriodsPlaced:            m.placedCount.load(),
		PeriodsShort:             m.shortCount.load(),
		Rebalances:               m.rebalanced.load(),
		ArchivedFiles:            m.archived.load(),
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

func averageMillis(nanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(nanos) / float64(count) / float64(time.Millisecond)
}
