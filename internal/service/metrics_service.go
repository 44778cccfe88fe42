package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JuanCruzRobledo/correccion-automatica-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for the admin API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	cacheHitRatio   prometheus.Gauge
	submissions     prometheus.Counter
	corrections     prometheus.Counter
	batchJobs       *prometheus.CounterVec
	batchDuration   prometheus.Observer

	requestCount         uint64
	requestDurationTotal uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	submissionCount      uint64
	correctionCount      uint64
	batchCompletedCount  uint64
	batchFailedCount     uint64
}

// NewMetricsService registers the core Prometheus collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	submissions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "submissions_uploaded_total",
		Help: "Total submission archives uploaded",
	})

	corrections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "corrections_recorded_total",
		Help: "Total correction results recorded",
	})

	batchJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_consolidation_jobs_total",
		Help: "Total batch consolidation jobs by outcome",
	}, []string{"outcome"})

	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "batch_consolidation_duration_seconds",
		Help:    "Wall-clock duration of batch consolidation runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, cacheHitRatio, submissions, corrections, batchJobs, batchDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		cacheHitRatio:   cacheHitRatio,
		submissions:     submissions,
		corrections:     corrections,
		batchJobs:       batchJobs,
		batchDuration:   batchDuration,
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats
// for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records an option-cache hit or miss and updates the
// hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordSubmissionUploaded counts one stored submission archive.
func (m *MetricsService) RecordSubmissionUploaded() {
	if m == nil {
		return
	}
	m.submissions.Inc()
	atomic.AddUint64(&m.submissionCount, 1)
}

// RecordCorrection counts one recorded correction result.
func (m *MetricsService) RecordCorrection() {
	if m == nil {
		return
	}
	m.corrections.Inc()
	atomic.AddUint64(&m.correctionCount, 1)
}

// RecordBatchJob counts a finished batch consolidation run.
func (m *MetricsService) RecordBatchJob(succeeded bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "completed"
	if succeeded {
		atomic.AddUint64(&m.batchCompletedCount, 1)
	} else {
		outcome = "failed"
		atomic.AddUint64(&m.batchFailedCount, 1)
	}
	m.batchJobs.WithLabelValues(outcome).Inc()
	m.batchDuration.Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics for the admin endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		SubmissionsUploaded:      atomic.LoadUint64(&m.submissionCount),
		CorrectionsRecorded:      atomic.LoadUint64(&m.correctionCount),
		BatchJobsCompleted:       atomic.LoadUint64(&m.batchCompletedCount),
		BatchJobsFailed:          atomic.LoadUint64(&m.batchFailedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
