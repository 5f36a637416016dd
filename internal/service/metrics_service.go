package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/studyhub-api/internal/models"
)

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
	papersSubmitted prometheus.Counter
	moderations     *prometheus.CounterVec
	downloads       *prometheus.CounterVec
	quizzes         *prometheus.CounterVec
	focusSessions   *prometheus.CounterVec
	cleanupJobs     *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	paperCount           uint64
	downloadCount        uint64
	quizCount            uint64
	focusCount           uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	papersSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "papers_submitted_total",
		Help: "Papers submitted for moderation",
	})

	moderations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "papers_moderated_total",
		Help: "Moderation decisions by action",
	}, []string{"action"})

	downloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "downloads_total",
		Help: "Signed downloads issued by resource",
	}, []string{"resource"})

	quizzes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_generations_total",
		Help: "Quiz generation attempts by outcome",
	}, []string{"outcome"})

	focusSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pomodoro_sessions_total",
		Help: "Completed pomodoro phases by type",
	}, []string{"phase"})

	cleanupJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_cleanup_jobs_total",
		Help: "Storage cleanup job results",
	}, []string{"status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		papersSubmitted, moderations, downloads, quizzes, focusSessions, cleanupJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		papersSubmitted: papersSubmitted,
		moderations:     moderations,
		downloads:       downloads,
		quizzes:         quizzes,
		focusSessions:   focusSessions,
		cleanupJobs:     cleanupJobs,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
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
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordPaperSubmission counts a stored submission.
func (m *MetricsService) RecordPaperSubmission() {
	if m == nil {
		return
	}
	m.papersSubmitted.Inc()
	atomic.AddUint64(&m.paperCount, 1)
}

// RecordModeration counts approve/reject decisions.
func (m *MetricsService) RecordModeration(action string) {
	if m == nil {
		return
	}
	m.moderations.WithLabelValues(action).Inc()
}

// RecordDownload counts an issued download link.
func (m *MetricsService) RecordDownload(resource string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(resource).Inc()
	atomic.AddUint64(&m.downloadCount, 1)
}

// RecordQuizGeneration counts quiz generation outcomes.
func (m *MetricsService) RecordQuizGeneration(outcome string) {
	if m == nil {
		return
	}
	m.quizzes.WithLabelValues(outcome).Inc()
	if outcome == "success" {
		atomic.AddUint64(&m.quizCount, 1)
	}
}

// RecordFocusSession counts a completed pomodoro phase.
func (m *MetricsService) RecordFocusSession(phase string) {
	if m == nil {
		return
	}
	m.focusSessions.WithLabelValues(phase).Inc()
	atomic.AddUint64(&m.focusCount, 1)
}

// RecordCleanup counts storage cleanup results.
func (m *MetricsService) RecordCleanup(status string) {
	if m == nil {
		return
	}
	m.cleanupJobs.WithLabelValues(status).Inc()
}

// Snapshot returns aggregated metrics for the admin dashboard.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	totalLookups := hits + misses
	if totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PapersSubmitted:          atomic.LoadUint64(&m.paperCount),
		Downloads:                atomic.LoadUint64(&m.downloadCount),
		QuizzesGenerated:         atomic.LoadUint64(&m.quizCount),
		FocusSessions:            atomic.LoadUint64(&m.focusCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
