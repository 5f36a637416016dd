package models

import "time"

// SystemMetrics is a lightweight snapshot of in-process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	PapersSubmitted          uint64    `json:"papers_submitted"`
	Downloads                uint64    `json:"downloads"`
	QuizzesGenerated         uint64    `json:"quizzes_generated"`
	FocusSessions            uint64    `json:"focus_sessions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
