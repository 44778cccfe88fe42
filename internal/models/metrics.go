package models

import "time"

// SystemMetrics is an aggregated snapshot of runtime counters exposed on
// the admin metrics endpoint alongside the Prometheus scrape.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	SubmissionsUploaded      uint64    `json:"submissions_uploaded"`
	CorrectionsRecorded      uint64    `json:"corrections_recorded"`
	BatchJobsCompleted       uint64    `json:"batch_jobs_completed"`
	BatchJobsFailed          uint64    `json:"batch_jobs_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
