package models

import "time"

// CrawlResponse is the response for POST /api/v1/crawl.
type CrawlResponse struct {
	// Success indicates whether the crawl produced a validated article.
	Success bool `json:"success"`

	// Data is the article; populated only when Success is true.
	Data *ArticleRecord `json:"data,omitempty"`

	// CacheStatus indicates whether the response was served from cache.
	// Values: "hit", "miss", or empty (caching not requested).
	CacheStatus string `json:"cache_status,omitempty"`

	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`

	// Timing provides the end-to-end duration of the crawl.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent on a request.
type TimingInfo struct {
	TotalMs int64 `json:"total_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
	Version   string    `json:"version"`
}

// StatusResponse is the response for GET /api/v1/status.
type StatusResponse struct {
	Status     string      `json:"status"`
	Uptime     string      `json:"uptime"`
	Strategies []string    `json:"strategies"`

	// ActiveSessions counts browser sessions currently open.
	ActiveSessions int `json:"active_sessions"`

	Memory     MemoryStats `json:"memory"`
	Timestamp  time.Time   `json:"timestamp"`
}

// MemoryStats reports process memory usage.
type MemoryStats struct {
	HeapAllocBytes uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes   uint64 `json:"heap_sys_bytes"`
	NumGoroutine   int    `json:"num_goroutine"`
}

// ErrorResponse is a bare error envelope used by middleware and routes
// that have no richer response type.
type ErrorResponse struct {
	Success   bool         `json:"success"`
	RequestID string       `json:"request_id,omitempty"`
	Error     *ErrorDetail `json:"error"`
}
