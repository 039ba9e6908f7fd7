package models

import "time"

// BatchRequest is the payload for POST /api/v1/crawl/batch.
type BatchRequest struct {
	// URLs is the list of article links to crawl. Required.
	URLs []string `json:"urls" binding:"required,min=1"`

	// Options contains shared crawl options applied to all URLs.
	Options CrawlOptions `json:"options"`

	// Save writes the successful records to JSON and CSV exports that
	// GET /api/v1/download/:format can serve afterwards.
	Save bool `json:"save,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchStats counts per-URL outcomes of a batch.
type BatchStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// URLError records why one URL of a batch failed.
type URLError struct {
	URL       string    `json:"url"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchResult is the aggregate outcome of crawling several URLs in sequence.
// Records only holds successfully crawled articles, in input order.
type BatchResult struct {
	Records []*ArticleRecord `json:"articles"`
	Stats   BatchStats       `json:"statistics"`
	Errors  []URLError       `json:"errors"`
}

// BatchResponse is the response for POST /api/v1/crawl/batch.
type BatchResponse struct {
	Success   bool         `json:"success"`
	Data      *BatchResult `json:"data,omitempty"`
	Files     []string     `json:"files,omitempty"`
	RequestID string       `json:"request_id"`
	Timestamp time.Time    `json:"timestamp"`
	Error     *ErrorDetail `json:"error,omitempty"`
}
