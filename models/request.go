package models

// CrawlRequest is the payload for POST /api/v1/crawl.
type CrawlRequest struct {
	// URL is the article link to crawl. Required.
	URL string `json:"url" binding:"required"`

	// Options tunes the crawl for this request only.
	Options CrawlOptions `json:"options"`

	// MaxAge lets the caller accept a cached record younger than MaxAge
	// milliseconds. Zero disables the cache for this request.
	MaxAge int `json:"max_age,omitempty" binding:"omitempty,min=0"`
}

// CrawlOptions are the per-request overrides a caller may send.
// Unset fields keep the server's configured defaults.
type CrawlOptions struct {
	// Headless forces every strategy into headless (true) or headful (false)
	// browser mode. Nil keeps each strategy's own setting.
	Headless *bool `json:"headless,omitempty"`

	// Timeout is the per-navigation timeout in seconds. Max: 120.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=120"`

	// Delay is the base pause in milliseconds between batch items.
	Delay int `json:"delay,omitempty" binding:"omitempty,min=0,max=60000"`

	// UserAgent replaces every strategy's client identity string.
	UserAgent string `json:"user_agent,omitempty"`

	// MaxRounds caps the number of passes through the strategy catalog.
	MaxRounds int `json:"max_rounds,omitempty" binding:"omitempty,min=1,max=10"`
}
