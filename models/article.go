package models

import "time"

// RawArticleFields is what the extractor reads off a loaded page, before
// any cleaning or validation. Display fields always carry a value: when
// every selector in a chain misses, a field-specific default is used.
type RawArticleFields struct {
	Title            string
	Author           string
	PublishTime      string
	RawContentMarkup string
	RawTextContent   string
	Images           []string
	SourceURL        string
	ExtractedAt      time.Time
}

// ArticleRecord is the canonical, validated output of a successful crawl.
// It is flat enough for tabular export: the image list is the only nested value.
type ArticleRecord struct {
	// Title is never empty once validation succeeded.
	Title string `json:"title"`

	Author      string `json:"author"`
	PublishTime string `json:"publishTime"`

	// Content is the article body markup. Never empty once validation succeeded.
	Content string `json:"content"`

	// TextContent is the cleaned plain text of the body.
	TextContent string `json:"textContent"`

	// Summary is TextContent cut to the configured length, with "..." appended
	// when it was truncated.
	Summary string `json:"summary"`

	// Images holds image URLs in document order. Duplicates are kept.
	Images []string `json:"images"`

	ArticleURL string    `json:"articleUrl"`
	CrawledAt  time.Time `json:"crawledAt"`
}
