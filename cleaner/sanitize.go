package cleaner

import (
	"strings"
	"time"

	"github.com/use-agent/wxcrawl/models"
)

// Sanitizer turns extracted fields into a validated ArticleRecord.
type Sanitizer struct {
	// MaxSummaryLength is the summary rune budget. Zero means DefaultSummaryLength.
	MaxSummaryLength int

	now func() time.Time
}

// NewSanitizer returns a Sanitizer with the default summary length.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{MaxSummaryLength: DefaultSummaryLength, now: time.Now}
}

// Sanitize validates raw and builds the record. A missing title or content
// yields a VALIDATION_ERROR naming every missing field.
func (s *Sanitizer) Sanitize(raw *models.RawArticleFields) (*models.ArticleRecord, error) {
	if raw == nil {
		return nil, models.NewValidationError([]string{"title", "content"})
	}

	title := CleanText(raw.Title)
	content := strings.TrimSpace(raw.RawContentMarkup)

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if content == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return nil, models.NewValidationError(missing)
	}

	max := s.MaxSummaryLength
	if max <= 0 {
		max = DefaultSummaryLength
	}
	text := CleanText(raw.RawTextContent)

	images := raw.Images
	if len(images) == 0 {
		images = ImagesFromMarkup(content)
	}
	if images == nil {
		images = []string{}
	}

	crawledAt := raw.ExtractedAt
	if crawledAt.IsZero() {
		crawledAt = time.Now()
		if s.now != nil {
			crawledAt = s.now()
		}
	}

	return &models.ArticleRecord{
		Title:       title,
		Author:      CleanText(raw.Author),
		PublishTime: CleanText(raw.PublishTime),
		Content:     content,
		TextContent: text,
		Summary:     Summary(text, max),
		Images:      images,
		ArticleURL:  raw.SourceURL,
		CrawledAt:   crawledAt,
	}, nil
}
