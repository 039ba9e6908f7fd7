package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/wxcrawl/models"
)

// CrawlMany crawls urls strictly in order through CrawlOne. A failed URL is
// recorded and the batch moves on. After each success other than the last
// URL it sleeps the batch delay plus a random jitter of up to MaxJitter.
//
// On cancellation the partial result is returned together with ctx.Err().
func (c *Crawler) CrawlMany(ctx context.Context, urls []string, opts ...CrawlOption) (*models.BatchResult, error) {
	result := &models.BatchResult{
		Records: []*models.ArticleRecord{},
		Errors:  []models.URLError{},
		Stats:   models.BatchStats{Total: len(urls)},
	}

	s := c.settings(opts)

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec, err := c.CrawlOne(ctx, u, opts...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			result.Stats.Failed++
			result.Errors = append(result.Errors, models.URLError{
				URL:       u,
				Kind:      models.KindOf(err),
				Message:   err.Error(),
				Timestamp: time.Now(),
			})
			slog.Warn("batch item failed", "index", i, "url", u, "error", err)
			continue
		}

		result.Stats.Success++
		result.Records = append(result.Records, rec)
		slog.Info("batch item crawled", "index", i, "url", u, "title", rec.Title)

		if i < len(urls)-1 {
			delay := s.batchDelay + c.opts.Jitter(c.opts.MaxJitter)
			if err := c.opts.Sleep(ctx, delay); err != nil {
				return result, err
			}
		}
	}

	slog.Info("batch complete",
		"total", result.Stats.Total,
		"success", result.Stats.Success,
		"failed", result.Stats.Failed,
	)
	return result, nil
}
