package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/api/middleware"
	"github.com/use-agent/wxcrawl/cache"
	"github.com/use-agent/wxcrawl/crawler"
	"github.com/use-agent/wxcrawl/models"
)

// Crawl returns a handler for POST /api/v1/crawl.
//
// Pipeline:
//  1. Validate the request body and the article URL.
//  2. Serve from cache when max_age allows it.
//  3. Run the strategy-escalation crawl with per-request overrides.
//  4. Cache the record and respond.
//
// maxTimeout caps the client's per-navigation timeout.
func Crawl(cr *crawler.Crawler, cc *cache.Cache, maxTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		fail := func(detail *models.ErrorDetail) {
			c.JSON(statusFor(detail.Kind), models.CrawlResponse{
				Success:   false,
				RequestID: middleware.RequestID(c),
				Timestamp: time.Now(),
				Timing:    models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
				Error:     detail,
			})
		}

		var req models.CrawlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(&models.ErrorDetail{Kind: models.KindInvalidInput, Message: err.Error()})
			return
		}
		req.URL = strings.TrimSpace(req.URL)
		if err := cr.ValidateURL(req.URL); err != nil {
			fail(errorDetail(err))
			return
		}

		var cacheKey string
		if cc != nil && req.MaxAge > 0 {
			cacheKey = cache.Key(crawler.NormalizeURL(req.URL))
			if rec, ok := cc.Get(cacheKey, req.MaxAge); ok {
				c.JSON(http.StatusOK, models.CrawlResponse{
					Success:     true,
					Data:        rec,
					CacheStatus: "hit",
					RequestID:   middleware.RequestID(c),
					Timestamp:   time.Now(),
					Timing:      models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
				})
				return
			}
		}

		opts := crawler.FromRequest(req.Options, cr.Strategies(), cr.RetryPolicy(), maxTimeout)
		rec, err := cr.CrawlOne(c.Request.Context(), req.URL, opts...)
		if err != nil {
			fail(errorDetail(err))
			return
		}

		resp := models.CrawlResponse{
			Success:   true,
			Data:      rec,
			RequestID: middleware.RequestID(c),
			Timestamp: time.Now(),
			Timing:    models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
		}
		if cacheKey != "" {
			cc.Set(cacheKey, rec)
			resp.CacheStatus = "miss"
		}
		c.JSON(http.StatusOK, resp)
	}
}
