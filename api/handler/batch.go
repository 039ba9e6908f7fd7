package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/api/middleware"
	"github.com/use-agent/wxcrawl/crawler"
	"github.com/use-agent/wxcrawl/models"
	"github.com/use-agent/wxcrawl/output"
	"github.com/use-agent/wxcrawl/webhook"
)

// MaxBatchURLs bounds one batch request. Items run one after another with
// a pause between them, so large batches belong on the CLI.
const MaxBatchURLs = 10

// BatchSettings configures the batch handler.
type BatchSettings struct {
	// MaxTimeout caps the client's per-navigation timeout.
	MaxTimeout time.Duration

	// OutputDir receives exports when the request asks to save.
	OutputDir string
}

// Batch returns a handler for POST /api/v1/crawl/batch.
//
// URLs are crawled sequentially; invalid or failed URLs are reported in
// data.errors without failing the request. When webhook_url is set, a
// batch.completed event carrying the result is delivered in the background.
func Batch(cr *crawler.Crawler, settings BatchSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := middleware.RequestID(c)
		fail := func(detail *models.ErrorDetail, data *models.BatchResult) {
			c.JSON(statusFor(detail.Kind), models.BatchResponse{
				Success:   false,
				Data:      data,
				RequestID: requestID,
				Timestamp: time.Now(),
				Error:     detail,
			})
		}

		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(&models.ErrorDetail{Kind: models.KindInvalidInput, Message: err.Error()}, nil)
			return
		}
		if len(req.URLs) > MaxBatchURLs {
			fail(&models.ErrorDetail{
				Kind:    models.KindInvalidInput,
				Message: fmt.Sprintf("maximum %d URLs per batch", MaxBatchURLs),
			}, nil)
			return
		}

		opts := crawler.FromRequest(req.Options, cr.Strategies(), cr.RetryPolicy(), settings.MaxTimeout)
		result, err := cr.CrawlMany(c.Request.Context(), req.URLs, opts...)
		if err != nil {
			fail(errorDetail(err), result)
			return
		}

		resp := models.BatchResponse{
			Success:   true,
			Data:      result,
			RequestID: requestID,
			Timestamp: time.Now(),
		}

		if req.Save && len(result.Records) > 0 {
			base := output.DefaultFileName(time.Now())
			paths, err := output.Save(settings.OutputDir, base, result.Records, output.FormatJSON, output.FormatCSV)
			if err != nil {
				slog.Error("saving batch export failed", "request_id", requestID, "error", err)
			}
			for _, p := range paths {
				resp.Files = append(resp.Files, filepath.Base(p))
			}
		}

		if req.WebhookURL != "" {
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
				Type:      webhook.EventBatchCompleted,
				JobID:     requestID,
				Timestamp: time.Now().Unix(),
				Data:      result,
			}, nil)
		}

		c.JSON(http.StatusOK, resp)
	}
}
