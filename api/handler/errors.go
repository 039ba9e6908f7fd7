package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/use-agent/wxcrawl/models"
)

// errorDetail converts any error to its API form. Errors without a kind
// are reported as INTERNAL_ERROR.
func errorDetail(err error) *models.ErrorDetail {
	var ce *models.CrawlError
	if errors.As(err, &ce) {
		return ce.ToDetail()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &models.ErrorDetail{Kind: models.KindInternal, Message: "request aborted: " + err.Error()}
	}
	return &models.ErrorDetail{Kind: models.KindInternal, Message: err.Error()}
}

// statusFor translates error kinds to HTTP status codes.
func statusFor(kind string) int {
	switch kind {
	case models.KindInvalidURL, models.KindInvalidInput:
		return http.StatusBadRequest // 400
	case models.KindUnauthorized:
		return http.StatusUnauthorized // 401
	case models.KindNotFound:
		return http.StatusNotFound // 404
	case models.KindRateLimited:
		return http.StatusTooManyRequests // 429
	case models.KindExhausted, models.KindVerificationChallenge, models.KindSession:
		return http.StatusBadGateway // 502
	case models.KindExtractionTimeout:
		return http.StatusGatewayTimeout // 504
	case models.KindValidation:
		return http.StatusUnprocessableEntity // 422
	default:
		return http.StatusInternalServerError // 500
	}
}
