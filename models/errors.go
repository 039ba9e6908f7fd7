package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds used in API responses and internal error handling.
const (
	KindInvalidURL            = "INVALID_URL"
	KindSession               = "SESSION_ERROR"
	KindVerificationChallenge = "VERIFICATION_CHALLENGE"
	KindExtractionTimeout     = "EXTRACTION_TIMEOUT"
	KindValidation            = "VALIDATION_ERROR"
	KindExhausted             = "EXHAUSTED"

	// API-level kinds.
	KindInvalidInput = "INVALID_INPUT"
	KindRateLimited  = "RATE_LIMITED"
	KindUnauthorized = "UNAUTHORIZED"
	KindNotFound     = "NOT_FOUND"
	KindInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Kind         string   `json:"kind"`
	Message      string   `json:"message"`
	Fields       []string `json:"fields,omitempty"`
	Rounds       int      `json:"rounds,omitempty"`
	Strategies   int      `json:"strategies,omitempty"`
	Attempts     int      `json:"attempts,omitempty"`
	LastStrategy string   `json:"last_strategy,omitempty"`
}

// CrawlError is the internal error type carrying an error kind.
// It implements the error interface and supports error wrapping via Unwrap.
//
// Fields is set for VALIDATION_ERROR. Rounds, Strategies, Attempts and
// LastStrategy are set for EXHAUSTED so a caller can decide whether to
// retry later, switch egress, or intervene manually.
type CrawlError struct {
	Kind    string
	Message string
	Err     error // wrapped original error

	Fields []string

	Rounds       int
	Strategies   int
	Attempts     int
	LastStrategy string
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(kind, message string, err error) *CrawlError {
	return &CrawlError{Kind: kind, Message: message, Err: err}
}

// NewValidationError names every missing required field in its message.
func NewValidationError(fields []string) *CrawlError {
	return &CrawlError{
		Kind:    KindValidation,
		Message: "article is missing required fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
// The wrapped error's text is folded into the message so the last
// underlying failure survives the trip to the caller.
func (e *CrawlError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return &ErrorDetail{
		Kind:         e.Kind,
		Message:      msg,
		Fields:       e.Fields,
		Rounds:       e.Rounds,
		Strategies:   e.Strategies,
		Attempts:     e.Attempts,
		LastStrategy: e.LastStrategy,
	}
}

// KindOf returns the kind of the first CrawlError in err's chain, or
// KindInternal when there is none.
func KindOf(err error) string {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries a CrawlError of the given kind.
func IsKind(err error, kind string) bool {
	var ce *CrawlError
	return errors.As(err, &ce) && ce.Kind == kind
}
