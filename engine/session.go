package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrContentMarkerTimeout is returned by WaitForContentMarker when the
// marker never appeared within the allotted time.
var ErrContentMarkerTimeout = errors.New("content marker did not appear")

// Session is one browser-driven (or HTTP) connection opened for a single
// attempt. It is owned by that attempt and must be closed on every exit path.
type Session interface {
	// Navigate loads url and returns the page text once the document is loaded.
	Navigate(ctx context.Context, url string, timeout time.Duration) (string, error)

	// WaitForContentMarker blocks until an element matching selector exists
	// or timeout elapses.
	WaitForContentMarker(ctx context.Context, selector string, timeout time.Duration) error

	// CurrentText returns the current document markup.
	CurrentText(ctx context.Context) (string, error)

	// CurrentURL returns the document location, or "" when unknown.
	CurrentURL(ctx context.Context) string

	// Snapshot writes a best-effort diagnostic capture to path.
	Snapshot(ctx context.Context, path string) error

	Close() error
}

// Opener creates sessions configured per strategy.
type Opener interface {
	Open(ctx context.Context, strategy StrategyConfig) (Session, error)
}

// OpenerFunc adapts a plain function to Opener.
type OpenerFunc func(ctx context.Context, strategy StrategyConfig) (Session, error)

func (f OpenerFunc) Open(ctx context.Context, strategy StrategyConfig) (Session, error) {
	return f(ctx, strategy)
}

// ModeOpener routes Open calls to a backend by StrategyConfig.Mode.
// The browser backend serves both headless and headful strategies.
type ModeOpener struct {
	Browser Opener
	HTTP    Opener
}

func (m ModeOpener) Open(ctx context.Context, strategy StrategyConfig) (Session, error) {
	var backend Opener
	switch strategy.Mode {
	case ModeHeadless, ModeHeadful, "":
		backend = m.Browser
	case ModeHTTP:
		backend = m.HTTP
	default:
		return nil, fmt.Errorf("open session: unknown mode %q", strategy.Mode)
	}
	if backend == nil {
		return nil, fmt.Errorf("open session: no backend configured for mode %q", strategy.Mode)
	}
	return backend.Open(ctx, strategy)
}
