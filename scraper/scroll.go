package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

const (
	// scrollTimeout bounds the whole scroll sequence.
	scrollTimeout = 10 * time.Second
	scrollPause   = 300 * time.Millisecond
)

// scrollViewports scrolls down one viewport per step, pausing between
// steps so lazy-loaded images can swap in their real sources, then
// returns to the top.
func scrollViewports(ctx context.Context, page *rod.Page, steps int) error {
	ctx, cancel := context.WithTimeout(ctx, scrollTimeout)
	defer cancel()
	p := page.Context(ctx)

	res, err := p.Eval(`() => window.innerHeight`)
	if err != nil {
		return fmt.Errorf("failed to get viewport height: %w", err)
	}
	viewportHeight := res.Value.Int()

	for i := 0; i < steps; i++ {
		if err := p.Mouse.Scroll(0, float64(viewportHeight), 0); err != nil {
			return fmt.Errorf("scroll step %d failed: %w", i, err)
		}
		select {
		case <-time.After(scrollPause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err = p.Eval(`() => window.scrollTo(0, 0)`)
	return err
}
