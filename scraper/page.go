package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
	"github.com/ysmood/gson"
)

const acceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

// session is a single-tab browser session. It implements engine.Session.
type session struct {
	opener   *Opener
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	strategy engine.StrategyConfig

	closeOnce sync.Once
}

// prepare applies the strategy fingerprint to the tab. Every step here
// must happen before the first navigation:
//
//  1. Stealth injection      – mask navigator.webdriver etc.
//  2. User agent + locale    – NetworkSetUserAgentOverride
//  3. Viewport               – EmulationSetDeviceMetricsOverride (+ touch on mobile)
//  4. Extra headers          – strategy headers via NetworkSetExtraHTTPHeaders
//  5. Hijack mount           – block images/fonts/media and tracker hosts
func (s *session) prepare(cfg config.BrowserConfig) error {
	// ── 1. Stealth injection ──────────────────────────────────────────
	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"strategy", s.strategy.Name, "error", err)
	}

	// ── 2. User agent + locale ────────────────────────────────────────
	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.strategy.UserAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return categorizeError(err, "failed to set user agent")
	}

	// ── 3. Viewport ───────────────────────────────────────────────────
	if vp := s.strategy.Viewport; vp.Width > 0 && vp.Height > 0 {
		scale := 1.0
		if s.strategy.Mobile {
			scale = 2.0
		}
		if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: scale,
			Mobile:            s.strategy.Mobile,
		}); err != nil {
			return categorizeError(err, "failed to set viewport")
		}
	}
	if s.strategy.Mobile {
		_ = proto.EmulationSetTouchEmulationEnabled{Enabled: true, MaxTouchPoints: gson.Int(5)}.Call(s.page)
	}

	// ── 4. Extra headers ──────────────────────────────────────────────
	if len(s.strategy.Headers) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(s.strategy.Headers),
		}).Call(s.page); err != nil {
			slog.Warn("failed to set extra headers",
				"strategy", s.strategy.Name, "error", err)
		}
	}

	// ── 5. Hijack mount ───────────────────────────────────────────────
	s.router = setupHijack(s.page, cfg.BlockedResourceTypes, cfg.BlockTrackers)
	return nil
}

func (s *session) Navigate(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	p := s.page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return "", categorizeError(err, "navigation failed")
	}
	if err := p.WaitLoad(); err != nil {
		return "", categorizeError(err, "page load did not finish")
	}

	html, err := p.HTML()
	if err != nil {
		return "", categorizeError(err, "failed to read page HTML")
	}
	return html, nil
}

// WaitForContentMarker waits for selector, then scrolls the strategy's
// ScrollSteps viewports so lazy images get their attributes filled in.
func (s *session) WaitForContentMarker(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := s.page.Context(waitCtx).WaitElementsMoreThan(selector, 0); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", engine.ErrContentMarkerTimeout, selector)
		}
		return categorizeError(err, "waiting for content marker failed")
	}

	if s.strategy.ScrollSteps > 0 {
		if err := scrollViewports(ctx, s.page, s.strategy.ScrollSteps); err != nil {
			slog.Debug("scroll after content marker failed",
				"strategy", s.strategy.Name, "error", err)
		}
	}
	return nil
}

func (s *session) CurrentText(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, "failed to read page HTML")
	}
	return html, nil
}

func (s *session) CurrentURL(ctx context.Context) string {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Snapshot writes a full-page PNG to path.
func (s *session) Snapshot(ctx context.Context, path string) error {
	img, err := s.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return categorizeError(err, "screenshot failed")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	return os.WriteFile(path, img, 0o644)
}

// Close stops the hijack router, closes the tab and the browser, and kills
// the Chromium process. It uses the original page reference (without any
// request context) so teardown succeeds after a deadline has passed.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if closeErr := s.page.Close(); closeErr != nil {
			slog.Debug("closing page failed", "error", closeErr)
		}
		err = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.opener.active.Add(-1)
		slog.Debug("browser session closed", "strategy", s.strategy.Name)
	})
	return err
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw rod errors into session-kind CrawlErrors,
// naming deadline expiry and cancellation explicitly.
func categorizeError(err error, msg string) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.KindSession, msg+": timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.KindSession, msg+": canceled", err)
	default:
		return models.NewCrawlError(models.KindSession, msg, err)
	}
}
