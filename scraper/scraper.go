package scraper

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
)

// Opener launches one Chromium per session. Nothing is shared between
// sessions: cookies, cache and fingerprint all start fresh. It is safe
// for concurrent use.
type Opener struct {
	cfg    config.BrowserConfig
	active atomic.Int32
}

// NewOpener creates a browser Opener. No process is started until Open.
func NewOpener(cfg config.BrowserConfig) *Opener {
	return &Opener{cfg: cfg}
}

// Active returns the number of sessions currently open.
func (o *Opener) Active() int {
	return int(o.active.Load())
}

// newLauncher builds the Chromium command line.
func (o *Opener) newLauncher(headless bool) *launcher.Launcher {
	l := launcher.New().
		Headless(headless).
		NoSandbox(o.cfg.NoSandbox).
		Leakless(true)

	if o.cfg.BrowserBin != "" {
		l = l.Bin(o.cfg.BrowserBin)
	}
	if o.cfg.Proxy != "" {
		l = l.Proxy(o.cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), "zh-CN")
	return l
}

// Open launches a browser configured for strategy and returns a session
// bound to a single fresh tab. On any error everything started so far is
// torn down before returning.
func (o *Opener) Open(ctx context.Context, strategy engine.StrategyConfig) (engine.Session, error) {
	l := o.newLauncher(strategy.Headless())

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, models.NewCrawlError(models.KindSession, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewCrawlError(models.KindSession, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, models.NewCrawlError(models.KindSession, "failed to create page", err)
	}

	s := &session{
		opener:   o,
		launcher: l,
		browser:  browser,
		page:     page,
		strategy: strategy,
	}
	o.active.Add(1)

	if err := s.prepare(o.cfg); err != nil {
		_ = s.Close()
		return nil, err
	}

	slog.Debug("browser session opened",
		"strategy", strategy.Name,
		"headless", strategy.Headless(),
		"viewport", strategy.Viewport,
	)
	return s, nil
}
