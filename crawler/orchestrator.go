package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/wxcrawl/cleaner"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
)

// Orchestrator defaults.
const (
	DefaultMaxRounds      = 3
	DefaultRecheckDelay   = 5 * time.Second
	DefaultContentTimeout = 10 * time.Second
	DefaultWarmupURL      = "https://mp.weixin.qq.com"
	DefaultWarmupTimeout  = 30 * time.Second
	DefaultWarmupPause    = 3 * time.Second
	DefaultDiagnosticsDir = "./output/diagnostics"
	DefaultBatchDelay     = 2 * time.Second
	DefaultMaxJitter      = time.Second
)

// RetryPolicy bounds one crawl. It is fixed for the duration of the call.
type RetryPolicy struct {
	// MaxRounds is how many passes are made through the strategy catalog.
	MaxRounds int

	// MaxRetries bounds intra-call retries of a single session operation.
	MaxRetries int

	// BaseDelay is the first intra-call retry delay; it doubles per retry.
	BaseDelay time.Duration

	// RoundStep is the linear inter-round backoff unit.
	RoundStep time.Duration
}

// DefaultRetryPolicy returns 3 rounds, 3 retries, 1s base and 10s step.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRounds:  DefaultMaxRounds,
		MaxRetries: engine.DefaultMaxRetries,
		BaseDelay:  engine.DefaultBaseDelay,
		RoundStep:  engine.DefaultRoundStep,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxRounds <= 0 {
		p.MaxRounds = d.MaxRounds
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = d.MaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.RoundStep <= 0 {
		p.RoundStep = d.RoundStep
	}
	return p
}

// Options configures a Crawler. Zero values take the package defaults.
type Options struct {
	Strategies []engine.StrategyConfig
	Detector   engine.Detector
	Retry      RetryPolicy

	// Selectors drives field extraction. Selectors.Content is the marker
	// the page must show before extraction.
	Selectors        cleaner.Selectors
	MaxSummaryLength int

	// RecheckDelay is the pause before the single challenge re-check.
	// Zero selects DefaultRecheckDelay; a negative value disables the pause.
	RecheckDelay   time.Duration
	ContentTimeout time.Duration

	WarmupURL     string
	WarmupTimeout time.Duration
	// WarmupPause follows the RecheckDelay convention: zero is the
	// default, negative turns the pause off.
	WarmupPause   time.Duration
	SkipWarmup    bool

	DiagnosticsDir     string
	DisableDiagnostics bool

	BatchDelay time.Duration
	MaxJitter  time.Duration

	// URLPattern is the regexp every target URL must match.
	URLPattern string

	// Sleep and Jitter are replaceable so callers can control time.
	Sleep  engine.SleepFunc
	Jitter func(max time.Duration) time.Duration
}

// Crawler retries one article through an escalating strategy catalog,
// one session at a time. It is safe for concurrent use; each call keeps
// its own state.
type Crawler struct {
	opener    engine.Opener
	opts      Options
	extractor *cleaner.Extractor
	sanitizer *cleaner.Sanitizer
	urlRe     *regexp.Regexp
}

// New applies defaults to opts and validates the strategy catalog,
// selectors and URL pattern.
func New(opener engine.Opener, opts Options) (*Crawler, error) {
	if opener == nil {
		return nil, fmt.Errorf("crawler: opener is required")
	}
	if len(opts.Strategies) == 0 {
		opts.Strategies = engine.DefaultStrategies()
	}
	for _, s := range opts.Strategies {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("crawler: %w", err)
		}
	}
	if opts.Detector == nil {
		opts.Detector = engine.NewMarkerDetector()
	}
	opts.Retry = opts.Retry.withDefaults()

	if opts.Selectors.Content == "" {
		opts.Selectors = cleaner.DefaultSelectors()
	}
	if opts.RecheckDelay < 0 {
		opts.RecheckDelay = 0
	} else if opts.RecheckDelay == 0 {
		opts.RecheckDelay = DefaultRecheckDelay
	}
	if opts.ContentTimeout <= 0 {
		opts.ContentTimeout = DefaultContentTimeout
	}
	if opts.WarmupURL == "" {
		opts.WarmupURL = DefaultWarmupURL
	}
	if opts.WarmupTimeout <= 0 {
		opts.WarmupTimeout = DefaultWarmupTimeout
	}
	if opts.WarmupPause < 0 {
		opts.WarmupPause = 0
	} else if opts.WarmupPause == 0 {
		opts.WarmupPause = DefaultWarmupPause
	}
	if opts.DiagnosticsDir == "" {
		opts.DiagnosticsDir = DefaultDiagnosticsDir
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = DefaultBatchDelay
	}
	if opts.MaxJitter <= 0 {
		opts.MaxJitter = DefaultMaxJitter
	}
	if opts.URLPattern == "" {
		opts.URLPattern = DefaultURLPattern
	}
	if opts.Sleep == nil {
		opts.Sleep = engine.Sleep
	}
	if opts.Jitter == nil {
		opts.Jitter = uniformJitter
	}

	extractor, err := cleaner.NewExtractor(opts.Selectors)
	if err != nil {
		return nil, fmt.Errorf("crawler: %w", err)
	}
	urlRe, err := regexp.Compile(opts.URLPattern)
	if err != nil {
		return nil, fmt.Errorf("crawler: url pattern: %w", err)
	}

	sanitizer := cleaner.NewSanitizer()
	if opts.MaxSummaryLength > 0 {
		sanitizer.MaxSummaryLength = opts.MaxSummaryLength
	}

	return &Crawler{
		opener:    opener,
		opts:      opts,
		extractor: extractor,
		sanitizer: sanitizer,
		urlRe:     urlRe,
	}, nil
}

// Strategies returns a copy of the configured catalog.
func (c *Crawler) Strategies() []engine.StrategyConfig {
	return append([]engine.StrategyConfig(nil), c.opts.Strategies...)
}

// RetryPolicy returns the configured default policy.
func (c *Crawler) RetryPolicy() RetryPolicy {
	return c.opts.Retry
}

// CrawlOption overrides configuration for a single call.
type CrawlOption func(*callSettings)

type callSettings struct {
	policy     RetryPolicy
	strategies []engine.StrategyConfig
	batchDelay time.Duration
}

// WithRetryPolicy replaces the retry policy for one call. Zero fields
// take the package defaults.
func WithRetryPolicy(p RetryPolicy) CrawlOption {
	return func(s *callSettings) { s.policy = p.withDefaults() }
}

// WithStrategies replaces the strategy catalog for one call. An empty
// slice is ignored.
func WithStrategies(strategies []engine.StrategyConfig) CrawlOption {
	return func(s *callSettings) {
		if len(strategies) > 0 {
			s.strategies = strategies
		}
	}
}

// WithBatchDelay replaces the base pause between batch items. Values
// below zero are ignored.
func WithBatchDelay(d time.Duration) CrawlOption {
	return func(s *callSettings) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

func (c *Crawler) settings(opts []CrawlOption) callSettings {
	s := callSettings{policy: c.opts.Retry, strategies: c.opts.Strategies, batchDelay: c.opts.BatchDelay}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// CrawlOne fetches and validates a single article. It returns the record
// of the first successful attempt, or a CrawlError of kind INVALID_URL or
// EXHAUSTED. A cancelled ctx aborts with ctx.Err().
//
//	for round in 1..MaxRounds:
//	    for strategy in catalog:
//	        open → warm-up → navigate → two-phase check → extract → sanitize
//	        success: close, return
//	        failure: snapshot, close, next strategy
//	    sleep round × RoundStep unless this was the last round
func (c *Crawler) CrawlOne(ctx context.Context, rawURL string, opts ...CrawlOption) (*models.ArticleRecord, error) {
	target := strings.TrimSpace(rawURL)
	if err := c.ValidateURL(target); err != nil {
		return nil, err
	}
	s := c.settings(opts)
	for _, strategy := range s.strategies {
		if err := strategy.Validate(); err != nil {
			return nil, models.NewCrawlError(models.KindInvalidInput, "invalid strategy override", err)
		}
	}

	var (
		lastErr      error
		lastStrategy string
		attempts     int
	)
	for round := 1; round <= s.policy.MaxRounds; round++ {
		for idx, strategy := range s.strategies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempts++

			rec, err := c.attempt(ctx, target, round, idx+1, strategy, s.policy)
			if err == nil {
				slog.Info("crawl attempt",
					"url", target, "round", round, "strategy", strategy.Name, "outcome", "success")
				return rec, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}

			lastErr, lastStrategy = err, strategy.Name
			slog.Warn("crawl attempt",
				"url", target, "round", round, "strategy", strategy.Name,
				"outcome", models.KindOf(err), "error", err)
		}

		if round < s.policy.MaxRounds {
			delay := engine.InterRoundDelay(s.policy.RoundStep, round)
			slog.Info("round failed, backing off",
				"url", target, "round", round, "delay", delay)
			if err := c.opts.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &models.CrawlError{
		Kind: models.KindExhausted,
		Message: fmt.Sprintf("no strategy succeeded after %d rounds of %d strategies",
			s.policy.MaxRounds, len(s.strategies)),
		Err:          lastErr,
		Rounds:       s.policy.MaxRounds,
		Strategies:   len(s.strategies),
		Attempts:     attempts,
		LastStrategy: lastStrategy,
	}
}

// attempt runs one session open/close cycle. The session is closed on
// every path, after the diagnostic snapshot of a failed attempt.
func (c *Crawler) attempt(ctx context.Context, target string, round, idx int, strategy engine.StrategyConfig, policy RetryPolicy) (rec *models.ArticleRecord, err error) {
	var sess engine.Session
	err = engine.Retry(ctx, c.opts.Sleep, policy.MaxRetries, policy.BaseDelay, "open session", func() error {
		var openErr error
		sess, openErr = c.opener.Open(ctx, strategy)
		return openErr
	})
	if err != nil {
		return nil, wrapSession("failed to open session", err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Debug("closing session failed", "strategy", strategy.Name, "error", closeErr)
		}
	}()
	defer func() {
		if err != nil && ctx.Err() == nil {
			c.snapshot(ctx, sess, round, idx, strategy.Name)
		}
	}()

	if !c.opts.SkipWarmup {
		if _, err := c.navigate(ctx, sess, c.opts.WarmupURL, c.opts.WarmupTimeout, policy); err != nil {
			return nil, wrapSession("warm-up navigation failed", err)
		}
		if err := c.opts.Sleep(ctx, c.opts.WarmupPause); err != nil {
			return nil, err
		}
	}

	text, err := c.navigate(ctx, sess, target, strategy.Timeout, policy)
	if err != nil {
		return nil, wrapSession("navigation failed", err)
	}
	if strategy.Delay > 0 {
		if err := c.opts.Sleep(ctx, strategy.Delay); err != nil {
			return nil, err
		}
		if text, err = sess.CurrentText(ctx); err != nil {
			return nil, wrapSession("reading page failed", err)
		}
	}

	if err := c.verify(ctx, sess, text, strategy.Name); err != nil {
		return nil, err
	}

	raw, err := c.extractor.Extract(ctx, sess, target, c.opts.ContentTimeout)
	if err != nil {
		return nil, err
	}
	return c.sanitizer.Sanitize(raw)
}

// verify is the two-phase challenge check: one positive detection is
// re-checked exactly once after RecheckDelay.
func (c *Crawler) verify(ctx context.Context, sess engine.Session, text, strategy string) error {
	if !c.opts.Detector.IsBlocked(text) {
		return nil
	}
	slog.Debug("verification page detected, re-checking",
		"strategy", strategy, "delay", c.opts.RecheckDelay)
	if err := c.opts.Sleep(ctx, c.opts.RecheckDelay); err != nil {
		return err
	}

	text, err := sess.CurrentText(ctx)
	if err != nil {
		return wrapSession("reading page failed", err)
	}
	if c.opts.Detector.IsBlocked(text) {
		return models.NewCrawlError(models.KindVerificationChallenge,
			"verification page still present after re-check", nil)
	}
	return nil
}

func (c *Crawler) navigate(ctx context.Context, sess engine.Session, url string, timeout time.Duration, policy RetryPolicy) (string, error) {
	var text string
	err := engine.Retry(ctx, c.opts.Sleep, policy.MaxRetries, policy.BaseDelay, "navigate", func() error {
		var navErr error
		text, navErr = sess.Navigate(ctx, url, timeout)
		return navErr
	})
	return text, err
}

// snapshot is best-effort: a failed capture is logged and never changes
// the attempt's outcome.
func (c *Crawler) snapshot(ctx context.Context, sess engine.Session, round, idx int, strategy string) {
	if c.opts.DisableDiagnostics {
		return
	}
	path := SnapshotPath(c.opts.DiagnosticsDir, round, idx, strategy)
	if err := sess.Snapshot(ctx, path); err != nil {
		slog.Warn("diagnostic snapshot failed", "path", path, "error", err)
		return
	}
	slog.Info("diagnostic snapshot saved", "path", path)
}

// SnapshotPath names the capture of a failed attempt.
func SnapshotPath(dir string, round, idx int, strategy string) string {
	return filepath.Join(dir, fmt.Sprintf("error_r%d_s%d_%s.png", round, idx, fileSafe(strategy)))
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// wrapSession keeps typed errors as they are and files anything else
// under SESSION_ERROR.
func wrapSession(msg string, err error) error {
	if _, ok := err.(*models.CrawlError); ok {
		return err
	}
	return models.NewCrawlError(models.KindSession, msg, err)
}

func uniformJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}
