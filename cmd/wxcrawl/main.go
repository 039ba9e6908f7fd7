package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/crawler"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/scraper"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wxcrawl",
	Short: "Crawl WeChat official-account articles through anti-bot verification",
	Long: `wxcrawl fetches public mp.weixin.qq.com articles, retrying through a
catalog of browser fingerprints when a verification page is served, and
exports validated records as JSON, CSV or Markdown.

Configuration is read from WXCRAWL_* environment variables, with .env.local
and .env loaded first when present.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(); err != nil {
			return err
		}
		cfg = config.Load()
		initLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, crawlCmd, batchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCrawler wires the browser and HTTP backends behind the orchestrator.
// The returned Opener reports open browser sessions.
func newCrawler(cfg *config.Config) (*crawler.Crawler, *scraper.Opener, error) {
	strategies, err := cfg.Strategies()
	if err != nil {
		return nil, nil, fmt.Errorf("load strategies: %w", err)
	}

	browser := scraper.NewOpener(cfg.Browser)
	opener := engine.ModeOpener{
		Browser: browser,
		HTTP:    engine.NewHTTPOpener(),
	}

	cr, err := crawler.New(opener, crawler.Options{
		Strategies: strategies,
		Detector:   engine.NewMarkerDetector(cfg.Crawler.BlockMarkers...),
		Retry: crawler.RetryPolicy{
			MaxRounds:  cfg.Crawler.MaxRounds,
			MaxRetries: cfg.Crawler.MaxRetries,
			BaseDelay:  cfg.Crawler.BaseDelay,
			RoundStep:  cfg.Crawler.RoundStep,
		},
		RecheckDelay:   cfg.Crawler.RecheckDelay,
		ContentTimeout: cfg.Crawler.ContentTimeout,
		WarmupURL:      cfg.Crawler.WarmupURL,
		WarmupPause:    cfg.Crawler.WarmupPause,
		DiagnosticsDir: cfg.Crawler.DiagnosticsDir,
		BatchDelay:     cfg.Crawler.BatchDelay,
		MaxJitter:      cfg.Crawler.MaxJitter,
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("crawler ready",
		"strategies", engine.StrategyNames(strategies),
		"maxRounds", cr.RetryPolicy().MaxRounds,
		"headless", cfg.Browser.Headless,
	)
	return cr, browser, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// Logs go to stderr so crawl output on stdout stays clean.
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
