package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/wxcrawl/api"
	"github.com/use-agent/wxcrawl/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("wxcrawl starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
		)
		if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
			slog.Warn("auth enabled without WXCRAWL_API_KEYS; API is open")
		}

		cr, browser, err := newCrawler(cfg)
		if err != nil {
			return err
		}

		cc := cache.New(cfg.Cache.MaxEntries)
		defer cc.Stop()

		router := api.NewRouter(cr, browser, cfg, cc, time.Now())

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			slog.Info("shutdown signal received", "signal", sig.String())
		case err := <-errCh:
			return fmt.Errorf("HTTP server: %w", err)
		}

		// Crawls can run for minutes; give in-flight requests a bounded drain.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}

		slog.Info("wxcrawl stopped", "openSessions", browser.Active())
		return nil
	},
}
