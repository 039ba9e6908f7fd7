package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/api/handler"
	"github.com/use-agent/wxcrawl/api/middleware"
	"github.com/use-agent/wxcrawl/cache"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/crawler"
	"github.com/use-agent/wxcrawl/engine"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint sits outside auth.
// sessions and cc may be nil.
func NewRouter(cr *crawler.Crawler, sessions handler.SessionCounter, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/status", handler.Status(engine.StrategyNames(cr.Strategies()), sessions, startTime))

	protected.POST("/crawl", handler.Crawl(cr, cc, cfg.Crawler.MaxTimeout))
	protected.POST("/crawl/batch", handler.Batch(cr, handler.BatchSettings{
		MaxTimeout: cfg.Crawler.MaxTimeout,
		OutputDir:  cfg.Output.Dir,
	}))

	protected.GET("/download/:format", handler.Download(cfg.Output.Dir))

	return r
}
