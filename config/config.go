package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/wxcrawl/engine"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Crawler   CrawlerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Output    OutputConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls how browser sessions are launched.
type BrowserConfig struct {
	// Headless forces browser strategies to run without a window.
	// When false every browser strategy runs headful.
	Headless bool // default: true

	// Proxy is passed to Chromium's --proxy-server.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types the session never loads.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockTrackers drops requests to known analytics and ad hosts.
	BlockTrackers bool // default: true
}

// CrawlerConfig controls the retry orchestrator.
type CrawlerConfig struct {
	MaxRounds  int           // default: 3
	MaxRetries int           // default: 3
	BaseDelay  time.Duration // default: 1s
	RoundStep  time.Duration // default: 10s

	RecheckDelay   time.Duration // default: 5s; 0 in env disables (stored as -1)
	ContentTimeout time.Duration // default: 10s
	WarmupURL      string        // default: "https://mp.weixin.qq.com"
	WarmupPause    time.Duration // default: 3s; 0 in env disables (stored as -1)

	BatchDelay time.Duration // default: 2s
	MaxJitter  time.Duration // default: 1s

	// MaxTimeout caps client-supplied navigation timeouts.
	MaxTimeout time.Duration // default: 120s

	DiagnosticsDir string // default: "./output/diagnostics"

	// StrategiesFile, when set, replaces the built-in strategy catalog.
	StrategiesFile string

	// BlockMarkers replaces the default verification-page markers.
	BlockMarkers []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the article record cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 500
}

// OutputConfig controls file exports.
type OutputConfig struct {
	Dir string // default: "./output"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// LoadEnvFiles loads .env.local and then .env from the working directory.
// Variables already present in the environment are never overwritten,
// and missing files are not an error.
func LoadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("WXCRAWL_HOST", "0.0.0.0"),
			Port: envIntOr("WXCRAWL_PORT", 8080),
			Mode: envOr("WXCRAWL_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("WXCRAWL_HEADLESS", true),
			Proxy:      os.Getenv("WXCRAWL_PROXY"),
			NoSandbox:  envBoolOr("WXCRAWL_NO_SANDBOX", false),
			BrowserBin: os.Getenv("WXCRAWL_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("WXCRAWL_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			BlockTrackers: envBoolOr("WXCRAWL_BLOCK_TRACKERS", true),
		},
		Crawler: CrawlerConfig{
			MaxRounds:      envIntOr("WXCRAWL_MAX_ROUNDS", 3),
			MaxRetries:     envIntOr("WXCRAWL_MAX_RETRIES", engine.DefaultMaxRetries),
			BaseDelay:      envDurationOr("WXCRAWL_BASE_DELAY", engine.DefaultBaseDelay),
			RoundStep:      envDurationOr("WXCRAWL_ROUND_STEP", engine.DefaultRoundStep),
			RecheckDelay:   envPauseOr("WXCRAWL_RECHECK_DELAY", 5*time.Second),
			ContentTimeout: envDurationOr("WXCRAWL_CONTENT_TIMEOUT", 10*time.Second),
			WarmupURL:      envOr("WXCRAWL_WARMUP_URL", "https://mp.weixin.qq.com"),
			WarmupPause:    envPauseOr("WXCRAWL_WARMUP_PAUSE", 3*time.Second),
			BatchDelay:     envDurationOr("WXCRAWL_BATCH_DELAY", 2*time.Second),
			MaxJitter:      envDurationOr("WXCRAWL_MAX_JITTER", time.Second),
			MaxTimeout:     envDurationOr("WXCRAWL_MAX_TIMEOUT", 120*time.Second),
			DiagnosticsDir: envOr("WXCRAWL_DIAGNOSTICS_DIR", "./output/diagnostics"),
			StrategiesFile: os.Getenv("WXCRAWL_STRATEGIES_FILE"),
			BlockMarkers:   envSliceOr("WXCRAWL_BLOCK_MARKERS", nil),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("WXCRAWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("WXCRAWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("WXCRAWL_RATE_RPS", 1.0),
			Burst:             envIntOr("WXCRAWL_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("WXCRAWL_CACHE_MAX_ENTRIES", 500),
		},
		Output: OutputConfig{
			Dir: envOr("WXCRAWL_OUTPUT_DIR", "./output"),
		},
		Log: LogConfig{
			Level:  envOr("WXCRAWL_LOG_LEVEL", "info"),
			Format: envOr("WXCRAWL_LOG_FORMAT", "json"),
		},
	}
}

// Strategies returns the catalog to crawl with: the strategies file when
// configured, otherwise the built-in catalog. With Browser.Headless off,
// headless strategies are switched to headful.
func (c *Config) Strategies() ([]engine.StrategyConfig, error) {
	strategies := engine.DefaultStrategies()
	if c.Crawler.StrategiesFile != "" {
		loaded, err := engine.LoadStrategiesFile(c.Crawler.StrategiesFile)
		if err != nil {
			return nil, err
		}
		strategies = loaded
	}
	if !c.Browser.Headless {
		for i := range strategies {
			if strategies[i].Mode == engine.ModeHeadless {
				strategies[i].Mode = engine.ModeHeadful
			}
		}
	}
	return strategies, nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envPauseOr reads a pause duration where an explicit zero means "no pause".
// Zero is reported as -1 so the crawler does not swap in its default.
func envPauseOr(key string, fallback time.Duration) time.Duration {
	d := envDurationOr(key, fallback)
	if d == 0 {
		return -1
	}
	return d
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
