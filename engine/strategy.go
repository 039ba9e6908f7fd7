package engine

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Session backends selectable per strategy.
const (
	ModeHeadless = "headless" // browser, no window
	ModeHeadful  = "headful"  // browser with a visible window
	ModeHTTP     = "http"     // plain HTTP with a Chrome TLS fingerprint, no JS
)

// Viewport is the emulated screen size of a session.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// StrategyConfig is one named fetch profile: fingerprint plus timing.
// Values are copied into each attempt and never mutated.
type StrategyConfig struct {
	Name string `yaml:"name"`

	// Mode selects the session backend (headless, headful or http).
	Mode string `yaml:"mode"`

	// Timeout bounds each navigation made with this strategy.
	Timeout time.Duration `yaml:"timeout"`

	// Delay is the pause between steps inside an attempt.
	Delay time.Duration `yaml:"delay"`

	UserAgent string            `yaml:"user_agent"`
	Viewport  Viewport          `yaml:"viewport"`
	Headers   map[string]string `yaml:"headers,omitempty"`

	// Mobile turns on touch and mobile device emulation in browser sessions.
	Mobile bool `yaml:"mobile,omitempty"`

	// ScrollSteps is how many viewports a browser session scrolls once the
	// content marker is present, to trigger lazy-loaded images.
	ScrollSteps int `yaml:"scroll_steps,omitempty"`
}

// Headless reports whether the strategy runs a browser without a window.
func (s StrategyConfig) Headless() bool {
	return s.Mode != ModeHeadful
}

// Validate checks the fields every backend relies on.
func (s StrategyConfig) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy: name is required")
	}
	switch s.Mode {
	case ModeHeadless, ModeHeadful, ModeHTTP:
	default:
		return fmt.Errorf("strategy %q: unknown mode %q", s.Name, s.Mode)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("strategy %q: timeout must be positive", s.Name)
	}
	if s.UserAgent == "" {
		return fmt.Errorf("strategy %q: user agent is required", s.Name)
	}
	return nil
}

// DefaultStrategies returns the built-in catalog, ordered from the most
// realistic desktop profile toward the most permissive one. Earlier
// entries are tried first within each round.
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{
			Name:      "desktop-standard",
			Mode:      ModeHeadless,
			Timeout:   30 * time.Second,
			Delay:     3 * time.Second,
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Viewport:  Viewport{Width: 1920, Height: 1080},
		},
		{
			Name:        "mobile-emulation",
			Mode:        ModeHeadless,
			Timeout:     45 * time.Second,
			Delay:       5 * time.Second,
			UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
			Viewport:    Viewport{Width: 375, Height: 667},
			Mobile:      true,
			ScrollSteps: 3,
		},
		{
			Name:        "extended-wait",
			Mode:        ModeHeadless,
			Timeout:     90 * time.Second,
			Delay:       8 * time.Second,
			UserAgent:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Viewport:    Viewport{Width: 1920, Height: 1080},
			ScrollSteps: 5,
		},
	}
}

// strategiesFile is the on-disk shape of a catalog override.
type strategiesFile struct {
	Strategies []StrategyConfig `yaml:"strategies"`
}

// LoadStrategiesFile reads a YAML catalog that replaces the default one.
// Durations use Go syntax ("30s"). Entries keep their file order.
func LoadStrategiesFile(path string) ([]StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read strategies file: %w", err)
	}
	return ParseStrategies(data)
}

// ParseStrategies decodes and validates a YAML catalog.
func ParseStrategies(data []byte) ([]StrategyConfig, error) {
	var f strategiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse strategies: %w", err)
	}
	if len(f.Strategies) == 0 {
		return nil, fmt.Errorf("parse strategies: catalog is empty")
	}
	for i := range f.Strategies {
		if f.Strategies[i].Mode == "" {
			f.Strategies[i].Mode = ModeHeadless
		}
		if err := f.Strategies[i].Validate(); err != nil {
			return nil, err
		}
	}
	return f.Strategies, nil
}

// StrategyNames lists catalog names in order.
func StrategyNames(strategies []StrategyConfig) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name
	}
	return names
}
