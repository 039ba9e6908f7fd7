package crawler

import (
	"time"

	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
)

// FromRequest turns caller-supplied overrides into call options. base is
// the catalog the overrides are applied to; it is never modified.
// Timeouts above maxTimeout are capped.
func FromRequest(o models.CrawlOptions, base []engine.StrategyConfig, policy RetryPolicy, maxTimeout time.Duration) []CrawlOption {
	var opts []CrawlOption

	if o.MaxRounds > 0 {
		policy.MaxRounds = o.MaxRounds
		opts = append(opts, WithRetryPolicy(policy))
	}
	if o.Delay > 0 {
		opts = append(opts, WithBatchDelay(time.Duration(o.Delay)*time.Millisecond))
	}

	if o.Headless == nil && o.Timeout <= 0 && o.UserAgent == "" {
		return opts
	}

	timeout := time.Duration(o.Timeout) * time.Second
	if maxTimeout > 0 && timeout > maxTimeout {
		timeout = maxTimeout
	}

	tuned := make([]engine.StrategyConfig, len(base))
	for i, s := range base {
		if o.Headless != nil && s.Mode != engine.ModeHTTP {
			if *o.Headless {
				s.Mode = engine.ModeHeadless
			} else {
				s.Mode = engine.ModeHeadful
			}
		}
		if timeout > 0 {
			s.Timeout = timeout
		}
		if o.UserAgent != "" {
			s.UserAgent = o.UserAgent
		}
		tuned[i] = s
	}
	return append(opts, WithStrategies(tuned))
}
