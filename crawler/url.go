package crawler

import (
	"net/url"
	"strings"

	"github.com/use-agent/wxcrawl/models"
)

// DefaultURLPattern accepts public article short links.
const DefaultURLPattern = `^https?://mp\.weixin\.qq\.com/s/[a-zA-Z0-9_-]+$`

// ValidateURL rejects targets that do not match the configured pattern.
// It runs before any session is opened.
func (c *Crawler) ValidateURL(u string) error {
	if u == "" {
		return models.NewCrawlError(models.KindInvalidURL, "url is empty", nil)
	}
	if !c.urlRe.MatchString(u) {
		return models.NewCrawlError(models.KindInvalidURL, "not an article url: "+u, nil)
	}
	return nil
}

// NormalizeURL trims u, lowercases scheme and host, and drops the query
// and fragment. It is used for cache keys; unparsable input comes back
// trimmed.
func NormalizeURL(u string) string {
	u = strings.TrimSpace(u)
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return u
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.RawQuery = ""
	parsed.ForceQuery = false
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}
