package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/wxcrawl/cache"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/crawler"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
)

const (
	testKey    = "test-key"
	articleURL = "https://mp.weixin.qq.com/s/AbC_123"

	articleHTML = `<html><body>
<h1 id="activity-name">标题</h1><a id="js_name">作者</a><em id="publish_time">2024-05-01</em>
<div id="js_content"><p>正文内容</p><img data-src="https://mmbiz.qpic.cn/1.png"></div>
</body></html>`

	blockedHTML = `<html><body>环境异常 完成验证后即可继续访问</body></html>`
)

type testServer struct {
	router *gin.Engine
	opens  *atomic.Int32
	outDir string
}

// newTestServer serves html for every URL except those containing
// "blocked", which always show a verification page.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opens := &atomic.Int32{}
	opener := engine.OpenerFunc(func(context.Context, engine.StrategyConfig) (engine.Session, error) {
		opens.Add(1)
		return &switchSession{}, nil
	})

	cr, err := crawler.New(opener, crawler.Options{
		Strategies: []engine.StrategyConfig{
			{Name: "A", Mode: engine.ModeHTTP, Timeout: time.Second, UserAgent: "ua"},
		},
		Retry:              crawler.RetryPolicy{MaxRounds: 1},
		SkipWarmup:         true,
		DisableDiagnostics: true,
		Sleep:              func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		Jitter:             func(time.Duration) time.Duration { return 0 },
	})
	if err != nil {
		t.Fatal(err)
	}

	outDir := t.TempDir()
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{testKey}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		Crawler:   config.CrawlerConfig{MaxTimeout: 120 * time.Second},
		Output:    config.OutputConfig{Dir: outDir},
	}
	cc := cache.New(10)
	t.Cleanup(cc.Stop)

	return &testServer{
		router: NewRouter(cr, nil, cfg, cc, time.Now()),
		opens:  opens,
		outDir: outDir,
	}
}

type switchSession struct{ html string }

func (s *switchSession) Navigate(_ context.Context, url string, _ time.Duration) (string, error) {
	s.html = articleHTML
	if strings.Contains(url, "blocked") {
		s.html = blockedHTML
	}
	return s.html, nil
}
func (s *switchSession) WaitForContentMarker(context.Context, string, time.Duration) error {
	return nil
}
func (s *switchSession) CurrentText(context.Context) (string, error) { return s.html, nil }
func (s *switchSession) CurrentURL(context.Context) string           { return "" }
func (s *switchSession) Snapshot(context.Context, string) error      { return nil }
func (s *switchSession) Close() error                                { return nil }

func (s *testServer) do(t *testing.T, method, path string, body any, key string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealth_NoAuth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "nope", http.StatusUnauthorized},
		{"valid", testKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/status", nil, tt.key)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized {
				var resp models.ErrorResponse
				json.Unmarshal(w.Body.Bytes(), &resp)
				if resp.Error == nil || resp.Error.Kind != models.KindUnauthorized {
					t.Errorf("error = %+v", resp.Error)
				}
			}
		})
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/v1/status", nil, testKey)

	var resp models.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "running" || len(resp.Strategies) != 1 || resp.Strategies[0] != "A" {
		t.Errorf("status = %+v", resp)
	}
}

func TestCrawl(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/crawl", models.CrawlRequest{URL: articleURL}, testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var resp models.CrawlResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Data.Title != "标题" || resp.Data.Author != "作者" {
		t.Errorf("data = %+v", resp.Data)
	}
	if resp.CacheStatus != "" {
		t.Errorf("cache status = %q without max_age", resp.CacheStatus)
	}
	if resp.RequestID == "" || resp.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("request id = %q", resp.RequestID)
	}
}

func TestCrawl_Cache(t *testing.T) {
	s := newTestServer(t)
	req := models.CrawlRequest{URL: articleURL, MaxAge: 60_000}

	for i, want := range []string{"miss", "hit"} {
		w := s.do(t, http.MethodPost, "/api/v1/crawl", req, testKey)
		var resp models.CrawlResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.CacheStatus != want {
			t.Errorf("request %d cache status = %q, want %q", i, resp.CacheStatus, want)
		}
	}
	if s.opens.Load() != 1 {
		t.Errorf("opens = %d, want 1", s.opens.Load())
	}
}

func TestCrawl_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		kind   string
	}{
		{"missing url", map[string]string{}, http.StatusBadRequest, models.KindInvalidInput},
		{"bad url", models.CrawlRequest{URL: "https://example.com/a"}, http.StatusBadRequest, models.KindInvalidURL},
		{"timeout too large", map[string]any{"url": articleURL, "options": map[string]int{"timeout": 500}}, http.StatusBadRequest, models.KindInvalidInput},
		{"blocked", models.CrawlRequest{URL: "https://mp.weixin.qq.com/s/blocked"}, http.StatusBadGateway, models.KindExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/crawl", tt.body, testKey)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var resp models.CrawlResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Success || resp.Error == nil || resp.Error.Kind != tt.kind {
				t.Errorf("error = %+v, want kind %s", resp.Error, tt.kind)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/crawl/batch", models.BatchRequest{
		URLs: []string{articleURL, "https://example.com/x", "https://mp.weixin.qq.com/s/blocked"},
		Save: true,
	}, testKey)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}

	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	st := resp.Data.Stats
	if st.Total != 3 || st.Success != 1 || st.Failed != 2 {
		t.Errorf("stats = %+v", st)
	}
	if len(resp.Data.Errors) != 2 || resp.Data.Errors[0].Kind != models.KindInvalidURL {
		t.Errorf("errors = %+v", resp.Data.Errors)
	}
	if len(resp.Files) != 2 {
		t.Fatalf("files = %v", resp.Files)
	}
	if _, err := os.Stat(filepath.Join(s.outDir, resp.Files[0])); err != nil {
		t.Errorf("export missing: %v", err)
	}

	// The saved CSV is now downloadable.
	w = s.do(t, http.MethodGet, "/api/v1/download/csv", nil, testKey)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "title,author") {
		t.Errorf("download = %d %q", w.Code, w.Body.String())
	}
}

func TestBatch_TooManyURLs(t *testing.T) {
	s := newTestServer(t)
	urls := make([]string, 11)
	for i := range urls {
		urls[i] = articleURL
	}
	w := s.do(t, http.MethodPost, "/api/v1/crawl/batch", models.BatchRequest{URLs: urls}, testKey)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if s.opens.Load() != 0 {
		t.Errorf("opened %d sessions for a rejected batch", s.opens.Load())
	}
}

func TestDownload_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/download/xml", http.StatusBadRequest},
		{"/api/v1/download/json", http.StatusNotFound},
		{"/api/v1/download/json?filename=../../etc/passwd", http.StatusBadRequest},
		{"/api/v1/download/json?filename=missing.json", http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := s.do(t, http.MethodGet, tt.path, nil, testKey); w.Code != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, w.Code, tt.want)
		}
	}
}
