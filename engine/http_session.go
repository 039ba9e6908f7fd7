package engine

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
)

// maxBody caps how much of a response an HTTP session reads.
const maxBody = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Go's http.Transport cannot speak HTTP/2 over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// HTTPOpener opens sessions that fetch pages over plain HTTP with a Chrome
// TLS fingerprint. Nothing is rendered, so it only suits pages whose
// content is present in the served markup.
type HTTPOpener struct {
	transport http.RoundTripper
}

// NewHTTPOpener creates an HTTPOpener sharing one utls transport.
func NewHTTPOpener() *HTTPOpener {
	return &HTTPOpener{transport: newChromeTransport()}
}

// newHTTPOpenerWithTransport lets tests point sessions at an httptest server.
func newHTTPOpenerWithTransport(rt http.RoundTripper) *HTTPOpener {
	return &HTTPOpener{transport: rt}
}

func newChromeTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("http_session: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
		IdleConnTimeout:   30 * time.Second,
	}
}

// Open creates a session with its own cookie jar, so cookies picked up
// during warm-up carry over to the target navigation.
func (o *HTTPOpener) Open(_ context.Context, strategy StrategyConfig) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("http_session: cookie jar: %w", err)
	}
	return &httpSession{
		strategy: strategy,
		client: &http.Client{
			Transport: o.transport,
			Jar:       jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}, nil
}

type httpSession struct {
	strategy StrategyConfig
	client   *http.Client

	mu      sync.Mutex
	html    string
	url     string
	referer string
	closed  bool
}

func (s *httpSession) Navigate(ctx context.Context, target string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("http_session: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.strategy.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	s.mu.Lock()
	if s.referer != "" {
		req.Header.Set("Referer", s.referer)
	}
	s.mu.Unlock()

	for k, v := range s.strategy.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http_session: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("http_session: read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("http_session: status %d for %s", resp.StatusCode, target)
	}

	page := string(body)
	s.mu.Lock()
	s.html = page
	s.url = resp.Request.URL.String()
	s.referer = s.url
	s.mu.Unlock()
	return page, nil
}

// WaitForContentMarker checks the fetched document once: without a script
// engine the markup cannot change while waiting.
func (s *httpSession) WaitForContentMarker(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return fmt.Errorf("http_session: bad selector %q: %w", selector, err)
	}

	s.mu.Lock()
	page := s.html
	s.mu.Unlock()

	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("http_session: parse document: %w", err)
	}
	if cascadia.Query(doc, sel) == nil {
		return fmt.Errorf("%w: %s", ErrContentMarkerTimeout, selector)
	}
	return nil
}

func (s *httpSession) CurrentText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("http_session: closed")
	}
	return s.html, nil
}

func (s *httpSession) CurrentURL(_ context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// Snapshot has no pixels to capture, so it saves the markup beside path
// with an .html extension.
func (s *httpSession) Snapshot(_ context.Context, path string) error {
	s.mu.Lock()
	page := s.html
	s.mu.Unlock()

	out := strings.TrimSuffix(path, filepath.Ext(path)) + ".html"
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("http_session: snapshot dir: %w", err)
	}
	return os.WriteFile(out, []byte(page), 0o644)
}

func (s *httpSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.client.CloseIdleConnections()
	return nil
}
