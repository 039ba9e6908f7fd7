package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultStrategies(t *testing.T) {
	strategies := DefaultStrategies()
	if len(strategies) == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, s := range strategies {
		if err := s.Validate(); err != nil {
			t.Errorf("default strategy invalid: %v", err)
		}
	}

	// Escalation order: each strategy waits at least as long as the previous one.
	for i := 1; i < len(strategies); i++ {
		if strategies[i].Timeout < strategies[i-1].Timeout {
			t.Errorf("strategy %q timeout %v shorter than %q timeout %v",
				strategies[i].Name, strategies[i].Timeout,
				strategies[i-1].Name, strategies[i-1].Timeout)
		}
	}

	// Callers get their own copy.
	strategies[0].Name = "mutated"
	if DefaultStrategies()[0].Name == "mutated" {
		t.Error("DefaultStrategies shares state between calls")
	}
}

func TestParseStrategies(t *testing.T) {
	data := []byte(`
strategies:
  - name: plain-http
    mode: http
    timeout: 20s
    delay: 1s
    user_agent: "Mozilla/5.0 Test"
    headers:
      Referer: https://mp.weixin.qq.com/
  - name: desktop
    timeout: 30s
    user_agent: "Mozilla/5.0 Desktop"
    viewport: {width: 1280, height: 800}
`)
	got, err := ParseStrategies(data)
	if err != nil {
		t.Fatalf("ParseStrategies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d strategies, want 2", len(got))
	}
	if got[0].Name != "plain-http" || got[0].Mode != ModeHTTP {
		t.Errorf("first strategy = %+v", got[0])
	}
	if got[0].Timeout != 20*time.Second || got[0].Delay != time.Second {
		t.Errorf("durations not decoded: timeout=%v delay=%v", got[0].Timeout, got[0].Delay)
	}
	if got[0].Headers["Referer"] != "https://mp.weixin.qq.com/" {
		t.Errorf("headers not decoded: %v", got[0].Headers)
	}
	if got[1].Mode != ModeHeadless {
		t.Errorf("missing mode should default to headless, got %q", got[1].Mode)
	}
	if got[1].Viewport.Width != 1280 {
		t.Errorf("viewport not decoded: %+v", got[1].Viewport)
	}
}

func TestParseStrategies_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty catalog", "strategies: []"},
		{"bad mode", "strategies:\n  - {name: x, mode: carrier-pigeon, timeout: 1s, user_agent: ua}"},
		{"missing timeout", "strategies:\n  - {name: x, user_agent: ua}"},
		{"not yaml", "strategies: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseStrategies([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadStrategiesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategies.yaml")
	content := "strategies:\n  - {name: only, mode: headful, timeout: 5s, user_agent: ua}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadStrategiesFile(path)
	if err != nil {
		t.Fatalf("LoadStrategiesFile: %v", err)
	}
	if len(got) != 1 || got[0].Headless() {
		t.Errorf("unexpected catalog %+v", got)
	}
	if names := StrategyNames(got); names[0] != "only" {
		t.Errorf("StrategyNames = %v", names)
	}

	if _, err := LoadStrategiesFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
