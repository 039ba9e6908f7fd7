package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/wxcrawl/config"
	"github.com/use-agent/wxcrawl/models"
)

func TestIsTrackerHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"hm.baidu.com", true},
		{"v.gdt.qq.com", true},
		{"WWW.Google-Analytics.com", true},
		{"mp.weixin.qq.com", false},
		{"mmbiz.qpic.cn", false},
		{"qq.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isTrackerHost(tt.host); got != tt.want {
			t.Errorf("isTrackerHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestBlockedSet(t *testing.T) {
	got := blockedSet([]string{"Image", "Font", "Bogus"})
	if len(got) != 2 {
		t.Fatalf("blockedSet size = %d, want 2", len(got))
	}
	if _, ok := got[proto.NetworkResourceTypeImage]; !ok {
		t.Error("Image not blocked")
	}
	if _, ok := got[proto.NetworkResourceTypeDocument]; ok {
		t.Error("Document must never be blocked")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded)},
		{"canceled", context.Canceled},
		{"other", errors.New("target closed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := categorizeError(tt.err, "navigation failed")
			if ce.Kind != models.KindSession {
				t.Errorf("Kind = %q, want %q", ce.Kind, models.KindSession)
			}
			if !errors.Is(ce, tt.err) {
				t.Error("cause not preserved")
			}
		})
	}
}

func TestNewLauncherFlags(t *testing.T) {
	o := NewOpener(config.BrowserConfig{NoSandbox: true, Proxy: "http://127.0.0.1:8888"})

	l := o.newLauncher(false)
	if l.Has(flags.Headless) {
		t.Error("headful launcher has --headless")
	}
	if !l.Has(flags.NoSandbox) {
		t.Error("--no-sandbox missing")
	}
	if got := l.Get(flags.Flag("lang")); got != "zh-CN" {
		t.Errorf("--lang = %q, want zh-CN", got)
	}
	if l.Has(flags.Flag("enable-automation")) {
		t.Error("--enable-automation should be removed")
	}

	if !o.newLauncher(true).Has(flags.Headless) {
		t.Error("headless launcher lacks --headless")
	}
	if o.Active() != 0 {
		t.Errorf("Active = %d before any Open", o.Active())
	}
}
