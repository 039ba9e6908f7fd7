package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/use-agent/wxcrawl/cleaner"
	"github.com/use-agent/wxcrawl/models"
)

var record = &models.ArticleRecord{
	Title:       "标题",
	Author:      "作者",
	PublishTime: "2024-05-01",
	Content:     "<p>第一段 <strong>重点</strong></p>",
	TextContent: "第一段 重点",
	Summary:     "第一段 重点",
	Images:      []string{"https://mmbiz.qpic.cn/a.png"},
	ArticleURL:  "https://mp.weixin.qq.com/s/abc",
	CrawledAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestFormatArticle(t *testing.T) {
	r := cleaner.NewMarkdownRenderer()

	tests := []struct {
		format string
		want   string
	}{
		{"markdown", "**重点**"},
		{"text", "第一段 重点"},
		{"html", "<strong>重点</strong>"},
	}
	for _, tt := range tests {
		got, err := formatArticle(record, tt.format, r)
		if err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if !strings.HasPrefix(got, "Title: 标题\nAuthor: 作者") || !strings.Contains(got, tt.want) {
			t.Errorf("%s output:\n%s", tt.format, got)
		}
	}
}

func TestDescribeError(t *testing.T) {
	if got := describeError(nil, "crawl failed"); got != "crawl failed" {
		t.Errorf("nil detail = %q", got)
	}
	got := describeError(&models.ErrorDetail{
		Kind: models.KindExhausted, Message: "no strategy succeeded", Attempts: 9, LastStrategy: "mobile",
	}, "")
	if !strings.Contains(got, "[EXHAUSTED]") || !strings.Contains(got, "9 attempts, last strategy mobile") {
		t.Errorf("exhausted = %q", got)
	}
}

func TestHandleCrawlArticle(t *testing.T) {
	var gotKey string
	var gotReq models.CrawlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-Key")
		json.NewDecoder(r.Body).Decode(&gotReq)
		if strings.HasSuffix(gotReq.URL, "blocked") {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(models.CrawlResponse{
				Error: &models.ErrorDetail{Kind: models.KindExhausted, Message: "gave up"},
			})
			return
		}
		json.NewEncoder(w).Encode(models.CrawlResponse{Success: true, Data: record})
	}))
	defer srv.Close()

	handle := handleCrawlArticle(srv.URL, "k")

	req := mcp.CallToolRequest{}
	req.Params.Name = "crawl_article"
	req.Params.Arguments = map[string]any{"url": record.ArticleURL, "output_format": "text", "max_rounds": 2}

	res, err := handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if gotKey != "k" || gotReq.Options.MaxRounds != 2 {
		t.Errorf("request = key %q %+v", gotKey, gotReq)
	}
	if !strings.Contains(resultText(t, res), "第一段 重点") {
		t.Errorf("result = %q", resultText(t, res))
	}

	req.Params.Arguments = map[string]any{"url": "https://mp.weixin.qq.com/s/blocked"}
	res, _ = handle(context.Background(), req)
	if !res.IsError || !strings.Contains(resultText(t, res), "EXHAUSTED") {
		t.Errorf("blocked result = %+v", res)
	}
}

func TestFormatBatch(t *testing.T) {
	got := formatBatch(&models.BatchResult{
		Records: []*models.ArticleRecord{record},
		Stats:   models.BatchStats{Total: 2, Success: 1, Failed: 1},
		Errors:  []models.URLError{{URL: "https://example.com", Kind: models.KindInvalidURL, Message: "not an article url"}},
	})
	for _, want := range []string{"Crawled 1/2 articles (1 failed)", "[1] 标题 (作者)", "FAILED [INVALID_URL] https://example.com"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}
