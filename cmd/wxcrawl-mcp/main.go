package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/wxcrawl/cleaner"
	"github.com/use-agent/wxcrawl/models"
)

func main() {
	apiURL := os.Getenv("WXCRAWL_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("WXCRAWL_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "WXCRAWL_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"wxcrawl",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	crawlArticleTool := mcp.NewTool("crawl_article",
		mcp.WithDescription("Fetch one WeChat official-account article (https://mp.weixin.qq.com/s/...) and return its title, author, publish time and body. Verification pages are retried with other browser fingerprints, so a call can take a few minutes."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Article link, e.g. https://mp.weixin.qq.com/s/AbC123"),
		),
		mcp.WithString("output_format",
			mcp.Description("Body format: 'markdown' (default), 'text' (plain text) or 'html' (article markup)"),
			mcp.Enum("markdown", "text", "html"),
		),
		mcp.WithNumber("max_rounds",
			mcp.Description("Passes through the fingerprint catalog before giving up (default: server setting, max: 10)"),
		),
		mcp.WithNumber("max_age",
			mcp.Description("Accept a cached copy younger than this many milliseconds (default: 0, no cache)"),
		),
	)
	s.AddTool(crawlArticleTool, handleCrawlArticle(apiURL, apiKey))

	crawlBatchTool := mcp.NewTool("crawl_batch",
		mcp.WithDescription("Fetch up to 10 WeChat articles one after another and return a summary of each, plus the reason for every failure."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("Article links to crawl"),
		),
	)
	s.AddTool(crawlBatchTool, handleCrawlBatch(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the wxcrawl API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleCrawlArticle(apiURL, apiKey string) server.ToolHandlerFunc {
	// Three rounds with backoff can run for several minutes.
	client := &http.Client{Timeout: 10 * time.Minute}
	renderer := cleaner.NewMarkdownRenderer()

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.CrawlRequest{
			URL:    url,
			MaxAge: request.GetInt("max_age", 0),
			Options: models.CrawlOptions{
				MaxRounds: request.GetInt("max_rounds", 0),
			},
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.CrawlResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success || resp.Data == nil {
			return mcp.NewToolResultError(describeError(resp.Error, "crawl failed")), nil
		}

		text, err := formatArticle(resp.Data, request.GetString("output_format", "markdown"), renderer)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}

func handleCrawlBatch(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/crawl/batch", models.BatchRequest{URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.BatchResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v", err)), nil
		}
		if !resp.Success || resp.Data == nil {
			return mcp.NewToolResultError(describeError(resp.Error, "batch failed")), nil
		}
		return mcp.NewToolResultText(formatBatch(resp.Data)), nil
	}
}

func formatArticle(rec *models.ArticleRecord, format string, renderer *cleaner.MarkdownRenderer) (string, error) {
	var body string
	switch format {
	case "text":
		body = rec.TextContent
	case "html":
		body = rec.Content
	default:
		md, err := renderer.Render(rec.Content, "mp.weixin.qq.com")
		if err != nil {
			return "", fmt.Errorf("render markdown: %w", err)
		}
		body = md
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nAuthor: %s\nPublished: %s\nSource: %s\nImages: %d\n\n",
		rec.Title, rec.Author, rec.PublishTime, rec.ArticleURL, len(rec.Images))
	sb.WriteString(body)
	return sb.String(), nil
}

func formatBatch(result *models.BatchResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Crawled %d/%d articles (%d failed)\n\n",
		result.Stats.Success, result.Stats.Total, result.Stats.Failed)

	for i, rec := range result.Records {
		fmt.Fprintf(&sb, "--- [%d] %s (%s) ---\n%s\n%s\n\n", i+1, rec.Title, rec.Author, rec.ArticleURL, rec.Summary)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(&sb, "--- FAILED [%s] %s ---\n%s\n\n", e.Kind, e.URL, e.Message)
	}
	return sb.String()
}

func describeError(detail *models.ErrorDetail, fallback string) string {
	if detail == nil {
		return fallback
	}
	msg := fmt.Sprintf("[%s] %s", detail.Kind, detail.Message)
	if detail.Kind == models.KindExhausted {
		msg += fmt.Sprintf(" (%d attempts, last strategy %s)", detail.Attempts, detail.LastStrategy)
	}
	return msg
}
