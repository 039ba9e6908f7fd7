package cleaner

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/use-agent/wxcrawl/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hello   world  ", "hello world"},
		{"line one\n\n\n  line two", "line one line two"},
		{"\t\r\n", ""},
		{"中文　 内容", "中文　 内容"},
		{"already clean", "already clean"},
	}
	for _, tt := range tests {
		got := CleanText(tt.in)
		if got != tt.want {
			t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := CleanText(got); again != got {
			t.Errorf("CleanText not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}
}

func TestSummary(t *testing.T) {
	short := "短文本"
	if got := Summary(short, 200); got != short {
		t.Errorf("Summary(short) = %q", got)
	}

	long := strings.Repeat("字", 250)
	got := Summary(long, 200)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long summary lacks ellipsis: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("summary rune length = %d, want 203", n)
	}

	exact := strings.Repeat("a", 200)
	if got := Summary(exact, 200); got != exact {
		t.Error("text at the limit should not be truncated")
	}
}

func TestImagesFromMarkup(t *testing.T) {
	markup := `<p><img src="x.png" alt="x"></p><img class="a" data-src="y.png"><img alt="none">`
	got := ImagesFromMarkup(markup)
	want := []string{"x.png", "y.png"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ImagesFromMarkup = %v, want %v", got, want)
	}
}

func TestSanitize(t *testing.T) {
	s := NewSanitizer()
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	raw := &models.RawArticleFields{
		Title:            "  标题\n\n  ",
		Author:           "作者",
		PublishTime:      "2024-03-01",
		RawContentMarkup: `<p>正文</p><img src="https://mmbiz.qpic.cn/c.png">`,
		RawTextContent:   "正文\n\n\n 内容",
		SourceURL:        "https://mp.weixin.qq.com/s/abc",
	}

	rec, err := s.Sanitize(raw)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	if rec.Title != "标题" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.TextContent != "正文 内容" || rec.Summary != "正文 内容" {
		t.Errorf("TextContent/Summary = %q / %q", rec.TextContent, rec.Summary)
	}
	if len(rec.Images) != 1 || rec.Images[0] != "https://mmbiz.qpic.cn/c.png" {
		t.Errorf("Images should come from markup when extractor found none: %v", rec.Images)
	}
	if rec.ArticleURL != raw.SourceURL || !rec.CrawledAt.Equal(fixed) {
		t.Errorf("ArticleURL/CrawledAt = %q / %v", rec.ArticleURL, rec.CrawledAt)
	}

	raw.Images = []string{"https://mmbiz.qpic.cn/lazy.png"}
	rec, _ = s.Sanitize(raw)
	if len(rec.Images) != 1 || rec.Images[0] != "https://mmbiz.qpic.cn/lazy.png" {
		t.Errorf("extractor images should win: %v", rec.Images)
	}
}

func TestSanitize_CrawledAt(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	extracted := time.Date(2024, 4, 30, 23, 59, 0, 0, time.UTC)
	tests := []struct {
		name        string
		extractedAt time.Time
		want        time.Time
	}{
		{"extraction time wins", extracted, extracted},
		{"clock when unset", time.Time{}, fixed},
	}

	s := NewSanitizer()
	s.now = func() time.Time { return fixed }
	for _, tt := range tests {
		raw := &models.RawArticleFields{
			Title:            "标题",
			RawContentMarkup: "<p>正文</p>",
			RawTextContent:   "正文",
			SourceURL:        "https://mp.weixin.qq.com/s/abc",
			ExtractedAt:      tt.extractedAt,
		}
		rec, err := s.Sanitize(raw)
		if err != nil {
			t.Fatalf("%s: Sanitize: %v", tt.name, err)
		}
		if !rec.CrawledAt.Equal(tt.want) {
			t.Errorf("%s: CrawledAt = %v, want %v", tt.name, rec.CrawledAt, tt.want)
		}
	}
}

func TestSanitize_ValidationError(t *testing.T) {
	s := NewSanitizer()

	tests := []struct {
		name   string
		raw    *models.RawArticleFields
		fields []string
	}{
		{"missing title", &models.RawArticleFields{Title: " \n ", RawContentMarkup: "<p>x</p>"}, []string{"title"}},
		{"missing content", &models.RawArticleFields{Title: "t", RawContentMarkup: "   "}, []string{"content"}},
		{"missing both", &models.RawArticleFields{}, []string{"title", "content"}},
		{"nil", nil, []string{"title", "content"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Sanitize(tt.raw)
			ce, ok := err.(*models.CrawlError)
			if !ok {
				t.Fatalf("error = %v, want *CrawlError", err)
			}
			if ce.Kind != models.KindValidation {
				t.Errorf("Kind = %q", ce.Kind)
			}
			if strings.Join(ce.Fields, ",") != strings.Join(tt.fields, ",") {
				t.Errorf("Fields = %v, want %v", ce.Fields, tt.fields)
			}
			for _, f := range tt.fields {
				if !strings.Contains(ce.Error(), f) {
					t.Errorf("message %q does not name %q", ce.Error(), f)
				}
			}
		})
	}
}
