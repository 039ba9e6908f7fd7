package cleaner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/wxcrawl/engine"
	"github.com/use-agent/wxcrawl/models"
)

// UnknownAuthor is used when no author selector matches.
const UnknownAuthor = "未知作者"

// Selectors lists, per field, the CSS selectors tried in order. The first
// selector that matches a node with non-empty text wins.
type Selectors struct {
	Title       []string
	Author      []string
	PublishTime []string

	// Content locates the article body. It doubles as the marker the
	// page must show before extraction starts.
	Content string
}

// DefaultSelectors matches the public article page layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:       []string{"#activity-name", "h1", ".title"},
		Author:      []string{"#js_name", ".author", ".profile_nickname"},
		PublishTime: []string{"#publish_time", ".publish_time", ".publish-date"},
		Content:     "#js_content",
	}
}

// Extractor reads article fields from a loaded page. Selectors are
// compiled once; an Extractor is safe for concurrent use.
type Extractor struct {
	title       []cascadia.Selector
	author      []cascadia.Selector
	publishTime []cascadia.Selector
	content     cascadia.Selector
	marker      string
	docTitle    cascadia.Selector

	now func() time.Time
}

// NewExtractor compiles sel. An invalid selector is an error.
func NewExtractor(sel Selectors) (*Extractor, error) {
	var err error
	e := &Extractor{marker: sel.Content, now: time.Now}

	if e.title, err = compileChain("title", sel.Title); err != nil {
		return nil, err
	}
	if e.author, err = compileChain("author", sel.Author); err != nil {
		return nil, err
	}
	if e.publishTime, err = compileChain("publishTime", sel.PublishTime); err != nil {
		return nil, err
	}
	if sel.Content == "" {
		return nil, errors.New("extractor: content selector is required")
	}
	if e.content, err = cascadia.Compile(sel.Content); err != nil {
		return nil, fmt.Errorf("extractor: content selector %q: %w", sel.Content, err)
	}
	e.docTitle = cascadia.MustCompile("title")
	return e, nil
}

func compileChain(field string, selectors []string) ([]cascadia.Selector, error) {
	chain := make([]cascadia.Selector, 0, len(selectors))
	for _, s := range selectors {
		c, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("extractor: %s selector %q: %w", field, s, err)
		}
		chain = append(chain, c)
	}
	return chain, nil
}

// ContentMarker is the selector a page must match before Extract reads it.
func (e *Extractor) ContentMarker() string {
	return e.marker
}

// Extract waits up to timeout for the content marker, then reads the
// session's current document. requestedURL is the fallback source URL
// when the session cannot report its location. The page is never mutated.
func (e *Extractor) Extract(ctx context.Context, sess engine.Session, requestedURL string, timeout time.Duration) (*models.RawArticleFields, error) {
	if err := sess.WaitForContentMarker(ctx, e.marker, timeout); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, models.NewCrawlError(models.KindExtractionTimeout,
			fmt.Sprintf("content marker %s did not appear within %s", e.marker, timeout), err)
	}

	markup, err := sess.CurrentText(ctx)
	if err != nil {
		return nil, err
	}

	source := sess.CurrentURL(ctx)
	if source == "" {
		source = requestedURL
	}
	return e.ExtractMarkup(markup, source)
}

// ExtractMarkup applies the selector chains to a full HTML document.
func (e *Extractor) ExtractMarkup(markup, sourceURL string) (*models.RawArticleFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("extractor: parse document: %w", err)
	}

	content := doc.FindMatcher(e.content).First()
	if content.Length() == 0 {
		return nil, models.NewCrawlError(models.KindExtractionTimeout,
			fmt.Sprintf("content node %s not found", e.marker), nil)
	}
	contentHTML, err := content.Html()
	if err != nil {
		return nil, fmt.Errorf("extractor: render content: %w", err)
	}

	now := e.now()
	title := firstText(doc, e.title)
	if title == "" {
		title = strings.TrimSpace(doc.FindMatcher(e.docTitle).First().Text())
	}
	author := firstText(doc, e.author)
	if author == "" {
		author = UnknownAuthor
	}
	publishTime := firstText(doc, e.publishTime)
	if publishTime == "" {
		publishTime = now.Format(time.RFC3339)
	}

	return &models.RawArticleFields{
		Title:            title,
		Author:           author,
		PublishTime:      publishTime,
		RawContentMarkup: contentHTML,
		RawTextContent:   strings.TrimSpace(content.Text()),
		Images:           contentImages(content),
		SourceURL:        sourceURL,
		ExtractedAt:      now,
	}, nil
}

// firstText returns the trimmed text of the first selector in chain that
// matches a node with non-empty text.
func firstText(doc *goquery.Document, chain []cascadia.Selector) string {
	for _, sel := range chain {
		if text := strings.TrimSpace(doc.FindMatcher(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// contentImages lists image URLs under the content node in document order.
// data-src (lazy loading) wins over src. Duplicates are kept.
func contentImages(content *goquery.Selection) []string {
	images := []string{}
	content.Find("img").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
			images = append(images, src)
			return
		}
		if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
			images = append(images, src)
		}
	})
	return images
}
