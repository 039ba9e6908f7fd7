package cleaner

import (
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// MarkdownRenderer converts article content markup to Markdown. The
// underlying converter is goroutine-safe, so one renderer serves all exports.
type MarkdownRenderer struct {
	conv *converter.Converter
}

// NewMarkdownRenderer configures the converter:
//
//   - base plugin: strips script, style, iframe, noscript, head, meta, link,
//     input, textarea and HTML comments.
//   - commonmark plugin: headings, lists, links, code blocks, emphasis.
//   - table plugin: keeps tables, with minimal cell padding.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Render strips page chrome from contentHTML, promotes lazy image sources
// and converts the rest. domain resolves relative links and images.
func (r *MarkdownRenderer) Render(contentHTML, domain string) (string, error) {
	prepared := PrepareForExport(contentHTML, DefaultNoiseSelectors...)
	return r.conv.ConvertString(prepared, converter.WithDomain(domain))
}
