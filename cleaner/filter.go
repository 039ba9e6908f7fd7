package cleaner

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultNoiseSelectors match elements inside article bodies that carry
// no article text: inline scripts, styles, and the desktop QR-code box.
var DefaultNoiseSelectors = []string{
	"script",
	"style",
	"noscript",
	"#js_pc_qr_code",
	".qr_code_pc",
}

// PrepareForExport removes elements matching excludeSelectors and copies
// data-src into src on images that have one, so renderers that only read
// src still see the real image. The input is returned unchanged if it
// cannot be parsed.
func PrepareForExport(markup string, excludeSelectors ...string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	for _, selector := range excludeSelectors {
		doc.Find(selector).Remove()
	}

	doc.Find("img[data-src]").Each(func(_ int, img *goquery.Selection) {
		if src := strings.TrimSpace(img.AttrOr("data-src", "")); src != "" {
			img.SetAttr("src", src)
		}
	})

	// Parsing wraps fragments in html/body; render only the body children.
	result, err := doc.Find("body").Html()
	if err != nil {
		return markup
	}
	return result
}
