package cleaner

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSummaryLength is the rune budget of a summary before the ellipsis.
const DefaultSummaryLength = 200

const ellipsis = "..."

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n`)
	imgSrcRe     = regexp.MustCompile(`<img[^>]+src="([^"]+)"`)
)

// CleanText collapses whitespace runs to one space, collapses blank-line
// runs to one newline and trims. CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

// Summary cleans text and cuts it to max runes plus an ellipsis when it
// is longer. CJK text is measured in characters, not bytes.
func Summary(text string, max int) string {
	cleaned := CleanText(text)
	if max <= 0 || utf8.RuneCountInString(cleaned) <= max {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:max]) + ellipsis
}

// ImagesFromMarkup scans markup for <img ... src="..."> and returns one
// URL per tag in document order.
func ImagesFromMarkup(markup string) []string {
	matches := imgSrcRe.FindAllStringSubmatch(markup, -1)
	images := make([]string, 0, len(matches))
	for _, m := range matches {
		images = append(images, m[1])
	}
	return images
}
