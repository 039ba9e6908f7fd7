package engine

import "strings"

// Detector decides whether fetched page text is a verification or
// challenge page rather than the requested content.
type Detector interface {
	IsBlocked(pageText string) bool
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(pageText string) bool

func (f DetectorFunc) IsBlocked(pageText string) bool { return f(pageText) }

// DefaultBlockMarkers are substrings served on anti-bot interstitials:
// environment-anomaly notices, human-verification prompts, and the
// too-frequent-access page.
var DefaultBlockMarkers = []string{
	"环境异常",
	"環境異常",
	"完成验证",
	"去验证",
	"驗證",
	"访问过于频繁",
	"secitptpage/verify",
}

// MarkerDetector flags text containing any of its markers.
type MarkerDetector struct {
	markers []string
}

// NewMarkerDetector builds a detector over the given markers. Empty
// markers are ignored; with none left it falls back to DefaultBlockMarkers.
func NewMarkerDetector(markers ...string) *MarkerDetector {
	kept := make([]string, 0, len(markers))
	for _, m := range markers {
		if m != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, DefaultBlockMarkers...)
	}
	return &MarkerDetector{markers: kept}
}

func (d *MarkerDetector) IsBlocked(pageText string) bool {
	for _, m := range d.markers {
		if strings.Contains(pageText, m) {
			return true
		}
	}
	return false
}

// Markers returns a copy of the configured markers.
func (d *MarkerDetector) Markers() []string {
	return append([]string(nil), d.markers...)
}

// AnyDetector is blocked when any of its detectors is.
type AnyDetector []Detector

func (a AnyDetector) IsBlocked(pageText string) bool {
	for _, d := range a {
		if d != nil && d.IsBlocked(pageText) {
			return true
		}
	}
	return false
}
