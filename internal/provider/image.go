package provider

import (
	"strings"
)

// PlaceholderFingerprint identifies the Last.fm "no image" star placeholder.
const PlaceholderFingerprint = "2a96cbd8b46e442fc41c2b86b821562f"

// Image is one size variant of an artist image as reported by a provider.
type Image struct {
	URL  string `json:"url"`
	Size string `json:"size,omitempty"`
}

var sizeRank = map[string]int{
	"mega":       4,
	"extralarge": 3,
	"large":      2,
	"medium":     1,
	"small":      0,
}

// IsPlaceholder reports whether url is empty or points at a known placeholder.
func IsPlaceholder(url string) bool {
	return url == "" || strings.Contains(url, PlaceholderFingerprint)
}

// LargestImage returns the URL of the biggest non-placeholder image, ranking
// sizes mega > extralarge > large > medium > small. Unknown sizes rank with
// small. Returns "" when nothing usable remains.
func LargestImage(images []Image) string {
	best := ""
	bestRank := -1
	for _, img := range images {
		if IsPlaceholder(img.URL) {
			continue
		}
		r := sizeRank[img.Size]
		if r > bestRank {
			best, bestRank = img.URL, r
		}
	}
	return best
}

// PreferredImage returns the first non-placeholder image among the given
// sizes, tried in order (e.g. "extralarge", "large").
func PreferredImage(images []Image, sizes ...string) string {
	for _, size := range sizes {
		for _, img := range images {
			if img.Size != size {
				continue
			}
			if IsPlaceholder(img.URL) {
				return ""
			}
			return img.URL
		}
	}
	return ""
}
