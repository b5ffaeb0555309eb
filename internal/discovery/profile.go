package discovery

import (
	"slices"
	"strings"
)

// genreKeywords marks a tag as a genre when its lowercased name contains any
// of them.
var genreKeywords = []string{
	"rock", "pop", "electronic", "metal", "jazz", "hip-hop", "indie",
	"alternative", "punk", "soul", "r&b", "folk", "classical", "blues",
	"country", "reggae", "disco", "funk",
}

// IsGenre reports whether a tag name matches the genre vocabulary.
func IsGenre(tag string) bool {
	l := strings.ToLower(tag)
	for _, k := range genreKeywords {
		if strings.Contains(l, k) {
			return true
		}
	}
	return false
}

// histogram accumulates weighted counts and remembers first-seen order so
// ranking ties are stable.
type histogram struct {
	order  []string
	counts map[string]int
}

func newHistogram() *histogram {
	return &histogram{counts: make(map[string]int)}
}

func (h *histogram) add(name string, n int) {
	if name == "" {
		return
	}
	if _, ok := h.counts[name]; !ok {
		h.order = append(h.order, name)
	}
	h.counts[name] += n
}

// top returns up to n names by descending count.
func (h *histogram) top(n int) []string {
	names := slices.Clone(h.order)
	slices.SortStableFunc(names, func(a, b string) int {
		return h.counts[b] - h.counts[a]
	})
	if len(names) > n {
		names = names[:n]
	}
	if names == nil {
		names = []string{}
	}
	return names
}
