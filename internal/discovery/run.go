package discovery

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// excludeTerms drop registry search hits that are tributes, covers and
// compilations rather than real artists.
var excludeTerms = []string{"tribute", "cover", "best of", "karaoke"}

// run holds the state of one build.
type run struct {
	b       *Builder
	ctx     context.Context
	statsOn bool
	owned   map[string]struct{}

	// registryTags memoizes registry tag lookups so a seed sampled by both
	// passes costs one registry call.
	registryTags map[string]*provider.ArtistTags
}

type profile struct {
	tags   []string
	genres []string
	ok     bool
}

// profile aggregates tag and genre counts over the sample. ok is false only
// when every artist's lookup failed.
func (r *run) profile(sample []provider.OwnedArtist) profile {
	tags, genres := newHistogram(), newHistogram()
	succeeded := 0
	for _, a := range sample {
		if r.ctx.Err() != nil {
			break
		}
		if r.collectTags(a, tags, genres) {
			succeeded++
		}
	}
	return profile{
		tags:   tags.top(MaxTopTags),
		genres: genres.top(MaxTopGenres),
		ok:     len(sample) == 0 || succeeded > 0,
	}
}

func (r *run) collectTags(a provider.OwnedArtist, tags, genres *histogram) bool {
	if r.statsOn {
		top, err := r.b.sources.TopTags(r.ctx, a.ID)
		if err == nil && len(top) > 0 {
			for _, t := range top[:min(len(top), tagsPerArtist)] {
				tags.add(t.Name, weight(t.Count))
				if IsGenre(t.Name) {
					genres.add(t.Name, 1)
				}
			}
			return true
		}
		if err != nil {
			r.b.logger.Debug("listening-stats tags unavailable, trying registry",
				slog.String("artist", a.Name), slog.Any("error", err))
		}
	}

	at, err := r.artistTags(a.ID)
	if err != nil {
		r.b.logger.Warn("skipping artist in tag sample",
			slog.String("artist", a.Name), slog.Any("error", err))
		return false
	}
	for _, t := range at.Tags {
		tags.add(t.Name, weight(t.Count))
		if IsGenre(t.Name) {
			genres.add(t.Name, 1)
		}
	}
	for _, g := range at.Genres {
		genres.add(g.Name, weight(g.Count))
	}
	return true
}

func (r *run) artistTags(mbid string) (*provider.ArtistTags, error) {
	if at, ok := r.registryTags[mbid]; ok {
		return at, nil
	}
	at, err := r.b.sources.ArtistTags(r.ctx, mbid)
	if err != nil {
		return nil, err
	}
	r.registryTags[mbid] = at
	return at, nil
}

// trending returns the global chart without owned artists.
func (r *run) trending() ([]store.Recommendation, bool) {
	chart, err := r.b.sources.TopArtistsChart(r.ctx, chartSize)
	if err != nil {
		r.b.logger.Warn("trending chart unavailable, keeping previous list", slog.Any("error", err))
		return nil, false
	}
	out := make([]store.Recommendation, 0, MaxTrending)
	for _, c := range chart {
		if len(out) == MaxTrending {
			break
		}
		if c.ID == "" || r.isOwned(c.ID) {
			continue
		}
		out = append(out, store.Recommendation{
			ID:    c.ID,
			Name:  c.Name,
			Type:  "Artist",
			Image: provider.PreferredImage(c.Images, "extralarge", "large"),
		})
	}
	return out, true
}

// candidates collects recommendations keyed by id. The first sighting of
// an id wins.
type candidates struct {
	order []store.Recommendation
	seen  map[string]struct{}
}

func (c *candidates) add(rec store.Recommendation) {
	if _, ok := c.seen[rec.ID]; ok {
		return
	}
	c.seen[rec.ID] = struct{}{}
	c.order = append(c.order, rec)
}

func (c *candidates) has(id string) bool {
	_, ok := c.seen[id]
	return ok
}

// ranked returns candidates by descending score, ties in discovery order.
func (c *candidates) ranked() []store.Recommendation {
	out := slices.Clone(c.order)
	slices.SortStableFunc(out, func(a, b store.Recommendation) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	if out == nil {
		out = []store.Recommendation{}
	}
	return out
}

// recommend gathers candidates from each seed. ok is false only when every
// seed failed.
func (r *run) recommend(seeds []provider.OwnedArtist) ([]store.Recommendation, bool) {
	c := &candidates{seen: make(map[string]struct{})}
	succeeded := 0
	for _, seed := range seeds {
		if r.ctx.Err() != nil {
			break
		}
		var ok bool
		if r.statsOn {
			ok = r.similarFromStats(seed, c)
		} else {
			ok = r.similarFromRegistry(seed, c)
		}
		if ok {
			succeeded++
		}
	}
	return c.ranked(), len(seeds) == 0 || succeeded > 0
}

func (r *run) similarFromStats(seed provider.OwnedArtist, c *candidates) bool {
	var sourceTags []string
	if top, err := r.b.sources.TopTags(r.ctx, seed.ID); err == nil {
		for _, t := range top[:min(len(top), tagsPerArtist)] {
			sourceTags = append(sourceTags, t.Name)
		}
	}

	similar, err := r.b.sources.SimilarArtists(r.ctx, seed.ID, similarPerSeed)
	if err != nil {
		r.b.logger.Warn("skipping seed: similar artists unavailable",
			slog.String("artist", seed.Name), slog.Any("error", err))
		return false
	}
	for _, s := range similar {
		if s.ID == "" || r.isOwned(s.ID) || c.has(s.ID) {
			continue
		}
		c.add(store.Recommendation{
			ID:           s.ID,
			Name:         s.Name,
			Type:         "Artist",
			SourceArtist: seed.Name,
			Tags:         sourceTags,
			Score:        matchScore(s.Match),
			Image:        provider.PreferredImage(s.Images, "extralarge", "large"),
		})
	}
	return true
}

func (r *run) similarFromRegistry(seed provider.OwnedArtist, c *candidates) bool {
	at, err := r.artistTags(seed.ID)
	if err != nil {
		r.b.logger.Warn("skipping seed: registry tags unavailable",
			slog.String("artist", seed.Name), slog.Any("error", err))
		return false
	}
	tags := topTagNames(at.Tags, seedTagLimit)
	if len(tags) == 0 {
		return true
	}

	hits, err := r.b.sources.SearchArtists(r.ctx, tagQuery(tags[:min(len(tags), 3)], "AND"), searchLimit, 0)
	if err != nil {
		r.b.logger.Warn("skipping seed: registry search failed",
			slog.String("artist", seed.Name), slog.Any("error", err))
		return false
	}
	if len(hits) < minSearchHits {
		broader, err := r.b.sources.SearchArtists(r.ctx, tagQuery(tags[:min(len(tags), 2)], "OR"), searchLimit, 0)
		if err == nil {
			hits = append(hits, broader...)
		}
	}

	for _, h := range hits {
		if h.ID == seed.ID || r.isOwned(h.ID) || c.has(h.ID) {
			continue
		}
		if h.Type != "Group" && h.Type != "Person" {
			continue
		}
		if excluded(h.Name) || excluded(h.Disambiguation) {
			continue
		}
		score := h.Score
		if score == 0 {
			score = 100
		}
		c.add(store.Recommendation{
			ID:             h.ID,
			Name:           h.Name,
			SortName:       h.SortName,
			Type:           h.Type,
			RelationType:   "Similar Style",
			SourceArtist:   seed.Name,
			Disambiguation: h.Disambiguation,
			Tags:           tags,
			Score:          clampScore(score),
		})
	}
	return true
}

func (r *run) isOwned(id string) bool {
	_, ok := r.owned[id]
	return ok
}

// topTagNames returns up to n tag names by descending count.
func topTagNames(tags []provider.Tag, n int) []string {
	sorted := slices.Clone(tags)
	slices.SortStableFunc(sorted, func(a, b provider.Tag) int {
		return cmp.Compare(b.Count, a.Count)
	})
	out := make([]string, 0, min(len(sorted), n))
	for _, t := range sorted[:min(len(sorted), n)] {
		out = append(out, t.Name)
	}
	return out
}

// tagQuery builds a registry artist query joining tag clauses with op and
// restricting to groups, e.g. tag:"rock" AND tag:"indie" AND type:Group.
func tagQuery(tags []string, op string) string {
	clauses := make([]string, 0, len(tags))
	for _, t := range tags {
		clauses = append(clauses, "tag:"+quote(t))
	}
	return strings.Join(clauses, " "+op+" ") + " AND type:Group"
}

var luceneQuote = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string {
	return `"` + luceneQuote.Replace(s) + `"`
}

func excluded(s string) bool {
	l := strings.ToLower(s)
	for _, t := range excludeTerms {
		if strings.Contains(l, t) {
			return true
		}
	}
	return false
}

// weight treats a missing or zero count as one vote.
func weight(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// matchScore converts a [0,1] similarity to a 0-100 score.
func matchScore(match float64) int {
	return clampScore(int(math.Round(match * 100)))
}

func clampScore(n int) int {
	return max(0, min(100, n))
}
