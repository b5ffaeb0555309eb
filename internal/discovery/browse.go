package discovery

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// DefaultBrowseLimit is used when a browse query has no positive limit.
const DefaultBrowseLimit = 20

// ErrEmptyTag is returned by ByTag for a blank tag.
var ErrEmptyTag = errors.New("tag is required")

// ByTag returns up to limit artists for a tag that are not in the library.
// The listening-stats tag chart is preferred; the registry tag search is
// used when it is unavailable or empty.
func (b *Builder) ByTag(ctx context.Context, tag string, limit int) ([]store.Recommendation, error) {
	if tag == "" {
		return nil, ErrEmptyTag
	}
	if limit <= 0 {
		limit = DefaultBrowseLimit
	}

	var (
		owned []provider.OwnedArtist
		found []store.Recommendation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = b.roster.Get(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		found, err = b.tagCandidates(gctx, tag, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ownedIDs := make(map[string]struct{}, len(owned))
	for _, a := range owned {
		ownedIDs[a.ID] = struct{}{}
	}
	out := make([]store.Recommendation, 0, limit)
	for _, rec := range found {
		if len(out) == limit {
			break
		}
		if _, ok := ownedIDs[rec.ID]; ok {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *Builder) tagCandidates(ctx context.Context, tag string, limit int) ([]store.Recommendation, error) {
	if b.sources.StatsConfigured() {
		top, err := b.sources.TopArtistsByTag(ctx, tag, min(limit*2, 50))
		if err != nil {
			b.logger.Warn("tag chart unavailable, falling back to registry",
				slog.String("tag", tag), slog.Any("error", err))
		}
		var out []store.Recommendation
		for _, c := range top {
			if c.ID == "" {
				continue
			}
			out = append(out, store.Recommendation{
				ID:       c.ID,
				Name:     c.Name,
				SortName: c.Name,
				Type:     "Artist",
				Tags:     []string{tag},
				Image:    tagImage(c.Images),
			})
		}
		if len(out) > 0 {
			return out, nil
		}
	}

	hits, err := b.sources.SearchArtists(ctx, tagQuery([]string{tag}, "AND"), limit, 0)
	if err != nil {
		return nil, err
	}
	out := make([]store.Recommendation, 0, len(hits))
	for _, h := range hits {
		tags := make([]string, 0, len(h.Tags))
		for _, t := range h.Tags {
			tags = append(tags, t.Name)
		}
		out = append(out, store.Recommendation{
			ID:             h.ID,
			Name:           h.Name,
			SortName:       h.SortName,
			Type:           h.Type,
			Tags:           tags,
			Disambiguation: h.Disambiguation,
		})
	}
	return out, nil
}

// tagImage prefers extralarge, then large, then the last listed size.
func tagImage(images []provider.Image) string {
	if url := provider.PreferredImage(images, "extralarge", "large"); url != "" {
		return url
	}
	for _, img := range images {
		if img.Size == "extralarge" || img.Size == "large" {
			// Present but a placeholder.
			return ""
		}
	}
	if len(images) == 0 || provider.IsPlaceholder(images[len(images)-1].URL) {
		return ""
	}
	return images[len(images)-1].URL
}

// SimilarArtist is one entry of a similar-artists lookup.
type SimilarArtist struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
	Match int    `json:"match"`
	Owned bool   `json:"owned"`
}

// Similar returns up to limit artists similar to mbid from the
// listening-stats service, marking those already in the library. It returns
// provider.ErrNotConfigured when the service has no key.
func (b *Builder) Similar(ctx context.Context, mbid string, limit int) ([]SimilarArtist, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return nil, err
	}
	if !b.sources.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	if limit <= 0 {
		limit = DefaultBrowseLimit
	}

	var (
		owned   []provider.OwnedArtist
		similar []provider.Candidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if owned, err = b.roster.Get(gctx, false); err != nil {
			// Ownership is decoration; the list is still useful without it.
			b.logger.Debug("roster unavailable for similar lookup", slog.Any("error", err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		similar, err = b.sources.SimilarArtists(gctx, mbid, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ownedIDs := make(map[string]struct{}, len(owned))
	for _, a := range owned {
		ownedIDs[a.ID] = struct{}{}
	}
	out := make([]SimilarArtist, 0, len(similar))
	for _, s := range similar {
		if s.ID == "" {
			continue
		}
		_, isOwned := ownedIDs[s.ID]
		out = append(out, SimilarArtist{
			ID:    s.ID,
			Name:  s.Name,
			Image: provider.PreferredImage(s.Images, "extralarge", "large"),
			Match: matchScore(s.Match),
			Owned: isOwned,
		})
	}
	return out, nil
}
