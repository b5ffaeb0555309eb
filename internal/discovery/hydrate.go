package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/sydlexius/aurral/internal/store"
)

// hydrate resolves images for trending entries, then recommendations, that
// came back without one. Lookups are paced by hydrateDelay and each hit is
// written back to the discovery document. Failures are skipped.
func (b *Builder) hydrate(ctx context.Context, disc store.Discovery) {
	var ids []string
	seen := make(map[string]struct{})
	for _, list := range [][]store.Recommendation{disc.Trending, disc.Recommendations} {
		for _, rec := range list {
			if rec.Image != "" {
				continue
			}
			if _, ok := seen[rec.ID]; ok {
				continue
			}
			seen[rec.ID] = struct{}{}
			ids = append(ids, rec.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	b.logger.Info("hydrating images", slog.Int("artists", len(ids)))

	resolved := 0
	for i, id := range ids {
		if i > 0 && !sleep(ctx, b.hydrateDelay) {
			break
		}
		url, err := b.images.Resolve(ctx, id)
		if err != nil || url == "" {
			continue
		}
		if err := b.setImage(ctx, id, url); err != nil {
			b.logger.Warn("saving hydrated image", slog.String("mbid", id), slog.Any("error", err))
			continue
		}
		resolved++
	}
	b.logger.Info("image hydration finished",
		slog.Int("resolved", resolved),
		slog.Int("attempted", len(ids)))
}

func (b *Builder) setImage(ctx context.Context, id, url string) error {
	return b.store.Update(ctx, func(d *store.Document) error {
		for _, list := range [][]store.Recommendation{d.Discovery.Trending, d.Discovery.Recommendations} {
			for i := range list {
				if list[i].ID == id && list[i].Image == "" {
					list[i].Image = url
				}
			}
		}
		return nil
	})
}

// sleep waits for d or until ctx ends. It reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
