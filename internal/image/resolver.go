// Package image resolves and caches one cover image URL per artist.
//
// Lookups short-circuit in order: the persistent cache (where the
// store.ImageNotFound sentinel means "no image"), the in-memory negative
// cache (emptied at the start of every discovery build), an in-flight
// lookup for the same id, and finally the provider waterfall:
// listening-stats artist images, then registry release-group cover art.
package image

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sydlexius/aurral/internal/metrics"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// DefaultMaxCoverLookups caps cover-art lookups per resolution.
const DefaultMaxCoverLookups = 12

// Source is the subset of the provider gateway the resolver needs.
type Source interface {
	StatsConfigured() bool
	ArtistInfo(ctx context.Context, mbid string) (*provider.ArtistInfo, error)
	ReleaseGroups(ctx context.Context, mbid string) ([]provider.ReleaseGroup, error)
	ReleaseGroupCover(ctx context.Context, releaseGroupID string) (string, error)
}

// Cache is the persistent image cache.
type Cache interface {
	Image(id string) (string, bool)
	SetImage(ctx context.Context, id, url string) error
}

// Resolver resolves artist images with at most one lookup in flight per id.
type Resolver struct {
	source     Source
	cache      Cache
	maxLookups int
	logger     *slog.Logger

	pending singleflight.Group

	negMu    sync.RWMutex
	negative map[string]struct{}
}

// New creates a Resolver.
func New(source Source, cache Cache, logger *slog.Logger) *Resolver {
	return &Resolver{
		source:     source,
		cache:      cache,
		maxLookups: DefaultMaxCoverLookups,
		logger:     logger.With(slog.String("component", "image")),
		negative:   make(map[string]struct{}),
	}
}

// Resolve returns the cover URL for an artist, or "" when none exists.
// Callers asking for the same id concurrently share one lookup. A caller
// whose context ends stops waiting; the shared lookup still completes for
// the others.
func (r *Resolver) Resolve(ctx context.Context, mbid string) (string, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return "", err
	}

	if url, ok := r.cache.Image(mbid); ok {
		metrics.ImageResolutionsTotal.WithLabelValues("cache").Inc()
		if url == store.ImageNotFound {
			return "", nil
		}
		return url, nil
	}

	if r.isNegative(mbid) {
		metrics.ImageResolutionsTotal.WithLabelValues("negative").Inc()
		return "", nil
	}

	ch := r.pending.DoChan(mbid, func() (any, error) {
		return r.lookup(context.WithoutCancel(ctx), mbid), nil
	})
	select {
	case res := <-ch:
		if res.Shared {
			metrics.ImageResolutionsTotal.WithLabelValues("shared").Inc()
		}
		url, _ := res.Val.(string)
		return url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ExpireNegatives forgets every in-memory negative result. Persisted
// "no image" sentinels are kept.
func (r *Resolver) ExpireNegatives() {
	r.negMu.Lock()
	r.negative = make(map[string]struct{})
	r.negMu.Unlock()
}

func (r *Resolver) isNegative(id string) bool {
	r.negMu.RLock()
	defer r.negMu.RUnlock()
	_, ok := r.negative[id]
	return ok
}

func (r *Resolver) markNegative(id string) {
	r.negMu.Lock()
	r.negative[id] = struct{}{}
	r.negMu.Unlock()
}

// lookup runs the provider waterfall and records the outcome.
func (r *Resolver) lookup(ctx context.Context, mbid string) string {
	// A flight that finished just before this one started may have filled
	// the cache already.
	if url, ok := r.cache.Image(mbid); ok {
		if url == store.ImageNotFound {
			return ""
		}
		return url
	}

	transient := false

	if r.source.StatsConfigured() {
		url, err := r.fromStats(ctx, mbid)
		if url != "" {
			r.persist(ctx, mbid, url)
			metrics.ImageResolutionsTotal.WithLabelValues("lastfm").Inc()
			return url
		}
		transient = transient || isTransient(err)
	}

	url, err := r.fromCoverArt(ctx, mbid)
	if url != "" {
		r.persist(ctx, mbid, url)
		metrics.ImageResolutionsTotal.WithLabelValues("coverart").Inc()
		return url
	}
	transient = transient || isTransient(err)

	metrics.ImageResolutionsTotal.WithLabelValues("not_found").Inc()
	r.markNegative(mbid)
	if transient {
		// Keep it out of the persistent cache so a later run can retry.
		r.logger.Debug("image lookup incomplete", slog.String("mbid", mbid))
		return ""
	}
	r.persist(ctx, mbid, store.ImageNotFound)
	return ""
}

func (r *Resolver) fromStats(ctx context.Context, mbid string) (string, error) {
	info, err := r.source.ArtistInfo(ctx, mbid)
	if err != nil {
		return "", err
	}
	return provider.LargestImage(info.Images), nil
}

// fromCoverArt tries cover art for the artist's release groups, albums
// first and newest first, stopping at the first hit.
func (r *Resolver) fromCoverArt(ctx context.Context, mbid string) (string, error) {
	groups, err := r.source.ReleaseGroups(ctx, mbid)
	if err != nil {
		return "", err
	}
	groups = SortReleaseGroups(groups)

	// Only transient lookup failures are reported; a miss is not an error.
	var lastErr error
	for i, rg := range groups {
		if i >= r.maxLookups || ctx.Err() != nil {
			break
		}
		url, err := r.source.ReleaseGroupCover(ctx, rg.ID)
		if err != nil {
			if lastErr == nil && isTransient(err) {
				lastErr = err
			}
			continue
		}
		if url != "" {
			return url, nil
		}
	}
	return "", lastErr
}

func (r *Resolver) persist(ctx context.Context, mbid, url string) {
	if err := r.cache.SetImage(ctx, mbid, url); err != nil {
		r.logger.Warn("persisting image", slog.String("mbid", mbid), slog.Any("error", err))
	}
}

// SortReleaseGroups orders release groups with albums first, then by first
// release date descending. Ties keep their original order.
func SortReleaseGroups(groups []provider.ReleaseGroup) []provider.ReleaseGroup {
	out := slices.Clone(groups)
	slices.SortStableFunc(out, func(a, b provider.ReleaseGroup) int {
		aAlbum, bAlbum := a.PrimaryType == "Album", b.PrimaryType == "Album"
		if aAlbum != bAlbum {
			if aAlbum {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.FirstReleaseDate, a.FirstReleaseDate)
	})
	return out
}

func isTransient(err error) bool {
	return err != nil && (provider.IsRetryable(err) || errors.Is(err, context.DeadlineExceeded))
}
