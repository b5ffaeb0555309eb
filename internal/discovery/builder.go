// Package discovery builds the recommendation and trending lists from the
// user's library and the upstream providers, and serves the tag and
// similarity browse queries.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sydlexius/aurral/internal/metrics"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// Build limits.
const (
	SampleSize         = 25
	MaxRecommendations = 100
	MaxTrending        = 32
	MaxTopTags         = 20
	MaxTopGenres       = 24

	chartSize      = 100
	similarPerSeed = 25
	tagsPerArtist  = 15
	seedTagLimit   = 10
	searchLimit    = 15
	minSearchHits  = 5

	// DefaultHydrateDelay spaces image lookups after a build.
	DefaultHydrateDelay = 450 * time.Millisecond
)

// ErrAlreadyRunning is returned by Run while another build is in progress.
var ErrAlreadyRunning = errors.New("discovery build already in progress")

// Sources is the subset of the provider gateway the builder needs.
type Sources interface {
	StatsConfigured() bool
	TopTags(ctx context.Context, mbid string) ([]provider.Tag, error)
	SimilarArtists(ctx context.Context, mbid string, limit int) ([]provider.Candidate, error)
	TopArtistsChart(ctx context.Context, limit int) ([]provider.Candidate, error)
	TopArtistsByTag(ctx context.Context, tag string, limit int) ([]provider.Candidate, error)
	ArtistTags(ctx context.Context, mbid string) (*provider.ArtistTags, error)
	SearchArtists(ctx context.Context, query string, limit, offset int) ([]provider.ArtistSearchResult, error)
}

// Roster returns the owned artists.
type Roster interface {
	Get(ctx context.Context, forceRefresh bool) ([]provider.OwnedArtist, error)
}

// Images resolves artist cover images.
type Images interface {
	Resolve(ctx context.Context, mbid string) (string, error)
	ExpireNegatives()
}

// Builder runs recommendation builds. At most one build runs at a time.
type Builder struct {
	sources Sources
	roster  Roster
	images  Images
	store   *store.Store
	logger  *slog.Logger

	hydrateDelay time.Duration
	shuffle      func(n int, swap func(i, j int))
	now          func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Builder.
type Option func(*Builder)

// WithHydrateDelay overrides DefaultHydrateDelay.
func WithHydrateDelay(d time.Duration) Option {
	return func(b *Builder) { b.hydrateDelay = d }
}

// WithShuffle overrides the random permutation used to sample the roster.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(b *Builder) { b.shuffle = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// New creates a Builder.
func New(sources Sources, roster Roster, images Images, st *store.Store, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		sources:      sources,
		roster:       roster,
		images:       images,
		store:        st,
		logger:       logger.With(slog.String("component", "discovery")),
		hydrateDelay: DefaultHydrateDelay,
		shuffle:      rand.Shuffle,
		now:          time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Running reports whether a build is in progress.
func (b *Builder) Running() bool {
	return b.running.Load()
}

// Trigger starts a build in the background. It returns false without doing
// anything when a build is already running. The build outlives ctx's
// cancellation.
func (b *Builder) Trigger(ctx context.Context) bool {
	if !b.running.CompareAndSwap(false, true) {
		metrics.DiscoveryBuildsTotal.WithLabelValues("already_running").Inc()
		b.logger.Info("discovery build already in progress")
		return false
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer b.running.Store(false)
		_ = b.build(context.WithoutCancel(ctx))
	}()
	return true
}

// Run performs a build synchronously.
func (b *Builder) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		metrics.DiscoveryBuildsTotal.WithLabelValues("already_running").Inc()
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)
	return b.build(ctx)
}

// Wait blocks until every build started by Trigger has finished.
func (b *Builder) Wait() {
	b.wg.Wait()
}

// View is the discovery document as served to clients.
type View struct {
	store.Discovery
	IsUpdating bool `json:"isUpdating"`
}

// Document returns the last successful build plus the running flag.
func (b *Builder) Document() View {
	return View{Discovery: b.store.Discovery(), IsUpdating: b.Running()}
}

// Clear drops discovery results and every cached image, persistent and
// in-memory. It does not stop a running build, which may write its results
// after the clear.
func (b *Builder) Clear(ctx context.Context) error {
	if err := b.store.ClearDiscovery(ctx); err != nil {
		return err
	}
	b.images.ExpireNegatives()
	b.logger.Info("discovery and image caches cleared")
	return nil
}

func (b *Builder) build(ctx context.Context) error {
	start := b.now()
	b.logger.Info("discovery build started")
	// Misses from an earlier build's rate-limited lookups get another try.
	b.images.ExpireNegatives()

	owned, err := b.roster.Get(ctx, true)
	if provider.IsNotConfigured(err) {
		b.logger.Info("library manager not configured, building without a roster")
		owned, err = nil, nil
	}
	if err != nil {
		metrics.DiscoveryBuildsTotal.WithLabelValues("failed").Inc()
		b.logger.Error("discovery build aborted: roster unavailable", slog.Any("error", err))
		return fmt.Errorf("refreshing roster: %w", err)
	}

	statsOn := b.sources.StatsConfigured()
	if len(owned) == 0 && !statsOn {
		metrics.DiscoveryBuildsTotal.WithLabelValues("skipped").Inc()
		b.logger.Info("no owned artists and no listening-stats key, skipping discovery")
		return nil
	}

	r := &run{
		b:            b,
		ctx:          ctx,
		statsOn:      statsOn,
		owned:        make(map[string]struct{}, len(owned)),
		registryTags: make(map[string]*provider.ArtistTags),
	}
	for _, a := range owned {
		r.owned[a.ID] = struct{}{}
	}

	profile := r.profile(b.sample(owned))
	b.logger.Info("library profile sampled",
		slog.Any("top_genres", profile.genres),
		slog.Int("tags", len(profile.tags)))

	var trending []store.Recommendation
	trendingOK := false
	if statsOn {
		trending, trendingOK = r.trending()
	}

	seeds := b.sample(owned)
	recs, recsOK := r.recommend(seeds)

	now := b.now().UTC()
	var written store.Discovery
	err = b.store.Update(ctx, func(d *store.Document) error {
		prev := d.Discovery
		next := store.Discovery{
			Recommendations: recs,
			Trending:        trending,
			BasedOn:         basis(seeds),
			TopTags:         profile.tags,
			TopGenres:       profile.genres,
			LastUpdated:     &now,
		}
		// A section whose every upstream call failed keeps its last good value.
		if !profile.ok {
			next.TopTags, next.TopGenres = prev.TopTags, prev.TopGenres
		}
		if !trendingOK {
			next.Trending = prev.Trending
		}
		if !recsOK {
			next.Recommendations, next.BasedOn = prev.Recommendations, prev.BasedOn
		}
		if next.Trending == nil {
			next.Trending = []store.Recommendation{}
		}
		d.Discovery = next
		written = next.Clone()
		return nil
	})
	if err != nil {
		metrics.DiscoveryBuildsTotal.WithLabelValues("failed").Inc()
		b.logger.Error("persisting discovery results", slog.Any("error", err))
		return fmt.Errorf("persisting discovery: %w", err)
	}

	metrics.DiscoveryBuildsTotal.WithLabelValues("success").Inc()
	metrics.DiscoveryLastSuccess.Set(float64(now.Unix()))
	metrics.DiscoveryRecommendations.Set(float64(len(written.Recommendations)))
	b.logger.Info("discovery results saved",
		slog.Int("recommendations", len(written.Recommendations)),
		slog.Int("trending", len(written.Trending)),
		slog.Int("seeds", len(seeds)))

	b.hydrate(ctx, written)

	metrics.DiscoveryBuildDuration.Observe(b.now().Sub(start).Seconds())
	b.logger.Info("discovery build finished", slog.Duration("duration", b.now().Sub(start)))
	return nil
}

// sample returns up to SampleSize owned artists in random order.
func (b *Builder) sample(owned []provider.OwnedArtist) []provider.OwnedArtist {
	out := slices.Clone(owned)
	b.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if len(out) > SampleSize {
		out = out[:SampleSize]
	}
	return out
}

func basis(seeds []provider.OwnedArtist) []store.SeedArtist {
	out := make([]store.SeedArtist, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, store.SeedArtist{ID: s.ID, Name: s.Name})
	}
	return out
}
