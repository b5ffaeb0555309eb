// Package roster caches the owned-artist list reported by the library
// manager.
package roster

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sydlexius/aurral/internal/metrics"
	"github.com/sydlexius/aurral/internal/provider"
)

// DefaultTTL is how long a fetched roster is served without refetching.
const DefaultTTL = 5 * time.Minute

// Source lists every artist in the library.
type Source interface {
	ListArtists(ctx context.Context) ([]provider.OwnedArtist, error)
}

type snapshot struct {
	artists   []provider.OwnedArtist
	ids       map[string]int
	fetchedAt time.Time
}

// Cache is a TTL-bounded roster snapshot. Readers never block on each other;
// concurrent refreshes are collapsed into one fetch.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	current atomic.Pointer[snapshot]
	fetchMu sync.Mutex
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a roster cache over source.
func New(source Source, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger.With(slog.String("component", "roster")),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the owned artists, fetching when forced, when nothing has been
// fetched yet or when the snapshot is older than the TTL. A failed fetch
// leaves the previous snapshot and its timestamp untouched so the next call
// retries immediately.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) ([]provider.OwnedArtist, error) {
	if s := c.current.Load(); !forceRefresh && c.fresh(s) {
		metrics.RosterFetchesTotal.WithLabelValues("hit").Inc()
		return s.artists, nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// Another caller may have refreshed while we waited.
	if s := c.current.Load(); !forceRefresh && c.fresh(s) {
		metrics.RosterFetchesTotal.WithLabelValues("hit").Inc()
		return s.artists, nil
	}

	artists, err := c.source.ListArtists(ctx)
	if err != nil {
		metrics.RosterFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s := &snapshot{
		artists:   artists,
		ids:       make(map[string]int, len(artists)),
		fetchedAt: c.now(),
	}
	for i, a := range artists {
		s.ids[a.ID] = i
	}
	c.current.Store(s)

	metrics.RosterFetchesTotal.WithLabelValues("fetched").Inc()
	metrics.RosterSize.Set(float64(len(artists)))
	c.logger.Debug("roster refreshed", slog.Int("artists", len(artists)))
	return artists, nil
}

func (c *Cache) fresh(s *snapshot) bool {
	return s != nil && len(s.artists) > 0 && c.now().Sub(s.fetchedAt) <= c.ttl
}

// Invalidate forces the next Get to fetch.
func (c *Cache) Invalidate() {
	if s := c.current.Load(); s != nil {
		c.current.Store(&snapshot{artists: s.artists, ids: s.ids})
	}
}

// Recent returns up to n artists ordered by date added, newest first.
func (c *Cache) Recent(ctx context.Context, n int) ([]provider.OwnedArtist, error) {
	artists, err := c.Get(ctx, false)
	if err != nil {
		return nil, err
	}
	sorted := slices.Clone(artists)
	slices.SortStableFunc(sorted, func(a, b provider.OwnedArtist) int {
		return b.Added.Compare(a.Added)
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

// Ownership describes whether an id is in the library.
type Ownership struct {
	Owned     bool `json:"owned"`
	LibraryID int  `json:"library_id,omitempty"`
}

// Lookup reports ownership for each id against the cached roster.
func (c *Cache) Lookup(ctx context.Context, ids []string) (map[string]Ownership, error) {
	if _, err := c.Get(ctx, false); err != nil {
		return nil, err
	}
	s := c.current.Load()
	out := make(map[string]Ownership, len(ids))
	for _, id := range ids {
		if i, ok := s.ids[id]; ok {
			out[id] = Ownership{Owned: true, LibraryID: s.artists[i].LibraryID}
		} else {
			out[id] = Ownership{}
		}
	}
	return out, nil
}
