package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limit describes the request budget of one provider: at most one request per
// Interval, with at most MaxConcurrent requests outstanding (0 = unbounded).
type Limit struct {
	Interval      time.Duration
	MaxConcurrent int
}

// DefaultLimits returns the budgets applied when no override is configured.
// MusicBrainz gets a single global slot spaced 1.1s apart.
func DefaultLimits() map[ProviderName]Limit {
	return map[ProviderName]Limit{
		NameMusicBrainz: {Interval: 1100 * time.Millisecond, MaxConcurrent: 1},
		NameLastFM:      {Interval: 200 * time.Millisecond},
	}
}

type limiterEntry struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// RateLimiterMap holds one limiter per provider, created once at startup and
// shared by every component that talks to that provider.
type RateLimiterMap struct {
	mu       sync.RWMutex
	limiters map[ProviderName]*limiterEntry
}

// NewRateLimiterMap creates limiters with the default budgets.
func NewRateLimiterMap() *RateLimiterMap {
	return NewRateLimiterMapWith(DefaultLimits())
}

// NewRateLimiterMapWith creates limiters from explicit budgets.
func NewRateLimiterMapWith(limits map[ProviderName]Limit) *RateLimiterMap {
	m := &RateLimiterMap{
		limiters: make(map[ProviderName]*limiterEntry, len(limits)),
	}
	for name, l := range limits {
		m.Set(name, l)
	}
	return m
}

// Set replaces the budget for a provider.
func (m *RateLimiterMap) Set(name ProviderName, l Limit) {
	e := &limiterEntry{limiter: rate.NewLimiter(rate.Every(l.Interval), 1)}
	if l.Interval <= 0 {
		e.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if l.MaxConcurrent > 0 {
		e.slots = make(chan struct{}, l.MaxConcurrent)
	}
	m.mu.Lock()
	m.limiters[name] = e
	m.mu.Unlock()
}

// Acquire blocks until the provider has a free concurrency slot and the
// interval since the previous request has elapsed, or ctx is canceled. The
// returned release func must be called once the request has completed.
func (m *RateLimiterMap) Acquire(ctx context.Context, name ProviderName) (func(), error) {
	m.mu.RLock()
	e, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return func() {}, nil
	}

	release := func() {}
	if e.slots != nil {
		select {
		case e.slots <- struct{}{}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		var once sync.Once
		release = func() { once.Do(func() { <-e.slots }) }
	}

	if err := e.limiter.Wait(ctx); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// Wait blocks until the rate limiter for the given provider allows a request,
// ignoring the concurrency cap.
func (m *RateLimiterMap) Wait(ctx context.Context, name ProviderName) error {
	m.mu.RLock()
	e, ok := m.limiters[name]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return e.limiter.Wait(ctx)
}
