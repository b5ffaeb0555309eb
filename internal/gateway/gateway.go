// Package gateway is the single entry point to the three upstream services:
// the library manager (Lidarr), the metadata registry (MusicBrainz plus the
// Cover Art Archive) and the optional listening-stats service (Last.fm).
//
// Every call is wrapped with a per-provider circuit breaker, Prometheus
// instrumentation and one log line on failure carrying the provider and
// operation. The gateway never retries; rate-limit errors are returned to the
// caller, which decides whether to try again later.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/metrics"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/provider/coverart"
	"github.com/sydlexius/aurral/internal/provider/lastfm"
	"github.com/sydlexius/aurral/internal/provider/musicbrainz"
)

// BreakerConfig configures the per-provider circuit breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold uint32
	// Timeout is the duration in open state before transitioning to half-open.
	Timeout time.Duration
	// MaxRequests is the number of requests allowed in half-open state.
	MaxRequests uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// Clients bundles the provider adapters the gateway fronts.
type Clients struct {
	Lidarr      *lidarr.Client
	MusicBrainz *musicbrainz.Adapter
	CoverArt    *coverart.Adapter
	LastFM      *lastfm.Adapter
}

// Gateway is the typed facade over all providers.
type Gateway struct {
	lidarr   *lidarr.Client
	mb       *musicbrainz.Adapter
	caa      *coverart.Adapter
	lastfm   *lastfm.Adapter
	breakers map[provider.ProviderName]*gobreaker.CircuitBreaker[any]
	logger   *slog.Logger
}

// New creates a Gateway.
func New(clients Clients, cfg BreakerConfig, logger *slog.Logger) *Gateway {
	g := &Gateway{
		lidarr:   clients.Lidarr,
		mb:       clients.MusicBrainz,
		caa:      clients.CoverArt,
		lastfm:   clients.LastFM,
		breakers: make(map[provider.ProviderName]*gobreaker.CircuitBreaker[any]),
		logger:   logger.With(slog.String("component", "gateway")),
	}
	for _, name := range provider.AllProviderNames() {
		g.breakers[name] = g.newBreaker(name, cfg)
	}
	return g
}

func (g *Gateway) newBreaker(name provider.ProviderName, cfg BreakerConfig) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(string(name)).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        string(name),
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return provider.IsExpected(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(string(name)).Set(float64(to))
			g.logger.Warn("circuit breaker state changed",
				slog.String("provider", string(name)),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// call runs fn through the provider's breaker, records metrics and logs any
// unexpected failure with provider and operation context.
func call[T any](ctx context.Context, g *Gateway, name provider.ProviderName, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	res, err := g.breakers[name].Execute(func() (any, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &provider.ErrProviderUnavailable{Provider: name, Cause: err}
	}

	metrics.ProviderRequestDuration.WithLabelValues(string(name), op).Observe(time.Since(start).Seconds())
	metrics.ProviderRequestsTotal.WithLabelValues(string(name), op, outcome(err)).Inc()

	if err != nil {
		g.logFailure(name, op, err)
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func (g *Gateway) logFailure(name provider.ProviderName, op string, err error) {
	attrs := []any{
		slog.String("provider", string(name)),
		slog.String("operation", op),
		slog.Any("error", err),
	}
	switch {
	case provider.IsExpected(err):
		g.logger.Debug("provider call skipped", attrs...)
	case provider.IsMisconfigured(err):
		g.logger.Error("provider misconfigured", append(attrs, slog.String("hint", err.Error()))...)
	default:
		g.logger.Warn("provider call failed", attrs...)
	}
}

func outcome(err error) string {
	var (
		rl *provider.ErrRateLimited
		br *provider.ErrBadResponse
		un *provider.ErrProviderUnavailable
	)
	switch {
	case err == nil:
		return "ok"
	case provider.IsNotConfigured(err):
		return "not_configured"
	case provider.IsNotFound(err):
		return "not_found"
	case provider.IsInvalidID(err):
		return "invalid_id"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &br):
		return "bad_response"
	case errors.As(err, &un):
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "breaker_open"
		}
		return "unavailable"
	default:
		return "error"
	}
}
