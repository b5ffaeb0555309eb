// Package metrics defines the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider gateway
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aurral_provider_requests_total",
			Help: "Total provider calls made through the gateway",
		},
		[]string{"provider", "operation", "outcome"}, // outcome: ok, not_configured, not_found, rate_limited, unavailable, bad_response, breaker_open
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aurral_provider_request_duration_seconds",
			Help:    "Provider call duration in seconds, including rate-limit waits",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"provider", "operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aurral_circuit_breaker_state",
			Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
		},
		[]string{"provider"},
	)

	// Roster cache
	RosterFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aurral_roster_fetches_total",
			Help: "Roster cache lookups by result",
		},
		[]string{"result"}, // hit, fetched, error
	)

	RosterSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aurral_roster_artists",
			Help: "Number of artists in the current roster snapshot",
		},
	)

	// Image resolution
	ImageResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aurral_image_resolutions_total",
			Help: "Image resolutions by source of the answer",
		},
		[]string{"source"}, // cache, negative, shared, lastfm, coverart, not_found
	)

	// Recommendation builder
	DiscoveryBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aurral_discovery_builds_total",
			Help: "Recommendation builds by outcome",
		},
		[]string{"outcome"}, // success, skipped, failed, already_running
	)

	DiscoveryBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "aurral_discovery_build_duration_seconds",
			Help:    "Duration of recommendation builds in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	DiscoveryLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aurral_discovery_last_success_timestamp",
			Help: "Unix timestamp of the last successful recommendation build",
		},
	)

	DiscoveryRecommendations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "aurral_discovery_recommendations",
			Help: "Number of recommendations produced by the last build",
		},
	)
)

// HTTP surface
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "aurral_http_requests_total",
		Help: "HTTP requests served, by route pattern and status class",
	},
	[]string{"route", "status"},
)
