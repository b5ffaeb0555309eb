package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sydlexius/aurral/internal/api/middleware"
	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/discovery"
	"github.com/sydlexius/aurral/internal/gateway"
	"github.com/sydlexius/aurral/internal/library"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/roster"
	"github.com/sydlexius/aurral/internal/store"
)

// Providers is the part of the gateway the handlers call directly.
type Providers interface {
	Status() []gateway.ProviderStatus
	LibraryConfigured() bool
	LibraryURL() string
	LibraryStatus(ctx context.Context) (*lidarr.SystemStatus, error)
	StatsConfigured() bool
	SearchArtists(ctx context.Context, query string, limit, offset int) ([]provider.ArtistSearchResult, error)
	ArtistDetails(ctx context.Context, mbid string) (*provider.ArtistDetails, error)
}

// Roster is the owned-artist cache.
type Roster interface {
	Get(ctx context.Context, forceRefresh bool) ([]provider.OwnedArtist, error)
	Recent(ctx context.Context, n int) ([]provider.OwnedArtist, error)
	Lookup(ctx context.Context, ids []string) (map[string]roster.Ownership, error)
}

// Images resolves cover images.
type Images interface {
	Resolve(ctx context.Context, mbid string) (string, error)
}

// Discovery is the recommendation builder.
type Discovery interface {
	Document() discovery.View
	Trigger(ctx context.Context) bool
	Clear(ctx context.Context) error
	ByTag(ctx context.Context, tag string, limit int) ([]store.Recommendation, error)
	Similar(ctx context.Context, mbid string, limit int) ([]discovery.SimilarArtist, error)
}

// Library manages artists and albums in the library manager and tracks
// requests.
type Library interface {
	Add(ctx context.Context, in library.AddInput) (*lidarr.Artist, error)
	Artist(ctx context.Context, id int) (*lidarr.Artist, error)
	Remove(ctx context.Context, id int, deleteFiles bool) error
	Options(ctx context.Context) (*library.Options, error)
	Albums(ctx context.Context, artistID int) ([]lidarr.Album, error)
	SetAlbumMonitored(ctx context.Context, albumID int, monitored bool) (*lidarr.Album, error)
	SearchAlbums(ctx context.Context, albumIDs []int) (*lidarr.Command, error)
	MediaCover(ctx context.Context, artistID int, coverType string) (*lidarr.Media, error)
	Requests(ctx context.Context) ([]store.Request, error)
	DeleteRequest(ctx context.Context, id string) (bool, error)
}

// Settings reads and writes the persisted library settings.
type Settings interface {
	Settings() store.Settings
	SetSettings(ctx context.Context, s store.Settings) error
	ImageCount() int
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Providers Providers
	Roster    Roster
	Images    Images
	Discovery Discovery
	Library   Library
	Settings  Settings
	// Limiter guards the routes that fan out to upstream services. Nil
	// disables per-client limiting.
	Limiter  *middleware.ClientLimiter
	Logger   *slog.Logger
	BasePath string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	providers Providers
	roster    Roster
	images    Images
	discovery Discovery
	library   Library
	settings  Settings
	limiter   *middleware.ClientLimiter
	logger    *slog.Logger
	basePath  string
}

// NewRouter creates a new Router.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		providers: deps.Providers,
		roster:    deps.Roster,
		images:    deps.Images,
		discovery: deps.Discovery,
		library:   deps.Library,
		settings:  deps.Settings,
		limiter:   deps.Limiter,
		logger:    deps.Logger.With(slog.String("component", "api")),
		basePath:  deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.Handle("GET "+bp+"/metrics", promhttp.Handler())

	// Library
	mux.HandleFunc("GET "+bp+"/api/v1/library/artists", r.handleLibraryArtists)
	mux.HandleFunc("POST "+bp+"/api/v1/library/artists", r.limited(r.handleAddArtist))
	mux.HandleFunc("GET "+bp+"/api/v1/library/artists/{id}", r.handleLibraryArtist)
	mux.HandleFunc("DELETE "+bp+"/api/v1/library/artists/{id}", r.handleRemoveArtist)
	mux.HandleFunc("GET "+bp+"/api/v1/library/recent", r.handleRecent)
	mux.HandleFunc("POST "+bp+"/api/v1/library/lookup", r.handleLookup)
	mux.HandleFunc("GET "+bp+"/api/v1/library/lookup/{id}", r.handleLookupOne)
	mux.HandleFunc("GET "+bp+"/api/v1/library/options", r.handleLibraryOptions)
	mux.HandleFunc("GET "+bp+"/api/v1/library/albums", r.handleAlbums)
	mux.HandleFunc("PUT "+bp+"/api/v1/library/albums/{id}", r.handleUpdateAlbum)
	mux.HandleFunc("POST "+bp+"/api/v1/library/albums/search", r.limited(r.handleAlbumSearch))
	mux.HandleFunc("GET "+bp+"/api/v1/library/mediacover/{artistId}/{filename}", r.handleMediaCover)

	// Artists
	mux.HandleFunc("GET "+bp+"/api/v1/search/artists", r.limited(r.handleSearchArtists))
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}", r.limited(r.handleArtistDetails))
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}/cover", r.handleCover)
	mux.HandleFunc("GET "+bp+"/api/v1/artists/{id}/similar", r.limited(r.handleSimilar))

	// Discovery
	mux.HandleFunc("GET "+bp+"/api/v1/discover", r.handleDiscover)
	mux.HandleFunc("POST "+bp+"/api/v1/discover/refresh", r.limited(r.handleDiscoverRefresh))
	mux.HandleFunc("POST "+bp+"/api/v1/discover/clear", r.handleDiscoverClear)
	mux.HandleFunc("GET "+bp+"/api/v1/discover/by-tag", r.limited(r.handleByTag))
	mux.HandleFunc("GET "+bp+"/api/v1/discover/related", r.handleDiscoverRelated)
	mux.HandleFunc("GET "+bp+"/api/v1/discover/similar", r.handleDiscoverProfile)

	// Requests
	mux.HandleFunc("GET "+bp+"/api/v1/requests", r.handleListRequests)
	mux.HandleFunc("DELETE "+bp+"/api/v1/requests/{id}", r.handleDeleteRequest)

	// Settings
	mux.HandleFunc("GET "+bp+"/api/v1/settings", r.handleGetSettings)
	mux.HandleFunc("PUT "+bp+"/api/v1/settings", r.handleUpdateSettings)

	quiet := []string{bp + "/api/v1/health", bp + "/metrics"}
	return middleware.Logging(r.logger, quiet...)(middleware.SecurityHeaders(mux))
}

func (r *Router) limited(fn http.HandlerFunc) http.HandlerFunc {
	if r.limiter == nil {
		return fn
	}
	return r.limiter.Middleware(fn).ServeHTTP
}
