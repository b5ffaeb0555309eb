package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/version"
)

// Health states of the library manager.
const (
	libraryConnected     = "connected"
	libraryNotConfigured = "not_configured"
	libraryUnreachable   = "unreachable"
)

type discoveryHealth struct {
	LastUpdated          *time.Time `json:"lastUpdated"`
	IsUpdating           bool       `json:"isUpdating"`
	RecommendationsCount int        `json:"recommendationsCount"`
	GlobalTopCount       int        `json:"globalTopCount"`
	CachedImagesCount    int        `json:"cachedImagesCount"`
}

type healthResponse struct {
	Status           string          `json:"status"`
	Version          string          `json:"version"`
	Commit           string          `json:"commit"`
	LidarrConfigured bool            `json:"lidarrConfigured"`
	LidarrStatus     string          `json:"lidarrStatus"`
	LidarrURL        string          `json:"lidarrUrl,omitempty"`
	LastFMConfigured bool            `json:"lastfmConfigured"`
	Discovery        discoveryHealth `json:"discovery"`
	Providers        any             `json:"providers"`
	Timestamp        string          `json:"timestamp"`
}

// handleHealth reports upstream reachability and discovery state.
// GET /api/v1/health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	status := libraryNotConfigured
	if r.providers.LibraryConfigured() {
		status = libraryConnected
		if _, err := r.providers.LibraryStatus(req.Context()); err != nil {
			status = libraryUnreachable
		}
	}

	doc := r.discovery.Document()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Version:          version.Version,
		Commit:           version.Commit,
		LidarrConfigured: r.providers.LibraryConfigured(),
		LidarrStatus:     status,
		LidarrURL:        r.providers.LibraryURL(),
		LastFMConfigured: r.providers.StatsConfigured(),
		Discovery: discoveryHealth{
			LastUpdated:          doc.LastUpdated,
			IsUpdating:           doc.IsUpdating,
			RecommendationsCount: len(doc.Recommendations),
			GlobalTopCount:       len(doc.Trending),
			CachedImagesCount:    r.settings.ImageCount(),
		},
		Providers: r.providers.Status(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeProviderError maps a provider error onto an HTTP status and logs
// anything that is not a client mistake.
func (r *Router) writeProviderError(w http.ResponseWriter, req *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	var (
		invalid     *provider.ErrInvalidID
		notFound    *provider.ErrNotFound
		notConfig   *provider.ErrNotConfigured
		rateLimited *provider.ErrRateLimited
		unavailable *provider.ErrProviderUnavailable
		bad         *provider.ErrBadResponse
	)
	switch {
	case errors.As(err, &invalid):
		writeError(w, req, http.StatusBadRequest, "invalid artist id")
		return
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &notConfig):
		status = http.StatusServiceUnavailable
	case errors.As(err, &rateLimited):
		if rateLimited.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds()+0.5)))
		}
		status = http.StatusServiceUnavailable
	case errors.As(err, &unavailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &bad):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		r.logger.Warn(msg, slog.String("path", req.URL.Path), slog.String("error", err.Error()))
	}
	writeJSON(w, status, map[string]string{"error": msg, "message": err.Error()})
}

// writeError sends a JSON error body.
func writeError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, 1<<20)
	return json.NewDecoder(req.Body).Decode(v)
}

// queryLimit parses the limit query parameter, clamped to [1, ceiling].
func queryLimit(req *http.Request, fallback, ceiling int) int {
	n, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return fallback
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
