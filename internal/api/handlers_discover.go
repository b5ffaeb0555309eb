package api

import (
	"errors"
	"net/http"

	"github.com/sydlexius/aurral/internal/discovery"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// handleDiscover serves the last built recommendations.
// GET /api/v1/discover
func (r *Router) handleDiscover(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.discovery.Document())
}

// handleDiscoverRefresh starts a build in the background.
// POST /api/v1/discover/refresh
func (r *Router) handleDiscoverRefresh(w http.ResponseWriter, req *http.Request) {
	if !r.discovery.Trigger(req.Context()) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"message":    "discovery update already in progress",
			"isUpdating": true,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":    "discovery update started",
		"isUpdating": true,
	})
}

// handleDiscoverClear drops discovery results and cached images. Request
// history and settings survive.
// POST /api/v1/discover/clear
func (r *Router) handleDiscoverClear(w http.ResponseWriter, req *http.Request) {
	if err := r.discovery.Clear(req.Context()); err != nil {
		r.writeProviderError(w, req, "failed to clear discovery cache", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "discovery cache and image cache cleared"})
}

// handleByTag lists unowned artists for a tag.
// GET /api/v1/discover/by-tag?tag=shoegaze&limit=20
func (r *Router) handleByTag(w http.ResponseWriter, req *http.Request) {
	tag := req.URL.Query().Get("tag")
	recs, err := r.discovery.ByTag(req.Context(), tag, queryLimit(req, discovery.DefaultBrowseLimit, 50))
	if errors.Is(err, discovery.ErrEmptyTag) {
		writeError(w, req, http.StatusBadRequest, "tag parameter is required")
		return
	}
	if err != nil {
		r.writeProviderError(w, req, "failed to search by tag", err)
		return
	}
	if recs == nil {
		recs = []store.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs, "tag": tag})
}

// handleCover resolves the cover image of one artist.
// GET /api/v1/artists/{id}/cover
func (r *Router) handleCover(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	url, err := r.images.Resolve(req.Context(), id)
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch cover art", err)
		return
	}
	images := []map[string]string{}
	if url != "" {
		images = append(images, map[string]string{"image": url, "front": "true"})
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": images})
}

// handleSimilar lists artists similar to one artist. Without a
// listening-stats key the list is empty.
// GET /api/v1/artists/{id}/similar?limit=20
func (r *Router) handleSimilar(w http.ResponseWriter, req *http.Request) {
	similar, err := r.discovery.Similar(req.Context(), req.PathValue("id"), queryLimit(req, discovery.DefaultBrowseLimit, 50))
	if provider.IsNotConfigured(err) {
		similar, err = nil, nil
	}
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch similar artists", err)
		return
	}
	if similar == nil {
		similar = []discovery.SimilarArtist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": similar})
}

// handleDiscoverRelated serves only the recommendation part of the last
// build.
// GET /api/v1/discover/related
func (r *Router) handleDiscoverRelated(w http.ResponseWriter, req *http.Request) {
	doc := r.discovery.Document()
	if doc.Recommendations == nil {
		doc.Recommendations = []store.Recommendation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": doc.Recommendations,
		"basedOn":         doc.BasedOn,
		"total":           len(doc.Recommendations),
	})
}

// handleDiscoverProfile serves the taste profile of the last build.
// GET /api/v1/discover/similar
func (r *Router) handleDiscoverProfile(w http.ResponseWriter, req *http.Request) {
	doc := r.discovery.Document()
	writeJSON(w, http.StatusOK, map[string]any{
		"topTags":   doc.TopTags,
		"topGenres": doc.TopGenres,
		"basedOn":   doc.BasedOn,
	})
}
