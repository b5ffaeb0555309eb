package api

import (
	"net/http"

	"github.com/sydlexius/aurral/internal/provider"
)

// handleArtistDetails returns the registry record of one artist.
// GET /api/v1/artists/{id}
func (r *Router) handleArtistDetails(w http.ResponseWriter, req *http.Request) {
	details, err := r.providers.ArtistDetails(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch artist details", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type lookupResponse struct {
	Exists bool                  `json:"exists"`
	Artist *provider.OwnedArtist `json:"artist"`
}

// handleLookupOne reports whether one artist is in the library.
// GET /api/v1/library/lookup/{id}
func (r *Router) handleLookupOne(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	if err := provider.ValidateID(id); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid artist id")
		return
	}
	artists, err := r.roster.Get(req.Context(), false)
	if err != nil {
		r.writeProviderError(w, req, "failed to look up artist", err)
		return
	}
	resp := lookupResponse{}
	for i := range artists {
		if artists[i].ID == id {
			resp = lookupResponse{Exists: true, Artist: &artists[i]}
			break
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
