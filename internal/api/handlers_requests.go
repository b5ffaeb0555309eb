package api

import (
	"net/http"

	"github.com/sydlexius/aurral/internal/store"
)

// handleListRequests returns the request history, newest first.
// GET /api/v1/requests
func (r *Router) handleListRequests(w http.ResponseWriter, req *http.Request) {
	requests, err := r.library.Requests(req.Context())
	if err != nil {
		r.writeProviderError(w, req, "failed to load requests", err)
		return
	}
	if requests == nil {
		requests = []store.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

// handleDeleteRequest removes one request from the history.
// DELETE /api/v1/requests/{id}
func (r *Router) handleDeleteRequest(w http.ResponseWriter, req *http.Request) {
	removed, err := r.library.DeleteRequest(req.Context(), req.PathValue("id"))
	if err != nil {
		r.writeProviderError(w, req, "failed to delete request", err)
		return
	}
	if !removed {
		writeError(w, req, http.StatusNotFound, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "request removed"})
}
