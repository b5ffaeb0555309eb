package api

import "net/http"

// handleGetSettings returns the library settings.
// GET /api/v1/settings
func (r *Router) handleGetSettings(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.settings.Settings())
}

// handleUpdateSettings replaces the library settings.
// PUT /api/v1/settings
func (r *Router) handleUpdateSettings(w http.ResponseWriter, req *http.Request) {
	settings := r.settings.Settings()
	if err := decodeJSON(w, req, &settings); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid request body")
		return
	}
	if settings.QualityProfileID < 0 || settings.MetadataProfileID < 0 {
		writeError(w, req, http.StatusBadRequest, "profile ids must not be negative")
		return
	}
	if err := r.settings.SetSettings(req.Context(), settings); err != nil {
		r.writeProviderError(w, req, "failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
