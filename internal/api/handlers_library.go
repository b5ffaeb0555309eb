package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sydlexius/aurral/internal/library"
	"github.com/sydlexius/aurral/internal/provider"
)

const (
	defaultRecentLimit = 20
	maxLookupIDs       = 500
)

// handleLibraryArtists lists the owned artists from the roster cache.
// GET /api/v1/library/artists?refresh=true
func (r *Router) handleLibraryArtists(w http.ResponseWriter, req *http.Request) {
	force, _ := strconv.ParseBool(req.URL.Query().Get("refresh"))
	artists, err := r.roster.Get(req.Context(), force)
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch library artists", err)
		return
	}
	if artists == nil {
		artists = []provider.OwnedArtist{}
	}
	writeJSON(w, http.StatusOK, artists)
}

// handleRecent lists the most recently added artists.
// GET /api/v1/library/recent?limit=20
func (r *Router) handleRecent(w http.ResponseWriter, req *http.Request) {
	artists, err := r.roster.Recent(req.Context(), queryLimit(req, defaultRecentLimit, 100))
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch recent artists", err)
		return
	}
	if artists == nil {
		artists = []provider.OwnedArtist{}
	}
	writeJSON(w, http.StatusOK, artists)
}

// handleLookup reports library ownership for a batch of artist ids.
// POST /api/v1/library/lookup {"ids": [...]}
func (r *Router) handleLookup(w http.ResponseWriter, req *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.IDs) > maxLookupIDs {
		writeError(w, req, http.StatusBadRequest, "too many ids")
		return
	}
	owned, err := r.roster.Lookup(req.Context(), body.IDs)
	if err != nil {
		r.writeProviderError(w, req, "failed to look up artists", err)
		return
	}
	writeJSON(w, http.StatusOK, owned)
}

// handleAddArtist adds an artist to the library manager.
// POST /api/v1/library/artists
func (r *Router) handleAddArtist(w http.ResponseWriter, req *http.Request) {
	var in library.AddInput
	if err := decodeJSON(w, req, &in); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := r.library.Add(req.Context(), in)
	var noDefault *library.ErrNoDefault
	switch {
	case errors.Is(err, library.ErrMissingArtist):
		writeError(w, req, http.StatusBadRequest, err.Error())
		return
	case errors.As(err, &noDefault):
		writeError(w, req, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		r.writeProviderError(w, req, "failed to add artist", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleSearchArtists searches the registry by name.
// GET /api/v1/search/artists?query=...&limit=20&offset=0
func (r *Router) handleSearchArtists(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("query")
	if query == "" {
		writeError(w, req, http.StatusBadRequest, "query parameter is required")
		return
	}
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	results, err := r.providers.SearchArtists(req.Context(), query, queryLimit(req, 20, 100), offset)
	if err != nil {
		r.writeProviderError(w, req, "failed to search artists", err)
		return
	}
	if results == nil {
		results = []provider.ArtistSearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"artists": results})
}

// handleLibraryArtist returns one library artist by library id.
// GET /api/v1/library/artists/{id}
func (r *Router) handleLibraryArtist(w http.ResponseWriter, req *http.Request) {
	id, ok := pathInt(w, req, "id")
	if !ok {
		return
	}
	artist, err := r.library.Artist(req.Context(), id)
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch library artist", err)
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

// handleRemoveArtist deletes an artist from the library manager.
// DELETE /api/v1/library/artists/{id}?deleteFiles=false
func (r *Router) handleRemoveArtist(w http.ResponseWriter, req *http.Request) {
	id, ok := pathInt(w, req, "id")
	if !ok {
		return
	}
	deleteFiles, _ := strconv.ParseBool(req.URL.Query().Get("deleteFiles"))
	if err := r.library.Remove(req.Context(), id, deleteFiles); err != nil {
		r.writeProviderError(w, req, "failed to delete artist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "artist deleted"})
}

// handleLibraryOptions lists root folders and profiles for the add dialog.
// GET /api/v1/library/options
func (r *Router) handleLibraryOptions(w http.ResponseWriter, req *http.Request) {
	opts, err := r.library.Options(req.Context())
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch library options", err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// handleAlbums lists a library artist's albums.
// GET /api/v1/library/albums?artistId=4
func (r *Router) handleAlbums(w http.ResponseWriter, req *http.Request) {
	artistID, err := strconv.Atoi(req.URL.Query().Get("artistId"))
	if err != nil || artistID < 1 {
		writeError(w, req, http.StatusBadRequest, "artistId parameter is required")
		return
	}
	albums, err := r.library.Albums(req.Context(), artistID)
	if err != nil {
		r.writeProviderError(w, req, "failed to fetch albums", err)
		return
	}
	writeJSON(w, http.StatusOK, albums)
}

// handleUpdateAlbum turns album monitoring on or off.
// PUT /api/v1/library/albums/{id} {"monitored": true}
func (r *Router) handleUpdateAlbum(w http.ResponseWriter, req *http.Request) {
	id, ok := pathInt(w, req, "id")
	if !ok {
		return
	}
	var body struct {
		Monitored *bool `json:"monitored"`
	}
	if err := decodeJSON(w, req, &body); err != nil || body.Monitored == nil {
		writeError(w, req, http.StatusBadRequest, "monitored is required")
		return
	}
	album, err := r.library.SetAlbumMonitored(req.Context(), id, *body.Monitored)
	if err != nil {
		r.writeProviderError(w, req, "failed to update album", err)
		return
	}
	writeJSON(w, http.StatusOK, album)
}

// handleAlbumSearch queues a search for the given albums.
// POST /api/v1/library/albums/search {"albumIds": [1, 2]}
func (r *Router) handleAlbumSearch(w http.ResponseWriter, req *http.Request) {
	var body struct {
		AlbumIDs []int `json:"albumIds"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		writeError(w, req, http.StatusBadRequest, "invalid request body")
		return
	}
	cmd, err := r.library.SearchAlbums(req.Context(), body.AlbumIDs)
	if errors.Is(err, library.ErrNoAlbums) {
		writeError(w, req, http.StatusBadRequest, "albumIds array is required")
		return
	}
	if err != nil {
		r.writeProviderError(w, req, "failed to trigger album search", err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

// handleMediaCover serves an artist image stored by the library manager.
// The file extension of filename is ignored.
// GET /api/v1/library/mediacover/{artistId}/{filename}
func (r *Router) handleMediaCover(w http.ResponseWriter, req *http.Request) {
	artistID, ok := pathInt(w, req, "artistId")
	if !ok {
		return
	}
	coverType, _, _ := strings.Cut(req.PathValue("filename"), ".")
	media, err := r.library.MediaCover(req.Context(), artistID, coverType)
	if errors.Is(err, library.ErrCoverType) {
		writeError(w, req, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		r.writeProviderError(w, req, "image not found", err)
		return
	}
	w.Header().Set("Content-Type", media.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(media.Data)
}

// pathInt parses a positive integer path value, writing a 400 when it is
// not one.
func pathInt(w http.ResponseWriter, req *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(req.PathValue(name))
	if err != nil || n < 1 {
		writeError(w, req, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return n, true
}
