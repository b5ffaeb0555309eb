package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/discovery"
	"github.com/sydlexius/aurral/internal/gateway"
	"github.com/sydlexius/aurral/internal/library"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/roster"
	"github.com/sydlexius/aurral/internal/store"
)

const validID = "a74b1b7f-71a5-4011-9441-d0b5e4122711"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeProviders struct {
	libraryConfigured bool
	statusErr         error
	statsConfigured   bool
	searchQuery       string
}

func (f *fakeProviders) Status() []gateway.ProviderStatus {
	return []gateway.ProviderStatus{{Name: provider.NameLidarr, Configured: f.libraryConfigured, Breaker: "closed"}}
}
func (f *fakeProviders) LibraryConfigured() bool { return f.libraryConfigured }
func (f *fakeProviders) LibraryURL() string {
	if f.libraryConfigured {
		return "http://lidarr:8686"
	}
	return ""
}
func (f *fakeProviders) LibraryStatus(context.Context) (*lidarr.SystemStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return &lidarr.SystemStatus{AppName: "Lidarr"}, nil
}
func (f *fakeProviders) StatsConfigured() bool { return f.statsConfigured }
func (f *fakeProviders) SearchArtists(_ context.Context, query string, _, _ int) ([]provider.ArtistSearchResult, error) {
	f.searchQuery = query
	return []provider.ArtistSearchResult{{ID: validID, Name: "Radiohead", Score: 100}}, nil
}
func (f *fakeProviders) ArtistDetails(_ context.Context, mbid string) (*provider.ArtistDetails, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return nil, err
	}
	if mbid != validID {
		return nil, &provider.ErrNotFound{Provider: provider.NameMusicBrainz, ID: mbid}
	}
	return &provider.ArtistDetails{ID: validID, Name: "Radiohead", Aliases: []string{"On a Friday"}}, nil
}

type fakeRoster struct {
	artists []provider.OwnedArtist
	err     error
	forced  atomic.Bool
}

func (f *fakeRoster) Get(_ context.Context, force bool) ([]provider.OwnedArtist, error) {
	if force {
		f.forced.Store(true)
	}
	return f.artists, f.err
}
func (f *fakeRoster) Recent(_ context.Context, n int) ([]provider.OwnedArtist, error) {
	if len(f.artists) > n {
		return f.artists[:n], f.err
	}
	return f.artists, f.err
}
func (f *fakeRoster) Lookup(_ context.Context, ids []string) (map[string]roster.Ownership, error) {
	out := map[string]roster.Ownership{}
	for _, id := range ids {
		out[id] = roster.Ownership{}
		for _, a := range f.artists {
			if a.ID == id {
				out[id] = roster.Ownership{Owned: true, LibraryID: a.LibraryID}
			}
		}
	}
	return out, f.err
}

type fakeImages struct{ urls map[string]string }

func (f *fakeImages) Resolve(_ context.Context, mbid string) (string, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return "", err
	}
	return f.urls[mbid], nil
}

type fakeDiscovery struct {
	view       discovery.View
	running    atomic.Bool
	cleared    atomic.Int32
	similarErr error
}

func (f *fakeDiscovery) Document() discovery.View { return f.view }
func (f *fakeDiscovery) Trigger(context.Context) bool {
	return f.running.CompareAndSwap(false, true)
}
func (f *fakeDiscovery) Clear(context.Context) error {
	f.cleared.Add(1)
	return nil
}
func (f *fakeDiscovery) ByTag(_ context.Context, tag string, limit int) ([]store.Recommendation, error) {
	if strings.TrimSpace(tag) == "" {
		return nil, discovery.ErrEmptyTag
	}
	return []store.Recommendation{{ID: validID, Name: "Slowdive", Tags: []string{tag}}}[:min(limit, 1)], nil
}
func (f *fakeDiscovery) Similar(_ context.Context, mbid string, _ int) ([]discovery.SimilarArtist, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return nil, err
	}
	if f.similarErr != nil {
		return nil, f.similarErr
	}
	return []discovery.SimilarArtist{{ID: validID, Name: "Thom Yorke", Match: 88}}, nil
}

type fakeLibrary struct {
	requests []store.Request
	added    []library.AddInput
	removed  map[int]bool
	albums   []lidarr.Album
	searched []int
}

func (f *fakeLibrary) Add(_ context.Context, in library.AddInput) (*lidarr.Artist, error) {
	if in.ID == "" || in.Name == "" {
		return nil, library.ErrMissingArtist
	}
	f.added = append(f.added, in)
	return &lidarr.Artist{ID: 12, ArtistName: in.Name, ForeignArtistID: in.ID}, nil
}
func (f *fakeLibrary) Artist(_ context.Context, id int) (*lidarr.Artist, error) {
	if id != 4 {
		return nil, &provider.ErrNotFound{Provider: provider.NameLidarr, ID: strconv.Itoa(id)}
	}
	return &lidarr.Artist{ID: 4, ArtistName: "Radiohead", ForeignArtistID: validID}, nil
}
func (f *fakeLibrary) Remove(ctx context.Context, id int, deleteFiles bool) error {
	if _, err := f.Artist(ctx, id); err != nil {
		return err
	}
	if f.removed == nil {
		f.removed = map[int]bool{}
	}
	f.removed[id] = deleteFiles
	return nil
}
func (f *fakeLibrary) Options(context.Context) (*library.Options, error) {
	return &library.Options{
		RootFolders:      []lidarr.RootFolder{{ID: 1, Path: "/music"}},
		QualityProfiles:  []lidarr.Profile{{ID: 1, Name: "Lossless"}},
		MetadataProfiles: []lidarr.Profile{{ID: 1, Name: "Standard"}},
	}, nil
}
func (f *fakeLibrary) Albums(_ context.Context, artistID int) ([]lidarr.Album, error) {
	var out []lidarr.Album
	for _, a := range f.albums {
		if a.ArtistID == artistID {
			out = append(out, a)
		}
	}
	if out == nil {
		out = []lidarr.Album{}
	}
	return out, nil
}
func (f *fakeLibrary) SetAlbumMonitored(_ context.Context, albumID int, monitored bool) (*lidarr.Album, error) {
	for i := range f.albums {
		if f.albums[i].ID == albumID {
			f.albums[i].Monitored = monitored
			return &f.albums[i], nil
		}
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameLidarr, ID: strconv.Itoa(albumID)}
}
func (f *fakeLibrary) SearchAlbums(_ context.Context, ids []int) (*lidarr.Command, error) {
	if len(ids) == 0 {
		return nil, library.ErrNoAlbums
	}
	f.searched = append(f.searched, ids...)
	return &lidarr.Command{ID: 99, Name: "AlbumSearch", Status: "queued"}, nil
}
func (f *fakeLibrary) MediaCover(_ context.Context, artistID int, coverType string) (*lidarr.Media, error) {
	if coverType != "poster" {
		return nil, library.ErrCoverType
	}
	if artistID != 4 {
		return nil, &provider.ErrNotFound{Provider: provider.NameLidarr, ID: strconv.Itoa(artistID)}
	}
	return &lidarr.Media{Data: []byte("\xff\xd8jpeg"), ContentType: "image/jpeg"}, nil
}
func (f *fakeLibrary) Requests(context.Context) ([]store.Request, error) { return f.requests, nil }
func (f *fakeLibrary) DeleteRequest(_ context.Context, id string) (bool, error) {
	for i, r := range f.requests {
		if r.ID == id {
			f.requests = append(f.requests[:i], f.requests[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type testEnv struct {
	providers *fakeProviders
	roster    *fakeRoster
	discovery *fakeDiscovery
	library   *fakeLibrary
	store     *store.Store
	handler   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), store.NewFileBackend(filepath.Join(t.TempDir(), "aurral.json")), testLogger())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	env := &testEnv{
		providers: &fakeProviders{libraryConfigured: true},
		roster: &fakeRoster{artists: []provider.OwnedArtist{
			{ID: validID, LibraryID: 4, Name: "Radiohead", Added: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}},
		discovery: &fakeDiscovery{},
		library:   &fakeLibrary{},
		store:     st,
	}
	r := NewRouter(RouterDeps{
		Providers: env.providers,
		Roster:    env.roster,
		Images:    &fakeImages{urls: map[string]string{validID: "http://img/cover.jpg"}},
		Discovery: env.discovery,
		Library:   env.library,
		Settings:  st,
		Logger:    testLogger(),
	})
	env.handler = r.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, w.Body.String())
	}
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now().UTC()
	env.discovery.view = discovery.View{Discovery: store.Discovery{
		Recommendations: []store.Recommendation{{ID: "a"}, {ID: "b"}},
		LastUpdated:     &now,
	}}

	w := env.do(t, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[healthResponse](t, w)
	if resp.LidarrStatus != libraryConnected || !resp.LidarrConfigured || resp.LidarrURL == "" {
		t.Errorf("unexpected library health: %+v", resp)
	}
	if resp.Discovery.RecommendationsCount != 2 || resp.Discovery.LastUpdated == nil {
		t.Errorf("unexpected discovery health: %+v", resp.Discovery)
	}

	env.providers.statusErr = &provider.ErrProviderUnavailable{Provider: provider.NameLidarr}
	resp = decode[healthResponse](t, env.do(t, http.MethodGet, "/api/v1/health", ""))
	if resp.LidarrStatus != libraryUnreachable {
		t.Errorf("status = %q, want unreachable", resp.LidarrStatus)
	}

	env.providers.libraryConfigured = false
	resp = decode[healthResponse](t, env.do(t, http.MethodGet, "/api/v1/health", ""))
	if resp.LidarrStatus != libraryNotConfigured {
		t.Errorf("status = %q, want not_configured", resp.LidarrStatus)
	}
}

func TestDiscoverRefreshConflict(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/api/v1/discover/refresh", ""); w.Code != http.StatusAccepted {
		t.Fatalf("first refresh = %d, want 202", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/discover/refresh", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("second refresh = %d, want 409", w.Code)
	}
	if body := decode[map[string]any](t, w); body["isUpdating"] != true {
		t.Errorf("conflict body = %v", body)
	}
}

func TestDiscoverAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.discovery.view = discovery.View{Discovery: store.EmptyDiscovery(), IsUpdating: true}

	w := env.do(t, http.MethodGet, "/api/v1/discover", "")
	body := decode[map[string]any](t, w)
	if body["isUpdating"] != true {
		t.Errorf("isUpdating missing: %v", body)
	}
	if _, ok := body["globalTop"]; !ok {
		t.Errorf("trending should be served as globalTop: %v", body)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/discover/clear", ""); w.Code != http.StatusOK {
		t.Fatalf("clear = %d", w.Code)
	}
	if env.discovery.cleared.Load() != 1 {
		t.Error("Clear not called")
	}
}

func TestByTag(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/discover/by-tag", ""); w.Code != http.StatusBadRequest {
		t.Errorf("empty tag = %d, want 400", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/v1/discover/by-tag?tag=shoegaze&limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("by-tag = %d", w.Code)
	}
	body := decode[struct {
		Recommendations []store.Recommendation `json:"recommendations"`
	}](t, w)
	if len(body.Recommendations) != 1 || body.Recommendations[0].Tags[0] != "shoegaze" {
		t.Errorf("unexpected recommendations: %+v", body.Recommendations)
	}
}

func TestCover(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/artists/not-a-uuid/cover", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d, want 400", w.Code)
	}
	body := decode[struct {
		Images []map[string]string `json:"images"`
	}](t, env.do(t, http.MethodGet, "/api/v1/artists/"+validID+"/cover", ""))
	if len(body.Images) != 1 || body.Images[0]["image"] != "http://img/cover.jpg" {
		t.Errorf("unexpected images: %+v", body.Images)
	}

	other := "8bfac288-ccc5-448d-9573-c33ea2aa5c30"
	body = decode[struct {
		Images []map[string]string `json:"images"`
	}](t, env.do(t, http.MethodGet, "/api/v1/artists/"+other+"/cover", ""))
	if body.Images == nil || len(body.Images) != 0 {
		t.Errorf("expected empty image list, got %+v", body.Images)
	}
}

func TestSimilar(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/artists/bogus/similar", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid id = %d, want 400", w.Code)
	}

	env.discovery.similarErr = &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	w := env.do(t, http.MethodGet, "/api/v1/artists/"+validID+"/similar", "")
	if w.Code != http.StatusOK {
		t.Fatalf("unconfigured similar = %d, want 200", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"artists":[]}` {
		t.Errorf("body = %s", w.Body.String())
	}

	env.discovery.similarErr = &provider.ErrProviderUnavailable{Provider: provider.NameLastFM}
	if w := env.do(t, http.MethodGet, "/api/v1/artists/"+validID+"/similar", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unavailable similar = %d, want 503", w.Code)
	}
}

func TestLibraryRoutes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/library/artists?refresh=true", "")
	if w.Code != http.StatusOK || !env.roster.forced.Load() {
		t.Fatalf("artists = %d, forced = %v", w.Code, env.roster.forced.Load())
	}
	if artists := decode[[]provider.OwnedArtist](t, w); len(artists) != 1 {
		t.Errorf("artists = %+v", artists)
	}

	w = env.do(t, http.MethodPost, "/api/v1/library/lookup", `{"ids":["`+validID+`","other"]}`)
	owned := decode[map[string]roster.Ownership](t, w)
	if !owned[validID].Owned || owned[validID].LibraryID != 4 || owned["other"].Owned {
		t.Errorf("lookup = %+v", owned)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/library/lookup", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("bad body = %d", w.Code)
	}

	env.roster.err = &provider.ErrBadResponse{Provider: provider.NameLidarr, HTML: true}
	if w := env.do(t, http.MethodGet, "/api/v1/library/recent", ""); w.Code != http.StatusBadGateway {
		t.Errorf("recent with html response = %d, want 502", w.Code)
	}

	env.roster.err = &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	if w := env.do(t, http.MethodGet, "/api/v1/library/artists", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unconfigured = %d, want 503", w.Code)
	}
}

func TestAddArtistAndRequests(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/api/v1/library/artists", `{"foreignArtistId":"`+validID+`"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing name = %d, want 400", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/library/artists", `{"foreignArtistId":"`+validID+`","artistName":"Radiohead","monitor":"future"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add = %d: %s", w.Code, w.Body.String())
	}
	if len(env.library.added) != 1 || env.library.added[0].Monitor != "future" {
		t.Errorf("unexpected add input: %+v", env.library.added)
	}

	env.library.requests = []store.Request{{ID: validID, Name: "Radiohead", Status: store.RequestRequested}}
	reqs := decode[[]store.Request](t, env.do(t, http.MethodGet, "/api/v1/requests", ""))
	if len(reqs) != 1 || reqs[0].ID != validID {
		t.Errorf("requests = %+v", reqs)
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/requests/"+validID, ""); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/requests/"+validID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	got := decode[store.Settings](t, env.do(t, http.MethodGet, "/api/v1/settings", ""))
	if !got.Monitored || !got.AlbumFolders {
		t.Errorf("defaults = %+v", got)
	}

	w := env.do(t, http.MethodPut, "/api/v1/settings", `{"rootFolderPath":"/music","qualityProfileId":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("put = %d", w.Code)
	}
	saved := env.store.Settings()
	if saved.RootFolderPath != "/music" || saved.QualityProfileID != 2 || !saved.Monitored {
		t.Errorf("partial update should merge onto current settings: %+v", saved)
	}

	if w := env.do(t, http.MethodPut, "/api/v1/settings", `{"metadataProfileId":-1}`); w.Code != http.StatusBadRequest {
		t.Errorf("negative id = %d, want 400", w.Code)
	}
}

func TestSearchArtists(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/v1/search/artists", ""); w.Code != http.StatusBadRequest {
		t.Errorf("missing query = %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/v1/search/artists?query=radiohead", "")
	if w.Code != http.StatusOK || env.providers.searchQuery != "radiohead" {
		t.Errorf("search = %d, query %q", w.Code, env.providers.searchQuery)
	}
}

func TestMetricsAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestBasePathPrefixesRoutes(t *testing.T) {
	env := newTestEnv(t)
	h := NewRouter(RouterDeps{
		Providers: env.providers,
		Roster:    env.roster,
		Images:    &fakeImages{},
		Discovery: env.discovery,
		Library:   env.library,
		Settings:  env.store,
		Logger:    testLogger(),
		BasePath:  "/aurral",
	}).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/aurral/api/v1/discover", nil))
	if w.Code != http.StatusOK {
		t.Errorf("prefixed route = %d", w.Code)
	}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/discover", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unprefixed route = %d, want 404", w.Code)
	}
}
