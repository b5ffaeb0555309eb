package lidarr

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/sydlexius/aurral/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSystemStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/system/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("missing or wrong auth header: %s", r.Header.Get("X-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"2.0.0","appName":"Lidarr"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "test-key", srv.Client(), testLogger())
	status, err := c.SystemStatus(context.Background())
	if err != nil {
		t.Fatalf("SystemStatus failed: %v", err)
	}
	if status.AppName != "Lidarr" {
		t.Errorf("appName = %q", status.AppName)
	}
}

func TestSystemStatus_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "bad-key", srv.Client(), testLogger())
	if _, err := c.SystemStatus(context.Background()); err == nil {
		t.Fatal("expected error for unauthorized")
	}
}

func TestGetArtists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":1,"artistName":"Radiohead","foreignArtistId":"mbid-001","monitored":true,"added":"2024-03-01T10:00:00Z","statistics":{"sizeOnDisk":1024}},
			{"id":2,"artistName":"Bjork","foreignArtistId":"mbid-002","monitored":false}
		]`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	artists, err := c.GetArtists(context.Background())
	if err != nil {
		t.Fatalf("GetArtists failed: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("got %d artists, want 2", len(artists))
	}
	if artists[0].ForeignArtistID != "mbid-001" {
		t.Errorf("MBID = %q, want mbid-001", artists[0].ForeignArtistID)
	}
	if artists[0].Statistics.SizeOnDisk != 1024 {
		t.Errorf("sizeOnDisk = %d, want 1024", artists[0].Statistics.SizeOnDisk)
	}
	if artists[0].Added.Year() != 2024 {
		t.Errorf("added = %v", artists[0].Added)
	}
}

func TestGetArtists_NotConfigured(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "", srv.Client(), testLogger())
	if _, err := c.GetArtists(context.Background()); !provider.IsNotConfigured(err) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("expected no requests, got %d", hits.Load())
	}
}

func TestGetArtists_HTMLResponse(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"content type", "text/html; charset=utf-8", `<html><body>Lidarr</body></html>`},
		{"sniffed", "application/octet-stream", "\n<!DOCTYPE html>\n<html></html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
			_, err := c.GetArtists(context.Background())
			if !provider.IsMisconfigured(err) {
				t.Fatalf("expected HTML bad response, got %v", err)
			}
		})
	}
}

func TestGetArtists_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	if _, err := c.GetArtists(context.Background()); !provider.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestDetectBasePath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lidarr/api/v1/system/status":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"2.0.0","appName":"Lidarr"}`))
		case "/lidarr/api/v1/artist":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[]`))
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<!doctype html><html></html>`))
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL+"/", "key", srv.Client(), testLogger())
	if !c.DetectBasePath(context.Background()) {
		t.Fatal("expected detection to succeed")
	}
	if c.BaseURL() != srv.URL+"/lidarr" {
		t.Errorf("BaseURL = %q, want %q", c.BaseURL(), srv.URL+"/lidarr")
	}
	if _, err := c.GetArtists(context.Background()); err != nil {
		t.Errorf("GetArtists after detection: %v", err)
	}
}

func TestDetectBasePath_NoMatchKeepsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	if c.DetectBasePath(context.Background()) {
		t.Fatal("expected detection to fail")
	}
	if c.BaseURL() != srv.URL {
		t.Errorf("BaseURL changed to %q", c.BaseURL())
	}
}

func TestAddArtist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/artist" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		var body AddArtistRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body.ForeignArtistID != "mbid-001" || body.RootFolderPath != "/music" || body.AddOptions.Monitor != "all" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":42,"artistName":"Radiohead","foreignArtistId":"mbid-001"}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	created, err := c.AddArtist(context.Background(), AddArtistRequest{
		ForeignArtistID:   "mbid-001",
		ArtistName:        "Radiohead",
		QualityProfileID:  1,
		MetadataProfileID: 1,
		RootFolderPath:    "/music",
		Monitored:         true,
		AddOptions:        AddOptions{Monitor: "all"},
	})
	if err != nil {
		t.Fatalf("AddArtist: %v", err)
	}
	if created.ID != 42 {
		t.Errorf("id = %d, want 42", created.ID)
	}
}

func TestAddArtist_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`[{"errorMessage":"This artist has already been added"}]`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	_, err := c.AddArtist(context.Background(), AddArtistRequest{ForeignArtistID: "x", ArtistName: "X"})
	if err == nil || provider.IsRetryable(err) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestProfilesAndRootFolders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/rootfolder":
			_, _ = w.Write([]byte(`[{"id":1,"path":"/music"}]`))
		case "/api/v1/qualityprofile":
			_, _ = w.Write([]byte(`[{"id":3,"name":"Lossless"}]`))
		case "/api/v1/metadataprofile":
			_, _ = w.Write([]byte(`[{"id":5,"name":"Standard"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	ctx := context.Background()
	folders, err := c.RootFolders(ctx)
	if err != nil || len(folders) != 1 || folders[0].Path != "/music" {
		t.Fatalf("RootFolders = %+v, %v", folders, err)
	}
	quality, err := c.QualityProfiles(ctx)
	if err != nil || len(quality) != 1 || quality[0].ID != 3 {
		t.Fatalf("QualityProfiles = %+v, %v", quality, err)
	}
	meta, err := c.MetadataProfiles(ctx)
	if err != nil || len(meta) != 1 || meta[0].ID != 5 {
		t.Fatalf("MetadataProfiles = %+v, %v", meta, err)
	}
}

func TestGetAndDeleteArtist(t *testing.T) {
	var deleted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/artist/7":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":7,"artistName":"Radiohead","foreignArtistId":"mbid-001"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/artist/7":
			if r.URL.Query().Get("deleteFiles") != "true" {
				t.Errorf("deleteFiles = %q", r.URL.Query().Get("deleteFiles"))
			}
			deleted.Add(1)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	ctx := context.Background()

	artist, err := c.GetArtist(ctx, 7)
	if err != nil || artist.ForeignArtistID != "mbid-001" {
		t.Fatalf("GetArtist = %+v, %v", artist, err)
	}
	if err := c.DeleteArtist(ctx, 7, true); err != nil {
		t.Fatalf("DeleteArtist: %v", err)
	}
	if deleted.Load() != 1 {
		t.Errorf("delete calls = %d", deleted.Load())
	}
	if _, err := c.GetArtist(ctx, 8); !provider.IsNotFound(err) {
		t.Errorf("expected ErrNotFound for unknown artist, got %v", err)
	}
}

func TestAlbumsMonitorAndSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/album":
			if r.URL.Query().Get("artistId") != "7" {
				t.Errorf("artistId = %q", r.URL.Query().Get("artistId"))
			}
			_, _ = w.Write([]byte(`[{"id":11,"title":"OK Computer","artistId":7,"monitored":false,
				"statistics":{"trackCount":12,"trackFileCount":6,"percentOfTracks":50}}]`))
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/album/monitor":
			var body albumsMonitored
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if len(body.AlbumIDs) != 1 || body.AlbumIDs[0] != 11 || !body.Monitored {
				t.Errorf("unexpected monitor body: %+v", body)
			}
			w.WriteHeader(http.StatusAccepted)
			_, _ = w.Write([]byte(`[{"id":11,"title":"OK Computer","monitored":true}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/command":
			var body commandRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Name != "AlbumSearch" || len(body.AlbumIDs) != 2 {
				t.Errorf("unexpected command: %+v", body)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":99,"name":"AlbumSearch","status":"queued"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	ctx := context.Background()

	albums, err := c.Albums(ctx, 7)
	if err != nil || len(albums) != 1 || albums[0].Statistics.PercentOfTracks != 50 {
		t.Fatalf("Albums = %+v, %v", albums, err)
	}
	updated, err := c.SetAlbumsMonitored(ctx, []int{11}, true)
	if err != nil || len(updated) != 1 || !updated[0].Monitored {
		t.Fatalf("SetAlbumsMonitored = %+v, %v", updated, err)
	}
	cmd, err := c.SearchAlbums(ctx, []int{11, 12})
	if err != nil || cmd.ID != 99 || cmd.Status != "queued" {
		t.Fatalf("SearchAlbums = %+v, %v", cmd, err)
	}
}

func TestMediaCover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/mediacover/7/poster":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		case "/api/v1/mediacover/7/fanart":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html></html>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, "key", srv.Client(), testLogger())
	ctx := context.Background()

	media, err := c.MediaCover(ctx, 7, "poster")
	if err != nil {
		t.Fatalf("MediaCover: %v", err)
	}
	if media.ContentType != "image/jpeg" || len(media.Data) != 3 {
		t.Errorf("unexpected media: %q %d bytes", media.ContentType, len(media.Data))
	}
	if _, err := c.MediaCover(ctx, 7, "fanart"); !provider.IsMisconfigured(err) {
		t.Errorf("expected HTML bad response, got %v", err)
	}
	if _, err := c.MediaCover(ctx, 7, "banner"); !provider.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
