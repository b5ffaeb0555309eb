package lidarr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
)

// basePathCandidates are tried in order by DetectBasePath.
var basePathCandidates = []string{"", "/lidarr"}

// Client communicates with a Lidarr server.
type Client struct {
	httpClient *http.Client
	apiKey     string
	logger     *slog.Logger

	mu      sync.RWMutex
	baseURL string
}

// New creates a Lidarr client with default HTTP settings.
func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	return NewWithHTTPClient(baseURL, apiKey, &http.Client{Timeout: 20 * time.Second}, logger)
}

// NewWithHTTPClient creates a Lidarr client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL, apiKey string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger.With(slog.String("integration", "lidarr")),
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// BaseURL returns the URL requests are currently sent to.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SystemStatus calls GET /api/v1/system/status.
func (c *Client) SystemStatus(ctx context.Context) (*SystemStatus, error) {
	var status SystemStatus
	if err := c.get(ctx, c.BaseURL(), "/api/v1/system/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetArtists returns all artists from Lidarr.
func (c *Client) GetArtists(ctx context.Context) ([]Artist, error) {
	var artists []Artist
	if err := c.get(ctx, c.BaseURL(), "/api/v1/artist", &artists); err != nil {
		return nil, err
	}
	return artists, nil
}

// DetectBasePath checks the configured URL and, failing that, the same URL
// with a "/lidarr" suffix. The first one answering as Lidarr becomes the base
// URL for all later requests. Returns false when neither answered.
func (c *Client) DetectBasePath(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}
	root := c.BaseURL()
	for _, suffix := range basePathCandidates {
		candidate := root + suffix
		tryCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		var status SystemStatus
		err := c.get(tryCtx, candidate, "/api/v1/system/status", &status)
		cancel()
		if err != nil || status.AppName != "Lidarr" {
			continue
		}
		if suffix != "" {
			c.mu.Lock()
			c.baseURL = candidate
			c.mu.Unlock()
			c.logger.Info("lidarr base path auto-detected", slog.String("url", candidate))
		}
		return true
	}
	c.logger.Warn("could not reach lidarr at the configured URL or with a /lidarr base path",
		slog.String("url", root))
	return false
}

// RootFolders calls GET /api/v1/rootfolder.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.get(ctx, c.BaseURL(), "/api/v1/rootfolder", &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// QualityProfiles calls GET /api/v1/qualityprofile.
func (c *Client) QualityProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.get(ctx, c.BaseURL(), "/api/v1/qualityprofile", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// MetadataProfiles calls GET /api/v1/metadataprofile.
func (c *Client) MetadataProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := c.get(ctx, c.BaseURL(), "/api/v1/metadataprofile", &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// AddArtist calls POST /api/v1/artist and returns the created artist.
func (c *Client) AddArtist(ctx context.Context, add AddArtistRequest) (*Artist, error) {
	payload, err := json.Marshal(add)
	if err != nil {
		return nil, fmt.Errorf("encoding artist: %w", err)
	}
	var created Artist
	if err := c.do(ctx, http.MethodPost, c.BaseURL(), "/api/v1/artist", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetArtist calls GET /api/v1/artist/{id}.
func (c *Client) GetArtist(ctx context.Context, id int) (*Artist, error) {
	var artist Artist
	if err := c.get(ctx, c.BaseURL(), "/api/v1/artist/"+strconv.Itoa(id), &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// DeleteArtist calls DELETE /api/v1/artist/{id}. With deleteFiles the
// artist folder is removed from disk as well.
func (c *Client) DeleteArtist(ctx context.Context, id int, deleteFiles bool) error {
	path := "/api/v1/artist/" + strconv.Itoa(id) + "?deleteFiles=" + strconv.FormatBool(deleteFiles)
	return c.do(ctx, http.MethodDelete, c.BaseURL(), path, nil, nil)
}

// Albums calls GET /api/v1/album?artistId={id}.
func (c *Client) Albums(ctx context.Context, artistID int) ([]Album, error) {
	var albums []Album
	if err := c.get(ctx, c.BaseURL(), "/api/v1/album?artistId="+strconv.Itoa(artistID), &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// SetAlbumsMonitored calls PUT /api/v1/album/monitor and returns the
// updated albums.
func (c *Client) SetAlbumsMonitored(ctx context.Context, albumIDs []int, monitored bool) ([]Album, error) {
	payload, err := json.Marshal(albumsMonitored{AlbumIDs: albumIDs, Monitored: monitored})
	if err != nil {
		return nil, fmt.Errorf("encoding monitor request: %w", err)
	}
	var albums []Album
	if err := c.do(ctx, http.MethodPut, c.BaseURL(), "/api/v1/album/monitor", payload, &albums); err != nil {
		return nil, err
	}
	return albums, nil
}

// SearchAlbums queues an AlbumSearch command for the given albums.
func (c *Client) SearchAlbums(ctx context.Context, albumIDs []int) (*Command, error) {
	payload, err := json.Marshal(commandRequest{Name: "AlbumSearch", AlbumIDs: albumIDs})
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	var cmd Command
	if err := c.do(ctx, http.MethodPost, c.BaseURL(), "/api/v1/command", payload, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// MediaCover fetches one of an artist's cover images (poster, fanart, ...)
// as stored by Lidarr.
func (c *Client) MediaCover(ctx context.Context, artistID int, coverType string) (*Media, error) {
	path := "/api/v1/mediacover/" + strconv.Itoa(artistID) + "/" + url.PathEscape(coverType)
	body, contentType, err := c.send(ctx, http.MethodGet, c.BaseURL(), path, "image/*", nil)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, &provider.ErrBadResponse{
			Provider: provider.NameLidarr,
			HTML:     looksLikeHTML(contentType, body),
			Cause:    fmt.Errorf("media cover has content type %q", contentType),
		}
	}
	return &Media{Data: body, ContentType: contentType}, nil
}

func (c *Client) get(ctx context.Context, baseURL, path string, result any) error {
	return c.do(ctx, http.MethodGet, baseURL, path, nil, result)
}

// do sends a JSON request and decodes a JSON response into result, if set.
func (c *Client) do(ctx context.Context, method, baseURL, path string, payload []byte, result any) error {
	body, contentType, err := c.send(ctx, method, baseURL, path, "application/json", payload)
	if err != nil {
		return err
	}

	if looksLikeHTML(contentType, body) {
		return &provider.ErrBadResponse{Provider: provider.NameLidarr, HTML: true}
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return &provider.ErrBadResponse{
				Provider: provider.NameLidarr,
				Cause:    fmt.Errorf("decoding response: %w", err),
			}
		}
	}
	return nil
}

// send performs one request and classifies the status code. It returns the
// body and its content type for 2xx responses.
func (c *Client) send(ctx context.Context, method, baseURL, path, accept string, payload []byte) ([]byte, string, error) {
	if !c.Configured() {
		return nil, "", &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reqBody)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", accept)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &provider.ErrProviderUnavailable{Provider: provider.NameLidarr, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32*1024*1024))
	if err != nil {
		return nil, "", &provider.ErrProviderUnavailable{Provider: provider.NameLidarr, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, "", &provider.ErrRateLimited{Provider: provider.NameLidarr, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, "", &provider.ErrProviderUnavailable{
			Provider: provider.NameLidarr,
			Cause:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", &provider.ErrNotFound{Provider: provider.NameLidarr, ID: path}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, "", &provider.ErrBadResponse{
			Provider: provider.NameLidarr,
			Cause:    fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200)),
		}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// looksLikeHTML detects the SPA index page Lidarr serves for unknown paths,
// which is what a missing base path produces.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
