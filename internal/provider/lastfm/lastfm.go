package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0"

// Last.fm API error codes that need distinct handling.
const (
	errCodeInvalidParams = 6
	errCodeRateLimit     = 29
)

// Adapter is the Last.fm listening-stats client. Without an API key every
// method returns ErrNotConfigured without touching the network.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// New creates a Last.fm adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, apiKey, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Last.fm adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, apiKey string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "lastfm")),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Configured reports whether an API key is set.
func (a *Adapter) Configured() bool { return a.apiKey != "" }

// GetArtistInfo fetches artist info (images and tags) by MBID.
func (a *Adapter) GetArtistInfo(ctx context.Context, mbid string) (*provider.ArtistInfo, error) {
	var resp InfoResponse
	if err := a.call(ctx, "artist.getinfo", url.Values{"mbid": {mbid}}, &resp); err != nil {
		return nil, err
	}
	if resp.Artist.Name == "" {
		return nil, &provider.ErrNotFound{Provider: provider.NameLastFM, ID: mbid}
	}
	return &provider.ArtistInfo{
		ID:     resp.Artist.MBID,
		Name:   resp.Artist.Name,
		Images: mapImages(resp.Artist.Image),
		Tags:   mapTags(resp.Artist.Tags.Tag),
	}, nil
}

// GetTopTags returns an artist's top tags, most popular first.
func (a *Adapter) GetTopTags(ctx context.Context, mbid string) ([]provider.Tag, error) {
	var resp TopTagsResponse
	if err := a.call(ctx, "artist.gettoptags", url.Values{"mbid": {mbid}}, &resp); err != nil {
		return nil, err
	}
	return mapTags(resp.TopTags.Tag), nil
}

// GetSimilarArtists returns up to limit artists similar to mbid with their
// match score in [0,1].
func (a *Adapter) GetSimilarArtists(ctx context.Context, mbid string, limit int) ([]provider.Candidate, error) {
	var resp SimilarResponse
	params := url.Values{"mbid": {mbid}, "limit": {strconv.Itoa(limit)}}
	if err := a.call(ctx, "artist.getsimilar", params, &resp); err != nil {
		return nil, err
	}
	return mapEntries(resp.SimilarArtists.Artist), nil
}

// GetTopArtistsChart returns the global top artists chart.
func (a *Adapter) GetTopArtistsChart(ctx context.Context, limit int) ([]provider.Candidate, error) {
	var resp ChartResponse
	if err := a.call(ctx, "chart.gettopartists", url.Values{"limit": {strconv.Itoa(limit)}}, &resp); err != nil {
		return nil, err
	}
	return mapEntries(resp.Artists.Artist), nil
}

// GetTopArtistsByTag returns the top artists for a tag.
func (a *Adapter) GetTopArtistsByTag(ctx context.Context, tag string, limit int) ([]provider.Candidate, error) {
	var resp TagTopArtistsResponse
	params := url.Values{"tag": {tag}, "limit": {strconv.Itoa(limit)}}
	if err := a.call(ctx, "tag.gettopartists", params, &resp); err != nil {
		return nil, err
	}
	return mapEntries(resp.TopArtists.Artist), nil
}

func (a *Adapter) call(ctx context.Context, method string, params url.Values, out any) error {
	if !a.Configured() {
		return &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}

	if err := a.limiter.Wait(ctx, provider.NameLastFM); err != nil {
		return &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	q := url.Values{
		"method":  {method},
		"api_key": {a.apiKey},
		"format":  {"json"},
	}
	for k, v := range params {
		q[k] = v
	}
	reqURL := a.baseURL + "/?" + q.Encode()

	body, err := a.doRequest(ctx, method, reqURL)
	if err != nil {
		return err
	}

	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
		return mapAPIError(apiErr, params)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &provider.ErrBadResponse{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("decoding %s: %w", method, err),
		}
	}
	return nil
}

func (a *Adapter) doRequest(ctx context.Context, method, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Aurral/1.0")
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("method", method))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + API params
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{Provider: provider.NameLastFM, Cause: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, &provider.ErrRateLimited{Provider: provider.NameLastFM, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}
	// 4xx responses carry the JSON error envelope and are classified by the caller.
	return body, nil
}

func mapAPIError(e APIError, params url.Values) error {
	switch e.Code {
	case errCodeInvalidParams:
		id := params.Get("mbid")
		if id == "" {
			id = params.Get("tag")
		}
		return &provider.ErrNotFound{Provider: provider.NameLastFM, ID: id}
	case errCodeRateLimit:
		return &provider.ErrRateLimited{Provider: provider.NameLastFM, StatusCode: http.StatusTooManyRequests}
	default:
		return &provider.ErrBadResponse{
			Provider: provider.NameLastFM,
			Cause:    fmt.Errorf("api error %d: %s", e.Code, e.Message),
		}
	}
}

func mapImages(images list[Image]) []provider.Image {
	if len(images) == 0 {
		return nil
	}
	out := make([]provider.Image, 0, len(images))
	for _, img := range images {
		out = append(out, provider.Image{URL: img.URL, Size: img.Size})
	}
	return out
}

func mapTags(tags list[Tag]) []provider.Tag {
	out := make([]provider.Tag, 0, len(tags))
	for _, t := range tags {
		if t.Name == "" {
			continue
		}
		out = append(out, provider.Tag{Name: t.Name, Count: int(t.Count)})
	}
	return out
}

func mapEntries(entries list[ArtistEntry]) []provider.Candidate {
	out := make([]provider.Candidate, 0, len(entries))
	for _, e := range entries {
		out = append(out, provider.Candidate{
			ID:     e.MBID,
			Name:   e.Name,
			Match:  float64(e.Match),
			Images: mapImages(e.Image),
		})
	}
	return out
}
