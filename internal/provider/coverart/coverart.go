package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
)

const defaultBaseURL = "https://coverartarchive.org"

// Response is the body of GET /release-group/{mbid}.
type Response struct {
	Images []CoverImage `json:"images"`
}

// CoverImage is one piece of artwork attached to a release.
type CoverImage struct {
	Image      string     `json:"image"`
	Front      bool       `json:"front"`
	Types      []string   `json:"types"`
	Thumbnails Thumbnails `json:"thumbnails"`
}

// Thumbnails lists the pre-scaled variants of an image.
type Thumbnails struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// Adapter looks up release group artwork on the Cover Art Archive.
type Adapter struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// New creates a Cover Art Archive adapter with the default base URL.
func New(logger *slog.Logger) *Adapter {
	return NewWithBaseURL(logger, defaultBaseURL)
}

// NewWithBaseURL creates a Cover Art Archive adapter with a custom base URL (for testing).
func NewWithBaseURL(logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 5 * time.Second},
		logger:  logger.With(slog.String("provider", "coverartarchive")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// GetReleaseGroupCover returns the best URL for a release group's front cover:
// the image flagged front (else the first), preferring the large thumbnail,
// then the small one, then the original. ErrNotFound means no artwork exists.
func (a *Adapter) GetReleaseGroupCover(ctx context.Context, releaseGroupID string) (string, error) {
	reqURL := a.baseURL + "/release-group/" + url.PathEscape(releaseGroupID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + registry id
	if err != nil {
		return "", &provider.ErrProviderUnavailable{Provider: provider.NameCoverArt, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: releaseGroupID}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &provider.ErrRateLimited{Provider: provider.NameCoverArt, StatusCode: resp.StatusCode}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &provider.ErrProviderUnavailable{
			Provider: provider.NameCoverArt,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	var body Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 512*1024)).Decode(&body); err != nil {
		return "", &provider.ErrBadResponse{Provider: provider.NameCoverArt, Cause: err}
	}
	if len(body.Images) == 0 {
		return "", &provider.ErrNotFound{Provider: provider.NameCoverArt, ID: releaseGroupID}
	}
	return pickURL(body.Images), nil
}

func pickURL(images []CoverImage) string {
	chosen := images[0]
	for _, img := range images {
		if img.Front {
			chosen = img
			break
		}
	}
	switch {
	case chosen.Thumbnails.Large != "":
		return chosen.Thumbnails.Large
	case chosen.Thumbnails.Small != "":
		return chosen.Thumbnails.Small
	default:
		return chosen.Image
	}
}
