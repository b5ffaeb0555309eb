package musicbrainz

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
	"github.com/sydlexius/aurral/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Adapter is the MusicBrainz metadata registry client. Every request goes
// through the shared musicbrainz limiter slot, so calls from the builder and
// from foreground lookups are serialized system-wide.
type Adapter struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
	contact string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *provider.RateLimiterMap, contact string, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, contact, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, contact string, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
		contact: contact,
	}
}

// HasContact reports whether a contact identifier is sent with requests.
// MusicBrainz asks clients to identify themselves; without one requests are
// more likely to be throttled.
func (a *Adapter) HasContact() bool {
	return a.contact != "" && a.contact != "user@example.com"
}

// SearchArtists runs a Lucene query against the artist index.
func (a *Adapter) SearchArtists(ctx context.Context, query string, limit, offset int) ([]provider.ArtistSearchResult, error) {
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	reqURL := a.baseURL + "/artist?" + params.Encode()

	var resp SearchResponse
	if err := a.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	results := make([]provider.ArtistSearchResult, 0, len(resp.Artists))
	for _, art := range resp.Artists {
		results = append(results, provider.ArtistSearchResult{
			ID:             art.ID,
			Name:           art.Name,
			SortName:       art.SortName,
			Type:           art.Type,
			Disambiguation: art.Disambiguation,
			Country:        art.Country,
			Score:          art.Score,
			Tags:           mapTags(art.Tags),
		})
	}
	return results, nil
}

// GetArtist fetches an artist by MBID with the given include flags
// (e.g. "tags", "genres", "release-groups").
func (a *Adapter) GetArtist(ctx context.Context, mbid string, inc ...string) (*MBArtist, error) {
	if err := provider.ValidateID(mbid); err != nil {
		return nil, err
	}
	params := url.Values{"fmt": {"json"}}
	if len(inc) > 0 {
		params.Set("inc", strings.Join(inc, "+"))
	}
	reqURL := a.baseURL + "/artist/" + url.PathEscape(mbid) + "?" + params.Encode()

	var artist MBArtist
	if err := a.getJSON(ctx, reqURL, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// GetArtistDetails returns the artist with aliases, tags, ratings, genres
// and release groups.
func (a *Adapter) GetArtistDetails(ctx context.Context, mbid string) (*provider.ArtistDetails, error) {
	artist, err := a.GetArtist(ctx, mbid, "aliases", "tags", "ratings", "genres", "release-groups")
	if err != nil {
		return nil, err
	}
	out := &provider.ArtistDetails{
		ID:             artist.ID,
		Name:           artist.Name,
		SortName:       artist.SortName,
		Type:           artist.Type,
		Disambiguation: artist.Disambiguation,
		Country:        artist.Country,
		Begin:          artist.LifeSpan.Begin,
		End:            artist.LifeSpan.End,
		Ended:          artist.LifeSpan.Ended,
		Tags:           mapTags(artist.Tags),
		Genres:         mapGenres(artist.Genres),
		ReleaseGroups:  mapReleaseGroups(artist.ReleaseGroups),
	}
	seen := map[string]struct{}{artist.Name: {}}
	for _, al := range artist.Aliases {
		if _, dup := seen[al.Name]; dup || al.Name == "" {
			continue
		}
		seen[al.Name] = struct{}{}
		out.Aliases = append(out.Aliases, al.Name)
	}
	if artist.Rating != nil {
		out.Rating = artist.Rating.Value
		out.RatingVotes = artist.Rating.VotesCount
	}
	return out, nil
}

// GetArtistTags returns the user tags and curated genres for an artist.
func (a *Adapter) GetArtistTags(ctx context.Context, mbid string) (*provider.ArtistTags, error) {
	artist, err := a.GetArtist(ctx, mbid, "tags", "genres")
	if err != nil {
		return nil, err
	}
	return &provider.ArtistTags{Tags: mapTags(artist.Tags), Genres: mapGenres(artist.Genres)}, nil
}

// GetReleaseGroups returns the release groups attached to an artist.
func (a *Adapter) GetReleaseGroups(ctx context.Context, mbid string) ([]provider.ReleaseGroup, error) {
	artist, err := a.GetArtist(ctx, mbid, "release-groups")
	if err != nil {
		return nil, err
	}
	return mapReleaseGroups(artist.ReleaseGroups), nil
}

func (a *Adapter) getJSON(ctx context.Context, reqURL string, out any) error {
	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &provider.ErrBadResponse{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("decoding response: %w", err),
		}
	}
	return nil
}

// doRequest executes an HTTP GET inside the registry's rate-limit slot. The
// slot is held until the body has been read so at most one request is ever
// outstanding.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	release, err := a.limiter.Acquire(ctx, provider.NameMusicBrainz)
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent())
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := a.client.Do(req) //nolint:gosec // URL constructed from trusted base + validated MBID
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Provider: provider.NameMusicBrainz,
			ID:       reqURL,
		}
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrRateLimited{
			Provider:   provider.NameMusicBrainz,
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After"), 2*time.Second),
		}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("reading body: %w", err),
		}
	}
	return body, nil
}

func (a *Adapter) userAgent() string {
	contact := a.contact
	if contact == "" {
		contact = "https://github.com/sydlexius/aurral"
	}
	return fmt.Sprintf("Aurral/%s ( %s )", version.Version, contact)
}

func mapTags(tags []MBTag) []provider.Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]provider.Tag, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			out = append(out, provider.Tag{Name: t.Name, Count: t.Count})
		}
	}
	return out
}

func mapGenres(genres []MBGenre) []provider.Tag {
	var out []provider.Tag
	for _, g := range genres {
		if g.Name != "" {
			out = append(out, provider.Tag{Name: g.Name, Count: g.Count})
		}
	}
	return out
}

func mapReleaseGroups(groups []MBReleaseGroup) []provider.ReleaseGroup {
	out := make([]provider.ReleaseGroup, 0, len(groups))
	for _, rg := range groups {
		out = append(out, provider.ReleaseGroup{
			ID:               rg.ID,
			Title:            rg.Title,
			PrimaryType:      rg.PrimaryType,
			FirstReleaseDate: rg.FirstReleaseDate,
		})
	}
	return out
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
