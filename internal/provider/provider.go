package provider

import (
	"time"
)

// ProviderName uniquely identifies an upstream service.
type ProviderName string

// Known provider names.
const (
	NameLidarr      ProviderName = "lidarr"
	NameMusicBrainz ProviderName = "musicbrainz"
	NameCoverArt    ProviderName = "coverartarchive"
	NameLastFM      ProviderName = "lastfm"
)

// AllProviderNames returns all known provider names in display order.
func AllProviderNames() []ProviderName {
	return []ProviderName{NameLidarr, NameMusicBrainz, NameCoverArt, NameLastFM}
}

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameLidarr:
		return "Lidarr"
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameCoverArt:
		return "Cover Art Archive"
	case NameLastFM:
		return "Last.fm"
	default:
		return string(n)
	}
}

// OwnedArtist is an artist already present in the user's library.
type OwnedArtist struct {
	ID         string    `json:"id"`
	LibraryID  int       `json:"library_id"`
	Name       string    `json:"name"`
	Monitored  bool      `json:"monitored"`
	SizeOnDisk int64     `json:"size_on_disk"`
	Added      time.Time `json:"added"`
}

// Tag is a weighted tag or genre label attached to an artist.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ArtistSearchResult represents a single search hit from the metadata registry.
type ArtistSearchResult struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SortName       string `json:"sort_name,omitempty"`
	Type           string `json:"type,omitempty"`
	Disambiguation string `json:"disambiguation,omitempty"`
	Country        string `json:"country,omitempty"`
	Score          int    `json:"score"`
	Tags           []Tag  `json:"tags,omitempty"`
}

// ArtistTags is the tag and genre data the registry holds for an artist.
type ArtistTags struct {
	Tags   []Tag `json:"tags,omitempty"`
	Genres []Tag `json:"genres,omitempty"`
}

// ReleaseGroup is a registry release group, searched for cover art.
type ReleaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary_type,omitempty"`
	FirstReleaseDate string `json:"first_release_date,omitempty"`
}

// ArtistDetails is the registry's full record for one artist.
type ArtistDetails struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	SortName       string         `json:"sort_name,omitempty"`
	Type           string         `json:"type,omitempty"`
	Disambiguation string         `json:"disambiguation,omitempty"`
	Country        string         `json:"country,omitempty"`
	Begin          string         `json:"begin,omitempty"`
	End            string         `json:"end,omitempty"`
	Ended          bool           `json:"ended"`
	Aliases        []string       `json:"aliases,omitempty"`
	Tags           []Tag          `json:"tags,omitempty"`
	Genres         []Tag          `json:"genres,omitempty"`
	Rating         *float64       `json:"rating,omitempty"`
	RatingVotes    int            `json:"rating_votes,omitempty"`
	ReleaseGroups  []ReleaseGroup `json:"release_groups,omitempty"`
}

// Candidate is an artist suggested by the listening-stats service, either as
// a similar artist, a chart entry, or a top artist for a tag.
type Candidate struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Match  float64 `json:"match,omitempty"`
	Images []Image `json:"images,omitempty"`
}

// ArtistInfo is the subset of listening-stats artist info used for image resolution.
type ArtistInfo struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
	Tags   []Tag   `json:"tags,omitempty"`
}
