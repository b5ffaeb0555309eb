package store

import (
	"maps"
	"slices"
	"time"
)

// ImageNotFound is the image cache sentinel for an artist whose cover could
// not be resolved. It is never a valid URL.
const ImageNotFound = "NOT_FOUND"

// Document is the single persisted state document.
type Document struct {
	Discovery Discovery         `json:"discovery"`
	Images    map[string]string `json:"images"`
	Requests  []Request         `json:"requests"`
	Settings  Settings          `json:"settings"`
}

// Discovery holds the output of the last successful recommendation build.
type Discovery struct {
	Recommendations []Recommendation `json:"recommendations"`
	Trending        []Recommendation `json:"globalTop"`
	BasedOn         []SeedArtist     `json:"basedOn"`
	TopTags         []string         `json:"topTags"`
	TopGenres       []string         `json:"topGenres"`
	LastUpdated     *time.Time       `json:"lastUpdated"`
}

// Recommendation is one suggested artist. SourceArtist is empty for
// trending-only entries.
type Recommendation struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	SortName       string   `json:"sortName,omitempty"`
	Type           string   `json:"type,omitempty"`
	RelationType   string   `json:"relationType,omitempty"`
	SourceArtist   string   `json:"sourceArtist,omitempty"`
	Disambiguation string   `json:"disambiguation,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Score          int      `json:"score,omitempty"`
	Image          string   `json:"image,omitempty"`
}

// SeedArtist is an owned artist that seeded a build.
type SeedArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Request status values.
const (
	RequestRequested  = "requested"
	RequestProcessing = "processing"
	RequestAvailable  = "available"
)

// Request records an artist the user asked the library manager to add.
type Request struct {
	ID          string    `json:"mbid"`
	Name        string    `json:"name"`
	Image       string    `json:"image,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
	Status      string    `json:"status"`
	LibraryID   int       `json:"lidarrId,omitempty"`
}

// Settings are the defaults applied when adding an artist to the library.
type Settings struct {
	RootFolderPath         string `json:"rootFolderPath"`
	QualityProfileID       int    `json:"qualityProfileId"`
	MetadataProfileID      int    `json:"metadataProfileId"`
	Monitored              bool   `json:"monitored"`
	SearchForMissingAlbums bool   `json:"searchForMissingAlbums"`
	AlbumFolders           bool   `json:"albumFolders"`
}

// DefaultDocument returns the document written on first start.
func DefaultDocument() Document {
	return Document{
		Discovery: EmptyDiscovery(),
		Images:    map[string]string{},
		Requests:  []Request{},
		Settings:  DefaultSettings(),
	}
}

// DefaultSettings returns the initial library settings.
func DefaultSettings() Settings {
	return Settings{
		Monitored:    true,
		AlbumFolders: true,
	}
}

// EmptyDiscovery returns a discovery section with no results.
func EmptyDiscovery() Discovery {
	return Discovery{
		Recommendations: []Recommendation{},
		Trending:        []Recommendation{},
		BasedOn:         []SeedArtist{},
		TopTags:         []string{},
		TopGenres:       []string{},
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := Document{
		Discovery: d.Discovery.Clone(),
		Images:    maps.Clone(d.Images),
		Requests:  slices.Clone(d.Requests),
		Settings:  d.Settings,
	}
	if out.Images == nil {
		out.Images = map[string]string{}
	}
	if out.Requests == nil {
		out.Requests = []Request{}
	}
	return out
}

// Clone returns a deep copy of d.
func (d Discovery) Clone() Discovery {
	out := Discovery{
		Recommendations: cloneRecommendations(d.Recommendations),
		Trending:        cloneRecommendations(d.Trending),
		BasedOn:         slices.Clone(d.BasedOn),
		TopTags:         slices.Clone(d.TopTags),
		TopGenres:       slices.Clone(d.TopGenres),
	}
	if d.LastUpdated != nil {
		t := *d.LastUpdated
		out.LastUpdated = &t
	}
	if out.BasedOn == nil {
		out.BasedOn = []SeedArtist{}
	}
	if out.TopTags == nil {
		out.TopTags = []string{}
	}
	if out.TopGenres == nil {
		out.TopGenres = []string{}
	}
	return out
}

func cloneRecommendations(in []Recommendation) []Recommendation {
	out := make([]Recommendation, len(in))
	for i, r := range in {
		r.Tags = slices.Clone(r.Tags)
		out[i] = r
	}
	return out
}
