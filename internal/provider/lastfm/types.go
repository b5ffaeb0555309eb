package lastfm

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Last.fm API response types.

// list decodes a Last.fm collection that is a JSON array when it has several
// entries but a bare object when it has exactly one.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*l = []T{item}
	return nil
}

// number decodes a numeric field that Last.fm sends either as a JSON number
// or as a string.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil //nolint:nilerr // malformed counts are treated as absent
	}
	*n = number(f)
	return nil
}

// APIError is the error envelope Last.fm returns, often with HTTP 200.
type APIError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// Image is one entry of an image array.
type Image struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

// InfoResponse is the top-level response from artist.getinfo.
type InfoResponse struct {
	Artist ArtistInfo `json:"artist"`
}

// ArtistInfo is the artist info from artist.getinfo.
type ArtistInfo struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	URL   string      `json:"url"`
	Image list[Image] `json:"image"`
	Tags  struct {
		Tag list[Tag] `json:"tag"`
	} `json:"tags"`
}

// TopTagsResponse is the top-level response from artist.gettoptags.
type TopTagsResponse struct {
	TopTags struct {
		Tag list[Tag] `json:"tag"`
	} `json:"toptags"`
}

// Tag is a single tag with its weight.
type Tag struct {
	Name  string `json:"name"`
	Count number `json:"count"`
	URL   string `json:"url"`
}

// SimilarResponse is the top-level response from artist.getsimilar.
type SimilarResponse struct {
	SimilarArtists struct {
		Artist list[ArtistEntry] `json:"artist"`
	} `json:"similarartists"`
}

// ChartResponse is the top-level response from chart.gettopartists.
type ChartResponse struct {
	Artists struct {
		Artist list[ArtistEntry] `json:"artist"`
	} `json:"artists"`
}

// TagTopArtistsResponse is the top-level response from tag.gettopartists.
type TagTopArtistsResponse struct {
	TopArtists struct {
		Artist list[ArtistEntry] `json:"artist"`
	} `json:"topartists"`
}

// ArtistEntry is an artist as it appears in similar, chart and tag listings.
type ArtistEntry struct {
	Name  string      `json:"name"`
	MBID  string      `json:"mbid"`
	Match number      `json:"match"`
	URL   string      `json:"url"`
	Image list[Image] `json:"image"`
}
