package lidarr

import "time"

// SystemStatus represents the response from GET /api/v1/system/status.
type SystemStatus struct {
	Version string `json:"version"`
	AppName string `json:"appName"`
}

// Artist represents an artist from GET /api/v1/artist.
type Artist struct {
	ID              int        `json:"id"`
	ArtistName      string     `json:"artistName"`
	ForeignArtistID string     `json:"foreignArtistId"`
	Path            string     `json:"path"`
	Monitored       bool       `json:"monitored"`
	Added           time.Time  `json:"added"`
	Statistics      Statistics `json:"statistics"`
}

// Statistics holds the per-artist file statistics Lidarr reports.
type Statistics struct {
	AlbumCount int   `json:"albumCount"`
	TrackCount int   `json:"trackCount"`
	SizeOnDisk int64 `json:"sizeOnDisk"`
}

// RootFolder is an entry of GET /api/v1/rootfolder.
type RootFolder struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Profile is a quality or metadata profile.
type Profile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// AddArtistRequest is the body of POST /api/v1/artist.
type AddArtistRequest struct {
	ForeignArtistID   string     `json:"foreignArtistId"`
	ArtistName        string     `json:"artistName"`
	QualityProfileID  int        `json:"qualityProfileId"`
	MetadataProfileID int        `json:"metadataProfileId"`
	RootFolderPath    string     `json:"rootFolderPath"`
	Monitored         bool       `json:"monitored"`
	AlbumFolder       bool       `json:"albumFolder"`
	AddOptions        AddOptions `json:"addOptions"`
}

// AddOptions controls what Lidarr does right after adding an artist.
type AddOptions struct {
	SearchForMissingAlbums bool   `json:"searchForMissingAlbums"`
	Monitor                string `json:"monitor"`
}

// Album is an entry of GET /api/v1/album.
type Album struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	ForeignAlbumID string          `json:"foreignAlbumId"`
	ArtistID       int             `json:"artistId"`
	AlbumType      string          `json:"albumType"`
	Monitored      bool            `json:"monitored"`
	ReleaseDate    string          `json:"releaseDate,omitempty"`
	Statistics     AlbumStatistics `json:"statistics"`
}

// AlbumStatistics holds per-album file counts.
type AlbumStatistics struct {
	TrackCount      int     `json:"trackCount"`
	TrackFileCount  int     `json:"trackFileCount"`
	PercentOfTracks float64 `json:"percentOfTracks"`
	SizeOnDisk      int64   `json:"sizeOnDisk"`
}

type albumsMonitored struct {
	AlbumIDs  []int `json:"albumIds"`
	Monitored bool  `json:"monitored"`
}

type commandRequest struct {
	Name     string `json:"name"`
	AlbumIDs []int  `json:"albumIds,omitempty"`
}

// Command is a queued Lidarr command.
type Command struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Media is a binary image served by Lidarr.
type Media struct {
	Data        []byte
	ContentType string
}
