package gateway

import (
	"context"

	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/provider"
)

// Library manager.

// LibraryConfigured reports whether the library manager has credentials.
func (g *Gateway) LibraryConfigured() bool {
	return g.lidarr != nil && g.lidarr.Configured()
}

// ListArtists returns every artist in the user's library.
func (g *Gateway) ListArtists(ctx context.Context) ([]provider.OwnedArtist, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	artists, err := call(ctx, g, provider.NameLidarr, "list_artists", g.lidarr.GetArtists)
	if err != nil {
		return nil, err
	}
	out := make([]provider.OwnedArtist, 0, len(artists))
	for _, a := range artists {
		if a.ForeignArtistID == "" {
			continue
		}
		out = append(out, provider.OwnedArtist{
			ID:         a.ForeignArtistID,
			LibraryID:  a.ID,
			Name:       a.ArtistName,
			Monitored:  a.Monitored,
			SizeOnDisk: a.Statistics.SizeOnDisk,
			Added:      a.Added,
		})
	}
	return out, nil
}

// LibraryStatus returns the library manager's system status.
func (g *Gateway) LibraryStatus(ctx context.Context) (*lidarr.SystemStatus, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "system_status", g.lidarr.SystemStatus)
}

// DetectLibraryBasePath detects a reverse-proxy base path for the library manager.
// It bypasses the breaker: a failed detection is informational only.
func (g *Gateway) DetectLibraryBasePath(ctx context.Context) bool {
	if !g.LibraryConfigured() {
		return false
	}
	return g.lidarr.DetectBasePath(ctx)
}

// RootFolders lists the library manager's root folders.
func (g *Gateway) RootFolders(ctx context.Context) ([]lidarr.RootFolder, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "root_folders", g.lidarr.RootFolders)
}

// QualityProfiles lists the library manager's quality profiles.
func (g *Gateway) QualityProfiles(ctx context.Context) ([]lidarr.Profile, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "quality_profiles", g.lidarr.QualityProfiles)
}

// MetadataProfiles lists the library manager's metadata profiles.
func (g *Gateway) MetadataProfiles(ctx context.Context) ([]lidarr.Profile, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "metadata_profiles", g.lidarr.MetadataProfiles)
}

// AddArtist adds an artist to the library manager.
func (g *Gateway) AddArtist(ctx context.Context, req lidarr.AddArtistRequest) (*lidarr.Artist, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "add_artist", func(ctx context.Context) (*lidarr.Artist, error) {
		return g.lidarr.AddArtist(ctx, req)
	})
}

// LibraryArtist returns one library artist by its library id.
func (g *Gateway) LibraryArtist(ctx context.Context, id int) (*lidarr.Artist, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "get_artist", func(ctx context.Context) (*lidarr.Artist, error) {
		return g.lidarr.GetArtist(ctx, id)
	})
}

// DeleteArtist removes an artist from the library manager.
func (g *Gateway) DeleteArtist(ctx context.Context, id int, deleteFiles bool) error {
	if !g.LibraryConfigured() {
		return &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	_, err := call(ctx, g, provider.NameLidarr, "delete_artist", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.lidarr.DeleteArtist(ctx, id, deleteFiles)
	})
	return err
}

// Albums lists a library artist's albums.
func (g *Gateway) Albums(ctx context.Context, artistID int) ([]lidarr.Album, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "albums", func(ctx context.Context) ([]lidarr.Album, error) {
		return g.lidarr.Albums(ctx, artistID)
	})
}

// SetAlbumsMonitored toggles monitoring for the given albums.
func (g *Gateway) SetAlbumsMonitored(ctx context.Context, albumIDs []int, monitored bool) ([]lidarr.Album, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "monitor_albums", func(ctx context.Context) ([]lidarr.Album, error) {
		return g.lidarr.SetAlbumsMonitored(ctx, albumIDs, monitored)
	})
}

// SearchAlbums asks the library manager to search for the given albums.
func (g *Gateway) SearchAlbums(ctx context.Context, albumIDs []int) (*lidarr.Command, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "album_search", func(ctx context.Context) (*lidarr.Command, error) {
		return g.lidarr.SearchAlbums(ctx, albumIDs)
	})
}

// MediaCover fetches an artist image stored by the library manager.
func (g *Gateway) MediaCover(ctx context.Context, artistID int, coverType string) (*lidarr.Media, error) {
	if !g.LibraryConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLidarr}
	}
	return call(ctx, g, provider.NameLidarr, "media_cover", func(ctx context.Context) (*lidarr.Media, error) {
		return g.lidarr.MediaCover(ctx, artistID, coverType)
	})
}

// Listening stats.

// StatsConfigured reports whether the listening-stats service is usable.
func (g *Gateway) StatsConfigured() bool {
	return g.lastfm != nil && g.lastfm.Configured()
}

// ArtistInfo returns images and tags for an artist from the stats service.
func (g *Gateway) ArtistInfo(ctx context.Context, mbid string) (*provider.ArtistInfo, error) {
	if !g.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	return call(ctx, g, provider.NameLastFM, "artist_info", func(ctx context.Context) (*provider.ArtistInfo, error) {
		return g.lastfm.GetArtistInfo(ctx, mbid)
	})
}

// TopTags returns the stats service's top tags for an artist.
func (g *Gateway) TopTags(ctx context.Context, mbid string) ([]provider.Tag, error) {
	if !g.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	return call(ctx, g, provider.NameLastFM, "top_tags", func(ctx context.Context) ([]provider.Tag, error) {
		return g.lastfm.GetTopTags(ctx, mbid)
	})
}

// SimilarArtists returns up to limit artists similar to mbid.
func (g *Gateway) SimilarArtists(ctx context.Context, mbid string, limit int) ([]provider.Candidate, error) {
	if !g.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	return call(ctx, g, provider.NameLastFM, "similar_artists", func(ctx context.Context) ([]provider.Candidate, error) {
		return g.lastfm.GetSimilarArtists(ctx, mbid, limit)
	})
}

// TopArtistsChart returns the global top-artists chart.
func (g *Gateway) TopArtistsChart(ctx context.Context, limit int) ([]provider.Candidate, error) {
	if !g.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	return call(ctx, g, provider.NameLastFM, "top_artists_chart", func(ctx context.Context) ([]provider.Candidate, error) {
		return g.lastfm.GetTopArtistsChart(ctx, limit)
	})
}

// TopArtistsByTag returns the top artists for a tag.
func (g *Gateway) TopArtistsByTag(ctx context.Context, tag string, limit int) ([]provider.Candidate, error) {
	if !g.StatsConfigured() {
		return nil, &provider.ErrNotConfigured{Provider: provider.NameLastFM}
	}
	return call(ctx, g, provider.NameLastFM, "top_artists_by_tag", func(ctx context.Context) ([]provider.Candidate, error) {
		return g.lastfm.GetTopArtistsByTag(ctx, tag, limit)
	})
}

// Metadata registry.

// RegistryHasContact reports whether a real contact address is configured
// for the registry User-Agent.
func (g *Gateway) RegistryHasContact() bool {
	return g.mb.HasContact()
}

// SearchArtists runs a Lucene-style artist search against the registry.
func (g *Gateway) SearchArtists(ctx context.Context, query string, limit, offset int) ([]provider.ArtistSearchResult, error) {
	return call(ctx, g, provider.NameMusicBrainz, "search_artists", func(ctx context.Context) ([]provider.ArtistSearchResult, error) {
		return g.mb.SearchArtists(ctx, query, limit, offset)
	})
}

// ArtistDetails returns the registry's full record for an artist.
func (g *Gateway) ArtistDetails(ctx context.Context, mbid string) (*provider.ArtistDetails, error) {
	return call(ctx, g, provider.NameMusicBrainz, "artist_details", func(ctx context.Context) (*provider.ArtistDetails, error) {
		return g.mb.GetArtistDetails(ctx, mbid)
	})
}

// ArtistTags returns the registry's tags and genres for an artist.
func (g *Gateway) ArtistTags(ctx context.Context, mbid string) (*provider.ArtistTags, error) {
	return call(ctx, g, provider.NameMusicBrainz, "artist_tags", func(ctx context.Context) (*provider.ArtistTags, error) {
		return g.mb.GetArtistTags(ctx, mbid)
	})
}

// ReleaseGroups returns an artist's release groups.
func (g *Gateway) ReleaseGroups(ctx context.Context, mbid string) ([]provider.ReleaseGroup, error) {
	return call(ctx, g, provider.NameMusicBrainz, "release_groups", func(ctx context.Context) ([]provider.ReleaseGroup, error) {
		return g.mb.GetReleaseGroups(ctx, mbid)
	})
}

// ReleaseGroupCover returns a cover image URL for a release group.
func (g *Gateway) ReleaseGroupCover(ctx context.Context, releaseGroupID string) (string, error) {
	return call(ctx, g, provider.NameCoverArt, "release_group_cover", func(ctx context.Context) (string, error) {
		return g.caa.GetReleaseGroupCover(ctx, releaseGroupID)
	})
}

// ProviderStatus is the health summary for one upstream service.
type ProviderStatus struct {
	Name       provider.ProviderName `json:"name"`
	Display    string                `json:"display_name"`
	Configured bool                  `json:"configured"`
	Breaker    string                `json:"breaker"`
}

// Status returns the configuration and breaker state of every provider.
func (g *Gateway) Status() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(g.breakers))
	for _, name := range provider.AllProviderNames() {
		configured := true
		switch name {
		case provider.NameLidarr:
			configured = g.LibraryConfigured()
		case provider.NameLastFM:
			configured = g.StatsConfigured()
		}
		out = append(out, ProviderStatus{
			Name:       name,
			Display:    name.DisplayName(),
			Configured: configured,
			Breaker:    g.breakers[name].State().String(),
		})
	}
	return out
}

// LibraryURL returns the library manager URL in use, after any base-path
// detection. It is empty when the library manager is not configured.
func (g *Gateway) LibraryURL() string {
	if !g.LibraryConfigured() {
		return ""
	}
	return g.lidarr.BaseURL()
}
