package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/provider"
)

// ErrNoAlbums is returned by SearchAlbums for an empty id list.
var ErrNoAlbums = errors.New("at least one album id is required")

// ErrCoverType is returned by MediaCover for an unknown image kind.
var ErrCoverType = errors.New("unknown cover type")

// coverTypes are the artist image kinds Lidarr stores.
var coverTypes = map[string]struct{}{
	"poster": {}, "fanart": {}, "banner": {}, "logo": {}, "clearlogo": {}, "cover": {}, "disc": {},
}

// Options are the choices a user picks from when adding an artist.
type Options struct {
	RootFolders      []lidarr.RootFolder `json:"rootFolders"`
	QualityProfiles  []lidarr.Profile    `json:"qualityProfiles"`
	MetadataProfiles []lidarr.Profile    `json:"metadataProfiles"`
}

// Options fetches root folders and both profile lists concurrently.
func (s *Service) Options(ctx context.Context) (*Options, error) {
	var out Options
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.RootFolders, err = s.manager.RootFolders(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.QualityProfiles, err = s.manager.QualityProfiles(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.MetadataProfiles, err = s.manager.MetadataProfiles(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if out.RootFolders == nil {
		out.RootFolders = []lidarr.RootFolder{}
	}
	if out.QualityProfiles == nil {
		out.QualityProfiles = []lidarr.Profile{}
	}
	if out.MetadataProfiles == nil {
		out.MetadataProfiles = []lidarr.Profile{}
	}
	return &out, nil
}

// Artist returns one library artist by its library id.
func (s *Service) Artist(ctx context.Context, id int) (*lidarr.Artist, error) {
	return s.manager.LibraryArtist(ctx, id)
}

// Remove deletes an artist from the library manager and drops the roster
// snapshot so the artist stops showing as owned.
func (s *Service) Remove(ctx context.Context, id int, deleteFiles bool) error {
	if err := s.manager.DeleteArtist(ctx, id, deleteFiles); err != nil {
		return fmt.Errorf("deleting artist: %w", err)
	}
	s.roster.Invalidate()
	s.logger.Info("artist removed from library",
		slog.Int("library_id", id),
		slog.Bool("delete_files", deleteFiles))
	return nil
}

// Albums lists the albums of a library artist.
func (s *Service) Albums(ctx context.Context, artistID int) ([]lidarr.Album, error) {
	albums, err := s.manager.Albums(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if albums == nil {
		albums = []lidarr.Album{}
	}
	return albums, nil
}

// SetAlbumMonitored turns monitoring of one album on or off.
func (s *Service) SetAlbumMonitored(ctx context.Context, albumID int, monitored bool) (*lidarr.Album, error) {
	albums, err := s.manager.SetAlbumsMonitored(ctx, []int{albumID}, monitored)
	if err != nil {
		return nil, err
	}
	for i := range albums {
		if albums[i].ID == albumID {
			return &albums[i], nil
		}
	}
	return nil, &provider.ErrNotFound{Provider: provider.NameLidarr, ID: strconv.Itoa(albumID)}
}

// SearchAlbums asks the library manager to search for the given albums.
func (s *Service) SearchAlbums(ctx context.Context, albumIDs []int) (*lidarr.Command, error) {
	if len(albumIDs) == 0 {
		return nil, ErrNoAlbums
	}
	return s.manager.SearchAlbums(ctx, albumIDs)
}

// MediaCover returns an artist image stored by the library manager.
func (s *Service) MediaCover(ctx context.Context, artistID int, coverType string) (*lidarr.Media, error) {
	if _, ok := coverTypes[coverType]; !ok {
		return nil, ErrCoverType
	}
	return s.manager.MediaCover(ctx, artistID, coverType)
}
