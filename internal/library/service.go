// Package library adds artists to the library manager and keeps the
// request history that tracks them until their files arrive.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sydlexius/aurral/internal/connection/lidarr"
	"github.com/sydlexius/aurral/internal/provider"
	"github.com/sydlexius/aurral/internal/store"
)

// DefaultMonitor is the album monitoring mode applied to new artists.
const DefaultMonitor = "all"

// ErrMissingArtist is returned when an add request lacks an id or name.
var ErrMissingArtist = errors.New("artist id and name are required")

// ErrNoDefault means the library manager has nothing to fall back on for a
// setting the user left unset.
type ErrNoDefault struct {
	What string
}

func (e *ErrNoDefault) Error() string {
	return fmt.Sprintf("no %s configured in the library manager", e.What)
}

// Manager is the library-manager side of the provider gateway.
type Manager interface {
	RootFolders(ctx context.Context) ([]lidarr.RootFolder, error)
	QualityProfiles(ctx context.Context) ([]lidarr.Profile, error)
	MetadataProfiles(ctx context.Context) ([]lidarr.Profile, error)
	AddArtist(ctx context.Context, req lidarr.AddArtistRequest) (*lidarr.Artist, error)
	LibraryArtist(ctx context.Context, id int) (*lidarr.Artist, error)
	DeleteArtist(ctx context.Context, id int, deleteFiles bool) error
	Albums(ctx context.Context, artistID int) ([]lidarr.Album, error)
	SetAlbumsMonitored(ctx context.Context, albumIDs []int, monitored bool) ([]lidarr.Album, error)
	SearchAlbums(ctx context.Context, albumIDs []int) (*lidarr.Command, error)
	MediaCover(ctx context.Context, artistID int, coverType string) (*lidarr.Media, error)
}

// Roster is the owned-artist cache.
type Roster interface {
	Get(ctx context.Context, forceRefresh bool) ([]provider.OwnedArtist, error)
	Invalidate()
}

// AddInput describes an artist to add. Nil options fall back to the stored
// settings, and unset root folder or profiles fall back to the first one the
// library manager reports.
type AddInput struct {
	ID                     string  `json:"foreignArtistId"`
	Name                   string  `json:"artistName"`
	Image                  string  `json:"image,omitempty"`
	RootFolderPath         *string `json:"rootFolderPath,omitempty"`
	QualityProfileID       *int    `json:"qualityProfileId,omitempty"`
	MetadataProfileID      *int    `json:"metadataProfileId,omitempty"`
	Monitored              *bool   `json:"monitored,omitempty"`
	SearchForMissingAlbums *bool   `json:"searchForMissingAlbums,omitempty"`
	AlbumFolders           *bool   `json:"albumFolders,omitempty"`
	Monitor                string  `json:"monitor,omitempty"`
}

// Service coordinates library additions with the persisted request history.
type Service struct {
	manager Manager
	roster  Roster
	store   *store.Store
	logger  *slog.Logger
}

// NewService creates a library service.
func NewService(manager Manager, roster Roster, st *store.Store, logger *slog.Logger) *Service {
	return &Service{
		manager: manager,
		roster:  roster,
		store:   st,
		logger:  logger.With(slog.String("component", "library")),
	}
}

// Add sends the artist to the library manager, records the request and
// drops the roster snapshot so the new artist shows up as owned.
func (s *Service) Add(ctx context.Context, in AddInput) (*lidarr.Artist, error) {
	if in.ID == "" || in.Name == "" {
		return nil, ErrMissingArtist
	}
	if err := provider.ValidateID(in.ID); err != nil {
		return nil, err
	}

	req, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}

	created, err := s.manager.AddArtist(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("adding artist: %w", err)
	}

	s.roster.Invalidate()

	record := store.Request{
		ID:        in.ID,
		Name:      in.Name,
		Image:     in.Image,
		Status:    store.RequestRequested,
		LibraryID: created.ID,
	}
	if err := s.store.RecordRequest(ctx, record); err != nil {
		// The artist is in the library either way.
		s.logger.Error("recording request", slog.String("mbid", in.ID), slog.String("error", err.Error()))
	}

	s.logger.Info("artist added to library",
		slog.String("mbid", in.ID),
		slog.String("name", in.Name),
		slog.Int("library_id", created.ID))
	return created, nil
}

func (s *Service) resolve(ctx context.Context, in AddInput) (lidarr.AddArtistRequest, error) {
	saved := s.store.Settings()

	req := lidarr.AddArtistRequest{
		ForeignArtistID:   in.ID,
		ArtistName:        in.Name,
		RootFolderPath:    deref(in.RootFolderPath, saved.RootFolderPath),
		QualityProfileID:  deref(in.QualityProfileID, saved.QualityProfileID),
		MetadataProfileID: deref(in.MetadataProfileID, saved.MetadataProfileID),
		Monitored:         deref(in.Monitored, saved.Monitored),
		AlbumFolder:       deref(in.AlbumFolders, saved.AlbumFolders),
		AddOptions: lidarr.AddOptions{
			SearchForMissingAlbums: deref(in.SearchForMissingAlbums, saved.SearchForMissingAlbums),
			Monitor:                in.Monitor,
		},
	}
	if req.AddOptions.Monitor == "" {
		req.AddOptions.Monitor = DefaultMonitor
	}

	if req.RootFolderPath == "" {
		folders, err := s.manager.RootFolders(ctx)
		if err != nil {
			return req, fmt.Errorf("listing root folders: %w", err)
		}
		if len(folders) == 0 {
			return req, &ErrNoDefault{What: "root folders"}
		}
		req.RootFolderPath = folders[0].Path
	}
	if req.QualityProfileID == 0 {
		id, err := firstProfile(ctx, s.manager.QualityProfiles, "quality profiles")
		if err != nil {
			return req, err
		}
		req.QualityProfileID = id
	}
	if req.MetadataProfileID == 0 {
		id, err := firstProfile(ctx, s.manager.MetadataProfiles, "metadata profiles")
		if err != nil {
			return req, err
		}
		req.MetadataProfileID = id
	}
	return req, nil
}

func firstProfile(ctx context.Context, list func(context.Context) ([]lidarr.Profile, error), what string) (int, error) {
	profiles, err := list(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", what, err)
	}
	if len(profiles) == 0 {
		return 0, &ErrNoDefault{What: what}
	}
	return profiles[0].ID, nil
}

// Requests returns the request history newest first, with statuses synced
// against the roster. A roster failure is logged and the stored statuses
// are returned unchanged.
func (s *Service) Requests(ctx context.Context) ([]store.Request, error) {
	owned, err := s.roster.Get(ctx, false)
	if err != nil {
		if !provider.IsNotConfigured(err) {
			s.logger.Warn("roster unavailable for request sync", slog.String("error", err.Error()))
		}
		owned = nil
	} else if owned == nil {
		owned = []provider.OwnedArtist{}
	}
	return s.store.Requests(ctx, owned)
}

// DeleteRequest removes a request from the history. It reports whether one
// existed.
func (s *Service) DeleteRequest(ctx context.Context, id string) (bool, error) {
	return s.store.DeleteRequest(ctx, id)
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
