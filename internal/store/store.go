// Package store is the persistent document store. The whole document lives in
// memory and every mutation is written through to the backend as one atomic
// save; mutations are serialized so concurrent writers never clobber each
// other's sections.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	json "github.com/goccy/go-json"
)

// Store holds the current document and its backend.
type Store struct {
	mu      sync.Mutex
	doc     Document
	backend Backend
	logger  *slog.Logger
}

// Open loads the document from backend, writing the default document when
// none exists yet.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	s := &Store{
		backend: backend,
		logger:  logger.With(slog.String("component", "store")),
	}

	data, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrNoDocument):
		s.doc = DefaultDocument()
		if err := s.save(ctx, s.doc); err != nil {
			return nil, err
		}
		s.logger.Info("initialized new document")
		return s, nil
	case err != nil:
		return nil, err
	}

	doc := DefaultDocument()
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	s.doc = doc.Clone()
	s.logger.Debug("document loaded",
		slog.Int("images", len(s.doc.Images)),
		slog.Int("recommendations", len(s.doc.Discovery.Recommendations)),
		slog.Int("requests", len(s.doc.Requests)))
	return s, nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Discovery returns a copy of the discovery section.
func (s *Store) Discovery() Discovery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Discovery.Clone()
}

// Settings returns the library settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings
}

// Update applies fn to a copy of the document and saves the result. If fn
// or the save fails the in-memory document is left unchanged.
func (s *Store) Update(ctx context.Context, fn func(*Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.save(ctx, next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// Image returns the cached image entry for id. The value may be ImageNotFound.
func (s *Store) Image(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.doc.Images[id]
	return v, ok
}

// SetImage records a resolved URL (or ImageNotFound) for id.
func (s *Store) SetImage(ctx context.Context, id, url string) error {
	return s.Update(ctx, func(d *Document) error {
		d.Images[id] = url
		return nil
	})
}

// ClearDiscovery resets discovery results and the image cache. Request
// history and settings are kept.
func (s *Store) ClearDiscovery(ctx context.Context) error {
	return s.Update(ctx, func(d *Document) error {
		d.Discovery = EmptyDiscovery()
		d.Images = map[string]string{}
		return nil
	})
}

func (s *Store) save(ctx context.Context, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("saving document", slog.Any("error", err))
		return err
	}
	return nil
}

// errUnchanged aborts an Update without saving.
var errUnchanged = errors.New("document unchanged")

// SetSettings replaces the library settings.
func (s *Store) SetSettings(ctx context.Context, settings Settings) error {
	return s.Update(ctx, func(d *Document) error {
		d.Settings = settings
		return nil
	})
}

// ImageCount returns the number of cached image entries, sentinels included.
func (s *Store) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Images)
}
