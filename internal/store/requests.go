package store

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
)

// RecordRequest upserts a request by artist id.
func (s *Store) RecordRequest(ctx context.Context, req Request) error {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = RequestRequested
	}
	return s.Update(ctx, func(d *Document) error {
		if i := slices.IndexFunc(d.Requests, func(r Request) bool { return r.ID == req.ID }); i >= 0 {
			d.Requests[i] = req
			return nil
		}
		d.Requests = append(d.Requests, req)
		return nil
	})
}

// DeleteRequest removes the request for id. It reports whether one existed.
func (s *Store) DeleteRequest(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.Update(ctx, func(d *Document) error {
		before := len(d.Requests)
		d.Requests = slices.DeleteFunc(d.Requests, func(r Request) bool { return r.ID == id })
		removed = len(d.Requests) != before
		return nil
	})
	return removed, err
}

// Requests returns the request history newest first. When roster is
// non-nil, each request's status is refreshed from the library: a matching
// artist with files on disk is available, one without is processing. Status
// changes are persisted.
func (s *Store) Requests(ctx context.Context, roster []provider.OwnedArtist) ([]Request, error) {
	var out []Request
	if roster == nil {
		out = s.Snapshot().Requests
	} else {
		byID := make(map[string]provider.OwnedArtist, len(roster))
		for _, a := range roster {
			byID[a.ID] = a
		}
		err := s.Update(ctx, func(d *Document) error {
			changed := false
			for i, r := range d.Requests {
				a, ok := byID[r.ID]
				if !ok {
					continue
				}
				status := RequestProcessing
				if a.SizeOnDisk > 0 {
					status = RequestAvailable
				}
				if status != r.Status || a.LibraryID != r.LibraryID {
					d.Requests[i].Status = status
					d.Requests[i].LibraryID = a.LibraryID
					changed = true
				}
			}
			out = slices.Clone(d.Requests)
			if !changed {
				return errUnchanged
			}
			return nil
		})
		if err != nil && !errors.Is(err, errUnchanged) {
			return nil, err
		}
	}

	slices.SortStableFunc(out, func(a, b Request) int {
		return b.RequestedAt.Compare(a.RequestedAt)
	})
	return out, nil
}
