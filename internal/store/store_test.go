package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sydlexius/aurral/internal/provider"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func backends(t *testing.T) map[string]func() Backend {
	t.Helper()
	dir := t.TempDir()
	return map[string]func() Backend{
		"file": func() Backend { return NewFileBackend(filepath.Join(dir, "aurral.json")) },
		"sqlite": func() Backend {
			b, err := OpenSQLiteBackend(context.Background(), filepath.Join(dir, "aurral.db"))
			if err != nil {
				t.Fatalf("OpenSQLiteBackend: %v", err)
			}
			return b
		},
	}
}

func TestOpenWritesDefaultAndPersists(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s, err := Open(ctx, open(), testLogger())
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			settings := s.Settings()
			if !settings.Monitored || !settings.AlbumFolders || settings.SearchForMissingAlbums {
				t.Errorf("unexpected default settings: %+v", settings)
			}

			now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			err = s.Update(ctx, func(d *Document) error {
				d.Discovery.Recommendations = []Recommendation{{ID: "c", Name: "C", Score: 100, Tags: []string{"rock"}}}
				d.Discovery.LastUpdated = &now
				return nil
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if err := s.SetImage(ctx, "c", "http://img/c.jpg"); err != nil {
				t.Fatalf("SetImage: %v", err)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reopened, err := Open(ctx, open(), testLogger())
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer reopened.Close() //nolint:errcheck

			disc := reopened.Discovery()
			if len(disc.Recommendations) != 1 || disc.Recommendations[0].Tags[0] != "rock" {
				t.Errorf("recommendations not persisted: %+v", disc.Recommendations)
			}
			if disc.LastUpdated == nil || !disc.LastUpdated.Equal(now) {
				t.Errorf("lastUpdated = %v, want %v", disc.LastUpdated, now)
			}
			if url, ok := reopened.Image("c"); !ok || url != "http://img/c.jpg" {
				t.Errorf("image = %q, %v", url, ok)
			}
		})
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s, err := Open(context.Background(), NewFileBackend(filepath.Join(t.TempDir(), "a.json")), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Update(context.Background(), func(d *Document) error {
		d.Discovery.TopTags = []string{"rock"}
		return nil
	})

	snap := s.Snapshot()
	snap.Discovery.TopTags[0] = "mutated"
	snap.Images["x"] = "y"

	if got := s.Discovery().TopTags[0]; got != "rock" {
		t.Errorf("store mutated through snapshot: %q", got)
	}
	if _, ok := s.Image("x"); ok {
		t.Error("image map shared with snapshot")
	}
}

type failingBackend struct {
	Backend
	fail bool
}

func (b *failingBackend) Save(ctx context.Context, data []byte) error {
	if b.fail {
		return errors.New("disk full")
	}
	return b.Backend.Save(ctx, data)
}

func TestUpdateFailureLeavesDocumentUnchanged(t *testing.T) {
	fb := &failingBackend{Backend: NewFileBackend(filepath.Join(t.TempDir(), "a.json"))}
	s, err := Open(context.Background(), fb, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	fb.fail = true
	if err := s.SetImage(context.Background(), "x", "http://img"); err == nil {
		t.Fatal("expected save error")
	}
	if _, ok := s.Image("x"); ok {
		t.Error("failed save must not change the in-memory document")
	}

	fnErr := errors.New("abort")
	if err := s.Update(context.Background(), func(d *Document) error {
		d.Images["y"] = "z"
		return fnErr
	}); !errors.Is(err, fnErr) {
		t.Errorf("expected fn error, got %v", err)
	}
	if _, ok := s.Image("y"); ok {
		t.Error("aborted update must not change the document")
	}
}

func TestClearDiscoveryKeepsRequestsAndSettings(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewFileBackend(filepath.Join(t.TempDir(), "a.json")), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = s.Update(ctx, func(d *Document) error {
		d.Settings.RootFolderPath = "/music"
		d.Discovery.TopGenres = []string{"jazz"}
		d.Images["a"] = ImageNotFound
		return nil
	})
	_ = s.RecordRequest(ctx, Request{ID: "r1", Name: "R"})

	if err := s.ClearDiscovery(ctx); err != nil {
		t.Fatalf("ClearDiscovery: %v", err)
	}

	doc := s.Snapshot()
	if len(doc.Discovery.TopGenres) != 0 || len(doc.Images) != 0 {
		t.Errorf("discovery not cleared: %+v", doc)
	}
	if doc.Discovery.LastUpdated != nil {
		t.Error("lastUpdated should be reset")
	}
	if len(doc.Requests) != 1 || doc.Settings.RootFolderPath != "/music" {
		t.Errorf("requests or settings lost: %+v", doc)
	}
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewFileBackend(filepath.Join(t.TempDir(), "a.json")), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.SetImage(ctx, fmt.Sprintf("id-%d", i), "u"); err != nil {
				t.Errorf("SetImage: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := len(s.Snapshot().Images); n != 50 {
		t.Errorf("images = %d, want 50", n)
	}
}

func TestRequestsLifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, NewFileBackend(filepath.Join(t.TempDir(), "a.json")), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	older := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)
	_ = s.RecordRequest(ctx, Request{ID: "a", Name: "A", RequestedAt: older})
	_ = s.RecordRequest(ctx, Request{ID: "b", Name: "B", RequestedAt: newer})
	_ = s.RecordRequest(ctx, Request{ID: "c", Name: "C", RequestedAt: older.Add(time.Hour)})

	roster := []provider.OwnedArtist{
		{ID: "a", LibraryID: 11, SizeOnDisk: 100},
		{ID: "b", LibraryID: 12},
	}
	reqs, err := s.Requests(ctx, roster)
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(reqs) != 3 || reqs[0].ID != "b" || reqs[1].ID != "c" || reqs[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", reqs)
	}
	if reqs[0].Status != RequestProcessing || reqs[0].LibraryID != 12 {
		t.Errorf("b = %+v, want processing/12", reqs[0])
	}
	if reqs[1].Status != RequestRequested {
		t.Errorf("c status = %q, want requested", reqs[1].Status)
	}
	if reqs[2].Status != RequestAvailable {
		t.Errorf("a status = %q, want available", reqs[2].Status)
	}

	removed, err := s.DeleteRequest(ctx, "a")
	if err != nil || !removed {
		t.Fatalf("DeleteRequest = %v, %v", removed, err)
	}
	if removed, _ := s.DeleteRequest(ctx, "a"); removed {
		t.Error("second delete should report nothing removed")
	}
	reqs, _ = s.Requests(ctx, nil)
	if len(reqs) != 2 {
		t.Errorf("requests = %d, want 2", len(reqs))
	}
}

func TestSettingsAndImageCountPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.json")
	s, err := Open(ctx, NewFileBackend(path), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := Settings{RootFolderPath: "/music", QualityProfileID: 2, MetadataProfileID: 1}
	if err := s.SetSettings(ctx, want); err != nil {
		t.Fatalf("SetSettings: %v", err)
	}
	if err := s.SetImage(ctx, "a", "http://img/a.jpg"); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if err := s.SetImage(ctx, "b", ImageNotFound); err != nil {
		t.Fatalf("SetImage: %v", err)
	}
	if n := s.ImageCount(); n != 2 {
		t.Errorf("ImageCount = %d, want 2", n)
	}

	reopened, err := Open(ctx, NewFileBackend(path), testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := reopened.Settings(); got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}
