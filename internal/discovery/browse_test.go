package discovery

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sydlexius/aurral/internal/provider"
)

const seedID = "a74b1b7f-71a5-4011-9441-d0b5e4122711"

func TestByTagPrefersStatsAndFiltersOwned(t *testing.T) {
	src := &fakeSources{
		stats: true,
		byTag: []provider.Candidate{
			{ID: "owned-1", Name: "Owned"},
			{ID: "", Name: "No Id"},
			{ID: "x1", Name: "X1", Images: []provider.Image{{URL: "http://img/s.png", Size: "small"}, {URL: "http://img/m.png", Size: "medium"}}},
			{ID: "x2", Name: "X2"},
			{ID: "x3", Name: "X3"},
		},
	}
	b, _ := newBuilder(t, src, &fakeRoster{artists: owned("owned-1")}, &fakeImages{})

	got, err := b.ByTag(context.Background(), "shoegaze", 2)
	if err != nil {
		t.Fatalf("ByTag: %v", err)
	}
	if ids := recIDs(got); !slices.Equal(ids, []string{"x1", "x2"}) {
		t.Errorf("ByTag = %v, want [x1 x2]", ids)
	}
	if got[0].Image != "http://img/m.png" {
		t.Errorf("image = %q, want last listed size", got[0].Image)
	}
	if !slices.Equal(got[0].Tags, []string{"shoegaze"}) {
		t.Errorf("tags = %v", got[0].Tags)
	}
	if len(src.queries) != 0 {
		t.Errorf("registry should not be searched, got %v", src.queries)
	}
}

func TestByTagFallsBackToRegistry(t *testing.T) {
	query := `tag:"shoegaze" AND type:Group`
	src := &fakeSources{
		search: map[string][]provider.ArtistSearchResult{
			query: {{ID: "r1", Name: "Slowdive", Type: "Group", Tags: []provider.Tag{{Name: "shoegaze"}}}},
		},
	}
	b, _ := newBuilder(t, src, &fakeRoster{}, &fakeImages{})

	got, err := b.ByTag(context.Background(), "shoegaze", 0)
	if err != nil {
		t.Fatalf("ByTag: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" || got[0].Tags[0] != "shoegaze" {
		t.Errorf("ByTag = %+v", got)
	}
	if !slices.Equal(src.queries, []string{query}) {
		t.Errorf("queries = %q", src.queries)
	}

	if _, err := b.ByTag(context.Background(), "", 10); !errors.Is(err, ErrEmptyTag) {
		t.Errorf("empty tag: got %v, want ErrEmptyTag", err)
	}
}

func TestTagImage(t *testing.T) {
	placeholder := "https://lastfm.freetls.fastly.net/i/u/300x300/" + provider.PlaceholderFingerprint + ".png"
	tests := []struct {
		name   string
		images []provider.Image
		want   string
	}{
		{"extralarge", []provider.Image{{URL: "l", Size: "large"}, {URL: "xl", Size: "extralarge"}}, "xl"},
		{"large", []provider.Image{{URL: "s", Size: "small"}, {URL: "l", Size: "large"}}, "l"},
		{"last", []provider.Image{{URL: "s", Size: "small"}, {URL: "m", Size: "medium"}}, "m"},
		{"placeholder", []provider.Image{{URL: placeholder, Size: "extralarge"}, {URL: "m", Size: "medium"}}, ""},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tagImage(tt.images); got != tt.want {
				t.Errorf("tagImage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	src := &fakeSources{
		stats: true,
		similar: map[string][]provider.Candidate{
			seedID: {
				{ID: "owned-1", Name: "Owned", Match: 1},
				{ID: "", Name: "No Id", Match: 0.9},
				{ID: "n1", Name: "New", Match: 0.456},
			},
		},
	}
	b, _ := newBuilder(t, src, &fakeRoster{artists: owned("owned-1")}, &fakeImages{})

	got, err := b.Similar(context.Background(), seedID, 10)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d artists, want 2", len(got))
	}
	if !got[0].Owned || got[0].Match != 100 {
		t.Errorf("owned entry = %+v", got[0])
	}
	if got[1].Owned || got[1].Match != 46 {
		t.Errorf("new entry = %+v", got[1])
	}
}

func TestSimilarErrors(t *testing.T) {
	b, _ := newBuilder(t, &fakeSources{}, &fakeRoster{}, &fakeImages{})
	if _, err := b.Similar(context.Background(), seedID, 10); !provider.IsNotConfigured(err) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := b.Similar(context.Background(), "bad-id", 10); !provider.IsInvalidID(err) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}
