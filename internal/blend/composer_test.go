package blend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/spotify"
)

func boolp(v bool) *bool { return &v }

func makeTracks(prefix string, n int) []spotify.Track {
	tracks := make([]spotify.Track, n)
	for i := range tracks {
		tracks[i] = spotify.Track{
			ID:      fmt.Sprintf("%s-%d", prefix, i),
			Name:    fmt.Sprintf("%s track %d", prefix, i),
			Artists: []spotify.Artist{{ID: prefix + "-artist", Name: prefix}},
		}
	}
	return tracks
}

type recCall struct {
	seeds spotify.Seeds
	limit int
}

type mockClient struct {
	topArtists []spotify.Artist
	topTracks  []spotify.Track
	features   []spotify.AudioFeatures
	genres     []string

	// recommend maps a call to its response; defaults to limit fresh tracks.
	recommend func(call recCall) []spotify.Track

	recCalls    []recCall
	orderCalls  []spotify.OrderSpec
	searchError error
}

func (m *mockClient) TopArtists(ctx context.Context, timeRange spotify.TimeRange) ([]spotify.Artist, error) {
	return m.topArtists, nil
}

func (m *mockClient) TopTracks(ctx context.Context, timeRange spotify.TimeRange, limit int) ([]spotify.Track, error) {
	if len(m.topTracks) > limit {
		return m.topTracks[:limit], nil
	}
	return m.topTracks, nil
}

func (m *mockClient) AudioFeatures(ctx context.Context, trackIDs []string) ([]spotify.AudioFeatures, error) {
	return m.features, nil
}

func (m *mockClient) Recommendations(ctx context.Context, seeds spotify.Seeds, attrs spotify.Attributes, limit int) ([]spotify.Track, error) {
	if m.searchError != nil {
		return nil, m.searchError
	}
	call := recCall{seeds: seeds, limit: limit}
	m.recCalls = append(m.recCalls, call)
	if m.recommend != nil {
		return m.recommend(call), nil
	}
	return makeTracks(fmt.Sprintf("rec%d", len(m.recCalls)), limit), nil
}

func (m *mockClient) RecommendationGenres(ctx context.Context) ([]string, error) {
	return m.genres, nil
}

func (m *mockClient) OrderByFeature(ctx context.Context, order spotify.OrderSpec, trackIDs []string) ([]string, error) {
	m.orderCalls = append(m.orderCalls, order)
	return trackIDs, nil
}

type mockDislikes map[string]struct{}

func (m mockDislikes) DislikedArtists(ctx context.Context, userID string) (map[string]struct{}, error) {
	return m, nil
}

func newTestComposer(client *mockClient, dislikes DislikeStore) *Composer {
	return NewComposer(client, dislikes, "user1", log.New(io.Discard)).
		WithRand(rand.New(rand.NewSource(1)))
}

func TestGenerateTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("Genre Blend Proportions", func(t *testing.T) {
		client := &mockClient{
			recommend: func(call recCall) []spotify.Track {
				if len(call.seeds.Genres) > 0 {
					return makeTracks("genre", call.limit)
				}
				return makeTracks("artist", call.limit)
			},
		}
		p := Profile{
			TrackLimit:         100,
			ArtistLimit:        4,
			GenreToArtistRatio: 0.3,
			Genres:             []string{"study"},
			TopTracksTimeRange: spotify.MediumTerm,
		}

		ids, err := newTestComposer(client, nil).GenerateTracks(ctx, p, Options{
			Artists: []string{"a1", "a2"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(ids) != 100 {
			t.Fatalf("expected 100 tracks, got %d", len(ids))
		}

		var genreTracks int
		for _, id := range ids {
			if strings.HasPrefix(id, "genre-") {
				genreTracks++
			}
		}
		if genreTracks != 30 {
			t.Errorf("expected 30 genre-seeded tracks, got %d", genreTracks)
		}

		genreCall := client.recCalls[len(client.recCalls)-1]
		if genreCall.limit != 30 {
			t.Errorf("expected genre request limit 30, got %d", genreCall.limit)
		}
		if got := genreCall.seeds.Total(); got > 5 {
			t.Errorf("seed total %d exceeds the API ceiling", got)
		}
	})

	t.Run("Track Limit Caps The Pool", func(t *testing.T) {
		client := &mockClient{
			topTracks: makeTracks("top", 20),
			recommend: func(call recCall) []spotify.Track {
				return makeTracks("artist", 50)
			},
		}
		p := Profile{
			TrackLimit:         10,
			ArtistLimit:        4,
			TopTracksCount:     5,
			TopTracksTimeRange: spotify.MediumTerm,
		}

		ids, err := newTestComposer(client, nil).GenerateTracks(ctx, p, Options{
			Artists: []string{"a1"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		// 10 sampled recommendations plus 5 top tracks.
		if len(ids) != 15 {
			t.Fatalf("expected 15 tracks, got %d", len(ids))
		}
	})

	t.Run("Seed Artists Sampled To Ceiling", func(t *testing.T) {
		client := &mockClient{}
		p := Profile{TrackLimit: 20, ArtistLimit: 4, TopTracksTimeRange: spotify.MediumTerm}

		_, err := newTestComposer(client, nil).GenerateTracks(ctx, p, Options{
			Artists: []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7"},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(client.recCalls[0].seeds.Artists); got != 5 {
			t.Errorf("expected 5 seed artists, got %d", got)
		}
	})

	t.Run("Everything Filtered Is An Error", func(t *testing.T) {
		client := &mockClient{
			recommend: func(call recCall) []spotify.Track {
				tracks := makeTracks("artist", call.limit)
				for i := range tracks {
					tracks[i].IsPlayable = boolp(false)
				}
				return tracks
			},
		}
		p := Profile{TrackLimit: 20, ArtistLimit: 4, TopTracksTimeRange: spotify.MediumTerm}

		_, err := newTestComposer(client, nil).GenerateTracks(ctx, p, Options{Artists: []string{"a1"}})
		if !errors.Is(err, ErrNoTracksGenerated) {
			t.Fatalf("expected ErrNoTracksGenerated, got %v", err)
		}
	})

	t.Run("Disliked Artists Are Dropped", func(t *testing.T) {
		client := &mockClient{
			recommend: func(call recCall) []spotify.Track {
				tracks := makeTracks("keep", 5)
				bad := makeTracks("bad", 5)
				return append(tracks, bad...)
			},
		}
		p := Profile{TrackLimit: 20, ArtistLimit: 4, TopTracksTimeRange: spotify.MediumTerm}

		ids, err := newTestComposer(client, mockDislikes{"bad-artist": {}}).GenerateTracks(ctx, p, Options{Artists: []string{"a1"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, id := range ids {
			if strings.HasPrefix(id, "bad-") {
				t.Errorf("disliked artist track %s survived the filter", id)
			}
		}
		if len(ids) != 5 {
			t.Errorf("expected 5 tracks, got %d", len(ids))
		}
	})

	t.Run("Ordering Delegates To Features", func(t *testing.T) {
		client := &mockClient{}
		p := Profile{TrackLimit: 20, ArtistLimit: 4, TopTracksTimeRange: spotify.MediumTerm}
		order := spotify.OrderSpec{{Feature: "energy", Descending: true}}

		_, err := newTestComposer(client, nil).GenerateTracks(ctx, p, Options{
			Artists: []string{"a1"},
			Order:   order,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(client.orderCalls) != 1 {
			t.Fatalf("expected one ordering call, got %d", len(client.orderCalls))
		}
		if client.orderCalls[0][0].Feature != "energy" {
			t.Errorf("unexpected order spec %+v", client.orderCalls[0])
		}
	})
}

func TestFilterTracks(t *testing.T) {
	ctx := context.Background()
	logger := log.New(io.Discard)

	tracks := []spotify.Track{
		{ID: "plain", Artists: []spotify.Artist{{ID: "x"}}},
		{ID: "explicit", Explicit: true, Artists: []spotify.Artist{{ID: "x"}}},
		{ID: "unplayable", IsPlayable: boolp(false), Artists: []spotify.Artist{{ID: "x"}}},
		{ID: "flagged-playable", IsPlayable: boolp(true), Artists: []spotify.Artist{{ID: "x"}}},
		{ID: "disliked", Artists: []spotify.Artist{{ID: "hated"}}},
	}

	t.Run("Keeps Unflagged And Playable", func(t *testing.T) {
		ids, err := filterTracks(ctx, nil, "", logger, tracks, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{"plain", "explicit", "flagged-playable", "disliked"}
		if len(ids) != len(want) {
			t.Fatalf("expected %d tracks, got %v", len(want), ids)
		}
		for i, id := range want {
			if ids[i] != id {
				t.Errorf("position %d: expected %s, got %s", i, id, ids[i])
			}
		}
	})

	t.Run("Dislikes Always Apply", func(t *testing.T) {
		ids, err := filterTracks(ctx, mockDislikes{"hated": {}}, "user1", logger, tracks, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, id := range ids {
			if id == "disliked" {
				t.Error("disliked track survived the filter")
			}
		}
	})

	t.Run("Explicit Filter Is Optional", func(t *testing.T) {
		ids, err := filterTracks(ctx, nil, "", logger, tracks, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, id := range ids {
			if id == "explicit" {
				t.Error("explicit track survived the filter")
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once, err := filterTracks(ctx, mockDislikes{"hated": {}}, "user1", logger, tracks, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		kept := make([]spotify.Track, 0, len(once))
		for _, tr := range tracks {
			for _, id := range once {
				if tr.ID == id {
					kept = append(kept, tr)
				}
			}
		}
		twice, err := filterTracks(ctx, mockDislikes{"hated": {}}, "user1", logger, kept, true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(twice) != len(once) {
			t.Fatalf("second pass changed the result: %v vs %v", once, twice)
		}
		for i := range once {
			if once[i] != twice[i] {
				t.Errorf("position %d: %s vs %s", i, once[i], twice[i])
			}
		}
	})
}

func TestMatchesAttributes(t *testing.T) {
	f := spotify.AudioFeatures{ID: "t1", Valence: 0.75, Energy: 0.5}

	if !matchesAttributes(f, map[string]float64{"valence": 0.8}) {
		t.Error("0.05 off must match")
	}
	if !matchesAttributes(f, map[string]float64{"valence": 0.85}) {
		t.Error("exactly 0.1 off must match")
	}
	if matchesAttributes(f, map[string]float64{"valence": 0.9}) {
		t.Error("0.15 off must not match")
	}
	if matchesAttributes(f, map[string]float64{"unknown_feature": 0.5}) {
		t.Error("unknown feature must not match")
	}
	if !matchesAttributes(f, map[string]float64{"valence": 0.8, "energy": 0.45}) {
		t.Error("every dimension in range must match")
	}
}

func TestGenreArtistGroups(t *testing.T) {
	artists := []spotify.Artist{
		{ID: "a", Genres: []string{"house", "techno"}},
		{ID: "b", Genres: []string{"house"}},
		{ID: "c", Genres: []string{"jazz"}},
	}

	groups := genreArtistGroups(artists, 2)
	if len(groups) != 1 {
		t.Fatalf("expected one group of two or more, got %v", groups)
	}
	if len(groups["house"]) != 2 {
		t.Errorf("expected two house artists, got %d", len(groups["house"]))
	}

	groups = genreArtistGroups(artists, 1)
	if len(groups) != 3 {
		t.Errorf("expected three groups at minimum one, got %d", len(groups))
	}
}
