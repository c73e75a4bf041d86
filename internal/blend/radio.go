package blend

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/driftblend/api/internal/spotify"
)

// trackByArtistSeparator splits "track by artist" request strings.
const trackByArtistSeparator = " by "

// RadioClient is the slice of the playback client the radio composer needs.
type RadioClient interface {
	SearchArtists(ctx context.Context, query string, limit int) ([]spotify.Artist, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
	RecommendationGenres(ctx context.Context) ([]string, error)
	Recommendations(ctx context.Context, seeds spotify.Seeds, attrs spotify.Attributes, limit int) ([]spotify.Track, error)
}

// RadioParams are the raw, human-entered station seeds.
type RadioParams struct {
	ArtistNames    []string
	GenreNames     []string
	TrackNames     []string // "track" or "track by artist" strings
	Limit          int
	Attributes     spotify.Attributes
	FilterExplicit bool
}

// SeedRef is a resolved seed with its display label.
type SeedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RadioResult is the resolved station: the seeds that were matched and the
// track ids to play (seed tracks first, then recommendations).
type RadioResult struct {
	Artists []SeedRef `json:"artists"`
	Tracks  []SeedRef `json:"tracks"`
	Genres  []string  `json:"genres"`

	TrackIDs []string `json:"trackIds"`
}

// Radio composes a station from named artists, genres and tracks.
type Radio struct {
	client   RadioClient
	dislikes DislikeStore
	userID   string
	rng      *rand.Rand
	logger   *log.Logger
}

func NewRadio(client RadioClient, dislikes DislikeStore, userID string, logger *log.Logger) *Radio {
	return &Radio{
		client:   client,
		dislikes: dislikes,
		userID:   userID,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

func splitTrackByArtist(name string) (track, artist string) {
	if i := strings.LastIndex(name, trackByArtistSeparator); i >= 0 {
		return name[:i], name[i+len(trackByArtistSeparator):]
	}
	return name, ""
}

// Compose resolves every named seed, requests one recommendation batch and
// filters it: dislikes always, explicit tracks only when requested.
func (r *Radio) Compose(ctx context.Context, p RadioParams) (*RadioResult, error) {
	limit := p.Limit
	if limit == 0 {
		limit = 100
	}

	artistHits := make([]*spotify.Artist, len(p.ArtistNames))
	trackHits := make([]*spotify.Track, len(p.TrackNames))
	var canonicalGenres []string

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range p.ArtistNames {
		i, name := i, name
		g.Go(func() error {
			found, err := r.client.SearchArtists(gctx, name, 1)
			if err != nil {
				return err
			}
			if len(found) > 0 {
				artistHits[i] = &found[0]
			}
			return nil
		})
	}
	for i, name := range p.TrackNames {
		i := i
		title, artist := splitTrackByArtist(name)
		g.Go(func() error {
			searchLimit := 1
			if artist != "" {
				searchLimit = 10
			}
			found, err := r.client.SearchTracks(gctx, title, searchLimit)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return nil
			}
			if len(found) == 1 || artist == "" {
				trackHits[i] = &found[0]
				return nil
			}
			match := bestArtistMatch(found, artist)
			trackHits[i] = &match
			return nil
		})
	}
	if len(p.GenreNames) > 0 {
		g.Go(func() error {
			genres, err := r.client.RecommendationGenres(gctx)
			if err != nil {
				return err
			}
			canonicalGenres = genres
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &RadioResult{}
	seenArtists := make(map[string]struct{})
	for _, a := range artistHits {
		if a == nil {
			continue
		}
		if _, dup := seenArtists[a.ID]; dup {
			continue
		}
		seenArtists[a.ID] = struct{}{}
		result.Artists = append(result.Artists, SeedRef{ID: a.ID, Name: a.Name})
	}

	seenTracks := make(map[string]struct{})
	for _, t := range trackHits {
		if t == nil {
			continue
		}
		if _, dup := seenTracks[t.ID]; dup {
			continue
		}
		seenTracks[t.ID] = struct{}{}
		result.Tracks = append(result.Tracks, SeedRef{ID: t.ID, Name: trackLabel(*t)})
	}

	seenGenres := make(map[string]struct{})
	for _, name := range p.GenreNames {
		match := fuzzySearch(name, canonicalGenres)
		if match == "" {
			continue
		}
		if _, dup := seenGenres[match]; dup {
			continue
		}
		seenGenres[match] = struct{}{}
		result.Genres = append(result.Genres, match)
	}

	seeds := spotify.Seeds{Genres: result.Genres}
	for _, a := range result.Artists {
		seeds.Artists = append(seeds.Artists, a.ID)
	}
	seedTrackIDs := make([]string, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		seeds.Tracks = append(seeds.Tracks, t.ID)
		seedTrackIDs = append(seedTrackIDs, t.ID)
	}

	recommended, err := r.client.Recommendations(ctx, seeds, tuneableAttributes(p.Attributes), limit)
	if err != nil {
		return nil, err
	}
	filtered, err := filterTracks(ctx, r.dislikes, r.userID, r.logger, recommended, p.FilterExplicit)
	if err != nil {
		return nil, err
	}

	result.TrackIDs = append(seedTrackIDs, filtered...)
	if len(result.TrackIDs) == 0 {
		return nil, ErrNoTracksGenerated
	}
	return result, nil
}

func trackLabel(t spotify.Track) string {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	return t.Name + " - " + strings.Join(names, " & ")
}

// tuneableFeatures are the attribute stems the recommendation API accepts
// with min_/max_/target_ prefixes.
var tuneableFeatures = map[string]struct{}{
	"acousticness":     {},
	"danceability":     {},
	"duration_ms":      {},
	"energy":           {},
	"instrumentalness": {},
	"key":              {},
	"liveness":         {},
	"loudness":         {},
	"mode":             {},
	"popularity":       {},
	"speechiness":      {},
	"tempo":            {},
	"time_signature":   {},
	"valence":          {},
}

// tuneableAttributes keeps only parameters the recommendation API knows,
// dropping anything else a caller sent along.
func tuneableAttributes(attrs spotify.Attributes) spotify.Attributes {
	if len(attrs) == 0 {
		return nil
	}
	out := make(spotify.Attributes, len(attrs))
	for name, v := range attrs {
		stem := name
		for _, prefix := range []string{"min_", "max_", "target_"} {
			if strings.HasPrefix(name, prefix) {
				stem = name[len(prefix):]
				break
			}
		}
		if _, ok := tuneableFeatures[stem]; ok {
			out[name] = v
		}
	}
	return out
}
