// Package blend turns heterogeneous seed inputs into a filtered,
// deduplicated, ordered set of playable tracks through staged weighted
// resampling.
package blend

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/driftblend/api/internal/spotify"
)

// ErrNoTracksGenerated is returned when filtering removes every candidate
// track. Callers surface it as a not-found condition, never as an empty
// success list.
var ErrNoTracksGenerated = errors.New("no tracks could be generated")

// seedCeiling is the hard limit the recommendation API puts on the total
// seed count per request.
const seedCeiling = 5

// Client is the slice of the playback client the composer drives.
type Client interface {
	TopArtists(ctx context.Context, timeRange spotify.TimeRange) ([]spotify.Artist, error)
	TopTracks(ctx context.Context, timeRange spotify.TimeRange, limit int) ([]spotify.Track, error)
	AudioFeatures(ctx context.Context, trackIDs []string) ([]spotify.AudioFeatures, error)
	Recommendations(ctx context.Context, seeds spotify.Seeds, attrs spotify.Attributes, limit int) ([]spotify.Track, error)
	RecommendationGenres(ctx context.Context) ([]string, error)
	OrderByFeature(ctx context.Context, order spotify.OrderSpec, trackIDs []string) ([]string, error)
}

// DislikeStore provides the user's disliked-artist set.
type DislikeStore interface {
	DislikedArtists(ctx context.Context, userID string) (map[string]struct{}, error)
}

// Composer generates track lists for one user from a Mix Profile.
type Composer struct {
	client   Client
	dislikes DislikeStore
	userID   string
	rng      *rand.Rand
	logger   *log.Logger
}

func NewComposer(client Client, dislikes DislikeStore, userID string, logger *log.Logger) *Composer {
	return &Composer{
		client:   client,
		dislikes: dislikes,
		userID:   userID,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:   logger,
	}
}

// WithRand replaces the sampling source. Tests use it for determinism.
func (c *Composer) WithRand(rng *rand.Rand) *Composer {
	c.rng = rng
	return c
}

// Options override profile values per request.
type Options struct {
	Attributes     spotify.Attributes
	Order          spotify.OrderSpec
	Artists        []string // explicit seed artist ids
	ArtistLimit    int
	TrackLimit     int
	FilterExplicit bool
	TopTracksCount int
	TimeRange      spotify.TimeRange

	// TopArtistsUnrelated disables the genre-affinity grouping when drawing
	// seed artists from listening history.
	TopArtistsUnrelated bool
}

// GenerateTracks produces the final ordered track id list for the profile.
func (c *Composer) GenerateTracks(ctx context.Context, p Profile, opts Options) ([]string, error) {
	if p.Random {
		return c.generateRandom(ctx, p, opts)
	}

	trackLimit := opts.TrackLimit
	if trackLimit == 0 {
		trackLimit = p.TrackLimit
	}

	artists := opts.Artists
	if len(artists) == 0 {
		artistLimit := opts.ArtistLimit
		if artistLimit == 0 {
			artistLimit = p.ArtistLimit
		}
		topArtists, err := c.topArtists(ctx, p, artistLimit, opts.TimeRange, !opts.TopArtistsUnrelated)
		if err != nil {
			return nil, err
		}
		for _, a := range topArtists {
			artists = append(artists, a.ID)
		}
	}
	artists = c.sampleStrings(artists, seedCeiling)

	attrs := opts.Attributes
	if len(attrs) == 0 {
		attrs = p.Attributes
	}

	var tracks []spotify.Track
	if len(artists) > 0 {
		var err error
		tracks, err = c.client.Recommendations(ctx, spotify.Seeds{Artists: artists}, attrs, trackLimit)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("recommendations", "tracks", len(tracks))
	}

	topTracksCount := opts.TopTracksCount
	if topTracksCount == 0 {
		topTracksCount = p.TopTracksCount
	}
	var topTracks []spotify.Track
	if topTracksCount > 0 {
		var err error
		topTracks, err = c.topRelatedTracks(ctx, p, topTracksCount)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("top tracks", "tracks", len(topTracks))
	}

	if len(p.Genres) > 0 {
		genreTracks, err := c.recommendByGenres(ctx, p, trackLimit, attrs, artists)
		if err != nil {
			return nil, err
		}
		keep := int(float64(len(tracks)) * (1 - p.GenreToArtistRatio))
		tracks = append(c.sampleTracks(tracks, keep), genreTracks...)
		c.logger.Debug("genre blend", "genre_tracks", len(genreTracks), "pool", len(tracks))
	}

	if len(p.TopTracksAttributes) > 0 {
		byTopTracks, err := c.recommendByTopTracks(ctx, p, trackLimit, attrs)
		if err != nil {
			return nil, err
		}
		if len(byTopTracks) > 0 {
			keep := int(float64(len(tracks)) * (1 - p.TopTracksToArtistRatio))
			tracks = append(c.sampleTracks(tracks, keep), byTopTracks...)
			c.logger.Debug("top-track blend", "seeded_tracks", len(byTopTracks), "pool", len(tracks))
		}
	}

	if len(tracks) > trackLimit {
		tracks = c.sampleTracks(tracks, trackLimit)
	}
	tracks = append(tracks, topTracks...)

	ids, err := c.filterTracks(ctx, tracks, opts.FilterExplicit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoTracksGenerated
	}

	order := opts.Order
	if len(order) == 0 {
		order = p.Order
	}
	if len(order) > 0 {
		return c.client.OrderByFeature(ctx, order, ids)
	}
	return ids, nil
}

// topArtists draws seed artists from the user's listening history. With
// related selection, artists are grouped by shared genre in descending
// group-size order; the profile's genre affinity narrows the groups when it
// can. An unweighted random sample is the fallback.
func (c *Composer) topArtists(ctx context.Context, p Profile, minArtists int, timeRange spotify.TimeRange, related bool) ([]spotify.Artist, error) {
	if timeRange == "" {
		timeRange = spotify.LongTerm
	}
	artists, err := c.client.TopArtists(ctx, timeRange)
	if err != nil {
		return nil, err
	}

	if !related {
		return c.sampleArtists(artists, minArtists), nil
	}

	for minimum := minArtists; minimum >= 1; minimum-- {
		groups := genreArtistGroups(artists, minimum)
		if len(groups) == 0 {
			continue
		}
		if len(p.ArtistGenres) > 0 {
			if affine := filterGroupsByGenre(groups, p.ArtistGenres); len(affine) > 0 {
				groups = affine
			}
		}
		if len(groups) > seedCeiling {
			keys := make([]string, 0, len(groups))
			for g := range groups {
				keys = append(keys, g)
			}
			return groups[keys[c.rng.Intn(len(keys))]], nil
		}
	}
	return c.sampleArtists(artists, minArtists), nil
}

func genreArtistGroups(artists []spotify.Artist, minArtists int) map[string][]spotify.Artist {
	byGenre := make(map[string][]spotify.Artist)
	for _, a := range artists {
		for _, g := range a.Genres {
			byGenre[g] = append(byGenre[g], a)
		}
	}
	for g, members := range byGenre {
		if len(members) < minArtists {
			delete(byGenre, g)
		}
	}
	return byGenre
}

func filterGroupsByGenre(groups map[string][]spotify.Artist, affinity map[string]struct{}) map[string][]spotify.Artist {
	filtered := make(map[string][]spotify.Artist)
	for g, members := range groups {
		if genreWordsOverlap(g, affinity) {
			filtered[g] = members
		}
	}
	return filtered
}

func (c *Composer) recommendByGenres(ctx context.Context, p Profile, trackLimit int, attrs spotify.Attributes, artists []string) ([]spotify.Track, error) {
	limit := int(float64(trackLimit) * p.GenreToArtistRatio)
	seedArtists := c.sampleStrings(artists, seedCeiling-len(p.Genres))
	return c.client.Recommendations(ctx, spotify.Seeds{
		Artists: seedArtists,
		Genres:  p.Genres,
	}, attrs, limit)
}

// recommendByTopTracks seeds a recommendation request with up to five of
// the user's top tracks whose audio features sit within ±0.1 of the
// profile's selection attributes per dimension.
func (c *Composer) recommendByTopTracks(ctx context.Context, p Profile, trackLimit int, attrs spotify.Attributes) ([]spotify.Track, error) {
	limit := int(float64(trackLimit) * p.TopTracksToArtistRatio)

	topTracks, err := c.client.TopTracks(ctx, p.TopTracksTimeRange, 50)
	if err != nil {
		return nil, err
	}
	ids := trackIDs(topTracks)
	features, err := c.client.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	var matching []string
	if len(p.TopTracksAttributes) > 0 {
		for _, f := range features {
			if matchesAttributes(f, p.TopTracksAttributes) {
				matching = append(matching, f.ID)
			}
		}
	} else {
		for _, f := range features {
			matching = append(matching, f.ID)
		}
	}
	matching = c.sampleStrings(matching, seedCeiling)
	if len(matching) == 0 {
		return nil, nil
	}

	return c.client.Recommendations(ctx, spotify.Seeds{Tracks: matching}, attrs, limit)
}

func (c *Composer) topRelatedTracks(ctx context.Context, p Profile, count int) ([]spotify.Track, error) {
	tracks, err := c.client.TopTracks(ctx, p.TopTracksTimeRange, 50)
	if err != nil {
		return nil, err
	}
	return c.sampleTracks(tracks, count), nil
}

func matchesAttributes(f spotify.AudioFeatures, attrs map[string]float64) bool {
	for name, want := range attrs {
		got, ok := f.Feature(name)
		if !ok {
			return false
		}
		diff := want - got
		if diff < 0 {
			diff = -diff
		}
		if diff > 0.1 {
			return false
		}
	}
	return true
}

// filterTracks drops unplayable tracks, disliked artists and optionally
// explicit tracks. A track lacking the playability flag is kept. The filter
// is idempotent.
func (c *Composer) filterTracks(ctx context.Context, tracks []spotify.Track, filterExplicit bool) ([]string, error) {
	return filterTracks(ctx, c.dislikes, c.userID, c.logger, tracks, filterExplicit)
}

func filterTracks(ctx context.Context, dislikes DislikeStore, userID string, logger *log.Logger, tracks []spotify.Track, filterExplicit bool) ([]string, error) {
	playable := tracks[:0:0]
	for _, t := range tracks {
		if t.IsPlayable == nil || *t.IsPlayable {
			playable = append(playable, t)
		}
	}
	logger.Debug("playable", "tracks", len(playable))
	tracks = playable

	if dislikes != nil {
		disliked, err := dislikes.DislikedArtists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(disliked) > 0 {
			kept := tracks[:0:0]
			for _, t := range tracks {
				if !hasDislikedArtist(t, disliked) {
					kept = append(kept, t)
				}
			}
			tracks = kept
		}
		logger.Debug("dislike filter", "tracks", len(tracks))
	}

	if filterExplicit {
		kept := tracks[:0:0]
		for _, t := range tracks {
			if !t.Explicit {
				kept = append(kept, t)
			}
		}
		tracks = kept
		logger.Debug("explicit filter", "tracks", len(tracks))
	}

	return trackIDs(tracks), nil
}

func hasDislikedArtist(t spotify.Track, disliked map[string]struct{}) bool {
	for _, a := range t.Artists {
		if _, ok := disliked[a.ID]; ok {
			return true
		}
	}
	return false
}

func trackIDs(tracks []spotify.Track) []string {
	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// sampleTracks returns a uniform random subset of size n, no replacement.
func (c *Composer) sampleTracks(tracks []spotify.Track, n int) []spotify.Track {
	if n >= len(tracks) {
		return tracks
	}
	if n <= 0 {
		return nil
	}
	perm := c.rng.Perm(len(tracks))
	out := make([]spotify.Track, n)
	for i := 0; i < n; i++ {
		out[i] = tracks[perm[i]]
	}
	return out
}

func (c *Composer) sampleStrings(values []string, n int) []string {
	if n >= len(values) {
		return values
	}
	if n <= 0 {
		return nil
	}
	perm := c.rng.Perm(len(values))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = values[perm[i]]
	}
	return out
}

func (c *Composer) sampleArtists(artists []spotify.Artist, n int) []spotify.Artist {
	if n >= len(artists) {
		return artists
	}
	if n <= 0 {
		return nil
	}
	perm := c.rng.Perm(len(artists))
	out := make([]spotify.Artist, n)
	for i := 0; i < n; i++ {
		out[i] = artists[perm[i]]
	}
	return out
}
