package blend

import (
	"context"

	"github.com/driftblend/api/internal/spotify"
)

// generateRandom ignores stable seeds: the seed budget is randomly
// partitioned across artists, genres and tracks, quantities are drawn at
// random, and the final order is shuffled unless an explicit ordering spec
// is given.
func (c *Composer) generateRandom(ctx context.Context, p Profile, opts Options) ([]string, error) {
	timeRange := spotify.TimeRanges[c.rng.Intn(len(spotify.TimeRanges))]
	topTracksCount := c.rng.Intn(20) + 1

	seedCount := c.rng.Intn(seedCeiling) + 1
	seedArtistsCount := c.rng.Intn(seedCount) + 1
	remaining := seedCount - seedArtistsCount
	seedTracksCount := 0
	if remaining > 0 {
		seedTracksCount = c.rng.Intn(remaining) + 1
	}
	remaining -= seedTracksCount
	seedGenresCount := 0
	if remaining > 0 {
		seedGenresCount = c.rng.Intn(remaining) + 1
	}

	c.logger.Debug("random seed split",
		"seeds", seedCount,
		"artists", seedArtistsCount,
		"tracks", seedTracksCount,
		"genres", seedGenresCount)

	attrs := opts.Attributes
	if len(attrs) == 0 {
		attrs = p.Attributes
	}

	var seeds spotify.Seeds

	if seedArtistsCount > 0 {
		artists, err := c.topArtists(ctx, p, seedArtistsCount, timeRange, false)
		if err != nil {
			return nil, err
		}
		for _, a := range artists {
			seeds.Artists = append(seeds.Artists, a.ID)
		}
	}

	if seedGenresCount > 0 {
		genres, err := c.client.RecommendationGenres(ctx)
		if err != nil {
			return nil, err
		}
		seeds.Genres = c.sampleStrings(genres, seedGenresCount)
	}

	var topIDs []string
	if seedTracksCount > 0 {
		topTracks, err := c.client.TopTracks(ctx, timeRange, 50)
		if err != nil {
			return nil, err
		}
		topIDs = trackIDs(c.sampleTracks(topTracks, topTracksCount))
		seeds.Tracks = c.sampleStrings(trackIDs(topTracks), seedTracksCount)
	}

	tracks, err := c.client.Recommendations(ctx, seeds, attrs, 100)
	if err != nil {
		return nil, err
	}
	ids, err := c.filterTracks(ctx, tracks, opts.FilterExplicit)
	if err != nil {
		return nil, err
	}

	ids = append(c.sampleStrings(ids, 100-len(topIDs)), topIDs...)
	if len(ids) == 0 {
		return nil, ErrNoTracksGenerated
	}
	c.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	if len(opts.Order) > 0 {
		return c.client.OrderByFeature(ctx, opts.Order, ids)
	}
	return ids, nil
}
