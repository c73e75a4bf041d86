package blend

import (
	"github.com/driftblend/api/internal/spotify"
)

// Profile is the immutable configuration for one blend. Every profile runs
// the same composition algorithm; only these values differ.
type Profile struct {
	Attributes             spotify.Attributes
	Order                  spotify.OrderSpec
	ArtistGenres           map[string]struct{} // seed-artist genre affinity, matched by word overlap
	Genres                 []string
	TrackLimit             int
	ArtistLimit            int
	TopTracksCount         int
	GenreToArtistRatio     float64
	TopTracksTimeRange     spotify.TimeRange
	TopTracksAttributes    map[string]float64
	TopTracksToArtistRatio float64

	// Random selects the randomized variant instead of the staged algorithm.
	Random bool
}

func baseProfile() Profile {
	return Profile{
		TrackLimit:             100,
		ArtistLimit:            4,
		GenreToArtistRatio:     0.4,
		TopTracksTimeRange:     spotify.MediumTerm,
		TopTracksToArtistRatio: 0.3,
	}
}

func newProfile(customize func(*Profile)) Profile {
	p := baseProfile()
	customize(&p)
	return p
}

// Profiles maps blend ids to their deployment-time configuration.
var Profiles = map[string]Profile{
	"workoutHype": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"target_energy": 0.9, "target_tempo": 250}
		p.Genres = []string{"work-out"}
	}),
	"deepFocus": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{
			"target_energy":        0.1,
			"max_speechiness":      0.13,
			"target_danceability":  0.1,
			"min_instrumentalness": 0.55,
		}
		p.Genres = []string{"study"}
		p.GenreToArtistRatio = 0.7
	}),
	"eveningCommute": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"target_energy": 0.6, "target_danceability": 0.6}
		p.Genres = []string{"road-trip"}
		p.TopTracksCount = 10
	}),
	"immersiveReading": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"min_instrumentalness": 0.6, "target_acousticness": 0.7}
		p.Genres = []string{"piano", "soundtrack"}
	}),
	"mellowDinner": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"target_popularity": 60}
		p.Genres = []string{"groove", "bossanova"}
		p.TopTracksCount = 20
	}),
	"morningStroll": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"min_valence": 0.65, "target_danceability": 0.65}
		p.TopTracksCount = 10
		p.TopTracksAttributes = map[string]float64{"valence": 0.8}
	}),
	"peacefulSleep": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{
			"target_energy":        0.1,
			"target_acousticness":  0.6,
			"min_instrumentalness": 0.55,
		}
		p.Genres = []string{"sleep", "soundtrack"}
		p.GenreToArtistRatio = 0.65
	}),
	"romanticNight": newProfile(func(p *Profile) {
		p.Attributes = spotify.Attributes{"target_danceability": 0.6, "target_energy": 0.35}
		p.Genres = []string{"romance"}
		p.GenreToArtistRatio = 0.65
	}),
	"random": newProfile(func(p *Profile) {
		p.Random = true
	}),
}
