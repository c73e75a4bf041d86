// Spotify Web API types, based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import (
	"net/url"
	"strconv"
)

// TimeRange selects the window for top artist/track queries.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"
	MediumTerm TimeRange = "medium_term"
	LongTerm   TimeRange = "long_term"
)

// TimeRanges lists every supported window, for random selection.
var TimeRanges = []TimeRange{ShortTerm, MediumTerm, LongTerm}

// Device represents a playback device known to the user's account.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	IsRestricted  bool   `json:"is_restricted"`
	VolumePercent int    `json:"volume_percent"`

	// IsPlaying is not part of the API payload; it is derived when the
	// device list is merged with the current playback snapshot.
	IsPlaying bool `json:"is_playing,omitempty"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	URI    string   `json:"uri"`
}

// Track represents a Spotify track.
//
// IsPlayable is a pointer because the API omits the flag unless the request
// carries a market; a missing flag must not count as unplayable.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Explicit   bool     `json:"explicit"`
	IsPlayable *bool    `json:"is_playable"`
	DurationMS int      `json:"duration_ms"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}

// Playback represents the current playback snapshot.
type Playback struct {
	Device       Device `json:"device"`
	IsPlaying    bool   `json:"is_playing"`
	ShuffleState bool   `json:"shuffle_state"`
	ProgressMS   int    `json:"progress_ms"`
	Item         *Track `json:"item"`
}

// AudioFeatures is the normalized numeric descriptor set for a track.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Loudness         float64 `json:"loudness"`
}

// Feature returns the named audio feature value.
func (f AudioFeatures) Feature(name string) (float64, bool) {
	switch name {
	case "danceability":
		return f.Danceability, true
	case "energy":
		return f.Energy, true
	case "speechiness":
		return f.Speechiness, true
	case "acousticness":
		return f.Acousticness, true
	case "instrumentalness":
		return f.Instrumentalness, true
	case "liveness":
		return f.Liveness, true
	case "valence":
		return f.Valence, true
	case "tempo":
		return f.Tempo, true
	case "loudness":
		return f.Loudness, true
	}
	return 0, false
}

// Owner identifies a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Playlist represents a Spotify playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       Owner  `json:"owner"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

// Seeds carries the identifiers passed to a recommendation request.
// The API accepts at most 5 seeds in total across all three kinds.
type Seeds struct {
	Artists []string
	Genres  []string
	Tracks  []string
}

// Total returns the combined seed count.
func (s Seeds) Total() int {
	return len(s.Artists) + len(s.Genres) + len(s.Tracks)
}

// Attributes are the tuneable audio-feature bounds for a recommendation
// request, keyed by the API parameter name (target_energy, min_valence, ...).
type Attributes map[string]float64

// Encode adds the attributes to a query string.
func (a Attributes) Encode(q url.Values) {
	for k, v := range a {
		q.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
	}
}

// OrderKey names one audio feature to sort by.
type OrderKey struct {
	Feature    string `json:"feature"`
	Descending bool   `json:"descending"`
}

// OrderSpec is an ordered list of sort criteria.
type OrderSpec []OrderKey
