package spotify

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SearchArtists searches for artists by name.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]Artist, error) {
	var resp struct {
		Artists struct {
			Items []Artist `json:"items"`
			Total int      `json:"total"`
		} `json:"artists"`
	}
	q := url.Values{}
	q.Set("type", "artist")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if err := c.doRequest(ctx, "GET", "/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Artists.Items, nil
}

// SearchTracks searches for tracks by name.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	var resp struct {
		Tracks struct {
			Items []Track `json:"items"`
			Total int     `json:"total"`
		} `json:"tracks"`
	}
	q := url.Values{}
	q.Set("type", "track")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	if err := c.doRequest(ctx, "GET", "/search", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks.Items, nil
}

// RecommendationGenres returns the service's canonical genre seed list.
func (c *Client) RecommendationGenres(ctx context.Context) ([]string, error) {
	var resp struct {
		Genres []string `json:"genres"`
	}
	if err := c.doRequest(ctx, "GET", "/recommendations/available-genre-seeds", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Genres, nil
}

// Recommendations requests a recommendation batch for the given seeds and
// tuneable attribute bounds.
func (c *Client) Recommendations(ctx context.Context, seeds Seeds, attrs Attributes, limit int) ([]Track, error) {
	var resp struct {
		Tracks []Track `json:"tracks"`
	}
	q := url.Values{}
	if len(seeds.Artists) > 0 {
		q.Set("seed_artists", strings.Join(seeds.Artists, ","))
	}
	if len(seeds.Genres) > 0 {
		q.Set("seed_genres", strings.Join(seeds.Genres, ","))
	}
	if len(seeds.Tracks) > 0 {
		q.Set("seed_tracks", strings.Join(seeds.Tracks, ","))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	attrs.Encode(q)
	if err := c.doRequest(ctx, "GET", "/recommendations", q, nil, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("recommendations", "seeds", seeds.Total(), "tracks", len(resp.Tracks))
	return resp.Tracks, nil
}

// TopArtists returns the user's top artists over the given time range.
func (c *Client) TopArtists(ctx context.Context, timeRange TimeRange) ([]Artist, error) {
	var resp struct {
		Items []Artist `json:"items"`
	}
	q := url.Values{}
	q.Set("time_range", string(timeRange))
	q.Set("limit", "50")
	if err := c.doRequest(ctx, "GET", "/me/top/artists", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// TopTracks returns the user's top tracks over the given time range.
func (c *Client) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]Track, error) {
	var resp struct {
		Items []Track `json:"items"`
	}
	q := url.Values{}
	q.Set("time_range", string(timeRange))
	q.Set("limit", strconv.Itoa(limit))
	if err := c.doRequest(ctx, "GET", "/me/top/tracks", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

const featureBatchSize = 100

// AudioFeatures looks up audio features for the given track ids. Tracks the
// service has no analysis for are omitted from the result.
func (c *Client) AudioFeatures(ctx context.Context, trackIDs []string) ([]AudioFeatures, error) {
	features := make([]AudioFeatures, 0, len(trackIDs))
	for start := 0; start < len(trackIDs); start += featureBatchSize {
		end := start + featureBatchSize
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		var resp struct {
			AudioFeatures []*AudioFeatures `json:"audio_features"`
		}
		q := url.Values{}
		q.Set("ids", strings.Join(trackIDs[start:end], ","))
		if err := c.doRequest(ctx, "GET", "/audio-features", q, nil, &resp); err != nil {
			return nil, err
		}
		for _, f := range resp.AudioFeatures {
			if f != nil {
				features = append(features, *f)
			}
		}
	}
	return features, nil
}

// CurrentUserPlaylists lists the user's playlists.
func (c *Client) CurrentUserPlaylists(ctx context.Context, limit int) ([]Playlist, error) {
	var resp struct {
		Items []Playlist `json:"items"`
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if err := c.doRequest(ctx, "GET", "/me/playlists", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// CreatePlaylist creates a private playlist owned by the session user.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (*Playlist, error) {
	body := map[string]interface{}{
		"name":        name,
		"description": description,
		"public":      false,
	}
	var playlist Playlist
	endpoint := "/users/" + url.PathEscape(c.Username) + "/playlists"
	if err := c.doRequest(ctx, "POST", endpoint, nil, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ReplacePlaylistTracks overwrites the playlist contents with the given tracks.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = contextURI("track", id)
	}
	body := map[string]interface{}{"uris": uris}
	return c.doRequest(ctx, "PUT", "/playlists/"+url.PathEscape(playlistID)+"/tracks", nil, body, nil)
}

// OrderByFeature reorders track ids by the given audio-feature criteria.
// Tracks without audio features sort last, in their original order.
func (c *Client) OrderByFeature(ctx context.Context, order OrderSpec, trackIDs []string) ([]string, error) {
	if len(order) == 0 || len(trackIDs) == 0 {
		return trackIDs, nil
	}
	features, err := c.AudioFeatures(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]AudioFeatures, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	ordered := make([]string, len(trackIDs))
	copy(ordered, trackIDs)
	position := make(map[string]int, len(trackIDs))
	for i, id := range trackIDs {
		position[id] = i
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		fi, oki := byID[ordered[i]]
		fj, okj := byID[ordered[j]]
		if !oki || !okj {
			if oki != okj {
				return oki
			}
			return position[ordered[i]] < position[ordered[j]]
		}
		for _, key := range order {
			vi, ok := fi.Feature(key.Feature)
			if !ok {
				continue
			}
			vj, _ := fj.Feature(key.Feature)
			if vi == vj {
				continue
			}
			if key.Descending {
				return vi > vj
			}
			return vi < vj
		}
		return position[ordered[i]] < position[ordered[j]]
	})
	return ordered, nil
}
