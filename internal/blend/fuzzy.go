package blend

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/driftblend/api/internal/spotify"
)

// fuzzySearch picks the haystack entry closest to the needle. An exact hit
// wins outright; otherwise the best-scored fuzzy match is used. Returns ""
// when nothing resembles the needle.
func fuzzySearch(needle string, haystack []string) string {
	for _, h := range haystack {
		if h == needle {
			return h
		}
	}
	matches := fuzzy.Find(needle, haystack)
	if len(matches) == 0 {
		return ""
	}
	return haystack[matches[0].Index]
}

// bestArtistMatch disambiguates multiple track search hits by scoring the
// requested artist name against each track's artists. Falls back to the
// first hit when no artist name resembles the request.
func bestArtistMatch(tracks []spotify.Track, artist string) spotify.Track {
	best := tracks[0]
	bestScore := -1
	for _, t := range tracks {
		names := make([]string, len(t.Artists))
		for i, a := range t.Artists {
			names[i] = a.Name
		}
		matches := fuzzy.Find(artist, names)
		if len(matches) > 0 && matches[0].Score > bestScore {
			bestScore = matches[0].Score
			best = t
		}
	}
	return best
}

// genreWordsOverlap reports whether any word of the genre name appears in
// the affinity set.
func genreWordsOverlap(genre string, affinity map[string]struct{}) bool {
	for _, word := range strings.Fields(genre) {
		if _, ok := affinity[word]; ok {
			return true
		}
	}
	return false
}
