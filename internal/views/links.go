package views

import (
	"net/url"
	"strings"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// PlaceholderGlyph stands in for album art that fails to load.
const PlaceholderGlyph = "🎵"

// encodeComponent escapes s for use inside a URL path segment or query
// value, encoding spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// SpotifySearchURL opens the storefront search for a song.
func SpotifySearchURL(song domain.Song) string {
	return "https://open.spotify.com/search/" + encodeComponent(song.Title+" "+song.Artist)
}

// ThumbnailURL is a best-effort album cover from an image search.
func ThumbnailURL(song domain.Song) string {
	return "https://tse2.mm.bing.net/th?q=" + encodeComponent(song.Title+" "+song.Artist+" album cover") +
		"&w=400&h=400&c=7&rs=1&p=0"
}

// EmbedURL plays the top video search result for a song. origin is the
// page origin required by the embed JS API; it may be empty.
func EmbedURL(song domain.Song, origin string) string {
	q := encodeComponent(song.Title + " " + song.Artist + " audio")
	u := "https://www.youtube.com/embed?listType=search&list=" + q +
		"&autoplay=1&controls=0&modestbranding=1&rel=0&iv_load_policy=3&enablejsapi=1"
	if origin != "" {
		u += "&origin=" + origin
	}
	return u
}
