package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

const searchLimit = 5

// searchTrack returns the best confident match for title and artist among
// the top search results.
func (c *Client) searchTrack(ctx context.Context, title string, artist string) (spotifyTrack, error) {
	searchURL, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: invalid search url: %w", err)
	}

	queryTitle := fallbackIfEmpty(normalizeSearchInput(title), title)
	queryArtist := fallbackIfEmpty(normalizeSearchInput(artist), artist)

	query := searchURL.Query()
	query.Set("q", fmt.Sprintf("track:%s artist:%s", queryTitle, queryArtist))
	query.Set("type", "track")
	query.Set("limit", fmt.Sprint(searchLimit))
	searchURL.RawQuery = query.Encode()

	c.logger.Debug("search request", zap.String("url", searchURL.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: failed to create search request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search status %d: %w", resp.StatusCode, domain.ErrPermissionDenied)
	case resp.StatusCode != http.StatusOK:
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search status %d: %w", resp.StatusCode, domain.ErrNetwork)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: search decode error: %w", err)
	}

	items := body.Tracks.Items
	if len(items) > searchLimit {
		items = items[:searchLimit]
	}

	bestScore := 0.0
	bestIndex := -1
	for i, candidate := range items {
		score, ok := trackMatchScore(title, artist, candidate)
		c.logger.Debug("search candidate",
			zap.String("artist", joinArtistNames(candidate)),
			zap.String("title", candidate.Name),
			zap.Float64("score", score),
			zap.Bool("confident", ok),
		)
		if ok && score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex == -1 {
		return spotifyTrack{}, fmt.Errorf("spotify adapter: no confident match for title %q artist %q: %w", title, artist, domain.ErrNotFound)
	}
	return items[bestIndex], nil
}
