package spotify

import (
	"context"
	"fmt"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// FindArtwork returns the largest album cover of the track that best
// matches song. Hits are cached; misses are not, so a later call may
// succeed once the service recovers.
func (c *Client) FindArtwork(ctx context.Context, song domain.Song) (string, error) {
	key := Normalize(song.Artist) + "|" + Normalize(song.Title)
	if v, ok := c.artwork.Get(key); ok {
		return v.(string), nil
	}

	track, err := c.searchTrack(ctx, song.Title, song.Artist)
	if err != nil {
		return "", err
	}
	art := track.largestImage()
	if art == "" {
		return "", fmt.Errorf("spotify adapter: track %s has no album art: %w", track.ID, domain.ErrNotFound)
	}

	c.artwork.Set(key, art, cache.DefaultExpiration)
	c.logger.Debug("artwork found", zap.String("track", track.ID), zap.String("url", art))
	return art, nil
}
