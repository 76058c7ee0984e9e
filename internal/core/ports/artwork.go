package ports

import (
	"context"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// ArtworkFinder looks up album art for a song. Failures are not fatal; callers
// fall back to a generic thumbnail.
type ArtworkFinder interface {
	FindArtwork(ctx context.Context, song domain.Song) (string, error)
}
