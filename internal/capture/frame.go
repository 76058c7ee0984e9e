package capture

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	// Formats a browser may use when streaming preview frames.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

// DefaultQuality matches the still quality used by the browser canvas (0.95).
const DefaultQuality = 95

// MinSnapshotBytes guards against black or truncated frames.
const MinSnapshotBytes = 1024

// DecodeFrame decodes a preview frame delivered as raw image bytes or as a
// data URI.
func DecodeFrame(data []byte) (image.Image, error) {
	raw := data
	if bytes.HasPrefix(data, []byte("data:")) {
		decoded, _, err := domain.DecodeDataURI(string(data))
		if err != nil {
			return nil, fmt.Errorf("capture: %w", err)
		}
		raw = decoded
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("capture: empty frame payload: %w", domain.ErrInvalidImage)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("capture: decode frame: %v: %w", err, domain.ErrInvalidImage)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("capture: %s frame has no pixels: %w", format, domain.ErrEmptyFrame)
	}
	return img, nil
}

// Mirror renders src into a new raster flipped left to right, the same way
// the live preview is shown to the user.
func Mirror(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	// x' = maxX - x, y' = y - minY
	s2d := f64.Aff3{
		-1, 0, float64(b.Max.X),
		0, 1, float64(-b.Min.Y),
	}
	draw.NearestNeighbor.Transform(dst, s2d, src, b, draw.Src, nil)
	return dst
}

// Encode compresses img as JPEG at the given quality.
func Encode(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("capture: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
