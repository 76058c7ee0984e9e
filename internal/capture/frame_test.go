package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/vibecheck/internal/core/domain"
)

func TestMirror(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	tests := []struct {
		name string
		src  image.Image
	}{
		{
			name: "origin at zero",
			src:  stripe(image.Rect(0, 0, 3, 2), red, green, blue),
		},
		{
			name: "offset bounds",
			src:  stripe(image.Rect(10, 5, 13, 7), red, green, blue),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mirror(tt.src)
			require.Equal(t, image.Rect(0, 0, 3, 2), got.Bounds())
			for y := 0; y < 2; y++ {
				assert.Equal(t, blue, got.RGBAAt(0, y), "left column")
				assert.Equal(t, green, got.RGBAAt(1, y), "middle column")
				assert.Equal(t, red, got.RGBAAt(2, y), "right column")
			}
		})
	}
}

func TestMirror_Twice(t *testing.T) {
	src := noisy(64, 32)
	back := Mirror(Mirror(src))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			require.Equal(t, src.RGBAAt(x, y), back.RGBAAt(x, y))
		}
	}
}

func TestDecodeFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, noisy(40, 30)))
	raw := buf.Bytes()

	tests := []struct {
		name    string
		input   []byte
		wantErr error
	}{
		{name: "raw png", input: raw},
		{name: "data uri", input: []byte("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))},
		{name: "garbage", input: []byte("definitely not an image"), wantErr: domain.ErrInvalidImage},
		{name: "empty", input: nil, wantErr: domain.ErrInvalidImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeFrame(tt.input)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 40, img.Bounds().Dx())
			assert.Equal(t, 30, img.Bounds().Dy())
		})
	}
}

func stripe(r image.Rectangle, cols ...color.RGBA) *image.RGBA {
	img := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for i, c := range cols {
			img.SetRGBA(r.Min.X+i, y, c)
		}
	}
	return img
}

// noisy builds a deterministic high-entropy image that compresses poorly.
func noisy(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	seed := uint32(2463534242)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed ^= seed << 13
			seed ^= seed >> 17
			seed ^= seed << 5
			img.SetRGBA(x, y, color.RGBA{R: uint8(seed), G: uint8(seed >> 8), B: uint8(seed >> 16), A: 255})
		}
	}
	return img
}
