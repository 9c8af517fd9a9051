// Package imaging prepares customer images for the AI processing backend.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// NormalizedImage is an image re-encoded to the size and format the AI
// backend accepts.
type NormalizedImage struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Config bounds the normalized output.
type Config struct {
	MaxWidth  int // default 1024
	MaxHeight int // default 1024
	Quality   int // JPEG quality 1-100, default 85
}

// DefaultConfig returns the bounds the AI backend expects.
func DefaultConfig() Config {
	return Config{
		MaxWidth:  1024,
		MaxHeight: 1024,
		Quality:   85,
	}
}

// Normalizer downscales and re-encodes images before AI dispatch.
type Normalizer struct {
	config Config
}

// NewNormalizer creates an image normalizer
func NewNormalizer(config Config) *Normalizer {
	if config.MaxWidth <= 0 {
		config.MaxWidth = 1024
	}
	if config.MaxHeight <= 0 {
		config.MaxHeight = 1024
	}
	if config.Quality <= 0 || config.Quality > 100 {
		config.Quality = 85
	}
	return &Normalizer{config: config}
}

// Normalize decodes the image, downscales it to fit the configured bounds and
// re-encodes it as JPEG. Oversized inputs are the common case here; sending
// them to the AI backend unresized wastes both bandwidth and model tokens.
func (n *Normalizer) Normalize(reader io.Reader) (*NormalizedImage, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > n.config.MaxWidth || bounds.Dy() > n.config.MaxHeight {
		img = imaging.Fit(img, n.config.MaxWidth, n.config.MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(n.config.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	out := img.Bounds()
	return &NormalizedImage{
		Data:        buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       out.Dx(),
		Height:      out.Dy(),
	}, nil
}
