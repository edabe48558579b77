package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
)

// ParseCompression maps a compression setting name to a PNG level.
// Accepted names are default, speed, best and none.
func ParseCompression(s string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "speed", "fast":
		return png.BestSpeed, nil
	case "best":
		return png.BestCompression, nil
	case "none":
		return png.NoCompression, nil
	default:
		return 0, fmt.Errorf("unknown png compression %q (want default, speed, best or none)", s)
	}
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image, level png.CompressionLevel) error {
	enc := png.Encoder{CompressionLevel: level}
	if err := enc.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// PNGBytes encodes img to a byte slice.
func PNGBytes(img image.Image, level png.CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePNG reads a PNG image, e.g. a base tile to composite under a scene.
func DecodePNG(r io.Reader) (image.Image, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode png: %w", err)
	}
	return img, nil
}
