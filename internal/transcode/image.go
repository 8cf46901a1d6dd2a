package transcode

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"jigpipe/internal/faults"
)

// Canonical still-image formats pass through untouched.
var canonicalFormats = map[string]struct{}{
	"png":  {},
	"jpeg": {},
}

// StillResult is the outcome of still-image canonicalisation.
type StillResult struct {
	Data      []byte
	Format    string // resulting format
	Reencoded bool
	Width     int
	Height    int
}

// CanonicalizeStill passes canonical encodings through byte-identical and
// re-encodes everything else to PNG. Pixel dimensions are preserved exactly.
func CanonicalizeStill(data []byte) (StillResult, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return StillResult{}, faults.TranscodeErr(fmt.Errorf("sniff image: %w", err))
	}

	if _, ok := canonicalFormats[format]; ok {
		return StillResult{Data: data, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return StillResult{}, faults.TranscodeErr(fmt.Errorf("decode %s image: %w", format, err))
	}
	bounds := img.Bounds()
	if bounds.Dx() != cfg.Width || bounds.Dy() != cfg.Height {
		return StillResult{}, faults.TranscodeErr(fmt.Errorf("decode changed dimensions: %dx%d -> %dx%d", cfg.Width, cfg.Height, bounds.Dx(), bounds.Dy()))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return StillResult{}, faults.TranscodeErr(fmt.Errorf("encode png: %w", err))
	}
	return StillResult{Data: buf.Bytes(), Format: "png", Reencoded: true, Width: cfg.Width, Height: cfg.Height}, nil
}

// CanonicalRelPath swaps the extension to .png when the asset was re-encoded.
func CanonicalRelPath(relpath string, result StillResult) string {
	if !result.Reencoded {
		return relpath
	}
	if i := strings.LastIndexByte(relpath, '.'); i > 0 {
		return relpath[:i] + ".png"
	}
	return relpath + ".png"
}
