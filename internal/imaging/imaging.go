// Package imaging shrinks photos before they are sent to a provider.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDim = 1024
	// MaxPixels caps what Prepare will decode; a small compressed file can claim a huge canvas.
	MaxPixels   = 40_000_000
	jpegQuality = 85
)

var (
	ErrEmptyImage = errors.New("empty image")
	ErrTooLarge   = errors.New("image dimensions too large")
)

// DecodeDataURL accepts a data: URL or bare base64 and returns the raw bytes.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyImage
	}
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URL")
		}
		s = payload
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients strip the padding
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64 image: %w", err)
		}
	}
	if len(b) == 0 {
		return nil, ErrEmptyImage
	}
	return b, nil
}

// Prepare decodes a JPEG, PNG or WebP image, scales it to fit within maxDim on its longest
// side, and re-encodes it as JPEG. Images already small enough are only re-encoded.
func Prepare(raw []byte, maxDim int) ([]byte, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	if maxDim <= 0 {
		maxDim = DefaultMaxDim
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dst := src
	b := src.Bounds()
	if w, h := b.Dx(), b.Dy(); w > maxDim || h > maxDim {
		nw, nh := fit(w, h, maxDim)
		scaled := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Over, nil)
		dst = scaled
	} else if format == "jpeg" {
		return raw, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func fit(w, h, maxDim int) (int, int) {
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
