// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrInvalidImage is returned when image data cannot be decoded.
var ErrInvalidImage = errors.New("invalid image data")

// DecodeBase64 decodes client image data, stripping any "data:...;base64,"
// prefix. Both padded and unpadded encodings are accepted.
func DecodeBase64(data string) ([]byte, error) {
	if i := strings.IndexByte(data, ','); i >= 0 {
		data = data[i+1:]
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, ErrInvalidImage
	}
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return b, nil
}

// decodeImage decodes base64 image data and sizes it for a column. WebP,
// BMP and TIFF inputs are re-encoded as PNG so every renderer can embed
// the result.
func decodeImage(data, size string) (*Image, error) {
	raw, err := DecodeBase64(data)
	if err != nil {
		return nil, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	switch format {
	case "png", "jpeg", "gif":
	default:
		raw, err = toPNG(raw)
		if err != nil {
			return nil, err
		}
		format = "png"
	}

	w, h := FigureSize(size, cfg.Width, cfg.Height)
	return &Image{
		Data:     raw,
		Format:   format,
		WidthIn:  w,
		HeightIn: h,
		PixelsW:  cfg.Width,
		PixelsH:  cfg.Height,
	}, nil
}

func toPNG(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// FigureSize returns the rendered width and height in inches for an image
// of px by py pixels at the named size. Height is capped at
// MaxFigureHeightIn, shrinking the width to keep the aspect ratio.
func FigureSize(size string, px, py int) (float64, float64) {
	w, ok := FigureWidths[size]
	if !ok {
		w = FigureWidths[DefaultFigureSize]
	}
	if px <= 0 || py <= 0 {
		return w, w
	}
	h := w * float64(py) / float64(px)
	if h > MaxFigureHeightIn {
		w *= MaxFigureHeightIn / h
		h = MaxFigureHeightIn
	}
	return w, h
}
