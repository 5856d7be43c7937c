// Package imaging shrinks item photos and stores them in object storage.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	MaxWidth    = 1200
	MaxHeight   = 1200
	JPEGQuality = 80

	// maxInputBytes bounds what Compress will read from a caller.
	maxInputBytes = 32 << 20
)

var ErrTooLarge = errors.New("image file too large")

// Fit returns the dimensions of a w×h image scaled uniformly to fit inside
// maxW×maxH. Images already inside the bounds keep their size.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return max(nw, 1), max(nh, 1)
}

// Compress decodes a JPEG, PNG, GIF or WebP image, scales it into
// MaxWidth×MaxHeight and re-encodes it as JPEG.
func Compress(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxInputBytes {
		return nil, ErrTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), MaxWidth, MaxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
