package chat

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	maxAttachmentBytes = 1 << 20
	maxEdge            = 800
	jpegQuality        = 70
)

// CompressImage re-encodes an uploaded image as a JPEG whose longer
// edge is at most 800px (never upscaled) and returns it both as the
// raw base64 payload stored in the message (no data-URI prefix) and as
// the encoded bytes for archival.
func CompressImage(data []byte) (string, []byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	w, h := targetSize(bounds.Dx(), bounds.Dy())

	var out image.Image = src
	if w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Bytes(), nil
}

// targetSize scales (w, h) so the longer edge is at most maxEdge,
// preserving aspect ratio. Smaller images pass through unchanged.
func targetSize(w, h int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		return maxEdge, h * maxEdge / w
	}
	return w * maxEdge / h, maxEdge
}
