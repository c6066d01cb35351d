package chat

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 10 {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 50, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func decodeResult(t *testing.T, encoded string) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("result is not base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("result is not a JPEG: %v", err)
	}
	return img
}

func TestCompressImageScalesLongerEdge(t *testing.T) {
	encoded, raw, err := CompressImage(encodePNG(t, 2000, 1000))
	if err != nil {
		t.Fatalf("CompressImage failed: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("no encoded bytes returned")
	}

	img := decodeResult(t, encoded)
	b := img.Bounds()
	if b.Dx() != 800 || b.Dy() != 400 {
		t.Fatalf("scaled to %dx%d, want 800x400", b.Dx(), b.Dy())
	}
}

func TestCompressImagePortrait(t *testing.T) {
	encoded, _, err := CompressImage(encodePNG(t, 600, 1200))
	if err != nil {
		t.Fatalf("CompressImage failed: %v", err)
	}
	b := decodeResult(t, encoded).Bounds()
	if b.Dx() != 400 || b.Dy() != 800 {
		t.Fatalf("scaled to %dx%d, want 400x800", b.Dx(), b.Dy())
	}
}

func TestCompressImageNeverUpscales(t *testing.T) {
	encoded, _, err := CompressImage(encodePNG(t, 400, 300))
	if err != nil {
		t.Fatalf("CompressImage failed: %v", err)
	}
	b := decodeResult(t, encoded).Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("got %dx%d, want unchanged 400x300", b.Dx(), b.Dy())
	}
}

func TestCompressImageRejectsGarbage(t *testing.T) {
	if _, _, err := CompressImage([]byte("definitely not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestTargetSize(t *testing.T) {
	cases := []struct{ w, h, wantW, wantH int }{
		{2000, 1000, 800, 400},
		{1000, 2000, 400, 800},
		{800, 800, 800, 800},
		{801, 801, 800, 800},
		{100, 50, 100, 50},
		{1600, 900, 800, 450},
	}
	for _, c := range cases {
		w, h := targetSize(c.w, c.h)
		if w != c.wantW || h != c.wantH {
			t.Errorf("targetSize(%d, %d) = (%d, %d), want (%d, %d)", c.w, c.h, w, h, c.wantW, c.wantH)
		}
	}
}
