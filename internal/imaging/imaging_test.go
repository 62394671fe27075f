package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestProcessSmallPNG(t *testing.T) {
	data := encodePNG(t, 100, 50)

	photo, err := Process(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if photo.MIME != "image/jpeg" {
		t.Errorf("expected JPEG output, got %s", photo.MIME)
	}

	img, err := jpeg.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("small image should keep its size, got %v", img.Bounds())
	}
}

func TestProcessDownscalesLargeImage(t *testing.T) {
	data := encodePNG(t, MaxDimension*2, MaxDimension)

	photo, err := Process(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(photo.Data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if img.Bounds().Dx() != MaxDimension {
		t.Errorf("expected width %d, got %d", MaxDimension, img.Bounds().Dx())
	}
	if img.Bounds().Dy() != MaxDimension/2 {
		t.Errorf("expected aspect ratio preserved, got height %d", img.Bounds().Dy())
	}
}

func TestProcessRejectsNonImage(t *testing.T) {
	if _, err := Process(strings.NewReader("definitely not an image")); err == nil {
		t.Error("expected error for non-image data")
	}
}

func TestProcessRejectsOversized(t *testing.T) {
	data := make([]byte, MaxUploadBytes+10)
	if _, err := Process(bytes.NewReader(data)); err == nil {
		t.Error("expected error for oversized upload")
	}
}
