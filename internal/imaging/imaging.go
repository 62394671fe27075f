package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Photos of found items and claim proofs come straight from kiosk cameras
// and phone uploads, so they are validated by sniffing, bounded and
// re-encoded before storage.

// MaxDimension is the maximum width or height for stored photos.
const MaxDimension = 1280

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 85

// MaxUploadBytes caps the accepted upload size before decoding.
const MaxUploadBytes = 5 << 20

// Photo is a processed, storage-ready photo.
type Photo struct {
	Data []byte
	MIME string
}

// Process reads photo data, validates the format by sniffing bytes (client
// headers are not trusted), downscales anything larger than MaxDimension
// and re-encodes as JPEG.
func Process(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, fmt.Errorf("photo larger than %d bytes", MaxUploadBytes)
	}

	switch detected := http.DetectContentType(data); detected {
	case "image/jpeg", "image/png":
	default:
		return nil, fmt.Errorf("unsupported photo format %s (only JPEG and PNG accepted)", detected)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding photo: %w", err)
	}

	img = bound(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// bound resizes the image so neither dimension exceeds maxDim, preserving
// aspect ratio with Catmull-Rom interpolation. Images already within
// bounds are returned unchanged.
func bound(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
