package camera

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/verdanthq/plantid-go/internal/errors"
)

const (
	// MaxUploadBytes bounds uploaded image payloads.
	MaxUploadBytes = 10 << 20

	defaultMaxWidth     = 1200
	defaultOptimQuality = 0.8
)

// OptimizeImage re-encodes an image as JPEG, downscaling to maxWidth when
// the source is wider. Aspect ratio is preserved. Quality is in (0,1].
func OptimizeImage(data []byte, maxWidth int, quality float64) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = defaultMaxWidth
	}
	if quality <= 0 || quality > 1 {
		quality = defaultOptimQuality
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryImageDecode).
			ImageContext("", int64(len(data))).
			Build()
	}

	bounds := src.Bounds()
	if bounds.Dx() > maxWidth {
		height := bounds.Dy() * maxWidth / bounds.Dx()
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	opts := &jpeg.Options{Quality: int(quality * 100)}
	if err := jpeg.Encode(&buf, src, opts); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryImageEncode).
			Build()
	}

	return buf.Bytes(), nil
}

// ValidateUpload checks an uploaded image payload for size and content
// type. It returns the detected MIME type.
func ValidateUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.Newf("empty image upload").
			Category(errors.CategoryValidation).
			Build()
	}
	if len(data) > MaxUploadBytes {
		return "", errors.Newf("image exceeds maximum size of %d bytes", MaxUploadBytes).
			Category(errors.CategoryValidation).
			ImageContext("", int64(len(data))).
			Build()
	}

	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return mimeType, nil
	default:
		return "", errors.Newf("unsupported image type: %s", mimeType).
			Category(errors.CategoryValidation).
			Context("detected_type", mimeType).
			Build()
	}
}
