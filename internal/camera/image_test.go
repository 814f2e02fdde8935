package camera

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdanthq/plantid-go/internal/errors"
)

func encodeTestImage(t *testing.T, width, height int, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		img.Set(x, height/2, color.RGBA{G: 128, A: 255})
	}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func testJPEG(t *testing.T, width, height int) []byte {
	return encodeTestImage(t, width, height, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 90})
	})
}

func testPNG(t *testing.T, width, height int) []byte {
	return encodeTestImage(t, width, height, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})
}

// 1x1 lossy WebP.
func testWebP(t *testing.T) []byte {
	t.Helper()

	data, err := base64.StdEncoding.DecodeString(
		"UklGRiQAAABXRUJQVlA4IBgAAAAwAQCdASoBAAEAAwA0JaQAA3AA/vuUAAA=")
	require.NoError(t, err)
	return data
}

func TestOptimizeImageAcceptsWebP(t *testing.T) {
	data := testWebP(t)

	mimeType, err := ValidateUpload(data)
	require.NoError(t, err)
	require.Equal(t, "image/webp", mimeType)

	out, err := OptimizeImage(data, 1200, 0.8)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestOptimizeImageDownscalesWideImages(t *testing.T) {
	data := testJPEG(t, 400, 200)

	out, err := OptimizeImage(data, 100, 0.8)
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestOptimizeImageKeepsNarrowImages(t *testing.T) {
	data := testJPEG(t, 80, 60)

	out, err := OptimizeImage(data, 100, 0.8)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 80, decoded.Bounds().Dx())
	assert.Equal(t, 60, decoded.Bounds().Dy())
}

func TestOptimizeImageConvertsPNGToJPEG(t *testing.T) {
	data := testPNG(t, 120, 80)

	out, err := OptimizeImage(data, 1200, 0.8)
	require.NoError(t, err)

	_, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestOptimizeImageRejectsGarbage(t *testing.T) {
	_, err := OptimizeImage([]byte("not an image"), 1200, 0.8)

	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
}

func TestValidateUpload(t *testing.T) {
	t.Run("jpeg", func(t *testing.T) {
		mimeType, err := ValidateUpload(testJPEG(t, 10, 10))
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mimeType)
	})

	t.Run("png", func(t *testing.T) {
		mimeType, err := ValidateUpload(testPNG(t, 10, 10))
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ValidateUpload(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty image upload")
	})

	t.Run("oversize", func(t *testing.T) {
		_, err := ValidateUpload(make([]byte, MaxUploadBytes+1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum size")
	})

	t.Run("wrong_type", func(t *testing.T) {
		_, err := ValidateUpload([]byte("%PDF-1.4 not an image at all"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported image type")
	})
}
