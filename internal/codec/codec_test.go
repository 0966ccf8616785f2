package codec

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomreid/pictura"
)

// encodeTestImage produces encoded bytes for a solid-color image of the
// given size in the given format.
func encodeTestImage(t *testing.T, width, height int, format string) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "png":
		err = png.Encode(&buf, img)
	default:
		t.Fatalf("unsupported test format %q", format)
	}
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 120, 80, "jpeg"))
	require.NoError(t, err)
	assert.Equal(t, 120, raw.Width)
	assert.Equal(t, 80, raw.Height)
	assert.Equal(t, "jpeg", raw.Format)
	assert.NotNil(t, raw.SourceBytes())
	assert.False(t, raw.Normalized)

	raw, err = c.Decode(encodeTestImage(t, 30, 40, "png"))
	require.NoError(t, err)
	assert.Equal(t, "png", raw.Format)
}

func TestDecode_UnrecognizedFormat(t *testing.T) {
	c := New()

	_, err := c.Decode([]byte("this is not an image"))
	assert.True(t, pictura.IsErrorCode(err, pictura.EUNSUPPORTEDFORMAT))
}

func TestDecode_CorruptImage(t *testing.T) {
	c := New()

	data := encodeTestImage(t, 120, 80, "jpeg")

	// A recognizable JPEG header with a truncated payload.
	_, err := c.Decode(data[:len(data)/2])
	assert.True(t, pictura.IsErrorCode(err, pictura.ECORRUPTIMAGE))
}

func TestNormalize(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 60, 40, "jpeg"))
	require.NoError(t, err)

	normalized := c.Normalize(raw)
	assert.True(t, normalized.Normalized)
	assert.Equal(t, 60, normalized.Width)
	assert.Equal(t, 40, normalized.Height)
	assert.Equal(t, "jpeg", normalized.Format)

	// Idempotent: a second pass returns the image unchanged.
	again := c.Normalize(normalized)
	assert.Same(t, normalized, again)
}

func TestResize_BoundingBox(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 1600, 1200, "jpeg"))
	require.NoError(t, err)
	raw = c.Normalize(raw)

	// Bounding box preserves aspect ratio; the short side is rounded down.
	small := c.Resize(raw, pictura.StyleSpec{Name: "mini", Width: 48, Height: 48, Mode: pictura.ModeBoundingBox})
	assert.Equal(t, 48, small.Width)
	assert.Equal(t, 36, small.Height)

	medium := c.Resize(raw, pictura.StyleSpec{Name: "product", Width: 680, Height: 680, Mode: pictura.ModeBoundingBox})
	assert.Equal(t, 680, medium.Width)
	assert.Equal(t, 510, medium.Height)
}

func TestResize_NeverUpscales(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 100, 80, "png"))
	require.NoError(t, err)

	resized := c.Resize(raw, pictura.StyleSpec{Name: "product", Width: 680, Height: 680, Mode: pictura.ModeBoundingBox})
	assert.Same(t, raw, resized)
	assert.Equal(t, 100, resized.Width)
	assert.Equal(t, 80, resized.Height)
}

func TestResize_TallImage(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 300, 900, "png"))
	require.NoError(t, err)

	resized := c.Resize(raw, pictura.StyleSpec{Name: "mini", Width: 90, Height: 90, Mode: pictura.ModeBoundingBox})
	assert.Equal(t, 30, resized.Width)
	assert.Equal(t, 90, resized.Height)
}

func TestResize_ExactAndCrop(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 400, 300, "jpeg"))
	require.NoError(t, err)

	exact := c.Resize(raw, pictura.StyleSpec{Name: "stretch", Width: 50, Height: 20, Mode: pictura.ModeExact})
	assert.Equal(t, 50, exact.Width)
	assert.Equal(t, 20, exact.Height)

	crop := c.Resize(raw, pictura.StyleSpec{Name: "square", Width: 100, Height: 100, Mode: pictura.ModeCrop})
	assert.Equal(t, 100, crop.Width)
	assert.Equal(t, 100, crop.Height)
}

func TestEncode(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 40, 30, "jpeg"))
	require.NoError(t, err)

	for _, format := range []string{"jpeg", "png", "gif"} {
		data, err := c.Encode(raw, format)
		require.NoError(t, err, format)

		decoded, decodedFormat, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err, format)
		assert.Equal(t, format, decodedFormat)
		assert.Equal(t, 40, decoded.Bounds().Dx())
	}
}

func TestEncode_UnknownFormat(t *testing.T) {
	c := New()

	raw, err := c.Decode(encodeTestImage(t, 40, 30, "jpeg"))
	require.NoError(t, err)

	_, err = c.Encode(raw, "tiff")
	assert.True(t, pictura.IsErrorCode(err, pictura.EENCODE))
}
