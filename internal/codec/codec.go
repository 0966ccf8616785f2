// Package codec implements the image codec boundary on top of
// github.com/disintegration/imaging and the standard image registry.
package codec

import (
	"bytes"
	"errors"
	"image"
	"math"

	// Register the supported source formats with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	"github.com/tomreid/pictura"
)

// JPEGQuality is the compression quality for JPEG derivatives.
const JPEGQuality = 85

// Compile-time check that Codec implements pictura.Codec.
var _ pictura.Codec = (*Codec)(nil)

// Codec decodes, normalizes, resizes and encodes images.
type Codec struct{}

// New creates a codec.
func New() *Codec {
	return &Codec{}
}

// Decode parses encoded bytes and records their pixel dimensions and format.
func (c *Codec) Decode(data []byte) (*pictura.RawImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, pictura.WrapError(pictura.EUNSUPPORTEDFORMAT, "Unrecognized image format", err)
		}
		return nil, pictura.WrapError(pictura.ECORRUPTIMAGE, "Image could not be decoded", err)
	}

	bounds := img.Bounds()
	raw := &pictura.RawImage{
		Image:  img,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}
	return raw.WithSource(data), nil
}

// Normalize applies EXIF orientation correction and converts the pixel
// buffer to NRGBA, the canonical color space for the rest of the pipeline.
// Re-normalizing is a no-op.
func (c *Codec) Normalize(img *pictura.RawImage) *pictura.RawImage {
	if img.Normalized {
		return img
	}

	var oriented image.Image
	if src := img.SourceBytes(); src != nil {
		// Re-decode with the orientation tag applied so the visual
		// orientation is upright regardless of source metadata.
		decoded, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
		if err != nil {
			// The bytes decoded once already; fall back to the buffer we have.
			oriented = imaging.Clone(img.Image)
		} else {
			oriented = decoded
		}
	} else {
		oriented = imaging.Clone(img.Image)
	}

	bounds := oriented.Bounds()
	return &pictura.RawImage{
		Image:      oriented,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     img.Format,
		Normalized: true,
	}
}

// Resize applies a style's target box to the image.
func (c *Codec) Resize(img *pictura.RawImage, spec pictura.StyleSpec) *pictura.RawImage {
	var resized image.Image

	switch spec.Mode {
	case pictura.ModeExact:
		resized = imaging.Resize(img.Image, spec.Width, spec.Height, imaging.Lanczos)
	case pictura.ModeCrop:
		resized = imaging.Fill(img.Image, spec.Width, spec.Height, imaging.Center, imaging.Lanczos)
	default: // bounding box
		scale := math.Min(
			float64(spec.Width)/float64(img.Width),
			float64(spec.Height)/float64(img.Height),
		)
		if scale >= 1 {
			// Already inside the box; never upscale.
			return img
		}
		w := max(int(float64(img.Width)*scale), 1)
		h := max(int(float64(img.Height)*scale), 1)
		resized = imaging.Resize(img.Image, w, h, imaging.Lanczos)
	}

	bounds := resized.Bounds()
	return &pictura.RawImage{
		Image:      resized,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     img.Format,
		Normalized: img.Normalized,
	}
}

// Encode serializes the pixel buffer back to the given format. Derivatives
// keep the source format, so only decodable formats appear here.
func (c *Codec) Encode(img *pictura.RawImage, format string) ([]byte, error) {
	var imgFormat imaging.Format
	switch format {
	case "jpeg":
		imgFormat = imaging.JPEG
	case "png":
		imgFormat = imaging.PNG
	case "gif":
		imgFormat = imaging.GIF
	default:
		return nil, pictura.Errorf(pictura.EENCODE, "Cannot encode format %q", format)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img.Image, imgFormat, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, pictura.WrapError(pictura.EENCODE, "Failed to encode derivative", err)
	}
	return buf.Bytes(), nil
}
