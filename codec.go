package pictura

import "image"

// RawImage is a decoded pixel buffer plus the metadata the pipeline needs.
// It is owned exclusively by one processing operation and never shared
// across concurrent generations.
type RawImage struct {
	// Image is the decoded pixel data.
	Image image.Image

	// Width and Height are the current pixel dimensions.
	Width  int
	Height int

	// Format is the source encoding ("jpeg", "png", "gif"). Derivatives are
	// encoded back to this format; the pipeline never converts between
	// formats.
	Format string

	// Normalized marks that orientation correction and color space
	// conversion have been applied.
	Normalized bool

	// source holds the original encoded bytes until normalization, so the
	// codec can honor embedded orientation metadata.
	source []byte
}

// SourceBytes returns the encoded bytes the image was decoded from, or nil
// once the image has been normalized.
func (r *RawImage) SourceBytes() []byte {
	return r.source
}

// WithSource attaches the encoded source bytes. Used by codec
// implementations; callers outside a codec have no reason to touch this.
func (r *RawImage) WithSource(data []byte) *RawImage {
	r.source = data
	return r
}

// Codec is the narrow boundary to the image decoding/encoding/resizing
// library. Implementations must not retain references to inputs or outputs.
type Codec interface {
	// Decode parses encoded bytes into a RawImage.
	// Returns EUNSUPPORTEDFORMAT for unrecognized formats and ECORRUPTIMAGE
	// for recognized formats with undecodable payloads.
	Decode(data []byte) (*RawImage, error)

	// Normalize applies orientation correction from embedded metadata and
	// converts to the canonical color space. Idempotent: normalizing an
	// already-normalized image returns it unchanged.
	Normalize(img *RawImage) *RawImage

	// Resize applies a style's target box. ModeBoundingBox preserves aspect
	// ratio and never upscales: a source already inside the box is returned
	// unchanged.
	Resize(img *RawImage, spec StyleSpec) *RawImage

	// Encode serializes the pixel buffer back to the given format.
	// Returns EENCODE on failure.
	Encode(img *RawImage, format string) ([]byte, error)
}
