package mock

import (
	"github.com/tomreid/pictura"
)

// Compile-time interface check
var _ pictura.Codec = (*Codec)(nil)

// Codec is a mock implementation of pictura.Codec.
type Codec struct {
	DecodeFn    func(data []byte) (*pictura.RawImage, error)
	NormalizeFn func(img *pictura.RawImage) *pictura.RawImage
	ResizeFn    func(img *pictura.RawImage, spec pictura.StyleSpec) *pictura.RawImage
	EncodeFn    func(img *pictura.RawImage, format string) ([]byte, error)
}

func (c *Codec) Decode(data []byte) (*pictura.RawImage, error) {
	if c.DecodeFn != nil {
		return c.DecodeFn(data)
	}
	return &pictura.RawImage{Width: 1, Height: 1, Format: "jpeg"}, nil
}

func (c *Codec) Normalize(img *pictura.RawImage) *pictura.RawImage {
	if c.NormalizeFn != nil {
		return c.NormalizeFn(img)
	}
	img.Normalized = true
	return img
}

func (c *Codec) Resize(img *pictura.RawImage, spec pictura.StyleSpec) *pictura.RawImage {
	if c.ResizeFn != nil {
		return c.ResizeFn(img, spec)
	}
	return img
}

func (c *Codec) Encode(img *pictura.RawImage, format string) ([]byte, error) {
	if c.EncodeFn != nil {
		return c.EncodeFn(img, format)
	}
	return []byte{}, nil
}
