package decoder

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"github.com/pkg/errors"
)

// PNGDecoder decodes PNG bitmap updates into *image.RGBA.
type PNGDecoder struct{}

func NewPNGDecoder() *PNGDecoder {
	return &PNGDecoder{}
}

func (d *PNGDecoder) Decode(data []byte) (*image.RGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode png")
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba, nil
	}
	// Desktop services usually send NRGBA; the canvas wants RGBA.
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	draw.Draw(rgba, b, img, b.Min, draw.Src)
	return rgba, nil
}
