package encoder

import (
	"bytes"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

// PNGEncoder encodes canvas snapshots as PNG.
type PNGEncoder struct {
	enc png.Encoder
}

// NewPNGEncoder creates a PNG encoder. fast trades size for speed.
func NewPNGEncoder(fast bool) *PNGEncoder {
	level := png.DefaultCompression
	if fast {
		level = png.BestSpeed
	}
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: level}}
}

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024)
	if err := e.enc.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "encode png")
	}
	return buf.Bytes(), nil
}
