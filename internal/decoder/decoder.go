// Package decoder turns TDP bitmap payloads into RGBA images.
package decoder

import "image"

// Decoder decodes one encoded bitmap. The returned image always starts at
// the origin.
type Decoder interface {
	Decode(data []byte) (*image.RGBA, error)
}

var _ Decoder = (*PNGDecoder)(nil)
