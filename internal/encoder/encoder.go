// Package encoder serializes canvas snapshots.
package encoder

import "image"

// Encoder encodes an image of any color model.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

var _ Encoder = (*PNGEncoder)(nil)
