package canvas

import (
	"image"
	"image/color"

	"github.com/junsooki/deskview/internal/input"
)

// ListenerID identifies one input listener attached to a Surface.
type ListenerID uint64

// Surface is the drawable target the renderer paints onto. The caller
// owns it; the renderer never creates or destroys one.
type Surface interface {
	// Context returns the drawing target handed to frame handlers.
	Context() Context
	// Focus makes the surface the receiver of keyboard input.
	Focus()
	// SetStyle applies caller-supplied visual properties.
	SetStyle(style Style)
	AddListener(kind input.EventType, fn func(input.Event)) ListenerID
	RemoveListener(id ListenerID)
}

// Context is a drawable canvas.
type Context interface {
	Bounds() image.Rectangle
	// Resize changes the canvas size, keeping the overlapping content.
	// Non-positive sizes are ignored.
	Resize(width, height int)
	// DrawImage copies img onto the canvas with its top-left corner at at.
	DrawImage(img image.Image, at image.Point)
}

// Style holds visual properties for the surface. The renderer passes it
// through without looking at it.
type Style struct {
	Title      string
	Width      int
	Height     int
	Background color.Color
}
