package canvas

import (
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/junsooki/deskview/internal/input"
)

// ImageSurface is an in-memory Surface backed by an *image.RGBA. It is
// used for headless rendering; input is injected with Dispatch.
type ImageSurface struct {
	mu        sync.Mutex
	img       *image.RGBA
	style     Style
	focused   bool
	nextID    ListenerID
	listeners map[ListenerID]imageListener
}

type imageListener struct {
	kind input.EventType
	fn   func(input.Event)
}

// NewImageSurface creates a blank surface of the given size.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		img:       image.NewRGBA(image.Rect(0, 0, width, height)),
		listeners: make(map[ListenerID]imageListener),
	}
}

func (s *ImageSurface) Context() Context {
	return imageContext{s}
}

func (s *ImageSurface) Focus() {
	s.mu.Lock()
	s.focused = true
	s.mu.Unlock()
}

func (s *ImageSurface) Focused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focused
}

func (s *ImageSurface) SetStyle(style Style) {
	s.mu.Lock()
	s.style = style
	s.mu.Unlock()
}

func (s *ImageSurface) Style() Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.style
}

func (s *ImageSurface) AddListener(kind input.EventType, fn func(input.Event)) ListenerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners[s.nextID] = imageListener{kind: kind, fn: fn}
	return s.nextID
}

func (s *ImageSurface) RemoveListener(id ListenerID) {
	s.mu.Lock()
	delete(s.listeners, id)
	s.mu.Unlock()
}

// ListenerCount returns how many listeners are attached for kind.
func (s *ImageSurface) ListenerCount(kind input.EventType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.listeners {
		if l.kind == kind {
			n++
		}
	}
	return n
}

// Dispatch delivers e to every listener attached for its type, in the
// order they were attached.
func (s *ImageSurface) Dispatch(e input.Event) {
	s.mu.Lock()
	var fns []func(input.Event)
	for id := ListenerID(1); id <= s.nextID; id++ {
		if l, ok := s.listeners[id]; ok && l.kind == e.Type {
			fns = append(fns, l.fn)
		}
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Snapshot returns a copy of the canvas. When width and height are
// positive and differ from the canvas size the copy is scaled.
func (s *ImageSurface) Snapshot(width, height int) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.img
	b := src.Bounds()
	if width <= 0 || height <= 0 || (width == b.Dx() && height == b.Dy()) {
		out := image.NewRGBA(b)
		draw.Draw(out, b, src, b.Min, draw.Src)
		return out
	}
	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), src, b, draw.Src, nil)
	return out
}

type imageContext struct {
	s *ImageSurface
}

func (c imageContext) Bounds() image.Rectangle {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.img.Bounds()
}

func (c imageContext) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	old := c.s.img
	if old.Bounds().Dx() == width && old.Bounds().Dy() == height {
		return
	}
	next := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(next, next.Bounds(), old, image.Point{}, draw.Src)
	c.s.img = next
}

func (c imageContext) DrawImage(img image.Image, at image.Point) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	b := img.Bounds()
	dst := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	draw.Draw(c.s.img, dst, img, b.Min, draw.Src)
}
