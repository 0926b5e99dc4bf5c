package display

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/canvas"
	"github.com/junsooki/deskview/internal/input"
)

// Flusher is driven once per window refresh. *canvas.RefreshScheduler
// satisfies it.
type Flusher interface {
	Flush() int
}

var (
	_ Display        = (*EbitenSurface)(nil)
	_ canvas.Surface = (*EbitenSurface)(nil)
	_ ebiten.Game    = (*EbitenSurface)(nil)
)

// wheelStep converts one wheel notch to pixel-style deltas.
const wheelStep = 100

type listener struct {
	kind input.EventType
	fn   func(input.Event)
}

// EbitenSurface is a canvas.Surface shown in an Ebitengine window. The
// canvas lives in an offscreen image; Draw letterboxes it into the window.
type EbitenSurface struct {
	mu        sync.Mutex
	canvas    *ebiten.Image
	style     canvas.Style
	focused   bool
	nextID    canvas.ListenerID
	listeners map[canvas.ListenerID]listener

	refresh Flusher
	logger  zerolog.Logger

	layoutW int
	layoutH int

	// retired canvases may still be in use by Draw; Update frees them.
	retired []*ebiten.Image

	prevMouseX int
	prevMouseY int
}

// NewEbitenSurface creates a surface whose canvas starts at width x height.
// refresh is flushed on every Update, after input has been dispatched.
func NewEbitenSurface(width, height int, refresh Flusher) *EbitenSurface {
	return &EbitenSurface{
		canvas:    ebiten.NewImage(width, height),
		listeners: make(map[canvas.ListenerID]listener),
		refresh:   refresh,
		logger:    log.With().Str("module", "display").Logger(),
		style:     canvas.Style{Width: width, Height: height},
	}
}

// Run opens the window and blocks until it is closed.
func (d *EbitenSurface) Run() error {
	d.mu.Lock()
	style := d.style
	d.mu.Unlock()

	w, h := style.Width, style.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	title := style.Title
	if title == "" {
		title = "deskview"
	}
	ebiten.SetWindowSize(w, h)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return ebiten.RunGame(d)
}

// --- canvas.Surface ---

func (d *EbitenSurface) Context() canvas.Context {
	return ebitenContext{d}
}

// Focus routes keyboard and pointer input to this surface's listeners.
func (d *EbitenSurface) Focus() {
	d.mu.Lock()
	d.focused = true
	d.mu.Unlock()
}

func (d *EbitenSurface) SetStyle(style canvas.Style) {
	d.mu.Lock()
	d.style = style
	d.mu.Unlock()
	if style.Title != "" {
		ebiten.SetWindowTitle(style.Title)
	}
}

func (d *EbitenSurface) AddListener(kind input.EventType, fn func(input.Event)) canvas.ListenerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.listeners[d.nextID] = listener{kind: kind, fn: fn}
	return d.nextID
}

func (d *EbitenSurface) RemoveListener(id canvas.ListenerID) {
	d.mu.Lock()
	delete(d.listeners, id)
	d.mu.Unlock()
}

// --- ebiten.Game interface ---

func (d *EbitenSurface) Update() error {
	d.mu.Lock()
	focused := d.focused
	retired := d.retired
	d.retired = nil
	d.mu.Unlock()

	// Ebitengine never runs Update and Draw concurrently.
	for _, img := range retired {
		img.Deallocate()
	}

	if focused && ebiten.IsFocused() {
		d.captureMouseInput()
		d.captureKeyboardInput()
	}
	if d.refresh != nil {
		d.refresh.Flush()
	}
	return nil
}

func (d *EbitenSurface) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	img := d.canvas
	bg := d.style.Background
	d.mu.Unlock()

	if bg == nil {
		bg = color.Black
	}
	screen.Fill(bg)

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	fw, fh := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	scale, offsetX, offsetY := canvas.AspectFit(float64(sw), float64(sh), fw, fh)

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}

func (d *EbitenSurface) Layout(outsideWidth, outsideHeight int) (int, int) {
	d.mu.Lock()
	d.layoutW, d.layoutH = outsideWidth, outsideHeight
	d.mu.Unlock()
	return outsideWidth, outsideHeight
}

// --- Input capture ---

func (d *EbitenSurface) canvasPoint(mx, my int) (float64, float64) {
	d.mu.Lock()
	b := d.canvas.Bounds()
	sw, sh := d.layoutW, d.layoutH
	d.mu.Unlock()

	scale, offsetX, offsetY := canvas.AspectFit(float64(sw), float64(sh), float64(b.Dx()), float64(b.Dy()))
	return canvas.ToCanvas(float64(mx), float64(my), scale, offsetX, offsetY)
}

func (d *EbitenSurface) captureMouseInput() {
	mx, my := ebiten.CursorPosition()
	x, y := d.canvasPoint(mx, my)
	mods := currentModifiers()

	if mx != d.prevMouseX || my != d.prevMouseY {
		d.prevMouseX = mx
		d.prevMouseY = my
		d.dispatch(input.Event{Type: input.EventMouseMove, X: x, Y: y, Modifiers: mods})
	}

	buttons := []struct {
		eb  ebiten.MouseButton
		btn input.MouseButton
	}{
		{ebiten.MouseButtonLeft, input.MouseButtonLeft},
		{ebiten.MouseButtonMiddle, input.MouseButtonMiddle},
		{ebiten.MouseButtonRight, input.MouseButtonRight},
	}
	for _, b := range buttons {
		if inpututil.IsMouseButtonJustPressed(b.eb) {
			if b.btn == input.MouseButtonRight {
				d.dispatch(input.Event{Type: input.EventContextMenu, X: x, Y: y})
			}
			d.dispatch(input.Event{Type: input.EventMouseDown, X: x, Y: y, Button: b.btn, Modifiers: mods})
		}
		if inpututil.IsMouseButtonJustReleased(b.eb) {
			d.dispatch(input.Event{Type: input.EventMouseUp, X: x, Y: y, Button: b.btn, Modifiers: mods})
		}
	}

	// Ebitengine reports positive dy when scrolling up.
	dx, dy := ebiten.Wheel()
	if dx != 0 || dy != 0 {
		d.dispatch(input.Event{
			Type:      input.EventMouseWheel,
			X:         x,
			Y:         y,
			DeltaX:    -dx * wheelStep,
			DeltaY:    -dy * wheelStep,
			Modifiers: mods,
		})
	}
}

func (d *EbitenSurface) captureKeyboardInput() {
	mods := currentModifiers()
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		d.sendKey(input.EventKeyDown, k, mods)
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		d.sendKey(input.EventKeyUp, k, mods)
	}
}

func (d *EbitenSurface) sendKey(kind input.EventType, k ebiten.Key, mods uint8) {
	code := scancode(k)
	if code == scancodeUnmapped {
		d.logger.Debug().Str("key", k.String()).Msg("no scancode for key")
		return
	}
	d.dispatch(input.Event{Type: kind, Code: code, Modifiers: mods})
}

func (d *EbitenSurface) dispatch(e input.Event) {
	d.mu.Lock()
	var fns []func(input.Event)
	for id := canvas.ListenerID(1); id <= d.nextID; id++ {
		if l, ok := d.listeners[id]; ok && l.kind == e.Type {
			fns = append(fns, l.fn)
		}
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

func currentModifiers() uint8 {
	var m uint8
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		m |= input.ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		m |= input.ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		m |= input.ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		m |= input.ModMeta
	}
	return m
}

// ebitenContext draws onto the surface's offscreen canvas. Ebitengine
// allows offscreen drawing from Update, which is where ticks run.
type ebitenContext struct {
	d *EbitenSurface
}

func (c ebitenContext) Bounds() image.Rectangle {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	return c.d.canvas.Bounds()
}

func (c ebitenContext) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	old := c.d.canvas
	if old.Bounds().Dx() == width && old.Bounds().Dy() == height {
		return
	}
	next := ebiten.NewImage(width, height)
	next.DrawImage(old, nil)
	c.d.retired = append(c.d.retired, old)
	c.d.canvas = next
}

func (c ebitenContext) DrawImage(img image.Image, at image.Point) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) {
		// Fast path: write the pixels straight into the target region.
		sub := c.d.canvas.SubImage(image.Rectangle{Min: at, Max: at.Add(b.Size())}).(*ebiten.Image)
		if sub.Bounds().Size() == b.Size() {
			sub.WritePixels(rgba.Pix)
			return
		}
	}
	src := ebiten.NewImageFromImage(img)
	defer src.Deallocate()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(at.X), float64(at.Y))
	op.Blend = ebiten.BlendCopy
	c.d.canvas.DrawImage(src, op)
}
