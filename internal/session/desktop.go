// Package session holds the desktop session handlers that drive a
// canvas.Renderer over a TDP client.
package session

import (
	"image"
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/canvas"
	"github.com/junsooki/deskview/internal/input"
	"github.com/junsooki/deskview/internal/tdp"
)

// Status is the connection state of a desktop session.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// MaxScreenSide bounds each side of a screen size accepted from the desktop.
const MaxScreenSide = 8192

// Desktop tracks one remote desktop session and supplies the renderer
// handlers for it.
type Desktop struct {
	logger zerolog.Logger

	mu         sync.Mutex
	status     Status
	statusText string
	frames     int
	onChange   func(Status, string)
}

// NewDesktop returns a session in the connecting state. onChange, if not
// nil, is called after every status transition.
func NewDesktop(onChange func(status Status, text string)) *Desktop {
	return &Desktop{
		logger:   log.With().Str("module", "session").Logger(),
		status:   StatusConnecting,
		onChange: onChange,
	}
}

// Status returns the current status and its text.
func (d *Desktop) Status() (Status, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status, d.statusText
}

// FramesPainted returns how many frames have been drawn.
func (d *Desktop) FramesPainted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Config returns the renderer configuration for this session.
func (d *Desktop) Config(style canvas.Style) canvas.Config[*tdp.Client] {
	return canvas.Config[*tdp.Client]{
		OnFrame:      d.paint,
		OnScreenSpec: d.resize,
		OnError:      d.fail,
		OnClose:      d.closed,
		OnOpen:       d.opened,

		OnMouseMove:   d.mouseMove,
		OnMouseDown:   d.mouseButton(tdp.ButtonDown),
		OnMouseUp:     d.mouseButton(tdp.ButtonUp),
		OnMouseWheel:  d.mouseWheel,
		OnKeyDown:     d.key(tdp.ButtonDown),
		OnKeyUp:       d.key(tdp.ButtonUp),
		OnContextMenu: func() {},

		Style: style,
	}
}

func (d *Desktop) setStatus(s Status, text string) {
	d.mu.Lock()
	d.status = s
	d.statusText = text
	cb := d.onChange
	d.mu.Unlock()

	d.logger.Info().Str("status", string(s)).Str("text", text).Msg("desktop session status")
	if cb != nil {
		cb(s, text)
	}
}

func (d *Desktop) paint(ctx canvas.Context, frame tdp.PNGFrame) {
	if frame.Image == nil {
		return
	}
	ctx.DrawImage(frame.Image, frame.Origin())
	d.mu.Lock()
	d.frames++
	d.mu.Unlock()
}

// resize rejects sizes the canvas cannot hold and reports them as a
// session error.
func (d *Desktop) resize(surface canvas.Surface, spec tdp.ClientScreenSpec) {
	if spec.Width == 0 || spec.Height == 0 || spec.Width > MaxScreenSide || spec.Height > MaxScreenSide {
		d.fail(errors.Errorf("desktop sent invalid screen size %dx%d", spec.Width, spec.Height))
		return
	}
	surface.Context().Resize(int(spec.Width), int(spec.Height))
}

func (d *Desktop) fail(err error) {
	d.setStatus(StatusError, err.Error())
}

// closed keeps an earlier error visible.
func (d *Desktop) closed() {
	d.mu.Lock()
	failed := d.status == StatusError
	d.mu.Unlock()
	if failed {
		return
	}
	d.setStatus(StatusDisconnected, "session disconnected")
}

func (d *Desktop) opened() {
	d.setStatus(StatusConnected, "")
}

func (d *Desktop) mouseMove(cli *tdp.Client, surface canvas.Surface, e input.Event) {
	x, y := clampToCanvas(e.X, e.Y, surface.Context().Bounds())
	d.report(cli.SendMouseMove(x, y))
}

func (d *Desktop) mouseButton(state tdp.ButtonState) func(*tdp.Client, input.Event) {
	return func(cli *tdp.Client, e input.Event) {
		var button tdp.MouseButton
		switch e.Button {
		case input.MouseButtonLeft:
			button = tdp.LeftButton
		case input.MouseButtonMiddle:
			button = tdp.MiddleButton
		case input.MouseButtonRight:
			button = tdp.RightButton
		default:
			return
		}
		d.report(cli.SendMouseButton(button, state))
	}
}

// mouseWheel flips the sign: remote desktops scroll down on negative
// deltas.
func (d *Desktop) mouseWheel(cli *tdp.Client, e input.Event) {
	if e.DeltaX != 0 {
		d.report(cli.SendMouseWheel(tdp.HorizontalAxis, wheelDelta(-e.DeltaX)))
	}
	if e.DeltaY != 0 {
		d.report(cli.SendMouseWheel(tdp.VerticalAxis, wheelDelta(-e.DeltaY)))
	}
}

func (d *Desktop) key(state tdp.ButtonState) func(*tdp.Client, input.Event) {
	return func(cli *tdp.Client, e input.Event) {
		if e.Code == 0 {
			return
		}
		d.report(cli.SendKeyboardButton(e.Code, state))
	}
}

func (d *Desktop) report(err error) {
	if err != nil {
		d.logger.Debug().Err(err).Msg("dropping input")
	}
}

func clampToCanvas(x, y float64, bounds image.Rectangle) (uint32, uint32) {
	return clampAxis(x, bounds.Dx()), clampAxis(y, bounds.Dy())
}

func clampAxis(v float64, size int) uint32 {
	if v < 0 || size <= 0 {
		return 0
	}
	if v >= float64(size) {
		return uint32(size - 1)
	}
	return uint32(v)
}

func wheelDelta(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}
