package session

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/deskview/internal/canvas"
	"github.com/junsooki/deskview/internal/encoder"
	"github.com/junsooki/deskview/internal/input"
	"github.com/junsooki/deskview/internal/tdp"
)

type pipeConn struct {
	in  chan []byte
	out chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (p *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-p.in:
		return msg, nil
	case <-p.closed:
		return nil, io.EOF
	}
}

func (p *pipeConn) WriteMessage(data []byte) error {
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	p.out <- data
	return nil
}

func (p *pipeConn) Close() error {
	p.closeOnce.Do(func() { close(p.closed) })
	return nil
}

func next(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client message")
		return nil
	}
}

func solidPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	data, err := encoder.NewPNGEncoder(true).Encode(img)
	require.NoError(t, err)
	return data
}

type harness struct {
	conn     *pipeConn
	client   *tdp.Client
	desk     *Desktop
	surface  *canvas.ImageSurface
	sched    *canvas.RefreshScheduler
	renderer *canvas.Renderer[*tdp.Client]
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		conn:    newPipeConn(),
		desk:    NewDesktop(nil),
		surface: canvas.NewImageSurface(8, 8),
		sched:   canvas.NewRefreshScheduler(),
	}
	h.client = tdp.NewClient(func(context.Context) (tdp.Conn, error) {
		return h.conn, nil
	}, "alice", tdp.ClientScreenSpec{Width: 8, Height: 8})
	h.renderer = canvas.New[*tdp.Client](h.surface, h.desk.Config(canvas.Style{Title: "test"}), h.sched, zerolog.Nop())
	h.renderer.Bind(h.client)
	t.Cleanup(h.renderer.Close)

	next(t, h.conn.out)
	next(t, h.conn.out)
	return h
}

func TestDesktopStatusFollowsSession(t *testing.T) {
	var mu sync.Mutex
	var seen []Status
	d := NewDesktop(func(s Status, _ string) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})
	status, _ := d.Status()
	assert.Equal(t, StatusConnecting, status)

	d.opened()
	d.closed()
	status, text := d.Status()
	assert.Equal(t, StatusDisconnected, status)
	assert.NotEmpty(t, text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Status{StatusConnected, StatusDisconnected}, seen)
}

func TestDesktopErrorSurvivesClose(t *testing.T) {
	h := newHarness(t)
	status, _ := h.desk.Status()
	assert.Equal(t, StatusConnected, status)

	h.conn.in <- tdp.EncodeError("access denied")
	require.Eventually(t, func() bool {
		s, _ := h.desk.Status()
		return s == StatusError
	}, 2*time.Second, 5*time.Millisecond)

	h.conn.Close()
	time.Sleep(20 * time.Millisecond)
	status, text := h.desk.Status()
	assert.Equal(t, StatusError, status)
	assert.Equal(t, "access denied", text)
}

func TestDesktopResizesAndPaints(t *testing.T) {
	h := newHarness(t)
	ctx := h.surface.Context()

	h.conn.in <- tdp.EncodeClientScreenSpec(tdp.ClientScreenSpec{Width: 4, Height: 3})
	require.Eventually(t, func() bool {
		return ctx.Bounds() == image.Rect(0, 0, 4, 3)
	}, 2*time.Second, 5*time.Millisecond)

	red := color.RGBA{R: 255, A: 255}
	h.conn.in <- tdp.EncodePNGFrame(2, 1, 4, 3, solidPNG(t, 2, 2, red))
	require.Eventually(t, func() bool { return h.renderer.Queued() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Nothing is painted before the refresh.
	assert.Equal(t, color.RGBA{}, h.surface.Snapshot(0, 0).RGBAAt(3, 2))
	h.sched.Flush()

	img := h.surface.Snapshot(0, 0)
	assert.Equal(t, red, img.RGBAAt(2, 1))
	assert.Equal(t, red, img.RGBAAt(3, 2))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(1, 1))
	assert.Equal(t, 1, h.desk.FramesPainted())
}

func TestDesktopRejectsInvalidScreenSize(t *testing.T) {
	cases := []tdp.ClientScreenSpec{
		{Width: 0xFFFFFFFF, Height: 0xFFFFFFFF},
		{Width: 0, Height: 600},
		{Width: 800, Height: 0},
		{Width: MaxScreenSide + 1, Height: 600},
	}
	for _, spec := range cases {
		h := newHarness(t)
		ctx := h.surface.Context()

		h.conn.in <- tdp.EncodeClientScreenSpec(spec)
		require.Eventually(t, func() bool {
			s, _ := h.desk.Status()
			return s == StatusError
		}, 2*time.Second, 5*time.Millisecond, "%dx%d", spec.Width, spec.Height)
		_, text := h.desk.Status()
		assert.Contains(t, text, "invalid screen size")
		assert.Equal(t, image.Rect(0, 0, 8, 8), ctx.Bounds())

		// The session keeps running and accepts a valid size afterwards.
		h.conn.in <- tdp.EncodeClientScreenSpec(tdp.ClientScreenSpec{Width: MaxScreenSide, Height: 2})
		require.Eventually(t, func() bool {
			return ctx.Bounds() == image.Rect(0, 0, MaxScreenSide, 2)
		}, 2*time.Second, 5*time.Millisecond)
	}
}

func TestDesktopSendsInput(t *testing.T) {
	h := newHarness(t)

	h.surface.Dispatch(input.Event{Type: input.EventMouseMove, X: 3.7, Y: 2.2})
	assert.Equal(t, tdp.EncodeMouseMove(3, 2), next(t, h.conn.out))

	h.surface.Dispatch(input.Event{Type: input.EventMouseMove, X: 50, Y: -4})
	assert.Equal(t, tdp.EncodeMouseMove(7, 0), next(t, h.conn.out))

	h.surface.Dispatch(input.Event{Type: input.EventMouseDown, Button: input.MouseButtonRight})
	assert.Equal(t, tdp.EncodeMouseButton(tdp.RightButton, tdp.ButtonDown), next(t, h.conn.out))
	h.surface.Dispatch(input.Event{Type: input.EventMouseUp, Button: input.MouseButtonRight})
	assert.Equal(t, tdp.EncodeMouseButton(tdp.RightButton, tdp.ButtonUp), next(t, h.conn.out))

	h.surface.Dispatch(input.Event{Type: input.EventMouseWheel, DeltaY: 100})
	assert.Equal(t, tdp.EncodeMouseWheel(tdp.VerticalAxis, -100), next(t, h.conn.out))
	h.surface.Dispatch(input.Event{Type: input.EventMouseWheel, DeltaX: -40000})
	assert.Equal(t, tdp.EncodeMouseWheel(tdp.HorizontalAxis, 32767), next(t, h.conn.out))

	h.surface.Dispatch(input.Event{Type: input.EventKeyDown, Code: 0x1E})
	assert.Equal(t, tdp.EncodeKeyboardButton(0x1E, tdp.ButtonDown), next(t, h.conn.out))
	h.surface.Dispatch(input.Event{Type: input.EventKeyUp, Code: 0xE048})
	assert.Equal(t, tdp.EncodeKeyboardButton(0xE048, tdp.ButtonUp), next(t, h.conn.out))

	// Unmapped keys and the context menu send nothing.
	h.surface.Dispatch(input.Event{Type: input.EventKeyDown})
	h.surface.Dispatch(input.Event{Type: input.EventContextMenu})
	assert.Empty(t, h.conn.out)
}

func TestDesktopStopsSendingAfterClose(t *testing.T) {
	h := newHarness(t)
	h.renderer.Close()

	h.surface.Dispatch(input.Event{Type: input.EventMouseMove, X: 1, Y: 1})
	assert.Empty(t, h.conn.out)
	assert.Zero(t, h.surface.ListenerCount(input.EventMouseMove))
}
