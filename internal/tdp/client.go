package tdp

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/events"
)

// Event names a kind of notification emitted by Client.
type Event string

const (
	EventPNGFrame   Event = "png_frame"
	EventScreenSpec Event = "client_screen_spec"
	EventError      Event = "tdp_error"
	EventClose      Event = "ws_close"
	EventOpen       Event = "ws_open"
)

// Conn is a message-oriented duplex channel carrying TDP messages.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens the connection to the desktop service.
type Dialer func(ctx context.Context) (Conn, error)

var ErrNotConnected = errors.New("tdp: not connected")

// Client speaks TDP to a desktop service and emits what it receives.
//
// Payloads: EventPNGFrame carries PNGFrame, EventScreenSpec carries
// ClientScreenSpec, EventError carries error, EventClose and EventOpen
// carry nil. Events are emitted from the read goroutine.
type Client struct {
	emitter  *events.Emitter[Event]
	dial     Dialer
	username string
	screen   ClientScreenSpec
	logger   zerolog.Logger

	mu     sync.Mutex
	conn   Conn
	nuked  bool
	inited bool
	done   chan struct{}
}

// NewClient creates a client that will dial with dial on Init, then
// announce username and the initial screen geometry.
func NewClient(dial Dialer, username string, screen ClientScreenSpec) *Client {
	return &Client{
		emitter:  events.NewEmitter[Event](),
		dial:     dial,
		username: username,
		screen:   screen,
		logger:   log.With().Str("module", "tdp").Logger(),
		done:     make(chan struct{}),
	}
}

func (c *Client) Subscribe(kind Event, fn events.Listener) events.Subscription {
	return c.emitter.Subscribe(kind, fn)
}

func (c *Client) Unsubscribe(s events.Subscription) {
	c.emitter.Unsubscribe(s)
}

// ListenerCount reports how many listeners are registered for kind.
func (c *Client) ListenerCount(kind Event) int {
	return c.emitter.ListenerCount(kind)
}

// Init connects and starts reading. It may be called once; a nuked
// client cannot be restarted.
func (c *Client) Init() error {
	return c.InitContext(context.Background())
}

// InitContext is Init with a dial deadline.
func (c *Client) InitContext(ctx context.Context) error {
	c.mu.Lock()
	if c.nuked {
		c.mu.Unlock()
		return errors.New("tdp: client was nuked")
	}
	if c.inited {
		c.mu.Unlock()
		return errors.New("tdp: client already initialized")
	}
	c.inited = true
	c.mu.Unlock()

	conn, err := c.dial(ctx)
	if err != nil {
		return errors.Wrap(err, "tdp: dial")
	}

	c.mu.Lock()
	if c.nuked {
		c.mu.Unlock()
		conn.Close()
		return errors.New("tdp: client was nuked")
	}
	c.conn = conn
	c.mu.Unlock()

	c.emitter.Emit(EventOpen, nil)

	if err := c.send(EncodeClientUsername(c.username)); err != nil {
		return errors.Wrap(err, "tdp: send username")
	}
	if err := c.SendScreenSpec(c.screen); err != nil {
		return errors.Wrap(err, "tdp: send screen spec")
	}

	go c.readLoop(conn)
	return nil
}

// Nuke releases the connection and drops every listener. The client is
// unusable afterwards. Safe to call more than once.
func (c *Client) Nuke() {
	c.mu.Lock()
	if c.nuked {
		c.mu.Unlock()
		return
	}
	c.nuked = true
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	c.emitter.RemoveAll()
	if conn != nil {
		conn.Close()
	}
}

// Done is closed once the client has been nuked.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) SendScreenSpec(spec ClientScreenSpec) error {
	return c.send(EncodeClientScreenSpec(spec))
}

func (c *Client) SendMouseMove(x, y uint32) error {
	return c.send(EncodeMouseMove(x, y))
}

func (c *Client) SendMouseButton(button MouseButton, state ButtonState) error {
	return c.send(EncodeMouseButton(button, state))
}

func (c *Client) SendKeyboardButton(scancode uint32, state ButtonState) error {
	return c.send(EncodeKeyboardButton(scancode, state))
}

func (c *Client) SendMouseWheel(axis WheelAxis, delta int16) error {
	return c.send(EncodeMouseWheel(axis, delta))
}

func (c *Client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.nuked {
		return ErrNotConnected
	}
	return c.conn.WriteMessage(data)
}

func (c *Client) isNuked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nuked
}

// readLoop emits close when the stream ends. A clean end of stream is not
// an error.
func (c *Client) readLoop(conn Conn) {
	defer c.emitter.Emit(EventClose, nil)
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if !c.isNuked() && !errors.Is(err, io.EOF) {
				c.logger.Debug().Err(err).Msg("read failed")
				c.emitter.Emit(EventError, errors.Wrap(err, "tdp: read"))
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	msg, err := Decode(data)
	if err != nil {
		c.emitter.Emit(EventError, err)
		return
	}
	switch m := msg.(type) {
	case PNGFrame:
		c.emitter.Emit(EventPNGFrame, m)
	case ClientScreenSpec:
		c.emitter.Emit(EventScreenSpec, m)
	case Error:
		c.emitter.Emit(EventError, m)
	}
}
