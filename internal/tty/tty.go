// Package tty streams a remote terminal over a websocket. Binary frames
// carry terminal bytes; text frames carry JSON control events.
package tty

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/events"
)

// Event names a notification emitted by Tty.
type Event string

const (
	// EventData carries terminal output as a []byte payload.
	EventData Event = "data"
	// EventClose means the remote session ended.
	EventClose Event = "close"
	// EventConnClose means the websocket went away.
	EventConnClose Event = "conn_close"
	EventOpen      Event = "open"
)

const writeWait = 10 * time.Second

// ErrNotConnected is returned when writing before Connect or after Close.
var ErrNotConnected = errors.New("tty: not connected")

type control struct {
	Event  string `json:"event"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Tty is one terminal stream.
type Tty struct {
	url     string
	header  http.Header
	emitter *events.Emitter[Event]
	logger  zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// New creates a terminal stream for url. Nothing is dialed until Connect.
func New(url string, header http.Header) *Tty {
	return &Tty{
		url:     url,
		header:  header,
		emitter: events.NewEmitter[Event](),
		logger:  log.With().Str("module", "tty").Logger(),
	}
}

func (t *Tty) On(kind Event, fn events.Listener) events.Subscription {
	return t.emitter.Subscribe(kind, fn)
}

func (t *Tty) Off(s events.Subscription) {
	t.emitter.Unsubscribe(s)
}

// RemoveAllListeners detaches every subscriber.
func (t *Tty) RemoveAllListeners() {
	t.emitter.RemoveAll()
}

// Connect dials the stream and starts reading. open is emitted once the
// socket is up.
func (t *Tty) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		return errors.Wrapf(err, "tty: dial %s", t.url)
	}

	t.mu.Lock()
	if t.closed || t.conn != nil {
		t.mu.Unlock()
		conn.Close()
		return errors.New("tty: already connected or closed")
	}
	t.conn = conn
	t.mu.Unlock()

	t.emitter.Emit(EventOpen, nil)
	go t.readLoop(conn)
	return nil
}

// Send writes terminal input.
func (t *Tty) Send(data []byte) error {
	return t.write(websocket.BinaryMessage, data)
}

// Resize tells the remote side the terminal size changed.
func (t *Tty) Resize(width, height int) error {
	msg, err := json.Marshal(control{Event: "resize", Width: width, Height: height})
	if err != nil {
		return errors.Wrap(err, "tty: marshal resize")
	}
	return t.write(websocket.TextMessage, msg)
}

// Close shuts the socket. Listeners stay attached and see conn_close.
func (t *Tty) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *Tty) write(kind int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || t.closed {
		return ErrNotConnected
	}
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(kind, data)
}

func (t *Tty) readLoop(conn *websocket.Conn) {
	defer t.emitter.Emit(EventConnClose, nil)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!errors.Is(err, io.EOF) {
				t.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}
		switch kind {
		case websocket.BinaryMessage:
			t.emitter.Emit(EventData, data)
		case websocket.TextMessage:
			t.handleControl(data)
		}
	}
}

func (t *Tty) handleControl(data []byte) {
	var msg control
	if err := json.Unmarshal(data, &msg); err != nil {
		t.logger.Warn().Err(err).Msg("bad control message")
		return
	}
	switch msg.Event {
	case string(EventClose):
		t.emitter.Emit(EventClose, nil)
	default:
		t.logger.Debug().Str("event", msg.Event).Msg("ignoring control message")
	}
}
