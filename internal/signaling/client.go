package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// PingInterval keeps idle relay connections alive.
const PingInterval = 25 * time.Second

// ErrNotConnected is returned when sending before Connect or after Close.
var ErrNotConnected = errors.New("signaling: not connected")

// Handler callbacks for incoming relay messages. All are optional and run
// on the read goroutine.
type Handler struct {
	OnRegistered       func()
	OnAnswer           func(from string, payload json.RawMessage)
	OnICECandidate     func(from string, payload json.RawMessage)
	OnHostsUpdated     func(hosts []HostInfo)
	OnHostDisconnected func(hostID string)
	OnError            func(msg string)
}

// Client is a websocket relay client.
type Client struct {
	url      string
	clientID string
	handler  Handler
	logger   zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
}

func NewClient(url, clientID string, handler Handler) *Client {
	return &Client{
		url:      url,
		clientID: clientID,
		handler:  handler,
		logger:   log.With().Str("module", "signaling").Str("id", clientID).Logger(),
		done:     make(chan struct{}),
	}
}

// Connect dials the relay, registers and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "signaling dial")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	c.conn = conn
	c.mu.Unlock()

	if err := c.send(Message{Type: TypeRegister, ID: c.clientID, ClientType: ClientTypeController}); err != nil {
		c.Close()
		return errors.Wrap(err, "signaling register")
	}

	go c.readLoop(conn)
	go c.pingLoop()
	return nil
}

// Done is closed once the client has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, Payload: payload})
}

func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// RequestHostList asks the relay which hosts are online.
func (c *Client) RequestHostList() error {
	return c.send(Message{Type: TypeListHosts})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.Close()
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn().Err(err).Msg("signaling read failed")
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	h := c.handler
	switch msg.Type {
	case TypeRegistered:
		if h.OnRegistered != nil {
			h.OnRegistered()
		}
	case TypeAnswer:
		if h.OnAnswer != nil {
			h.OnAnswer(msg.From, msg.Payload)
		}
	case TypeICECandidate:
		if h.OnICECandidate != nil {
			h.OnICECandidate(msg.From, msg.Payload)
		}
	case TypeHosts, TypeHostsUpdated:
		if h.OnHostsUpdated != nil {
			h.OnHostsUpdated(msg.List)
		}
	case TypeHostDisconnected:
		if h.OnHostDisconnected != nil {
			h.OnHostDisconnected(msg.HostID)
		}
	case TypeError:
		if h.OnError != nil {
			h.OnError(msg.Msg)
		}
	case TypePong:
	default:
		c.logger.Debug().Str("type", string(msg.Type)).Msg("ignoring message")
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: TypePing}); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}

// ListHosts registers with the relay at url, asks for the host list and
// returns the first answer.
func ListHosts(ctx context.Context, url, clientID string) ([]HostInfo, error) {
	hosts := make(chan []HostInfo, 1)
	failed := make(chan error, 1)
	var c *Client
	c = NewClient(url, clientID, Handler{
		OnRegistered: func() {
			if err := c.RequestHostList(); err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		},
		OnHostsUpdated: func(list []HostInfo) {
			select {
			case hosts <- list:
			default:
			}
		},
		OnError: func(msg string) {
			select {
			case failed <- errors.Errorf("signaling: %s", msg):
			default:
			}
		},
	})
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	defer c.Close()

	select {
	case list := <-hosts:
		return list, nil
	case err := <-failed:
		return nil, err
	case <-c.Done():
		return nil, errors.New("signaling: connection closed before host list arrived")
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for host list")
	}
}
