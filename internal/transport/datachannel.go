package transport

import (
	"io"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
)

// DataChannelConn carries TDP messages over a WebRTC DataChannel.
// Inbound messages are buffered until ReadMessage picks them up.
type DataChannelConn struct {
	dc *webrtc.DataChannel

	msgs      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewDataChannelConn wraps dc. buffer bounds how many unread messages
// are held before the channel's callback goroutine blocks.
func NewDataChannelConn(dc *webrtc.DataChannel, buffer int) *DataChannelConn {
	c := &DataChannelConn{
		dc:     dc,
		msgs:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.deliver(msg.Data)
	})
	dc.OnClose(func() {
		c.shutdown()
	})
	return c
}

func (c *DataChannelConn) deliver(data []byte) {
	select {
	case c.msgs <- data:
	case <-c.closed:
	}
}

func (c *DataChannelConn) ReadMessage() ([]byte, error) {
	select {
	case msg := <-c.msgs:
		return msg, nil
	case <-c.closed:
		// Hand over anything that arrived before the close.
		select {
		case msg := <-c.msgs:
			return msg, nil
		default:
			return nil, io.EOF
		}
	}
}

func (c *DataChannelConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("data channel closed")
	default:
	}
	return c.dc.Send(data)
}

func (c *DataChannelConn) Close() error {
	c.shutdown()
	return c.dc.Close()
}

func (c *DataChannelConn) shutdown() {
	c.closeOnce.Do(func() { close(c.closed) })
}
