package peer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/transport"
)

// Signaler relays negotiation messages to the host. *signaling.Client
// satisfies it.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// Controller is the viewer side of the WebRTC connection. It sends the
// offer and waits for the host to open the tdp data channel.
type Controller struct {
	pc     *webrtc.PeerConnection
	sig    Signaler
	hostID string
	buffer int
	logger zerolog.Logger

	ready     chan struct{}
	readyOnce sync.Once
	conn      *transport.DataChannelConn
}

// NewController prepares a peer connection towards hostID. buffer bounds
// how many inbound TDP messages are held unread.
func NewController(sig Signaler, hostID string, servers []webrtc.ICEServer, buffer int) (*Controller, error) {
	logger := log.With().Str("module", "peer").Str("host", hostID).Logger()
	pc, err := NewPeerConnection(servers, logger)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		pc:     pc,
		sig:    sig,
		hostID: hostID,
		buffer: buffer,
		logger: logger,
		ready:  make(chan struct{}),
	}

	pc.OnDataChannel(c.acceptChannel)
	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		data, err := json.Marshal(cand.ToJSON())
		if err != nil {
			c.logger.Warn().Err(err).Msg("marshal ICE candidate")
			return
		}
		if err := sig.SendICECandidate(hostID, data); err != nil {
			c.logger.Warn().Err(err).Msg("send ICE candidate")
		}
	})
	return c, nil
}

func (c *Controller) acceptChannel(dc *webrtc.DataChannel) {
	if dc.Label() != ChannelLabel {
		c.logger.Debug().Str("label", dc.Label()).Msg("ignoring data channel")
		return
	}
	// Wrap before OnOpen so no message is missed.
	conn := transport.NewDataChannelConn(dc, c.buffer)
	dc.OnOpen(func() {
		c.readyOnce.Do(func() {
			c.logger.Info().Msg("tdp data channel open")
			c.conn = conn
			close(c.ready)
		})
	})
}

// Connect creates the offer and sends it to the host.
func (c *Controller) Connect() error {
	// The controller never creates channels itself, so the offer needs
	// an explicit data section.
	if _, err := c.pc.CreateDataChannel("control", nil); err != nil {
		return errors.Wrap(err, "create control channel")
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return errors.Wrap(err, "create offer")
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return errors.Wrap(err, "set local description")
	}
	payload, err := json.Marshal(offer)
	if err != nil {
		return errors.Wrap(err, "marshal offer")
	}
	return c.sig.SendOffer(c.hostID, payload)
}

func (c *Controller) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return errors.Wrap(err, "decode answer")
	}
	return errors.Wrap(c.pc.SetRemoteDescription(answer), "set remote description")
}

func (c *Controller) HandleICECandidate(payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return errors.Wrap(err, "decode ICE candidate")
	}
	return errors.Wrap(c.pc.AddICECandidate(candidate), "add ICE candidate")
}

// WaitConn blocks until the host's tdp channel is open.
func (c *Controller) WaitConn(ctx context.Context) (*transport.DataChannelConn, error) {
	select {
	case <-c.ready:
		return c.conn, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "wait for tdp channel")
	}
}

func (c *Controller) Close() error {
	return c.pc.Close()
}
