package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/junsooki/deskview/internal/config"
	"github.com/junsooki/deskview/internal/peer"
	"github.com/junsooki/deskview/internal/signaling"
	"github.com/junsooki/deskview/internal/tdp"
	"github.com/junsooki/deskview/internal/transport"
)

// dataChannelBuffer bounds unread TDP messages on the WebRTC path.
const dataChannelBuffer = 256

// newClient returns a TDP client for cfg and a func that releases whatever
// the dialer set up besides the TDP connection itself.
func newClient(cfg *config.Desktop) (*tdp.Client, func()) {
	dial, release := newDialer(cfg)
	screen := tdp.ClientScreenSpec{Width: uint32(cfg.Width), Height: uint32(cfg.Height)}
	return tdp.NewClient(dial, cfg.Username, screen), release
}

func newDialer(cfg *config.Desktop) (tdp.Dialer, func()) {
	if cfg.URL != "" {
		return func(ctx context.Context) (tdp.Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
			conn, err := transport.DialWebSocket(ctx, cfg.URL, nil)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, func() {}
	}
	r := &relay{cfg: cfg}
	return r.dial, r.close
}

// relay reaches the desktop through the signaling server and a WebRTC
// data channel.
type relay struct {
	cfg *config.Desktop

	mu   sync.Mutex
	sig  *signaling.Client
	ctrl *peer.Controller
}

func (r *relay) dial(ctx context.Context) (tdp.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.DialTimeout)
	defer cancel()
	logger := log.With().Str("module", "relay").Logger()

	var servers []webrtc.ICEServer
	if len(r.cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: r.cfg.ICEServers}}
	}
	// Handlers only run after Connect, by which time ctrl is set.
	var ctrl *peer.Controller
	failed := make(chan error, 1)
	sig := signaling.NewClient(r.cfg.SignalingURL, r.cfg.ControllerID, signaling.Handler{
		OnRegistered: func() {
			logger.Info().Str("host", r.cfg.HostID).Msg("registered, sending offer")
			if err := ctrl.Connect(); err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if err := ctrl.HandleAnswer(payload); err != nil {
				logger.Warn().Err(err).Str("from", from).Msg("handle answer")
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := ctrl.HandleICECandidate(payload); err != nil {
				logger.Warn().Err(err).Str("from", from).Msg("handle ICE candidate")
			}
		},
		OnHostDisconnected: func(hostID string) {
			logger.Warn().Str("host", hostID).Msg("host disconnected")
		},
		OnError: func(msg string) {
			select {
			case failed <- errors.Errorf("signaling: %s", msg):
			default:
			}
		},
	})
	ctrl, err := peer.NewController(sig, r.cfg.HostID, servers, dataChannelBuffer)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sig, r.ctrl = sig, ctrl
	r.mu.Unlock()

	if err := sig.Connect(ctx); err != nil {
		return nil, err
	}

	type result struct {
		conn *transport.DataChannelConn
		err  error
	}
	ready := make(chan result, 1)
	go func() {
		conn, err := ctrl.WaitConn(ctx)
		ready <- result{conn, err}
	}()
	select {
	case res := <-ready:
		if res.err != nil {
			return nil, res.err
		}
		return res.conn, nil
	case err := <-failed:
		return nil, err
	}
}

func (r *relay) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctrl != nil {
		_ = r.ctrl.Close()
	}
	if r.sig != nil {
		r.sig.Close()
	}
}
