// Package peer negotiates the WebRTC connection that carries the TDP
// stream when the desktop is reached through a signaling relay.
package peer

import (
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ChannelLabel is the data channel the host opens for TDP traffic.
const ChannelLabel = "tdp"

// DefaultICEServers is used when no ICE servers are configured.
var DefaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// NewPeerConnection creates a PeerConnection that logs its state changes.
func NewPeerConnection(servers []webrtc.ICEServer, logger zerolog.Logger) (*webrtc.PeerConnection, error) {
	if len(servers) == 0 {
		servers = DefaultICEServers
	}
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, errors.Wrap(err, "new peer connection")
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info().Str("state", state.String()).Msg("peer connection state")
	})
	return pc, nil
}
