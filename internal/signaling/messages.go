// Package signaling exchanges WebRTC session descriptions and ICE
// candidates with a desktop host through a websocket relay.
package signaling

import "encoding/json"

// MessageType is the envelope "type" field.
type MessageType string

const (
	TypeRegister         MessageType = "register"
	TypeRegistered       MessageType = "registered"
	TypeListHosts        MessageType = "list-hosts"
	TypeHosts            MessageType = "hosts"
	TypeHostsUpdated     MessageType = "hosts-updated"
	TypeOffer            MessageType = "offer"
	TypeAnswer           MessageType = "answer"
	TypeICECandidate     MessageType = "ice-candidate"
	TypePing             MessageType = "ping"
	TypePong             MessageType = "pong"
	TypeError            MessageType = "error"
	TypeHostDisconnected MessageType = "host-disconnected"
)

// ClientTypeController is the role deskview registers with.
const ClientTypeController = "controller"

// Message is the envelope for every relay message.
type Message struct {
	Type       MessageType     `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	From       string          `json:"from,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	List       []HostInfo      `json:"list,omitempty"`
	HostID     string          `json:"hostId,omitempty"`
	Msg        string          `json:"message,omitempty"`
}

type HostInfo struct {
	ID     string `json:"id"`
	Online bool   `json:"online"`
}
