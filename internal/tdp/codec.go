package tdp

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"

	"github.com/junsooki/deskview/internal/decoder"
)

// MessageType is the first byte of every TDP message.
type MessageType byte

const (
	TypeClientScreenSpec MessageType = 1
	TypePNGFrame         MessageType = 2
	TypeMouseMove        MessageType = 3
	TypeMouseButton      MessageType = 4
	TypeKeyboardButton   MessageType = 5
	TypeClientUsername   MessageType = 7
	TypeMouseWheel       MessageType = 8
	TypeError            MessageType = 9
)

var (
	ErrShortMessage   = errors.New("tdp: message too short")
	ErrUnknownMessage = errors.New("tdp: unknown message type")
)

// MouseButton identifies a pointer button on the wire.
type MouseButton byte

const (
	LeftButton   MouseButton = 0
	MiddleButton MouseButton = 1
	RightButton  MouseButton = 2
)

// ButtonState is the pressed state of a mouse or keyboard button.
type ButtonState byte

const (
	ButtonUp   ButtonState = 0
	ButtonDown ButtonState = 1
)

// WheelAxis selects the scroll direction of a wheel message.
type WheelAxis byte

const (
	VerticalAxis   WheelAxis = 0
	HorizontalAxis WheelAxis = 1
)

// Message is any decoded server message.
type Message interface {
	Type() MessageType
}

// ClientScreenSpec carries the remote screen geometry.
type ClientScreenSpec struct {
	Width  uint32
	Height uint32
}

func (ClientScreenSpec) Type() MessageType { return TypeClientScreenSpec }

// PNGFrame is one decoded bitmap update. Left/Top/Right/Bottom are in
// remote screen coordinates.
type PNGFrame struct {
	Left   uint32
	Top    uint32
	Right  uint32
	Bottom uint32
	Image  *image.RGBA
}

func (PNGFrame) Type() MessageType { return TypePNGFrame }

// Origin is where the frame's top-left corner lands on the canvas.
func (f PNGFrame) Origin() image.Point {
	return image.Pt(int(f.Left), int(f.Top))
}

// Error is a protocol error reported by the desktop service.
type Error struct {
	Message string
}

func (Error) Type() MessageType { return TypeError }

func (e Error) Error() string { return e.Message }

var pngDecoder decoder.Decoder = decoder.NewPNGDecoder()

// Decode parses one server message. PNG payloads are decoded eagerly so
// the render loop only paints.
func Decode(msg []byte) (Message, error) {
	if len(msg) == 0 {
		return nil, ErrShortMessage
	}
	body := msg[1:]
	switch MessageType(msg[0]) {
	case TypeClientScreenSpec:
		if len(body) < 8 {
			return nil, ErrShortMessage
		}
		return ClientScreenSpec{
			Width:  binary.BigEndian.Uint32(body[0:4]),
			Height: binary.BigEndian.Uint32(body[4:8]),
		}, nil
	case TypePNGFrame:
		if len(body) < 16 {
			return nil, ErrShortMessage
		}
		img, err := pngDecoder.Decode(body[16:])
		if err != nil {
			return nil, errors.Wrap(err, "tdp: png frame")
		}
		return PNGFrame{
			Left:   binary.BigEndian.Uint32(body[0:4]),
			Top:    binary.BigEndian.Uint32(body[4:8]),
			Right:  binary.BigEndian.Uint32(body[8:12]),
			Bottom: binary.BigEndian.Uint32(body[12:16]),
			Image:  img,
		}, nil
	case TypeError:
		text, err := decodeString(body)
		if err != nil {
			return nil, err
		}
		return Error{Message: text}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownMessage, "type %d", msg[0])
	}
}

func decodeString(body []byte) (string, error) {
	if len(body) < 4 {
		return "", ErrShortMessage
	}
	n := binary.BigEndian.Uint32(body[0:4])
	if uint64(len(body)-4) < uint64(n) {
		return "", ErrShortMessage
	}
	return string(body[4 : 4+n]), nil
}

func EncodeClientScreenSpec(spec ClientScreenSpec) []byte {
	b := make([]byte, 9)
	b[0] = byte(TypeClientScreenSpec)
	binary.BigEndian.PutUint32(b[1:5], spec.Width)
	binary.BigEndian.PutUint32(b[5:9], spec.Height)
	return b
}

func EncodeMouseMove(x, y uint32) []byte {
	b := make([]byte, 9)
	b[0] = byte(TypeMouseMove)
	binary.BigEndian.PutUint32(b[1:5], x)
	binary.BigEndian.PutUint32(b[5:9], y)
	return b
}

func EncodeMouseButton(button MouseButton, state ButtonState) []byte {
	return []byte{byte(TypeMouseButton), byte(button), byte(state)}
}

func EncodeKeyboardButton(scancode uint32, state ButtonState) []byte {
	b := make([]byte, 6)
	b[0] = byte(TypeKeyboardButton)
	binary.BigEndian.PutUint32(b[1:5], scancode)
	b[5] = byte(state)
	return b
}

func EncodeClientUsername(username string) []byte {
	return encodeString(TypeClientUsername, username)
}

func EncodeMouseWheel(axis WheelAxis, delta int16) []byte {
	b := make([]byte, 4)
	b[0] = byte(TypeMouseWheel)
	b[1] = byte(axis)
	binary.BigEndian.PutUint16(b[2:4], uint16(delta))
	return b
}

// EncodeError builds a server-side error message. The client never
// sends one; it exists for test servers.
func EncodeError(text string) []byte {
	return encodeString(TypeError, text)
}

// EncodePNGFrame builds a server-side frame message around already
// encoded PNG bytes.
func EncodePNGFrame(left, top, right, bottom uint32, pngData []byte) []byte {
	b := make([]byte, 17, 17+len(pngData))
	b[0] = byte(TypePNGFrame)
	binary.BigEndian.PutUint32(b[1:5], left)
	binary.BigEndian.PutUint32(b[5:9], top)
	binary.BigEndian.PutUint32(b[9:13], right)
	binary.BigEndian.PutUint32(b[13:17], bottom)
	return append(b, pngData...)
}

func encodeString(t MessageType, s string) []byte {
	b := make([]byte, 5, 5+len(s))
	b[0] = byte(t)
	binary.BigEndian.PutUint32(b[1:5], uint32(len(s)))
	return append(b, s...)
}
