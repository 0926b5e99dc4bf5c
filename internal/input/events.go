package input

// EventType identifies the kind of local input event.
type EventType string

const (
	EventMouseMove   EventType = "mouse_move"
	EventMouseDown   EventType = "mouse_down"
	EventMouseUp     EventType = "mouse_up"
	EventMouseWheel  EventType = "mouse_wheel"
	EventKeyDown     EventType = "key_down"
	EventKeyUp       EventType = "key_up"
	EventContextMenu EventType = "context_menu"
)

// MouseButton identifies a mouse button.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonMiddle MouseButton = 1
	MouseButtonRight  MouseButton = 2
)

// Modifier flags (bitfield).
const (
	ModShift uint8 = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Event is one raw input event captured on the canvas. X and Y are in
// canvas coordinates.
type Event struct {
	Type   EventType
	X      float64
	Y      float64
	Button MouseButton
	// Code is the PC/AT set-1 scancode of the key; extended keys carry
	// the 0xE000 prefix.
	Code      uint32
	Modifiers uint8
	// Wheel deltas follow the pointer-event convention: positive values
	// scroll right and down.
	DeltaX float64
	DeltaY float64
}
