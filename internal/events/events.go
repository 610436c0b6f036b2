// Package events defines the raw event records exchanged with physical
// sensor devices and the endpoint abstractions the hub multiplexes.
//
// Devices report per-axis fragments as absolute-value events and close
// each coherent frame with a synchronization boundary. The hub never
// interprets values here; it only moves records around.
package events

// Event type classes, matching the input subsystem the drivers report
// through.
const (
	TypeSyn uint16 = 0x00
	TypeAbs uint16 = 0x03
	TypeLed uint16 = 0x11
)

// Synchronization codes. SynReport closes a coherent frame; SynConfig
// is the wake/reconfigure signal injected to unblock readers.
const (
	SynReport uint16 = 0
	SynConfig uint16 = 1
)

// Absolute-axis codes used by the sensor drivers.
const (
	CodeAccelX      uint16 = 0x00 // ABS_X
	CodeAccelY      uint16 = 0x01 // ABS_Y
	CodeAccelZ      uint16 = 0x02 // ABS_Z
	CodeYaw         uint16 = 0x03 // ABS_RX
	CodePitch       uint16 = 0x04 // ABS_RY
	CodeRoll        uint16 = 0x05 // ABS_RZ
	CodeTemperature uint16 = 0x06 // ABS_THROTTLE
	CodeOrientStat  uint16 = 0x07 // ABS_RUDDER
	CodeAccelStat   uint16 = 0x08 // ABS_WHEEL
	CodeMagZ        uint16 = 0x0a // ABS_BRAKE
	CodeMagX        uint16 = 0x10 // ABS_HAT0X
	CodeMagY        uint16 = 0x11 // ABS_HAT0Y
	CodeProximity   uint16 = 0x19 // ABS_DISTANCE
)

// CodeLight is an EV_LED code; the light driver abuses LED_MISC for
// lux reports.
const CodeLight uint16 = 0x08

// Event is one raw record read from or written to a device endpoint.
type Event struct {
	Time  int64  `json:"time_ns"`
	Type  uint16 `json:"type"`
	Code  uint16 `json:"code"`
	Value int32  `json:"value"`
}

// Boundary reports whether the event closes a coherent frame.
func (e Event) Boundary() bool {
	return e.Type == TypeSyn && e.Code == SynReport
}

// Wake reports whether the event is the wake/reconfigure signal.
func (e Event) Wake() bool {
	return e.Type == TypeSyn && e.Code == SynConfig
}

// Conn is one device-like event endpoint. Reads block until an event
// or endpoint closure; implementations must make Close unblock any
// pending read.
type Conn interface {
	ReadEvent() (Event, error)
	WriteEvent(Event) error
	Close() error
}
