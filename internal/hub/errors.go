package hub

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

var (
	// ErrInvalidSensor reports a sensor ID outside the supported set.
	// This is a caller bug; nothing was changed.
	ErrInvalidSensor = errors.New("sensor_mux: invalid sensor id")

	// ErrSourceClosed reports that the raw event source is exhausted
	// or broken. The hub does not reconnect on its own.
	ErrSourceClosed = errors.New("sensor_mux: raw event source closed")

	// ErrReconfigured is returned by Poll when a wake/reconfigure
	// signal reaches the delivery path. Callers must treat it as an
	// end-of-stream marker, not as a failed read.
	ErrReconfigured = errors.New("sensor_mux: stream reconfigured")

	// ErrResourceExhausted reports that a device handle could not be
	// opened. The affected driver stays disabled.
	ErrResourceExhausted = errors.New("sensor_mux: device handle unavailable")

	// ErrCaptureOpen reports a second OpenCapture on a running hub.
	ErrCaptureOpen = errors.New("sensor_mux: capture already open")
)

// DeviceError reports a failed command on one physical driver. State
// transitions that hit a DeviceError are rolled back: the activation
// masks keep their previous values.
type DeviceError struct {
	Driver sensor.Driver
	Op     string // "open", "enable" or "rate"
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("sensor_mux: driver %s: %s: %v",
		sensor.Drivers[e.Driver].Name, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }
