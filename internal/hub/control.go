// Package hub multiplexes raw events from the physical sensor devices
// into one ordered stream of calibrated samples.
//
// It is split the same way the device interface is: a Control endpoint
// owns activation state and device handles and runs the background
// capture loop, while a Queue consumes the replicated event stream and
// hands out complete samples one Poll at a time. The two sides meet
// only at the replica endpoint handle.
package hub

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/sensor_mux/internal/device"
	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// SourceOpener resolves a driver to its raw event endpoint.
type SourceOpener func(d sensor.Driver) (events.Conn, error)

// Control owns the activation state machine: which logical sensors the
// caller wants, which physical drivers that implies, and the open
// control handles for those drivers. All methods serialize on an
// internal mutex; there are no hidden package-level singletons.
type Control struct {
	mu sync.Mutex

	devices device.Opener
	sources SourceOpener

	handles [sensor.DriverCount]device.Device

	// active is the logical activation mask. It is atomic because the
	// capture goroutine consults it when gating acceleration mirroring.
	active  atomic.Uint32
	drivers sensor.Mask

	capture *capture
}

// NewControl creates a control endpoint. devices issues enable/rate
// commands, sources opens the raw event streams for capture.
func NewControl(devices device.Opener, sources SourceOpener) *Control {
	return &Control{devices: devices, sources: sources}
}

// Active returns the current logical activation mask.
func (c *Control) Active() sensor.Mask {
	return sensor.Mask(c.active.Load())
}

// SetActive enables or disables one logical sensor. The driver mask is
// derived from the new activation set, with orientation pulling in the
// accelerometer because the orientation firmware upstream needs
// gravity. Enable/disable commands are issued only for drivers whose
// bit actually changed. The first device failure aborts the call and
// leaves both masks untouched.
func (c *Control) SetActive(id sensor.ID, enabled bool) error {
	if !id.Valid() {
		return ErrInvalidSensor
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	oldActive := sensor.Mask(c.active.Load())
	newActive := oldActive.Clear(id)
	if enabled {
		newActive = newActive.Set(id)
	}

	newDrivers := newActive
	if newActive.Has(sensor.Orientation) {
		newDrivers = newDrivers.Set(sensor.Acceleration)
	}

	if changed := c.drivers ^ newDrivers; changed != 0 {
		if err := c.applyTransition(changed, newDrivers); err != nil {
			return err
		}
	}

	c.active.Store(uint32(newActive))
	c.drivers = newDrivers
	return nil
}

// applyTransition issues commands for every driver whose capabilities
// intersect the changed bits, opening handles lazily and closing them
// again once the driver has no remaining active capability.
func (c *Control) applyTransition(changed, newDrivers sensor.Mask) error {
	for _, d := range sensor.DriversFor(changed) {
		dev, err := c.openDriver(d)
		if err != nil {
			return err
		}
		caps := sensor.Drivers[d].Caps
		for id := sensor.ID(0); id < sensor.Count; id++ {
			if !changed.Has(id) || !caps.Has(id) {
				continue
			}
			if err := dev.Enable(id, newDrivers.Has(id)); err != nil {
				// The masks roll back on failure, so idleness is judged
				// against the retained old driver mask.
				c.closeIfIdle(d, c.drivers)
				return &DeviceError{Driver: d, Op: "enable", Err: err}
			}
		}
		c.closeIfIdle(d, newDrivers)
	}
	return nil
}

// openDriver returns the open handle for d, opening it on first use.
// At most one handle per driver exists at any time.
func (c *Control) openDriver(d sensor.Driver) (device.Device, error) {
	if c.handles[d] != nil {
		return c.handles[d], nil
	}
	dev, err := c.devices(d)
	if err != nil {
		return nil, &DeviceError{
			Driver: d,
			Op:     "open",
			Err:    fmt.Errorf("%w: %v", ErrResourceExhausted, err),
		}
	}
	c.handles[d] = dev
	return dev, nil
}

// closeIfIdle drops the handle once no enabled driver bit needs it.
func (c *Control) closeIfIdle(d sensor.Driver, enabled sensor.Mask) {
	if c.handles[d] == nil || enabled&sensor.Drivers[d].Caps != 0 {
		return
	}
	c.handles[d].Close()
	c.handles[d] = nil
}

// SetDelay forwards a sampling-period change to every driver whose
// handle is currently open. A failure on one driver does not stop the
// others; the first failure is reported.
func (c *Control) SetDelay(period time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for d := sensor.Driver(0); d < sensor.DriverCount; d++ {
		h := c.handles[d]
		if h == nil {
			continue
		}
		if err := h.SetRate(period); err != nil && first == nil {
			first = &DeviceError{Driver: d, Op: "rate", Err: err}
		}
	}
	return first
}

// Wake injects a reconfigure signal into the accelerometer source so a
// reader blocked in the capture path observes it and can exit cleanly.
// Idempotent; a no-op when capture is not running.
func (c *Control) Wake() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return nil
	}
	return c.capture.wake()
}

// OpenCapture opens the raw event sources for all drivers, starts the
// background capture loop, and returns the replica endpoint the data
// side polls. Only one capture may be open at a time.
func (c *Control) OpenCapture() (events.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil, ErrCaptureOpen
	}

	conns := make([]events.Conn, sensor.DriverCount)
	for d := sensor.Driver(0); d < sensor.DriverCount; d++ {
		conn, err := c.sources(d)
		if err != nil {
			for _, open := range conns {
				if open != nil {
					open.Close()
				}
			}
			return nil, fmt.Errorf("%w: source %s: %v",
				ErrResourceExhausted, sensor.Drivers[d].Name, err)
		}
		conns[d] = conn
	}

	replica := events.NewPipe()
	cap := newCapture(conns, replica, &c.active)
	go cap.run()
	c.capture = cap
	return replica, nil
}

// CloseCapture stops the capture loop and closes the raw sources and
// the replica endpoint. Safe to call when capture is not running.
func (c *Control) CloseCapture() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return nil
	}
	c.capture.stop()
	c.capture = nil
	return nil
}

// Close shuts down capture and releases every open device handle.
func (c *Control) Close() error {
	c.CloseCapture()

	c.mu.Lock()
	defer c.mu.Unlock()
	for d := range c.handles {
		if c.handles[d] != nil {
			c.handles[d].Close()
			c.handles[d] = nil
		}
	}
	return nil
}
