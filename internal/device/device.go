// Package device abstracts the per-driver control channel: the
// enable/disable and sampling-rate commands the activation state
// machine issues to physical sensor hardware.
//
// The hub owns handle lifecycle: it opens a driver lazily when a
// transition first touches it and closes it again when no active
// sensor needs it, so an Opener may be invoked repeatedly for the same
// driver.
package device

import (
	"time"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// Device is one open control handle for a physical driver.
type Device interface {
	// Enable powers one capability of this driver on or off.
	Enable(cap sensor.ID, on bool) error

	// SetRate forwards a sampling-period change to the hardware.
	SetRate(period time.Duration) error

	Close() error
}

// Opener resolves a driver to an open control handle.
type Opener func(d sensor.Driver) (Device, error)
