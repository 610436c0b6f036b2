package device

import (
	"time"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// stub accepts every command without hardware effect. The compass and
// proximity enable commands were never wired up in the original
// hardware port (the parts self-manage power), so the stub keeps them
// as explicit policy hooks rather than errors.
type stub struct {
	driver sensor.Driver
}

func (s stub) Enable(sensor.ID, bool) error { return nil }

func (s stub) SetRate(time.Duration) error { return nil }

func (s stub) Close() error { return nil }

// Stubs returns an Opener where every driver is a no-op policy hook.
// This is the default control backend; hardware-specific openers
// override individual drivers.
func Stubs() Opener {
	return func(d sensor.Driver) (Device, error) {
		return stub{driver: d}, nil
	}
}
