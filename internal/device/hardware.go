package device

import "github.com/relabs-tech/sensor_mux/internal/sensor"

// HardwareConfig names the buses for the drivers that have real
// control backends.
type HardwareConfig struct {
	AccelSPIDevice string
	AccelRange     byte
	CompassI2CBus  string
	CompassI2CAddr uint16
}

// Hardware returns an Opener backed by the real buses for the
// accelerometer and compass. Proximity and light have no control
// channel on this board and stay policy-hook stubs.
func Hardware(cfg HardwareConfig) Opener {
	stubs := Stubs()
	return func(d sensor.Driver) (Device, error) {
		switch d {
		case sensor.DriverAccelerometer:
			return OpenAccelerometer(cfg.AccelSPIDevice, cfg.AccelRange)
		case sensor.DriverCompass:
			return OpenCompass(cfg.CompassI2CBus, cfg.CompassI2CAddr)
		default:
			return stubs(d)
		}
	}
}
