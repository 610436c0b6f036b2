package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/relabs-tech/sensor_mux/internal/config"
	"github.com/relabs-tech/sensor_mux/internal/device"
	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/hub"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// openSource interprets one SOURCE_* backend spec:
//
//	evdev:<input device name>
//	serial:<port>@<baud>
//	none
//
// "none" yields an idle endpoint that never produces events, for
// boards missing the driver.
func openSource(spec string) (events.Conn, error) {
	backend, arg, _ := strings.Cut(spec, ":")
	switch backend {
	case "evdev":
		return events.OpenEvdev(arg)
	case "serial":
		port, baudStr, ok := strings.Cut(arg, "@")
		baud := uint64(115200)
		if ok {
			var err error
			baud, err = strconv.ParseUint(baudStr, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid baud in source spec %q: %w", spec, err)
			}
		}
		return events.OpenSerial(port, uint(baud))
	case "none":
		return events.NewPipe(), nil
	default:
		return nil, fmt.Errorf("unknown source backend in %q", spec)
	}
}

// SourceOpener builds the hub's raw-source opener from configuration.
func SourceOpener(cfg *config.Config) hub.SourceOpener {
	specs := map[sensor.Driver]string{
		sensor.DriverAccelerometer: cfg.SourceAccelerometer,
		sensor.DriverCompass:       cfg.SourceCompass,
		sensor.DriverProximity:     cfg.SourceProximity,
		sensor.DriverLight:         cfg.SourceLight,
	}
	return func(d sensor.Driver) (events.Conn, error) {
		return openSource(specs[d])
	}
}

// DeviceOpener selects the control-command backend from configuration.
func DeviceOpener(cfg *config.Config) device.Opener {
	if cfg.DeviceBackend == "hardware" {
		return device.Hardware(device.HardwareConfig{
			AccelSPIDevice: cfg.AccelSPIDevice,
			AccelRange:     cfg.AccelRange,
			CompassI2CBus:  cfg.CompassI2CBus,
			CompassI2CAddr: cfg.CompassI2CAddr,
		})
	}
	return device.Stubs()
}

// SensorByName resolves a configured sensor name to its ID.
func SensorByName(name string) (sensor.ID, bool) {
	for id := sensor.ID(0); id < sensor.Count; id++ {
		if id.String() == strings.ToLower(name) {
			return id, true
		}
	}
	return 0, false
}
