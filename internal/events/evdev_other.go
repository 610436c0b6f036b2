//go:build !linux

package events

import "fmt"

// OpenEvdev is only available on Linux, where the sensor drivers
// register input devices.
func OpenEvdev(name string) (Conn, error) {
	return nil, fmt.Errorf("events: evdev source for %q not supported on this platform", name)
}
