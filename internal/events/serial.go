package events

import (
	"fmt"

	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a serial-attached sensor MCU that speaks the wire
// codec and returns it as an event endpoint.
func OpenSerial(port string, baud uint) (Conn, error) {
	opts := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: EncodedSize,
		ParityMode:      serial.PARITY_NONE,
	}

	p, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("events: open serial %s: %w", port, err)
	}
	return NewStream(p), nil
}
