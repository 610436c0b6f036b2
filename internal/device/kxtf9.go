package device

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// MPU-9250 register map, accelerometer side only.
const (
	regSampleRateDiv = 0x19
	regAccelConfig   = 0x1C
	regPowerMgmt1    = 0x6B
	regWhoAmI        = 0x75

	spiReadFlag = 0x80

	powerClockPLL = 0x01
	powerSleep    = 0x40
)

// kxtf9 drives the accelerometer over SPI. The board in front of us
// carries an MPU-9250 in the accelerometer slot, so the KXTF9 command
// set (power on/off, delay) is mapped onto its register interface.
type kxtf9 struct {
	port       spi.PortCloser
	conn       spi.Conn
	accelRange byte
}

// OpenAccelerometer initializes the SPI-attached accelerometer and
// returns its control handle. spiDev names the spidev port (the chip
// select is part of the port name), accelRange selects full scale
// (0=±2g .. 3=±16g).
func OpenAccelerometer(spiDev string, accelRange byte) (Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("accelerometer: periph host init: %w", err)
	}

	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("accelerometer: SPI open %q: %w", spiDev, err)
	}
	conn, err := port.Connect(physic.MegaHertz, spi.Mode3, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("accelerometer: SPI connect: %w", err)
	}

	k := &kxtf9{port: port, conn: conn, accelRange: accelRange}
	id, err := k.readReg(regWhoAmI)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("accelerometer: probe: %w", err)
	}
	log.Printf("accelerometer: WHO_AM_I=0x%02X on %s", id, spiDev)
	return k, nil
}

func (k *kxtf9) writeReg(reg, val byte) error {
	return k.conn.Tx([]byte{reg, val}, nil)
}

func (k *kxtf9) readReg(reg byte) (byte, error) {
	var r [2]byte
	if err := k.conn.Tx([]byte{reg | spiReadFlag, 0}, r[:]); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (k *kxtf9) Enable(cap sensor.ID, on bool) error {
	if cap != sensor.Acceleration {
		return nil
	}
	if !on {
		if err := k.writeReg(regPowerMgmt1, powerSleep); err != nil {
			return fmt.Errorf("accelerometer: power off: %w", err)
		}
		return nil
	}
	if err := k.writeReg(regPowerMgmt1, powerClockPLL); err != nil {
		return fmt.Errorf("accelerometer: power on: %w", err)
	}
	// Full-scale selection sits in ACCEL_CONFIG bits 4:3.
	if err := k.writeReg(regAccelConfig, k.accelRange<<3); err != nil {
		return fmt.Errorf("accelerometer: set range: %w", err)
	}
	log.Printf("accelerometer powered on (range code %d)", k.accelRange)
	return nil
}

func (k *kxtf9) SetRate(period time.Duration) error {
	// Output rate is 1kHz / (1 + divider), so the divider is the
	// period in milliseconds minus one, clamped to the register width.
	div := period.Milliseconds() - 1
	if div < 0 {
		div = 0
	}
	if div > 255 {
		div = 255
	}
	if err := k.writeReg(regSampleRateDiv, byte(div)); err != nil {
		return fmt.Errorf("accelerometer: set rate divider: %w", err)
	}
	return nil
}

func (k *kxtf9) Close() error { return k.port.Close() }
