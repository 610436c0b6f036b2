package device

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// HMC5983 register map.
const (
	regConfigA = 0x00
	regMode    = 0x02
	regIDA     = 0x0A

	configTempSensor = 0x80 // TS bit, compensates the magnetometer

	modeContinuous = 0x00
	modeIdle       = 0x03

	compassDefaultAddr = 0x1E
)

// compassRates maps a requested sampling period to the DO2:0 output
// data rate bits of Configuration Register A. Entries are ordered
// fastest first; the first rate not faster than requested wins.
var compassRates = []struct {
	maxPeriod time.Duration
	bits      byte
}{
	{5 * time.Millisecond, 0b111},   // 220 Hz
	{14 * time.Millisecond, 0b110},  // 75 Hz
	{34 * time.Millisecond, 0b101},  // 30 Hz
	{70 * time.Millisecond, 0b100},  // 15 Hz
	{140 * time.Millisecond, 0b011}, // 7.5 Hz
}

const compassSlowestBits = 0b010 // 3 Hz

// akm8973 drives the compass group (magnetic, orientation, die
// temperature) over I2C. Boards without the original AKM part carry an
// HMC5983 instead; its control surface is close enough that the same
// handle serves both.
type akm8973 struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// OpenCompass initializes the I2C-attached compass and returns its
// control handle.
func OpenCompass(i2cBus string, addr uint16) (Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("compass: periph host init: %w", err)
	}

	bus, err := i2creg.Open(i2cBus)
	if err != nil {
		return nil, fmt.Errorf("compass: i2c open %q: %w", i2cBus, err)
	}
	if addr == 0 {
		addr = compassDefaultAddr
	}

	a := &akm8973{bus: bus, dev: &i2c.Dev{Bus: bus, Addr: addr}}
	var id [3]byte
	if err := a.dev.Tx([]byte{regIDA}, id[:]); err != nil {
		bus.Close()
		return nil, fmt.Errorf("compass: probe: %w", err)
	}
	log.Printf("compass: ID=%q (addr=0x%X)", id[:], addr)

	if err := a.setODR(compassRateBits(70 * time.Millisecond)); err != nil {
		bus.Close()
		return nil, fmt.Errorf("compass: init: %w", err)
	}
	if err := a.writeReg(regMode, modeContinuous); err != nil {
		bus.Close()
		return nil, fmt.Errorf("compass: start: %w", err)
	}
	return a, nil
}

func (a *akm8973) writeReg(reg, val byte) error {
	return a.dev.Tx([]byte{reg, val}, nil)
}

func (a *akm8973) setODR(bits byte) error {
	return a.writeReg(regConfigA, configTempSensor|bits<<2)
}

func compassRateBits(period time.Duration) byte {
	for _, r := range compassRates {
		if period <= r.maxPeriod {
			return r.bits
		}
	}
	return compassSlowestBits
}

// Enable is a policy hook. The per-capability flags (MFLAG, TFLAG,
// MVFLAG in the original firmware interface) were never wired through
// in the hardware port; the chip samples continuously once opened.
func (a *akm8973) Enable(cap sensor.ID, on bool) error {
	log.Printf("compass: %s -> %v (no hardware effect)", cap, on)
	return nil
}

func (a *akm8973) SetRate(period time.Duration) error {
	// The part supports a small set of output data rates; pick the
	// closest one not faster than requested.
	if err := a.setODR(compassRateBits(period)); err != nil {
		return fmt.Errorf("compass: set ODR: %w", err)
	}
	return nil
}

func (a *akm8973) Close() error {
	if err := a.writeReg(regMode, modeIdle); err != nil {
		a.bus.Close()
		return fmt.Errorf("compass: idle: %w", err)
	}
	return a.bus.Close()
}
