package app

import (
	"testing"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// recordingBus notes the address of every transaction it carries.
type recordingBus struct {
	addrs []uint16
	speed physic.Frequency
}

func (b *recordingBus) String() string { return "recording" }

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func (b *recordingBus) SetSpeed(freq physic.Frequency) error {
	b.speed = freq
	return nil
}

func TestRemappedBusReroutesAddress(t *testing.T) {
	rec := &recordingBus{}
	bus := &remappedBus{Bus: rec, addr: 0x3D}

	dev := &i2c.Dev{Bus: bus, Addr: ssd1306DefaultAddr}
	if err := dev.Tx([]byte{0x00}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if len(rec.addrs) != 1 || rec.addrs[0] != 0x3D {
		t.Errorf("transactions went to %#x, want [0x3d]", rec.addrs)
	}

	// Everything except addressing passes through to the real bus.
	if err := bus.SetSpeed(physic.MegaHertz); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if rec.speed != physic.MegaHertz {
		t.Errorf("speed = %v, want 1MHz", rec.speed)
	}
}
