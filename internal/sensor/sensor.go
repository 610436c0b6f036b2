// Package sensor defines the fixed set of logical sensors exposed by
// the hub, the bitmask type used to track them, and the static
// descriptor catalog.
package sensor

import "math/bits"

// ID identifies one logical sensor. The numeric value doubles as the
// sensor's bit position in a Mask, so the mapping must never change.
type ID uint8

const (
	Acceleration ID = iota
	Magnetic
	Orientation
	Temperature
	Proximity
	Light

	Count = 6
)

// Valid reports whether id is one of the six known sensors.
func (id ID) Valid() bool { return id < Count }

// Bit returns the mask with only this sensor's bit set.
func (id ID) Bit() Mask { return 1 << id }

func (id ID) String() string {
	switch id {
	case Acceleration:
		return "acceleration"
	case Magnetic:
		return "magnetic"
	case Orientation:
		return "orientation"
	case Temperature:
		return "temperature"
	case Proximity:
		return "proximity"
	case Light:
		return "light"
	default:
		return "unknown"
	}
}

// Mask is a set of sensor IDs, one bit per ID.
type Mask uint32

// Supported has the bits of all six sensors set.
const Supported Mask = 1<<Count - 1

// Has reports whether id is in the set.
func (m Mask) Has(id ID) bool { return m&id.Bit() != 0 }

// Set returns m with id added.
func (m Mask) Set(id ID) Mask { return m | id.Bit() }

// Clear returns m with id removed.
func (m Mask) Clear(id ID) Mask { return m &^ id.Bit() }

// Highest returns the highest-numbered ID in the set. ok is false when
// the set is empty. Delivery order is defined by repeated Highest
// calls, so this must stay deterministic.
func (m Mask) Highest() (id ID, ok bool) {
	if m == 0 {
		return 0, false
	}
	return ID(bits.Len32(uint32(m)) - 1), true
}
