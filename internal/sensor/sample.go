package sensor

// Accuracy status values carried by vector samples.
const (
	StatusUnreliable   uint8 = 0
	StatusAccuracyLow  uint8 = 1
	StatusAccuracyMed  uint8 = 2
	StatusAccuracyHigh uint8 = 3
)

// Sample is one complete sensor reading in physical units. Vector
// sensors (acceleration, magnetic, orientation) fill X/Y/Z and Status;
// scalar sensors fill Value. Time is a nanosecond timestamp taken from
// the synchronization boundary that completed the reading.
type Sample struct {
	ID   ID    `json:"id"`
	Time int64 `json:"time_ns"`

	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	Value float64 `json:"value,omitempty"`

	Status uint8 `json:"status"`
}

// Vector reports whether the sample carries a 3-axis payload.
func (s Sample) Vector() bool {
	return s.ID == Acceleration || s.ID == Magnetic || s.ID == Orientation
}
