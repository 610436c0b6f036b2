package sensor

// Descriptor is the static datasheet metadata for one logical sensor.
// The catalog is read-only; it mirrors the hardware the hub was built
// for and is not configurable.
type Descriptor struct {
	Name       string  `json:"name"`
	Vendor     string  `json:"vendor"`
	Version    int     `json:"version"`
	ID         ID      `json:"id"`
	MaxRange   float64 `json:"max_range"`
	Resolution float64 `json:"resolution"`
	PowerMA    float64 `json:"power_ma"`
}

var catalog = []Descriptor{
	{
		Name:       "KXTF9 3-axis Accelerometer",
		Vendor:     "Kionix",
		Version:    1,
		ID:         Acceleration,
		MaxRange:   4.0 * 9.81,
		Resolution: 9.81 / 1000.0,
		PowerMA:    0.25,
	},
	{
		Name:       "AK8973 3-axis Magnetic field sensor",
		Vendor:     "Asahi Kasei",
		Version:    1,
		ID:         Magnetic,
		MaxRange:   2000.0,
		Resolution: 1.0 / 16.0,
		PowerMA:    6.8,
	},
	{
		Name:       "AK8973 Orientation sensor",
		Vendor:     "Asahi Kasei",
		Version:    1,
		ID:         Orientation,
		MaxRange:   360.0,
		Resolution: 1.0 / 64.0,
		PowerMA:    7.05,
	},
	{
		Name:       "AK8973 Temperature sensor",
		Vendor:     "Asahi Kasei",
		Version:    1,
		ID:         Temperature,
		MaxRange:   115.0,
		Resolution: 1.6,
		PowerMA:    3.0,
	},
	{
		Name:       "SFH7743 Proximity sensor",
		Vendor:     "Osram",
		Version:    1,
		ID:         Proximity,
		MaxRange:   6.0,
		Resolution: 6.0,
		PowerMA:    0.5,
	},
	{
		Name:       "MAX9635 Light sensor",
		Vendor:     "Maxim",
		Version:    1,
		ID:         Light,
		MaxRange:   27000.0,
		Resolution: 1.0,
		PowerMA:    0.0,
	},
}

// List returns the descriptor catalog. Callers must not modify the
// returned slice.
func List() []Descriptor { return catalog }

// Describe returns the descriptor for one sensor.
func Describe(id ID) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}
