package sensor

// Driver indexes one physical input device. A driver can back several
// logical sensors (the compass chip reports magnetic field,
// orientation and die temperature).
type Driver uint8

const (
	DriverAccelerometer Driver = iota // KXTF9
	DriverCompass                     // AK8973: magnetic + orientation + temperature
	DriverProximity                   // SFH7743
	DriverLight                       // MAX9635

	DriverCount = 4
)

// DriverInfo describes one physical driver: the input-device name it
// registers under, the control node used for enable/rate commands, and
// the logical sensors it backs.
type DriverInfo struct {
	Name string // name reported to the input subsystem
	Node string // control device node, empty if the driver has none
	Caps Mask
}

// Drivers is the fixed driver table. Index with a Driver value.
var Drivers = [DriverCount]DriverInfo{
	DriverAccelerometer: {
		Name: "accelerometer",
		Node: "/dev/kxtf9",
		Caps: Acceleration.Bit(),
	},
	DriverCompass: {
		Name: "compass",
		Node: "/dev/akm8973_aot",
		Caps: Magnetic.Bit() | Orientation.Bit() | Temperature.Bit(),
	},
	DriverProximity: {
		Name: "proximity",
		Node: "/dev/sfh7743",
		Caps: Proximity.Bit(),
	},
	DriverLight: {
		Name: "max9635",
		Node: "",
		Caps: Light.Bit(),
	},
}

// DriversFor returns the set of drivers whose capabilities intersect
// the given sensor mask.
func DriversFor(m Mask) []Driver {
	var out []Driver
	for d := Driver(0); d < DriverCount; d++ {
		if Drivers[d].Caps&m != 0 {
			out = append(out, d)
		}
	}
	return out
}
