// Package units converts raw integer device readings into calibrated
// physical values. All factors come from the device datasheets and the
// board mounting orientation; they are compile-time constants.
package units

// GravityEarth is standard gravity in m/s².
const GravityEarth = 9.80665

// The KXTF9 reports 1000 LSB per g.
const lsg = 1000.0

// Per-axis conversion factors. The sign flips on the magnetic Y/Z and
// orientation roll axes match how the chips are mounted on this board.
const (
	ConvertA = GravityEarth / lsg // raw LSB -> m/s², all three axes

	ConvertM  = 1.0 / 16.0 // raw -> µT
	ConvertMX = ConvertM
	ConvertMY = -ConvertM
	ConvertMZ = -ConvertM

	ConvertO     = 1.0 / 64.0 // raw -> degrees
	ConvertYaw   = ConvertO
	ConvertPitch = ConvertO
	ConvertRoll  = -ConvertO

	ConvertP = 1.0 / 5.0 // raw -> cm
)

// ProximityThresholdCM is where the SFH7743 triggers on this hardware.
// The part is a binary near/far detector, so distances are quantized
// to 0 or the threshold.
const ProximityThresholdCM = 6.0

// Accel converts one raw accelerometer axis to m/s².
func Accel(raw int32) float64 { return float64(raw) * ConvertA }

// Magnetic converts the raw magnetometer axes to µT.
func Magnetic(rawX, rawY, rawZ int32) (x, y, z float64) {
	return float64(rawX) * ConvertMX,
		float64(rawY) * ConvertMY,
		float64(rawZ) * ConvertMZ
}

// Orientation converts the raw yaw/pitch/roll readings to degrees.
func Orientation(rawYaw, rawPitch, rawRoll int32) (yaw, pitch, roll float64) {
	return float64(rawYaw) * ConvertYaw,
		float64(rawPitch) * ConvertPitch,
		float64(rawRoll) * ConvertRoll
}

// Temperature passes the raw reading through; the compass firmware
// already reports engineering units.
func Temperature(raw int32) float64 { return float64(raw) }

// Proximity quantizes the raw reading to 0 (near) or the threshold
// (far). The scaled distance is compared against the trigger point.
func Proximity(raw int32) float64 {
	if float64(raw)*ConvertP <= ProximityThresholdCM {
		return 0
	}
	return ProximityThresholdCM
}

// Light passes the raw lux reading through unscaled.
func Light(raw int32) float64 { return float64(raw) }
