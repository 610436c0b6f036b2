package units

import (
	"math"
	"testing"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAccel(t *testing.T) {
	tests := []struct {
		raw  int32
		want float64
	}{
		{0, 0},
		{1000, 9.80665},
		{-1000, -9.80665},
		{500, 4.903325},
	}
	for _, tc := range tests {
		if got := Accel(tc.raw); !almost(got, tc.want) {
			t.Errorf("Accel(%d) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestMagnetic(t *testing.T) {
	x, y, z := Magnetic(16, 16, 16)
	if !almost(x, 1) || !almost(y, -1) || !almost(z, -1) {
		t.Errorf("Magnetic(16,16,16) = %v,%v,%v, want 1,-1,-1", x, y, z)
	}
}

func TestOrientation(t *testing.T) {
	yaw, pitch, roll := Orientation(64, 128, 64)
	if !almost(yaw, 1) || !almost(pitch, 2) || !almost(roll, -1) {
		t.Errorf("Orientation(64,128,64) = %v,%v,%v, want 1,2,-1", yaw, pitch, roll)
	}
}

func TestProximityQuantizes(t *testing.T) {
	tests := []struct {
		raw  int32
		want float64
	}{
		{0, 0},
		{10, 0},
		{30, 0},   // 6.0 cm, still at the trigger point
		{31, 6.0}, // 6.2 cm, beyond it
		{100, 6.0},
	}
	for _, tc := range tests {
		if got := Proximity(tc.raw); got != tc.want {
			t.Errorf("Proximity(%d) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestPassthrough(t *testing.T) {
	if got := Temperature(23); got != 23 {
		t.Errorf("Temperature(23) = %v, want 23", got)
	}
	if got := Light(1200); got != 1200 {
		t.Errorf("Light(1200) = %v, want 1200", got)
	}
}
