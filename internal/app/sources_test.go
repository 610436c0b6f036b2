package app

import (
	"testing"

	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

func TestOpenSourceNone(t *testing.T) {
	conn, err := openSource("none")
	if err != nil {
		t.Fatalf("openSource(none): %v", err)
	}
	conn.Close()
}

func TestOpenSourceRejectsBadSpecs(t *testing.T) {
	for _, spec := range []string{"", "floppy:/dev/fd0", "serial:/dev/ttyUSB0@fast"} {
		if _, err := openSource(spec); err == nil {
			t.Errorf("openSource(%q) accepted", spec)
		}
	}
}

func TestSensorByName(t *testing.T) {
	tests := []struct {
		name   string
		want   sensor.ID
		wantOK bool
	}{
		{"acceleration", sensor.Acceleration, true},
		{"LIGHT", sensor.Light, true},
		{"Orientation", sensor.Orientation, true},
		{"gyroscope", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		id, ok := SensorByName(tc.name)
		if ok != tc.wantOK || (ok && id != tc.want) {
			t.Errorf("SensorByName(%q) = %v,%v, want %v,%v",
				tc.name, id, ok, tc.want, tc.wantOK)
		}
	}
}
