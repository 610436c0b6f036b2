package hub

import (
	"io"
	"testing"

	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// startCapture brings up a control endpoint with in-memory sources and
// returns the raw source pipes plus the replica endpoint.
func startCapture(t *testing.T, active ...sensor.ID) (*Control, []*events.Pipe, events.Conn) {
	t.Helper()
	var log []string
	pipes, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)
	for _, id := range active {
		if err := c.SetActive(id, true); err != nil {
			t.Fatalf("SetActive(%v): %v", id, err)
		}
	}
	replica, err := c.OpenCapture()
	if err != nil {
		t.Fatalf("OpenCapture: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, pipes, replica
}

func readGroup(t *testing.T, replica events.Conn, n int) []events.Event {
	t.Helper()
	out := make([]events.Event, 0, n)
	for i := 0; i < n; i++ {
		e, err := replica.ReadEvent()
		if err != nil {
			t.Fatalf("replica read %d: %v", i, err)
		}
		out = append(out, e)
	}
	return out
}

func TestCaptureMirrorsAccelerationFrame(t *testing.T) {
	_, pipes, replica := startCapture(t, sensor.Acceleration)

	src := pipes[sensor.DriverAccelerometer]
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeAccelX, Value: 10})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeAccelY, Value: 20})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeAccelZ, Value: 30})
	src.WriteEvent(events.Event{Time: 42, Type: events.TypeSyn, Code: events.SynReport})

	got := readGroup(t, replica, 4)
	wantCodes := []uint16{events.CodeAccelX, events.CodeAccelY, events.CodeAccelZ, events.SynReport}
	wantValues := []int32{10, 20, 30, 0}
	for i, e := range got {
		if e.Code != wantCodes[i] || e.Value != wantValues[i] {
			t.Errorf("event %d = %+v, want code %#x value %d", i, e, wantCodes[i], wantValues[i])
		}
		if e.Time != 42 {
			t.Errorf("event %d time = %d, want boundary time 42", i, e.Time)
		}
	}
	if !got[3].Boundary() {
		t.Errorf("group not closed by a boundary: %+v", got[3])
	}
}

func TestCaptureGatesInactiveAcceleration(t *testing.T) {
	_, pipes, replica := startCapture(t) // nothing active

	src := pipes[sensor.DriverAccelerometer]
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeAccelX, Value: 10})
	src.WriteEvent(events.Event{Time: 1, Type: events.TypeSyn, Code: events.SynReport})
	// A later frame from another sensor must be the first thing the
	// replica sees.
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeTemperature, Value: 25})
	src.WriteEvent(events.Event{Time: 2, Type: events.TypeSyn, Code: events.SynReport})

	got := readGroup(t, replica, 2)
	if got[0].Code != events.CodeTemperature || got[0].Value != 25 {
		t.Errorf("first replica event = %+v, want temperature 25", got[0])
	}
	if !got[1].Boundary() {
		t.Errorf("second replica event = %+v, want boundary", got[1])
	}
}

func TestCaptureOrientationOnlyWhenTouched(t *testing.T) {
	_, pipes, replica := startCapture(t, sensor.Magnetic)

	src := pipes[sensor.DriverCompass]
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagX, Value: 1})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagY, Value: 2})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagZ, Value: 3})
	src.WriteEvent(events.Event{Time: 1, Type: events.TypeSyn, Code: events.SynReport})

	got := readGroup(t, replica, 4)
	wantCodes := []uint16{events.CodeMagX, events.CodeMagY, events.CodeMagZ, events.SynReport}
	for i, e := range got {
		if e.Code != wantCodes[i] {
			t.Fatalf("event %d code = %#x, want %#x", i, e.Code, wantCodes[i])
		}
	}

	// No orientation group may follow a magnetic-only frame. The next
	// replica event has to be the temperature frame written now.
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeTemperature, Value: 30})
	src.WriteEvent(events.Event{Time: 2, Type: events.TypeSyn, Code: events.SynReport})

	got = readGroup(t, replica, 2)
	if got[0].Code != events.CodeTemperature {
		t.Fatalf("event after magnetic group = %+v, want temperature", got[0])
	}
}

func TestCaptureFlushOrderHighestFirst(t *testing.T) {
	_, pipes, replica := startCapture(t)

	src := pipes[sensor.DriverCompass]
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagX, Value: 1})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagY, Value: 2})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeMagZ, Value: 3})
	src.WriteEvent(events.Event{Type: events.TypeAbs, Code: events.CodeTemperature, Value: 25})
	src.WriteEvent(events.Event{Time: 9, Type: events.TypeSyn, Code: events.SynReport})

	got := readGroup(t, replica, 6)
	wantCodes := []uint16{
		events.CodeTemperature, events.SynReport,
		events.CodeMagX, events.CodeMagY, events.CodeMagZ, events.SynReport,
	}
	for i, e := range got {
		if e.Code != wantCodes[i] {
			t.Errorf("event %d code = %#x, want %#x", i, e.Code, wantCodes[i])
		}
	}
}

func TestWakeEchoesToReplica(t *testing.T) {
	c, _, replica := startCapture(t, sensor.Acceleration)

	if err := c.Wake(); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	e, err := replica.ReadEvent()
	if err != nil {
		t.Fatalf("replica read: %v", err)
	}
	if !e.Wake() {
		t.Fatalf("replica event = %+v, want wake signal", e)
	}
}

func TestCloseCaptureClosesReplica(t *testing.T) {
	c, _, replica := startCapture(t)

	if err := c.CloseCapture(); err != nil {
		t.Fatalf("CloseCapture: %v", err)
	}
	if _, err := replica.ReadEvent(); err != io.EOF {
		t.Fatalf("replica read after close err = %v, want io.EOF", err)
	}
}
