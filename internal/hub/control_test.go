package hub

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/relabs-tech/sensor_mux/internal/device"
	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// fakeDevice records every command it receives in a shared log.
type fakeDevice struct {
	name       string
	log        *[]string
	failEnable bool
	failRate   bool
}

func (d *fakeDevice) Enable(id sensor.ID, on bool) error {
	if d.failEnable {
		return errors.New("nack")
	}
	*d.log = append(*d.log, fmt.Sprintf("%s enable %s %t", d.name, id, on))
	return nil
}

func (d *fakeDevice) SetRate(period time.Duration) error {
	if d.failRate {
		return errors.New("nack")
	}
	*d.log = append(*d.log, fmt.Sprintf("%s rate %s", d.name, period))
	return nil
}

func (d *fakeDevice) Close() error {
	*d.log = append(*d.log, d.name+" close")
	return nil
}

func fakeOpener(log *[]string, fail map[sensor.Driver]bool) device.Opener {
	return func(d sensor.Driver) (device.Device, error) {
		name := sensor.Drivers[d].Name
		*log = append(*log, name+" open")
		return &fakeDevice{name: name, log: log, failEnable: fail[d]}, nil
	}
}

func pipeSources() ([]*events.Pipe, SourceOpener) {
	pipes := make([]*events.Pipe, sensor.DriverCount)
	for i := range pipes {
		pipes[i] = events.NewPipe()
	}
	return pipes, func(d sensor.Driver) (events.Conn, error) {
		return pipes[d], nil
	}
}

func checkLog(t *testing.T, got []string, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("command log = %q, want %q", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("command log = %q, want %q", got, want)
		}
	}
}

func TestSetActiveEnablesDriver(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)

	if err := c.SetActive(sensor.Acceleration, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := c.Active(); got != sensor.Acceleration.Bit() {
		t.Errorf("Active() = %b, want %b", got, sensor.Acceleration.Bit())
	}
	checkLog(t, log, []string{
		"accelerometer open",
		"accelerometer enable acceleration true",
	})
}

func TestOrientationPullsAccelerometer(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)

	if err := c.SetActive(sensor.Orientation, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := c.Active(); got != sensor.Orientation.Bit() {
		t.Errorf("Active() = %b, want only orientation", got)
	}
	checkLog(t, log, []string{
		"accelerometer open",
		"accelerometer enable acceleration true",
		"compass open",
		"compass enable orientation true",
	})

	log = log[:0]
	if err := c.SetActive(sensor.Orientation, false); err != nil {
		t.Fatalf("SetActive off: %v", err)
	}
	if got := c.Active(); got != 0 {
		t.Errorf("Active() = %b after disable, want 0", got)
	}
	checkLog(t, log, []string{
		"accelerometer enable acceleration false",
		"accelerometer close",
		"compass enable orientation false",
		"compass close",
	})
}

func TestAccelerationSharedWithOrientation(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)

	c.SetActive(sensor.Orientation, true)
	c.SetActive(sensor.Acceleration, true)
	log = log[:0]

	// Orientation still needs gravity, so the accelerometer driver must
	// survive dropping the logical acceleration sensor.
	if err := c.SetActive(sensor.Acceleration, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	checkLog(t, log, nil)
	if got := c.Active(); got != sensor.Orientation.Bit() {
		t.Errorf("Active() = %b, want only orientation", got)
	}

	if err := c.SetActive(sensor.Orientation, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	checkLog(t, log, []string{
		"accelerometer enable acceleration false",
		"accelerometer close",
		"compass enable orientation false",
		"compass close",
	})
}

func TestRedundantSetActiveIssuesNoCommands(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)

	c.SetActive(sensor.Proximity, true)
	n := len(log)
	if err := c.SetActive(sensor.Proximity, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if len(log) != n {
		t.Errorf("redundant enable issued commands: %q", log[n:])
	}

	if err := c.SetActive(sensor.Light, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if len(log) != n {
		t.Errorf("disabling an inactive sensor issued commands: %q", log[n:])
	}
}

func TestSetActiveInvalidID(t *testing.T) {
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&[]string{}, nil), sources)
	if err := c.SetActive(sensor.ID(99), true); !errors.Is(err, ErrInvalidSensor) {
		t.Fatalf("err = %v, want ErrInvalidSensor", err)
	}
}

func TestEnableFailureLeavesStateUnchanged(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	fail := map[sensor.Driver]bool{sensor.DriverCompass: true}
	c := NewControl(fakeOpener(&log, fail), sources)

	err := c.SetActive(sensor.Magnetic, true)
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DeviceError", err)
	}
	if de.Driver != sensor.DriverCompass || de.Op != "enable" {
		t.Errorf("DeviceError = %+v, want compass enable", de)
	}
	if got := c.Active(); got != 0 {
		t.Errorf("Active() = %b after failed enable, want 0", got)
	}

	// An unrelated sensor must still be controllable afterwards.
	if err := c.SetActive(sensor.Proximity, true); err != nil {
		t.Fatalf("SetActive after failure: %v", err)
	}
	if got := c.Active(); got != sensor.Proximity.Bit() {
		t.Errorf("Active() = %b, want proximity", got)
	}
}

func TestSetDelayReachesOpenHandles(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&log, nil), sources)

	c.SetActive(sensor.Acceleration, true)
	c.SetActive(sensor.Temperature, true)
	log = log[:0]

	if err := c.SetDelay(100 * time.Millisecond); err != nil {
		t.Fatalf("SetDelay: %v", err)
	}
	checkLog(t, log, []string{
		"accelerometer rate 100ms",
		"compass rate 100ms",
	})
}

func TestSetDelayContinuesPastFailure(t *testing.T) {
	var log []string
	_, sources := pipeSources()
	devices := func(d sensor.Driver) (device.Device, error) {
		name := sensor.Drivers[d].Name
		log = append(log, name+" open")
		return &fakeDevice{
			name:     name,
			log:      &log,
			failRate: d == sensor.DriverAccelerometer,
		}, nil
	}
	c := NewControl(devices, sources)

	c.SetActive(sensor.Acceleration, true)
	c.SetActive(sensor.Temperature, true)
	log = log[:0]

	err := c.SetDelay(50 * time.Millisecond)
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *DeviceError", err)
	}
	if de.Driver != sensor.DriverAccelerometer || de.Op != "rate" {
		t.Errorf("DeviceError = %+v, want accelerometer rate", de)
	}
	// The failure must not stop the command from reaching the compass.
	checkLog(t, log, []string{"compass rate 50ms"})
}

func TestFailedDisableKeepsActiveHandleOpen(t *testing.T) {
	var log []string
	var compass *fakeDevice
	_, sources := pipeSources()
	devices := func(d sensor.Driver) (device.Device, error) {
		name := sensor.Drivers[d].Name
		log = append(log, name+" open")
		dev := &fakeDevice{name: name, log: &log}
		if d == sensor.DriverCompass {
			compass = dev
		}
		return dev, nil
	}
	c := NewControl(devices, sources)

	if err := c.SetActive(sensor.Magnetic, true); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	compass.failEnable = true
	if err := c.SetActive(sensor.Magnetic, false); err == nil {
		t.Fatal("failed disable should surface an error")
	}
	if got := c.Active(); got != sensor.Magnetic.Bit() {
		t.Errorf("Active() = %b after rollback, want magnetic", got)
	}

	// The driver is still active under the retained mask, so its handle
	// must survive the failed transition: the retry may not reopen it.
	compass.failEnable = false
	log = log[:0]
	if err := c.SetActive(sensor.Magnetic, false); err != nil {
		t.Fatalf("retry: %v", err)
	}
	checkLog(t, log, []string{
		"compass enable magnetic false",
		"compass close",
	})
}

func TestOpenCaptureSingleInstance(t *testing.T) {
	_, sources := pipeSources()
	c := NewControl(fakeOpener(&[]string{}, nil), sources)
	defer c.Close()

	replica, err := c.OpenCapture()
	if err != nil {
		t.Fatalf("OpenCapture: %v", err)
	}
	if replica == nil {
		t.Fatal("OpenCapture returned nil replica")
	}
	if _, err := c.OpenCapture(); !errors.Is(err, ErrCaptureOpen) {
		t.Fatalf("second OpenCapture err = %v, want ErrCaptureOpen", err)
	}
	if err := c.CloseCapture(); err != nil {
		t.Fatalf("CloseCapture: %v", err)
	}
}

func TestOpenCaptureSourceFailureCleansUp(t *testing.T) {
	opened := 0
	sources := func(d sensor.Driver) (events.Conn, error) {
		if d == sensor.DriverProximity {
			return nil, errors.New("no such input device")
		}
		opened++
		return events.NewPipe(), nil
	}
	c := NewControl(fakeOpener(&[]string{}, nil), sources)

	if _, err := c.OpenCapture(); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("err = %v, want ErrResourceExhausted", err)
	}
	// A later attempt must not be blocked by the failed one.
	if _, err := c.OpenCapture(); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("retry err = %v, want ErrResourceExhausted", err)
	}
}
