package hub

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
	"github.com/relabs-tech/sensor_mux/internal/units"
)

// statusMask strips the calibration firmware's flag bits from an
// orientation status event.
const statusMask = 0x7FFF

// emptyPendingBackoff guards against a hot loop if a boundary
// completes nothing deliverable.
const emptyPendingBackoff = 100 * time.Millisecond

// Queue is the pull-based delivery side. It owns the latest-value
// sample store and the pending mask; Poll returns exactly one complete
// sample per call, draining previously pending samples before reading
// more raw input.
//
// Queue assumes a single polling goroutine, but the pending mask is
// still maintained with atomic test-and-clear so pending state can be
// observed concurrently (the web snapshot does).
type Queue struct {
	src     events.Conn
	pending atomic.Uint32
	samples [sensor.Count]sensor.Sample
}

// NewQueue creates an unattached delivery queue.
func NewQueue() *Queue { return &Queue{} }

// OpenReplica attaches the queue to a raw event endpoint, normally the
// handle returned by Control.OpenCapture. Samples reset to defaults;
// vector sensors start at high accuracy because the devices only
// report status on change.
func (q *Queue) OpenReplica(conn events.Conn) {
	for id := sensor.ID(0); id < sensor.Count; id++ {
		q.samples[id] = sensor.Sample{ID: id, Status: sensor.StatusAccuracyHigh}
	}
	q.pending.Store(0)
	q.src = conn
}

// CloseReplica detaches and closes the event endpoint.
func (q *Queue) CloseReplica() error {
	if q.src == nil {
		return nil
	}
	err := q.src.Close()
	q.src = nil
	return err
}

// Pending returns the set of complete, undelivered sensors.
func (q *Queue) Pending() sensor.Mask {
	return sensor.Mask(q.pending.Load())
}

// Poll returns the next complete sample. Pending samples are drained
// highest-ID first; once empty, Poll blocks reading raw events until a
// synchronization boundary completes at least one sample. A
// wake/reconfigure signal surfaces as ErrReconfigured, source
// exhaustion as ErrSourceClosed.
func (q *Queue) Poll() (sensor.Sample, error) {
	if q.src == nil {
		return sensor.Sample{}, ErrSourceClosed
	}

	if s, ok := q.pick(); ok {
		return s, nil
	}

	var touched sensor.Mask
	for {
		e, err := q.src.ReadEvent()
		if err != nil {
			return sensor.Sample{}, fmt.Errorf("%w: %v", ErrSourceClosed, err)
		}

		switch e.Type {
		case events.TypeAbs:
			touched = q.absorb(e, touched)

		case events.TypeLed:
			if e.Code == events.CodeLight {
				q.samples[sensor.Light].Value = units.Light(e.Value)
				touched = touched.Set(sensor.Light)
			}

		case events.TypeSyn:
			if e.Code == events.SynConfig {
				return sensor.Sample{}, ErrReconfigured
			}
			if e.Code != events.SynReport || touched == 0 {
				continue
			}
			q.complete(touched, e.Time)
			touched = 0
			if s, ok := q.pick(); ok {
				return s, nil
			}
			// Nothing to deliver despite a completed boundary; slow
			// down rather than spin on the next read.
			time.Sleep(emptyPendingBackoff)
		}
	}
}

// absorb applies one per-axis event to the fragment store, converting
// to physical units as it lands. Unrecognized codes are ignored.
func (q *Queue) absorb(e events.Event, touched sensor.Mask) sensor.Mask {
	switch e.Code {
	case events.CodeAccelX:
		q.samples[sensor.Acceleration].X = units.Accel(e.Value)
		return touched.Set(sensor.Acceleration)
	case events.CodeAccelY:
		q.samples[sensor.Acceleration].Y = units.Accel(e.Value)
		return touched.Set(sensor.Acceleration)
	case events.CodeAccelZ:
		q.samples[sensor.Acceleration].Z = units.Accel(e.Value)
		return touched.Set(sensor.Acceleration)

	case events.CodeMagX:
		q.samples[sensor.Magnetic].X = float64(e.Value) * units.ConvertMX
		return touched.Set(sensor.Magnetic)
	case events.CodeMagY:
		q.samples[sensor.Magnetic].Y = float64(e.Value) * units.ConvertMY
		return touched.Set(sensor.Magnetic)
	case events.CodeMagZ:
		q.samples[sensor.Magnetic].Z = float64(e.Value) * units.ConvertMZ
		return touched.Set(sensor.Magnetic)

	case events.CodeYaw:
		q.samples[sensor.Orientation].X = float64(e.Value) * units.ConvertYaw
		return touched.Set(sensor.Orientation)
	case events.CodePitch:
		q.samples[sensor.Orientation].Y = float64(e.Value) * units.ConvertPitch
		return touched.Set(sensor.Orientation)
	case events.CodeRoll:
		q.samples[sensor.Orientation].Z = float64(e.Value) * units.ConvertRoll
		return touched.Set(sensor.Orientation)

	case events.CodeTemperature:
		q.samples[sensor.Temperature].Value = units.Temperature(e.Value)
		return touched.Set(sensor.Temperature)

	case events.CodeProximity:
		q.samples[sensor.Proximity].Value = units.Proximity(e.Value)
		return touched.Set(sensor.Proximity)

	case events.CodeOrientStat:
		// Calibration accuracy update; does not complete a sample.
		q.samples[sensor.Orientation].Status = uint8(e.Value & statusMask)
		return touched

	case events.CodeAccelStat:
		// The accelerometer never reports a meaningful status.
		return touched
	}
	return touched
}

// complete stamps the boundary timestamp on every touched sample and
// publishes them into the pending mask.
func (q *Queue) complete(touched sensor.Mask, t int64) {
	for id := sensor.ID(0); id < sensor.Count; id++ {
		if touched.Has(id) {
			q.samples[id].Time = t
		}
	}
	// atomic.Uint32.Or requires Go 1.23; this CAS loop is its exact
	// equivalent for toolchains down to the go directive's version.
	for {
		cur := q.pending.Load()
		if q.pending.CompareAndSwap(cur, cur|uint32(touched)) {
			break
		}
	}
}

// pick removes and returns the highest-ID pending sample. The bit is
// cleared exactly once, atomically with the copy-out.
func (q *Queue) pick() (sensor.Sample, bool) {
	for {
		cur := q.pending.Load()
		id, ok := sensor.Mask(cur).Highest()
		if !ok {
			return sensor.Sample{}, false
		}
		if !q.pending.CompareAndSwap(cur, cur&^uint32(id.Bit())) {
			continue
		}
		s := q.samples[id]
		s.ID = id
		return s, true
	}
}
