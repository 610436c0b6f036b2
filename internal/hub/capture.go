package hub

import (
	"log"
	"sync/atomic"

	"github.com/relabs-tech/sensor_mux/internal/events"
	"github.com/relabs-tech/sensor_mux/internal/sensor"
)

// frame buffers the raw per-axis fragments of one sensor between
// synchronization boundaries. Scalar sensors only use x. Last write
// wins within an epoch; devices do not repeat an axis inside one
// coherent frame.
type frame struct {
	x, y, z int32
}

// capture is the background multiplexing context. It is the sole owner
// of the fragment buffers and touched set; nothing else reads them.
type capture struct {
	sources []events.Conn
	replica *events.Pipe

	// active mirrors Control's logical activation mask; the capture
	// loop only reads it.
	active *atomic.Uint32

	frags   [sensor.Count]frame
	touched sensor.Mask
}

func newCapture(sources []events.Conn, replica *events.Pipe, active *atomic.Uint32) *capture {
	return &capture{sources: sources, replica: replica, active: active}
}

// run multiplexes all raw sources until every one of them terminates,
// mirroring each completed frame group into the replica endpoint.
func (cp *capture) run() {
	for se := range events.Merge(cp.sources) {
		cp.handle(se.Event)
	}
	cp.replica.Close()
}

// wake injects the reconfigure signal into the accelerometer source.
func (cp *capture) wake() error {
	return cp.sources[sensor.DriverAccelerometer].WriteEvent(events.Event{
		Type:  events.TypeSyn,
		Code:  events.SynConfig,
		Value: 0,
	})
}

// stop closes the raw sources; the merge goroutines drain out and run
// closes the replica behind them.
func (cp *capture) stop() {
	for _, c := range cp.sources {
		c.Close()
	}
}

func (cp *capture) handle(e events.Event) {
	switch e.Type {
	case events.TypeAbs:
		switch e.Code {
		case events.CodeAccelX:
			cp.touch(sensor.Acceleration).x = e.Value
		case events.CodeAccelY:
			cp.touch(sensor.Acceleration).y = e.Value
		case events.CodeAccelZ:
			cp.touch(sensor.Acceleration).z = e.Value

		case events.CodeMagX:
			cp.touch(sensor.Magnetic).x = e.Value
		case events.CodeMagY:
			cp.touch(sensor.Magnetic).y = e.Value
		case events.CodeMagZ:
			cp.touch(sensor.Magnetic).z = e.Value

		case events.CodeYaw:
			cp.touch(sensor.Orientation).x = e.Value
		case events.CodePitch:
			cp.touch(sensor.Orientation).y = e.Value
		case events.CodeRoll:
			cp.touch(sensor.Orientation).z = e.Value

		case events.CodeTemperature:
			cp.touch(sensor.Temperature).x = e.Value

		case events.CodeProximity:
			cp.touch(sensor.Proximity).x = e.Value
		}
		// Unrecognized ABS codes are unused device capabilities, not
		// errors.

	case events.TypeLed:
		if e.Code == events.CodeLight {
			cp.touch(sensor.Light).x = e.Value
		}

	case events.TypeSyn:
		switch e.Code {
		case events.SynConfig:
			// Wake/shutdown signal: echo it to the replica so a
			// blocked poller observes it too.
			if e.Value == 0 {
				if err := cp.replica.WriteEvent(e); err != nil {
					log.Printf("capture: replica wake echo failed: %v", err)
				}
			}
		case events.SynReport:
			cp.flush(e.Time)
		}
	}
}

func (cp *capture) touch(id sensor.ID) *frame {
	cp.touched = cp.touched.Set(id)
	return &cp.frags[id]
}

// flush mirrors every sensor touched since the last boundary into the
// replica, highest ID first, each group closed by its own boundary
// carrying the shared timestamp.
func (cp *capture) flush(t int64) {
	pending := cp.touched
	cp.touched = 0
	active := sensor.Mask(cp.active.Load())

	for {
		id, ok := pending.Highest()
		if !ok {
			return
		}
		pending = pending.Clear(id)

		f := cp.frags[id]
		switch id {
		case sensor.Acceleration:
			// Policy gate: acceleration is only mirrored while the
			// caller has it logically enabled.
			if !active.Has(sensor.Acceleration) {
				continue
			}
			cp.emit(t, events.TypeAbs, events.CodeAccelX, f.x)
			cp.emit(t, events.TypeAbs, events.CodeAccelY, f.y)
			cp.emit(t, events.TypeAbs, events.CodeAccelZ, f.z)

		case sensor.Magnetic:
			cp.emit(t, events.TypeAbs, events.CodeMagX, f.x)
			cp.emit(t, events.TypeAbs, events.CodeMagY, f.y)
			cp.emit(t, events.TypeAbs, events.CodeMagZ, f.z)

		case sensor.Orientation:
			// Mirrored only when actually touched this epoch. The C
			// implementation fell through from the magnetic case here;
			// that was a missing break, not a design.
			cp.emit(t, events.TypeAbs, events.CodeYaw, f.x)
			cp.emit(t, events.TypeAbs, events.CodePitch, f.y)
			cp.emit(t, events.TypeAbs, events.CodeRoll, f.z)

		case sensor.Temperature:
			cp.emit(t, events.TypeAbs, events.CodeTemperature, f.x)

		case sensor.Proximity:
			cp.emit(t, events.TypeAbs, events.CodeProximity, f.x)

		case sensor.Light:
			cp.emit(t, events.TypeLed, events.CodeLight, f.x)
		}

		cp.emit(t, events.TypeSyn, events.SynReport, 0)
	}
}

func (cp *capture) emit(t int64, typ, code uint16, value int32) {
	err := cp.replica.WriteEvent(events.Event{Time: t, Type: typ, Code: code, Value: value})
	if err != nil {
		log.Printf("capture: replica write failed: %v", err)
	}
}
