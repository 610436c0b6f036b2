package events

import (
	"io"
	"sync"
)

// pipeDepth is the buffered backlog per endpoint. Matches the order of
// magnitude an evdev client buffer would give a slow reader.
const pipeDepth = 256

// Pipe is an in-memory event endpoint: writers feed a buffered queue,
// readers drain it. It stands in for the kernel-backed replica device
// of the original hardware setup and for device nodes in tests.
type Pipe struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// NewPipe creates an open in-memory endpoint.
func NewPipe() *Pipe {
	return &Pipe{
		ch:   make(chan Event, pipeDepth),
		done: make(chan struct{}),
	}
}

// ReadEvent blocks until an event is queued or the pipe is closed.
// Events written before Close are still delivered; afterwards reads
// return io.EOF.
func (p *Pipe) ReadEvent() (Event, error) {
	select {
	case e := <-p.ch:
		return e, nil
	default:
	}
	select {
	case e := <-p.ch:
		return e, nil
	case <-p.done:
		select {
		case e := <-p.ch:
			return e, nil
		default:
			return Event{}, io.EOF
		}
	}
}

// WriteEvent queues one event. It blocks when the backlog is full and
// fails with io.ErrClosedPipe once the pipe is closed.
func (p *Pipe) WriteEvent(e Event) error {
	select {
	case <-p.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case p.ch <- e:
		return nil
	case <-p.done:
		return io.ErrClosedPipe
	}
}

// Close unblocks pending reads and writes. Idempotent.
func (p *Pipe) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
