//go:build linux

package events

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// inputEventSize is sizeof(struct input_event) on 64-bit kernels:
// timeval (16) + type (2) + code (2) + value (4).
const inputEventSize = 24

// Transient read interruptions are retried internally with a bounded
// backoff instead of surfacing to the capture loop.
const (
	retryBackoffMin = time.Millisecond
	retryBackoffMax = 100 * time.Millisecond
)

// evdev is an event endpoint backed by a /dev/input node. Fields are
// decoded assuming a little-endian host, which covers the ARM/x86
// boards this runs on.
//
// The fd is non-blocking; a reader with no data parks in poll(2) on
// both the device fd and the read end of an internal pipe. Close
// closes the pipe, which wakes the poll, so a pending ReadEvent
// unblocks and returns io.EOF as the Conn contract requires.
type evdev struct {
	fd   int
	path string

	wakeR, wakeW int
	once         sync.Once
}

// OpenEvdev scans /dev/input for the device registered under name and
// opens it. This is the discovery step the drivers rely on: they
// register input devices by name, not by stable node path.
func OpenEvdev(name string) (Conn, error) {
	matches, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, fmt.Errorf("events: scan /dev/input: %w", err)
	}
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
		if err != nil {
			fd, err = unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
			if err != nil {
				continue
			}
		}
		if got, err := deviceName(fd); err == nil && got == name {
			return newEvdev(fd, path)
		}
		unix.Close(fd)
	}
	return nil, fmt.Errorf("events: input device %q not found", name)
}

// newEvdev wraps an already-open non-blocking fd and allocates the
// wakeup pipe. On failure the fd is closed.
func newEvdev(fd int, path string) (*evdev, error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("events: wakeup pipe for %s: %w", path, err)
	}
	return &evdev{fd: fd, path: path, wakeR: p[0], wakeW: p[1]}, nil
}

// deviceName issues EVIOCGNAME and returns the registered name.
func deviceName(fd int) (string, error) {
	var buf [80]byte
	// _IOC(_IOC_READ, 'E', 0x06, len(buf))
	ioc := uintptr(2)<<30 | uintptr(len(buf))<<16 | uintptr('E')<<8 | 0x06
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), ioc,
		uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", errno
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n]), nil
}

func (d *evdev) ReadEvent() (Event, error) {
	var buf [inputEventSize]byte
	backoff := retryBackoffMin
	for {
		n, err := unix.Read(d.fd, buf[:])
		switch err {
		case nil:
			if n != inputEventSize {
				return Event{}, fmt.Errorf("events: short read from %s: %d bytes", d.path, n)
			}
			sec := int64(binary.LittleEndian.Uint64(buf[0:8]))
			usec := int64(binary.LittleEndian.Uint64(buf[8:16]))
			return Event{
				Time:  sec*int64(time.Second) + usec*int64(time.Microsecond),
				Type:  binary.LittleEndian.Uint16(buf[16:18]),
				Code:  binary.LittleEndian.Uint16(buf[18:20]),
				Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
			}, nil
		case unix.EAGAIN:
			if d.waitReadable(&backoff) {
				return Event{}, io.EOF
			}
		case unix.EINTR:
			time.Sleep(backoff)
			if backoff < retryBackoffMax {
				backoff *= 2
			}
		case unix.EBADF:
			// Close raced the read; the endpoint is gone.
			return Event{}, io.EOF
		default:
			return Event{}, fmt.Errorf("events: read %s: %w", d.path, err)
		}
	}
}

// waitReadable parks until the device fd has data or the endpoint is
// shut down. Reports true when the caller should stop reading.
func (d *evdev) waitReadable(backoff *time.Duration) bool {
	for {
		fds := []unix.PollFd{
			{Fd: int32(d.fd), Events: unix.POLLIN},
			{Fd: int32(d.wakeR), Events: unix.POLLIN},
		}
		n, err := unix.Poll(fds, -1)
		if err == unix.EINTR {
			time.Sleep(*backoff)
			if *backoff < retryBackoffMax {
				*backoff *= 2
			}
			continue
		}
		if err != nil {
			return true
		}
		if n == 0 {
			continue
		}
		// Any activity on the wakeup pipe (POLLHUP once the write end
		// closes) means Close ran.
		if fds[1].Revents != 0 {
			return true
		}
		if fds[0].Revents&unix.POLLIN != 0 {
			return false
		}
		// POLLERR/POLLHUP on the device: it went away.
		if fds[0].Revents != 0 {
			return true
		}
	}
}

func (d *evdev) WriteEvent(e Event) error {
	now := time.Now()
	var buf [inputEventSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], uint64(now.Unix()))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(now.Nanosecond()/1000))
	binary.LittleEndian.PutUint16(buf[16:18], e.Type)
	binary.LittleEndian.PutUint16(buf[18:20], e.Code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(e.Value))
	backoff := retryBackoffMin
	for {
		_, err := unix.Write(d.fd, buf[:])
		switch err {
		case nil:
			return nil
		case unix.EAGAIN, unix.EINTR:
			time.Sleep(backoff)
			if backoff < retryBackoffMax {
				backoff *= 2
			}
		default:
			return fmt.Errorf("events: write %s: %w", d.path, err)
		}
	}
}

func (d *evdev) Close() error {
	d.once.Do(func() {
		unix.Close(d.wakeW)
		unix.Close(d.wakeR)
		unix.Close(d.fd)
	})
	return nil
}
