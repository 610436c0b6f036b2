//go:build linux

package events

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// devPipe builds an evdev endpoint around a plain pipe so the read
// path can be exercised without a /dev/input node. Returns the
// endpoint and the write end feeding it.
func devPipe(t *testing.T) (*evdev, int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	d, err := newEvdev(p[0], "testpipe")
	if err != nil {
		unix.Close(p[1])
		t.Fatalf("newEvdev: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
		unix.Close(p[1])
	})
	return d, p[1]
}

func TestEvdevDecodesInputEvent(t *testing.T) {
	d, w := devPipe(t)

	var buf [inputEventSize]byte
	binary.LittleEndian.PutUint64(buf[0:8], 3)    // sec
	binary.LittleEndian.PutUint64(buf[8:16], 500) // usec
	binary.LittleEndian.PutUint16(buf[16:18], TypeAbs)
	binary.LittleEndian.PutUint16(buf[18:20], CodeAccelX)
	value := int32(-7)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	if _, err := unix.Write(w, buf[:]); err != nil {
		t.Fatalf("write: %v", err)
	}

	e, err := d.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	want := Event{
		Time:  3*int64(time.Second) + 500*int64(time.Microsecond),
		Type:  TypeAbs,
		Code:  CodeAccelX,
		Value: -7,
	}
	if e != want {
		t.Errorf("event = %+v, want %+v", e, want)
	}
}

func TestEvdevCloseUnblocksRead(t *testing.T) {
	d, _ := devPipe(t)

	done := make(chan error, 1)
	go func() {
		_, err := d.ReadEvent()
		done <- err
	}()

	// Give the reader time to park in the poll.
	time.Sleep(20 * time.Millisecond)
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, io.EOF) {
			t.Fatalf("ReadEvent after Close = %v, want io.EOF", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ReadEvent still blocked after Close")
	}
}
