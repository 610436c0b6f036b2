package events

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EncodedSize is the fixed wire length of one event record.
const EncodedSize = 16

// Marshal encodes the event into the module's little-endian wire
// format: time(8) type(2) code(2) value(4).
func Marshal(e Event) [EncodedSize]byte {
	var b [EncodedSize]byte
	binary.LittleEndian.PutUint64(b[0:8], uint64(e.Time))
	binary.LittleEndian.PutUint16(b[8:10], e.Type)
	binary.LittleEndian.PutUint16(b[10:12], e.Code)
	binary.LittleEndian.PutUint32(b[12:16], uint32(e.Value))
	return b
}

// Unmarshal decodes one wire record. b must hold EncodedSize bytes.
func Unmarshal(b []byte) (Event, error) {
	if len(b) < EncodedSize {
		return Event{}, fmt.Errorf("events: short record: %d bytes", len(b))
	}
	return Event{
		Time:  int64(binary.LittleEndian.Uint64(b[0:8])),
		Type:  binary.LittleEndian.Uint16(b[8:10]),
		Code:  binary.LittleEndian.Uint16(b[10:12]),
		Value: int32(binary.LittleEndian.Uint32(b[12:16])),
	}, nil
}

// stream adapts a byte stream carrying wire records into a Conn. Used
// for serial-attached sensor MCUs and replayed captures.
type stream struct {
	rw io.ReadWriteCloser
}

// NewStream wraps rw as an event endpoint using the wire codec.
func NewStream(rw io.ReadWriteCloser) Conn {
	return &stream{rw: rw}
}

func (s *stream) ReadEvent() (Event, error) {
	var b [EncodedSize]byte
	if _, err := io.ReadFull(s.rw, b[:]); err != nil {
		return Event{}, err
	}
	return Unmarshal(b[:])
}

func (s *stream) WriteEvent(e Event) error {
	b := Marshal(e)
	_, err := s.rw.Write(b[:])
	return err
}

func (s *stream) Close() error { return s.rw.Close() }
