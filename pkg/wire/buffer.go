// vl2rule/pkg/wire/buffer.go

// Package wire implements fixed-capacity, cursor based big-endian buffers used
// by the rule codec.
package wire

import (
	"encoding/binary"
	"errors"
)

// DefaultCapacity is the writer capacity used when none is configured.
const DefaultCapacity = 16384

var (
	// ErrOverflow is returned when an append would exceed the writer capacity.
	ErrOverflow = errors.New("wire: buffer overflow")
	// ErrUnderflow is returned when a read would run past the end of the data.
	ErrUnderflow = errors.New("wire: buffer underflow")
)

// Writer appends primitives to a buffer of fixed capacity. A failed append
// leaves everything written before it in place.
type Writer struct {
	buf      []byte
	capacity int
}

// NewWriter returns a Writer holding at most capacity bytes. A capacity <= 0
// selects DefaultCapacity.
func NewWriter(capacity int) *Writer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Writer{buf: make([]byte, 0, min(capacity, 512)), capacity: capacity}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the written bytes. The slice aliases the writer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset discards all written bytes.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) grow(n int) ([]byte, error) {
	if len(w.buf)+n > w.capacity {
		return nil, ErrOverflow
	}
	l := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[l:], nil
}

func (w *Writer) AppendU8(v uint8) error {
	b, err := w.grow(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) AppendU16(v uint16) error {
	b, err := w.grow(2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, v)
	return nil
}

func (w *Writer) AppendU32(v uint32) error {
	b, err := w.grow(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

func (w *Writer) AppendU64(v uint64) error {
	b, err := w.grow(8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b, v)
	return nil
}

// AppendU40 writes the low 40 bits of v as five big-endian bytes.
func (w *Writer) AppendU40(v uint64) error {
	b, err := w.grow(5)
	if err != nil {
		return err
	}
	b[0] = byte(v >> 32)
	b[1] = byte(v >> 24)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 8)
	b[4] = byte(v)
	return nil
}

func (w *Writer) AppendBytes(p []byte) error {
	b, err := w.grow(len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// Reader reads primitives from a byte slice starting at a movable cursor.
type Reader struct {
	data   []byte
	cursor int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Cursor returns the offset of the next byte to be read.
func (r *Reader) Cursor() int { return r.cursor }

// Len returns the total number of bytes in the underlying data.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.cursor }

// SetCursor moves the cursor to n. It fails if n is outside the data.
func (r *Reader) SetCursor(n int) error {
	if n < 0 || n > len(r.data) {
		return ErrUnderflow
	}
	r.cursor = n
	return nil
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.cursor+n > len(r.data) {
		return nil, ErrUnderflow
	}
	b := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadU40 reads five big-endian bytes into the low 40 bits of a uint64.
func (r *Reader) ReadU40() (uint64, error) {
	b, err := r.take(5)
	if err != nil {
		return 0, err
	}
	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4]), nil
}

// ReadBytes returns the next n bytes. The slice aliases the reader's data.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	return r.take(n)
}
