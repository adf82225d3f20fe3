// Package tablereader provides bounds-checked random access over the pointer
// tables of a binary backend response.
package tablereader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrShortRead is returned when a read runs past the end of the buffer.
	ErrShortRead = fmt.Errorf("short read: %w", io.ErrUnexpectedEOF)
	// ErrOutOfRange is returned when an offset points outside its table.
	ErrOutOfRange = errors.New("offset out of range")
)

// Reader is a cursor over an immutable little-endian byte buffer. It is the
// only type that indexes the buffer; callers seek to absolute offsets and read
// fixed-width integers from there.
type Reader struct {
	buf       []byte
	pos       int
	highWater int
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Len() int {
	return len(r.buf)
}

func (r *Reader) Pos() int {
	return r.pos
}

// Consumed reports the furthest offset any read has reached.
func (r *Reader) Consumed() int {
	return r.highWater
}

func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > len(r.buf) {
		return fmt.Errorf("seek to %d of %d: %w", offset, len(r.buf), ErrOutOfRange)
	}
	r.pos = offset
	return nil
}

func (r *Reader) Skip(n int) error {
	return r.Seek(r.pos + n)
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("read %d bytes at %d of %d: %w", n, r.pos, len(r.buf), ErrShortRead)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	if r.pos > r.highWater {
		r.highWater = r.pos
	}
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) I32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Slice returns the bytes in [start, end) without moving the cursor.
func (r *Reader) Slice(start, end int) ([]byte, error) {
	if start < 0 || end < start || end > len(r.buf) {
		return nil, fmt.Errorf("slice [%d,%d) of %d: %w", start, end, len(r.buf), ErrOutOfRange)
	}
	if end > r.highWater {
		r.highWater = end
	}
	return r.buf[start:end], nil
}

// Table is a bounded region of the buffer addressed by table-relative offsets.
type Table struct {
	Name  string
	Start int
	End   int
}

func NewTable(r *Reader, name string, start, end int) (Table, error) {
	if _, err := r.Slice(start, end); err != nil {
		return Table{}, fmt.Errorf("%s table: %w", name, err)
	}
	return Table{Name: name, Start: start, End: end}, nil
}

func (t Table) Len() int {
	return t.End - t.Start
}

// Sub returns a reader confined to the table, positioned at the given
// table-relative offset.
func (t Table) Sub(r *Reader, offset int) (*Reader, error) {
	if _, err := t.Resolve(offset); err != nil {
		return nil, err
	}
	data, err := r.Slice(t.Start, t.End)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: data, pos: offset, highWater: offset}, nil
}

// Resolve converts a table-relative offset into an absolute one.
func (t Table) Resolve(offset int) (int, error) {
	if offset < 0 || offset >= t.Len() {
		return 0, fmt.Errorf("%s table offset %d of %d: %w", t.Name, offset, t.Len(), ErrOutOfRange)
	}
	return t.Start + offset, nil
}
