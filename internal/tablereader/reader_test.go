package tablereader

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderIntegers(t *testing.T) {
	r := NewReader([]byte{0x34, 0x12, 0xfe, 0xff, 0x78, 0x56, 0x34, 0x12, 0x07})

	u16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	i16, err := r.I16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	i32, err := r.I32()
	require.NoError(t, err)
	assert.Equal(t, int32(0x12345678), i32)

	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(7), u8)
	assert.Equal(t, 9, r.Consumed())
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03})
	require.NoError(t, r.Seek(2))

	_, err := r.U16()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))

	_, err = r.I32()
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReaderSeek(t *testing.T) {
	r := NewReader(make([]byte, 4))

	require.NoError(t, r.Seek(4))
	assert.ErrorIs(t, r.Seek(5), ErrOutOfRange)
	assert.ErrorIs(t, r.Seek(-1), ErrOutOfRange)

	require.NoError(t, r.Seek(1))
	require.NoError(t, r.Skip(2))
	assert.Equal(t, 3, r.Pos())
}

func TestTable(t *testing.T) {
	r := NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7})

	table, err := NewTable(r, "station", 2, 6)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())

	abs, err := table.Resolve(3)
	require.NoError(t, err)
	assert.Equal(t, 5, abs)

	_, err = table.Resolve(4)
	assert.ErrorIs(t, err, ErrOutOfRange)

	sub, err := table.Sub(r, 1)
	require.NoError(t, err)
	v, err := sub.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0403), v)

	_, err = sub.I32()
	assert.ErrorIs(t, err, ErrShortRead, "sub reader stays inside its table")

	_, err = NewTable(r, "comment", 6, 10)
	assert.ErrorIs(t, err, ErrOutOfRange)
}
