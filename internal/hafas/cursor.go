package hafas

import (
	"fmt"

	"transitdecode.org/hafas/internal/tablereader"
)

// cursor wraps a tablereader.Reader with a sticky error so that long runs of
// fixed-layout reads can be checked once at the end of a record.
type cursor struct {
	r       *tablereader.Reader
	strings *tablereader.StringTable
	err     error
}

func (c *cursor) fail(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

func (c *cursor) seek(offset int) {
	if c.err == nil {
		c.fail(c.r.Seek(offset))
	}
}

func (c *cursor) skip(n int) {
	if c.err == nil {
		c.fail(c.r.Skip(n))
	}
}

func (c *cursor) u8() int {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U8()
	c.fail(err)
	return int(v)
}

func (c *cursor) u16() int {
	if c.err != nil {
		return 0
	}
	v, err := c.r.U16()
	c.fail(err)
	return int(v)
}

func (c *cursor) i16() int {
	if c.err != nil {
		return 0
	}
	v, err := c.r.I16()
	c.fail(err)
	return int(v)
}

func (c *cursor) i32() int {
	if c.err != nil {
		return 0
	}
	v, err := c.r.I32()
	c.fail(err)
	return int(v)
}

// str reads a string reference; an absent string reads as "".
func (c *cursor) str() string {
	s, _ := c.strOK()
	return s
}

func (c *cursor) strOK() (string, bool) {
	if c.err != nil {
		return "", false
	}
	s, ok, err := c.strings.Read(c.r)
	c.fail(err)
	return s, ok
}

// sub opens a cursor confined to table, starting at a table-relative offset.
func (c *cursor) sub(table tablereader.Table, offset int) *cursor {
	if c.err != nil {
		return &cursor{err: c.err}
	}
	r, err := table.Sub(c.r, offset)
	if err != nil {
		c.fail(err)
		return &cursor{err: err}
	}
	return &cursor{r: r, strings: c.strings}
}

// check returns the sticky error annotated with what was being read.
func (c *cursor) check(format string, args ...any) error {
	if c.err == nil {
		return nil
	}
	return wrapMalformed(fmt.Sprintf(format, args...), c.err)
}
