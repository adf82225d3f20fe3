package tablereader

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// ErrUnknownEncoding is returned for charset names that cannot be decoded.
var ErrUnknownEncoding = errors.New("unknown text encoding")

// DefaultEncoding is used until the response announces its own charset.
var DefaultEncoding encoding.Encoding = charmap.ISO8859_1

// StringTable decodes NUL-terminated strings addressed by 16-bit offsets.
type StringTable struct {
	table    Table
	data     []byte
	encoding encoding.Encoding
	name     string
}

func NewStringTable(r *Reader, start, end int) (*StringTable, error) {
	t, err := NewTable(r, "string", start, end)
	if err != nil {
		return nil, err
	}
	data, err := r.Slice(start, end)
	if err != nil {
		return nil, err
	}
	return &StringTable{table: t, data: data, encoding: DefaultEncoding, name: "ISO-8859-1"}, nil
}

func (s *StringTable) Len() int {
	return s.table.Len()
}

func (s *StringTable) EncodingName() string {
	return s.name
}

// LookupEncoding resolves an IANA charset name.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ASCII", "US-ASCII":
		return charmap.ISO8859_1, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownEncoding, name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("%w: %q is not supported", ErrUnknownEncoding, name)
	}
	return enc, nil
}

// SetEncoding switches the charset for all subsequent reads.
func (s *StringTable) SetEncoding(name string) error {
	enc, err := LookupEncoding(name)
	if err != nil {
		return err
	}
	s.encoding = enc
	s.name = name
	return nil
}

// Read reads a string reference at the reader's cursor. A zero reference means
// no string and yields ok == false.
func (s *StringTable) Read(r *Reader) (value string, ok bool, err error) {
	ptr, err := r.U16()
	if err != nil {
		return "", false, err
	}
	return s.At(int(ptr))
}

// At decodes the string at a table-relative offset.
func (s *StringTable) At(offset int) (string, bool, error) {
	if offset == 0 {
		return "", false, nil
	}
	if _, err := s.table.Resolve(offset); err != nil {
		return "", false, err
	}
	raw := s.data[offset:]
	if end := bytes.IndexByte(raw, 0); end >= 0 {
		raw = raw[:end]
	}
	decoded, err := s.encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false, fmt.Errorf("decode string at %d as %s: %w", offset, s.name, err)
	}
	return strings.TrimSpace(string(decoded)), true, nil
}
