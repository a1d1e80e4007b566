// Package byteio provides bounds-checked byte sources for the decoders.
//
// Compressed payloads arrive either as a byte slice that the caller already
// cut out of an archive, or as the output of another decoder. Both are exposed
// through Source, which adds Peek and an input offset to io.ByteReader so that
// errors can report where decoding stopped.
package byteio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
)

var (
	// ErrShortBuffer is returned when a fixed-width read runs past the end of
	// the data.
	ErrShortBuffer = errors.New("byteio: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("byteio: negative size")
)

// Source is a sequential byte input. ReadByte returns io.EOF at the end of
// the input.
type Source interface {
	io.Reader
	io.ByteReader
	// Peek returns the next n bytes without consuming them.
	Peek(n int) ([]byte, error)
	// Offset returns the number of bytes consumed so far.
	Offset() int64
}

// Reader reads little-endian values from a byte slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The slice is not copied.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Offset implements Source.
func (r *Reader) Offset() int64 {
	return int64(r.pos)
}

// Reset rewinds the reader and points it at data.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
}

// ReadByte reads a single byte. It returns io.EOF when no bytes are left.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// Peek returns the next n bytes without advancing. The returned slice aliases
// the underlying data. If fewer than n bytes remain, the available bytes are
// returned together with ErrShortBuffer.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if n > r.Len() {
		return r.data[r.pos:], ErrShortBuffer
	}
	return r.data[r.pos : r.pos+n], nil
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.Len() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint16BE reads an unsigned 16-bit integer in big-endian order.
func (r *Reader) ReadUint16BE() (uint16, error) {
	if r.Len() < 2 {
		return 0, ErrShortBuffer
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Len() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// streamSource adapts an io.Reader to Source.
type streamSource struct {
	br  *bufio.Reader
	off int64
}

// NewSource returns r as a Source. A Source passes through unchanged; any
// other reader is buffered, so the caller must not read r directly afterwards.
func NewSource(r io.Reader) Source {
	if s, ok := r.(Source); ok {
		return s
	}
	return &streamSource{br: bufio.NewReader(r)}
}

func (s *streamSource) ReadByte() (byte, error) {
	b, err := s.br.ReadByte()
	if err == nil {
		s.off++
	}
	return b, err
}

func (s *streamSource) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.off += int64(n)
	return n, err
}

func (s *streamSource) Peek(n int) ([]byte, error) {
	return s.br.Peek(n)
}

func (s *streamSource) Offset() int64 {
	return s.off
}
