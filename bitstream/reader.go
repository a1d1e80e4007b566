// Package bitstream reads variable-width bit fields from compressed byte
// streams.
//
// Two bit orders are supported because game engines hard-code different
// packing conventions:
//   - MSBFirst: bit 7 of each byte is consumed first.
//   - LSBFirst: bit 0 of each byte is consumed first.
//
// A Reader keeps a 64-bit register and pulls whole bytes from the source only
// when a read asks for more bits than the register holds. At the end of the
// source, a read that still has at least one real bit available returns its
// value zero-padded to the requested width; a read that finds no bits at all
// fails with ErrEndOfStream. SetStrict disables the padding for formats that
// treat any short read as truncation.
package bitstream

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	// ErrEndOfStream is returned when a read finds no bits left in the stream.
	ErrEndOfStream = errors.New("bitstream: end of stream")

	// ErrBitCount is returned when more than MaxBits bits are requested at once.
	ErrBitCount = errors.New("bitstream: bit count out of range")

	// ErrCodeTooLong is returned when a unary or gamma prefix exceeds its limit.
	ErrCodeTooLong = errors.New("bitstream: variable-length code too long")
)

// MaxBits is the widest field ReadBits accepts.
const MaxBits = 32

// MaxUnary bounds the length of a unary code.
const MaxUnary = 1 << 16

// Order is the order in which bits are taken out of each byte.
type Order int

const (
	MSBFirst Order = iota // bit 7 first
	LSBFirst              // bit 0 first
)

// String returns the name of the order.
func (o Order) String() string {
	switch o {
	case MSBFirst:
		return "MSB"
	case LSBFirst:
		return "LSB"
	default:
		return "unknown"
	}
}

// Reader reads bit fields from an underlying byte source.
//
// A Reader is not safe for concurrent use; it is meant to live for one decode
// call.
type Reader struct {
	src   io.ByteReader
	order Order

	// cache holds nbits valid bits. For MSBFirst the next bit is bit nbits-1;
	// for LSBFirst it is bit 0.
	cache uint64
	nbits uint

	consumed  int64
	exhausted bool
	padded    bool
	strict    bool
	err       error
}

// NewReader returns a Reader over r. If r does not implement io.ByteReader it
// is wrapped in a bufio.Reader, so the caller must not read r directly while
// the Reader is in use.
func NewReader(r io.Reader, order Order) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Reader{src: br, order: order}
}

// NewReaderBytes returns a Reader over a byte slice.
func NewReaderBytes(data []byte, order Order) *Reader {
	return &Reader{src: bytes.NewReader(data), order: order}
}

// Order returns the bit order of the reader.
func (r *Reader) Order() Order {
	return r.order
}

// SetStrict controls end-of-stream handling. In strict mode a read that cannot
// be satisfied entirely from real input bits fails with ErrEndOfStream instead
// of returning zero-padded bits.
func (r *Reader) SetStrict(strict bool) {
	r.strict = strict
}

// Buffered returns the number of bits held in the register.
func (r *Reader) Buffered() int {
	return int(r.nbits)
}

// Consumed returns the number of bytes pulled from the source so far.
func (r *Reader) Consumed() int64 {
	return r.consumed
}

// Exhausted reports whether a read has been satisfied with padding bits.
func (r *Reader) Exhausted() bool {
	return r.padded
}

// fill pulls one byte into the register. It reports false at the end of the
// source.
func (r *Reader) fill() (bool, error) {
	if r.exhausted {
		return false, nil
	}
	if r.err != nil {
		return false, r.err
	}
	b, err := r.src.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.exhausted = true
			return false, nil
		}
		r.err = err
		return false, err
	}
	r.consumed++
	if r.order == MSBFirst {
		r.cache = r.cache<<8 | uint64(b)
	} else {
		r.cache |= uint64(b) << r.nbits
	}
	r.nbits += 8
	return true, nil
}

// ReadBits reads n bits, 0 <= n <= 32, and returns them as an unsigned value.
// In MSBFirst order the first bit read is the most significant bit of the
// result; in LSBFirst order it is the least significant.
func (r *Reader) ReadBits(n uint) (uint32, error) {
	if n > MaxBits {
		return 0, ErrBitCount
	}
	if n == 0 {
		return 0, nil
	}

	for r.nbits < n {
		ok, err := r.fill()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
	}

	if r.nbits < n {
		if r.nbits == 0 || r.strict {
			return 0, ErrEndOfStream
		}
		// Zero padding past the end of the source.
		pad := n - r.nbits
		if r.order == MSBFirst {
			r.cache <<= pad
		}
		r.nbits = n
		r.padded = true
	}

	mask := uint64(1)<<n - 1
	var v uint64
	if r.order == MSBFirst {
		r.nbits -= n
		v = (r.cache >> r.nbits) & mask
		r.cache &= uint64(1)<<r.nbits - 1
	} else {
		v = r.cache & mask
		r.cache >>= n
		r.nbits -= n
	}
	return uint32(v), nil
}

// ReadBit reads a single bit.
func (r *Reader) ReadBit() (uint32, error) {
	return r.ReadBits(1)
}

// ReadBool reads a single bit and reports whether it is set.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadBits(1)
	return b == 1, err
}

// ReadUnary counts 1-bits up to the first 0-bit and returns the count. The
// terminating 0-bit is consumed.
func (r *Reader) ReadUnary() (int, error) {
	n := 0
	for {
		b, err := r.ReadBits(1)
		if err != nil {
			return n, err
		}
		if b == 0 {
			return n, nil
		}
		n++
		if n > MaxUnary {
			return n, ErrCodeTooLong
		}
	}
}

// ReadGamma reads an Elias gamma code: k 0-bits, a 1-bit, then k more bits.
// The result is at least 1.
func (r *Reader) ReadGamma() (uint32, error) {
	k := uint(0)
	for {
		b, err := r.ReadBits(1)
		if err != nil {
			return 0, err
		}
		if b == 1 {
			break
		}
		k++
		if k >= MaxBits {
			return 0, ErrCodeTooLong
		}
	}
	rest, err := r.ReadBits(k)
	if err != nil {
		return 0, err
	}
	return 1<<k | rest, nil
}

// Align discards the unread bits of the current byte so that the next read
// starts on a byte boundary.
func (r *Reader) Align() {
	rem := r.nbits % 8
	if rem == 0 {
		return
	}
	r.nbits -= rem
	if r.order == MSBFirst {
		r.cache &= uint64(1)<<r.nbits - 1
	} else {
		r.cache >>= rem
	}
}

// ReadAlignedByte aligns the reader and returns the next whole byte.
func (r *Reader) ReadAlignedByte() (byte, error) {
	r.Align()
	v, err := r.ReadBits(8)
	return byte(v), err
}
