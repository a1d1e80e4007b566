package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Formats with an established Go implementation are decoded by that
// implementation. The functions here adapt them to the package conventions:
// a declared size, partial output with ErrEndOfStream on truncation, and
// ErrCorruptStream for everything the library rejects.

type offsetter interface {
	Offset() int64
}

// classify maps an error from a delegate library onto the package sentinels.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrEndOfStream), errors.Is(err, ErrCorruptStream),
		errors.Is(err, ErrUnsupportedVariant), errors.Is(err, ErrInvalidParams):
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrEndOfStream
	}
	return fmt.Errorf("%w: %v", ErrCorruptStream, err)
}

func delegateError(method string, off offsetter, written int, err error) error {
	var o int64
	if off != nil {
		o = off.Offset()
	}
	return &DecodeError{Method: method, Offset: o, Written: int64(written), Err: err}
}

// readSized reads the output of a delegate decoder: exactly size bytes, or
// everything until io.EOF when size is negative.
func readSized(method string, r io.Reader, off offsetter, size int) ([]byte, error) {
	var out []byte
	var err error
	if size < 0 {
		out, err = io.ReadAll(r)
	} else {
		buf := bytes.NewBuffer(make([]byte, 0, preallocSize(size)))
		_, err = io.Copy(buf, io.LimitReader(r, int64(size)))
		out = buf.Bytes()
		if err == io.ErrUnexpectedEOF || (err == nil && len(out) < size) {
			err = ErrEndOfStream
		}
	}
	var de *DecodeError
	switch {
	case err == nil:
		return out, nil
	case errors.As(err, &de):
		// Already located by the decoder that failed.
		return out, err
	}
	return out, delegateError(method, off, len(out), classify(err))
}

// sizedReader bounds a delegate reader to the declared size and translates
// its errors. done runs once, when the stream finishes either way.
type sizedReader struct {
	method  string
	r       io.Reader
	off     offsetter
	remain  int64 // -1 if unknown
	written int
	done    func()
	err     error
}

func newSizedReader(method string, r io.Reader, off offsetter, size int, done func()) *sizedReader {
	return &sizedReader{method: method, r: r, off: off, remain: int64(size), done: done}
}

func (s *sizedReader) Read(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.remain == 0 {
		return 0, s.finish(io.EOF)
	}
	if s.remain > 0 && int64(len(p)) > s.remain {
		p = p[:s.remain]
	}
	n, err := s.r.Read(p)
	s.written += n
	if s.remain > 0 {
		s.remain -= int64(n)
	}
	switch {
	case err == nil:
	case err == io.EOF && s.remain <= 0:
		err = s.finish(io.EOF)
	case err == io.EOF:
		err = s.finish(delegateError(s.method, s.off, s.written, ErrEndOfStream))
	default:
		err = s.finish(delegateError(s.method, s.off, s.written, classify(err)))
	}
	return n, err
}

func (s *sizedReader) finish(err error) error {
	s.err = err
	if s.done != nil {
		s.done()
		s.done = nil
	}
	return err
}

// resultReader replays a one-shot result, then its error.
func resultReader(method string, out []byte, err error) io.Reader {
	if err == nil {
		return bytes.NewReader(out)
	}
	return io.MultiReader(bytes.NewReader(out), errReader(method, err))
}

var zstdDecoders = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// DecompressZstd decodes a Zstandard stream.
func DecompressZstd(src io.Reader, size int) ([]byte, error) {
	in, err := io.ReadAll(src)
	if err != nil {
		return nil, delegateError("zstd", nil, 0, classify(err))
	}
	var dst []byte
	if size > 0 {
		dst = make([]byte, 0, preallocSize(size))
	}
	dec := zstdDecoders.Get().(*zstd.Decoder)
	out, err := dec.DecodeAll(in, dst)
	zstdDecoders.Put(dec)
	if err != nil {
		return out, delegateError("zstd", nil, len(out), classify(err))
	}
	if size >= 0 {
		if len(out) < size {
			return out, delegateError("zstd", nil, len(out), ErrEndOfStream)
		}
		out = out[:size]
	}
	return out, nil
}

// NewZstdReader returns a reader that decodes a Zstandard stream
// incrementally.
func NewZstdReader(src io.Reader, size int) io.Reader {
	dec, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1), zstd.WithDecoderLowmem(true))
	if err != nil {
		return errReader("zstd", delegateError("zstd", nil, 0, classify(err)))
	}
	return newSizedReader("zstd", dec, nil, size, dec.Close)
}

// lz4MaxRatio bounds the output buffer when an LZ4 block's size is unknown.
const lz4MaxRatio = 255

// DecompressLZ4Block decodes a raw LZ4 block. A block carries no end marker
// or size, so an unknown size is found by retrying into larger buffers.
func DecompressLZ4Block(src io.Reader, size int) ([]byte, error) {
	in, err := io.ReadAll(src)
	if err != nil {
		return nil, delegateError("lz4", nil, 0, classify(err))
	}
	if size >= 0 {
		// A block cannot expand past lz4MaxRatio, so a larger size only
		// needs room for what the block can hold.
		out := make([]byte, min(size, max(len(in)*lz4MaxRatio, 64)))
		n, err := lz4.UncompressBlock(in, out)
		if err != nil {
			return nil, delegateError("lz4", nil, 0, classify(err))
		}
		if n < size {
			return out[:n], delegateError("lz4", nil, n, ErrEndOfStream)
		}
		return out, nil
	}

	limit := max(len(in)*lz4MaxRatio, 64)
	for n := max(len(in)*4, 64); ; n *= 2 {
		n = min(n, limit)
		out := make([]byte, n)
		m, err := lz4.UncompressBlock(in, out)
		if err == nil {
			return out[:m], nil
		}
		if n == limit {
			return nil, delegateError("lz4", nil, 0, classify(err))
		}
	}
}

// NewLZ4FrameReader returns a reader that decodes the LZ4 frame format.
func NewLZ4FrameReader(src io.Reader, size int) io.Reader {
	return newSizedReader("lz4-frame", lz4.NewReader(src), nil, size, nil)
}

// DecompressLZ4Frame decodes the LZ4 frame format.
func DecompressLZ4Frame(src io.Reader, size int) ([]byte, error) {
	return readSized("lz4-frame", lz4.NewReader(src), nil, size)
}

// snappyMaxRatio is above the largest expansion a Snappy block can encode
// (a 3-byte copy of 64 bytes).
const snappyMaxRatio = 32

// DecompressSnappy decodes a Snappy block. The block header carries its
// decoded length, which must be at least size.
func DecompressSnappy(src io.Reader, size int) ([]byte, error) {
	in, err := io.ReadAll(src)
	if err != nil {
		return nil, delegateError("snappy", nil, 0, classify(err))
	}
	n, err := snappy.DecodedLen(in)
	if err != nil {
		return nil, delegateError("snappy", nil, 0, classify(err))
	}
	if n > len(in)*snappyMaxRatio {
		return nil, delegateError("snappy", nil, 0, fmt.Errorf("%w: snappy length %d for %d input bytes", ErrCorruptStream, n, len(in)))
	}
	out, err := snappy.Decode(make([]byte, n), in)
	if err != nil {
		return nil, delegateError("snappy", nil, 0, classify(err))
	}
	if size >= 0 {
		if len(out) < size {
			return out, delegateError("snappy", nil, len(out), ErrEndOfStream)
		}
		out = out[:size]
	}
	return out, nil
}

// NewSnappyFrameReader returns a reader that decodes the Snappy framing
// format.
func NewSnappyFrameReader(src io.Reader, size int) io.Reader {
	return newSizedReader("snappy-frame", snappy.NewReader(src), nil, size, nil)
}

// DecompressSnappyFrame decodes the Snappy framing format.
func DecompressSnappyFrame(src io.Reader, size int) ([]byte, error) {
	return readSized("snappy-frame", snappy.NewReader(src), nil, size)
}

// DecompressBrotli decodes a Brotli stream.
func DecompressBrotli(src io.Reader, size int) ([]byte, error) {
	return readSized("brotli", brotli.NewReader(src), nil, size)
}

// NewBrotliReader returns a reader that decodes a Brotli stream
// incrementally.
func NewBrotliReader(src io.Reader, size int) io.Reader {
	return newSizedReader("brotli", brotli.NewReader(src), nil, size, nil)
}

// Stored copies src unchanged: size bytes, or everything for a negative size.
func Stored(src io.Reader, size int) ([]byte, error) {
	return readSized("none", src, nil, size)
}

// NewStoredReader returns src bounded to size bytes.
func NewStoredReader(src io.Reader, size int) io.Reader {
	return newSizedReader("none", src, nil, size, nil)
}
