// Package compression decodes the LZ and run-length formats found in game
// and visual novel archives, and adapts established codecs (zlib, zstd, LZ4,
// Snappy, Brotli, JPEG 2000) to the same conventions.
//
// Every decoder takes the compressed input and the declared output size, or
// -1 if the stream marks its own end. Output never exceeds the declared size.
// A stream that ends early returns the bytes decoded so far with
// ErrEndOfStream. Output returned with ErrCorruptStream must not be used.
// Each format has a one-shot Decompress function and a streaming
// Reader, and the registry looks both up by method name.
package compression

import (
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vncodec/bitstream"
)

// Decode errors. Every decoder reports one of these, usually wrapped in a
// *DecodeError; use errors.Is to classify.
var (
	// ErrEndOfStream means the input ran out before the declared output size
	// was produced. The bytes decoded so far are returned alongside it.
	ErrEndOfStream = errors.New("compression: unexpected end of stream")

	// ErrCorruptStream means the input contains a value the format cannot
	// produce: a back-reference before the start of output, an invalid
	// control code, or a field out of range.
	ErrCorruptStream = errors.New("compression: corrupt stream")

	// ErrUnsupportedVariant means the requested method or variant is not
	// implemented. No output is returned with it.
	ErrUnsupportedVariant = errors.New("compression: unsupported variant")

	// ErrInvalidParams is returned for variant parameters that are
	// inconsistent, such as a length field wider than its code word.
	ErrInvalidParams = errors.New("compression: invalid parameters")
)

// DecodeError describes where a decode stopped.
type DecodeError struct {
	Method  string // decoder name, e.g. "lzss"
	Offset  int64  // input bytes consumed
	Written int64  // output bytes produced
	Err     error  // one of the sentinel errors, possibly wrapped
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v (input offset %d, %d bytes written)", e.Method, e.Err, e.Offset, e.Written)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// errEndMarker is returned by unit decoders that read an explicit end code.
var errEndMarker = errors.New("compression: end marker")

// corruptf returns an ErrCorruptStream with detail.
func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptStream, fmt.Sprintf(format, args...))
}

// truncated maps a read error inside a unit onto ErrEndOfStream. Errors that
// are not end-of-input are returned unchanged.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, bitstream.ErrEndOfStream) {
		return ErrEndOfStream
	}
	return err
}

// atBoundary maps a read error at the start of a unit. End of input there is
// a clean stop, reported as io.EOF.
func atBoundary(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, bitstream.ErrEndOfStream) {
		return io.EOF
	}
	return err
}
