package compression

import (
	"errors"
	"fmt"
	"io"
)

// Reader streams the output of a decoder. It decodes only as many units as
// needed to satisfy each Read and retains just enough history for the
// format's back-references.
//
// A Reader is itself an io.Reader, so it can be the source of another
// decoder. That is how two-stage formats (LZSS output that is itself RLE
// encoded, for example) are decoded without materialising the middle stage.
type Reader struct {
	method string
	dec    unitDecoder
	win    *window
	err    error
}

func newReader(method string, dec unitDecoder, size, keep, fill int) *Reader {
	if keep < 1 {
		keep = 1
	}
	return &Reader{method: method, dec: dec, win: newWindow(size, keep, fill)}
}

// errReader returns a Reader that fails every read with err.
func errReader(method string, err error) *Reader {
	return &Reader{method: method, err: err, win: newWindow(0, 1, -1)}
}

// Read implements io.Reader. It returns io.EOF once the declared size has
// been produced, or, for an unknown size, once the input ends on a unit
// boundary. Truncated input is reported as ErrEndOfStream.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.win.pending()) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		if r.win.full() {
			r.err = io.EOF
			continue
		}
		r.win.compact()
		if err := r.dec.decodeUnit(r.win); err != nil {
			r.err = r.fail(err)
		}
	}
	return r.win.next(p), nil
}

func (r *Reader) fail(err error) error {
	switch {
	case err == errEndMarker:
		return io.EOF
	case err == io.EOF && r.win.limit < 0:
		return io.EOF
	case err == io.EOF:
		err = ErrEndOfStream
	}
	var de *DecodeError
	if errors.As(err, &de) {
		// Error from an upstream Reader feeding this one.
		return fmt.Errorf("%s: %w", r.method, err)
	}
	return &DecodeError{Method: r.method, Offset: r.dec.inputOffset(), Written: r.win.pos, Err: err}
}

// Written returns the number of bytes decoded so far.
func (r *Reader) Written() int64 {
	return r.win.pos
}
