package compression

import (
	"io"
	"math"
	"slices"
)

// window is the output side of a decode: the bytes produced so far, or the
// part of them a back-reference can still reach.
//
// A one-shot decode keeps everything and the buffer becomes the result. The
// streaming Reader drains the buffer through next and calls compact between
// units, which drops history older than keep bytes.
type window struct {
	buf   []byte
	rd    int   // bytes of buf already handed to a reader
	pos   int64 // total bytes produced
	limit int64 // declared output size, or -1 if unknown
	keep  int   // history retained by compact
	fill  int   // byte for references before the start, or -1 to reject them

	clipped bool // a unit was cut short by the declared size
}

// maxPrealloc caps buffers sized from a declared output size, which often
// comes from the payload itself. Larger outputs grow by append.
const maxPrealloc = 1 << 20

func preallocSize(size int) int {
	return max(min(size, maxPrealloc), 0)
}

func newWindow(size int, keep int, fill int) *window {
	w := &window{limit: int64(size), keep: keep, fill: fill}
	if size < 0 {
		w.limit = -1
	}
	if keep == 0 && size > 0 {
		w.buf = make([]byte, 0, preallocSize(size))
	}
	return w
}

// full reports whether the declared size has been produced.
func (w *window) full() bool {
	return w.limit >= 0 && w.pos >= w.limit
}

// room returns how many more bytes may be written.
func (w *window) room() int {
	if w.limit < 0 {
		return math.MaxInt
	}
	return int(w.limit - w.pos)
}

func (w *window) putByte(b byte) {
	if w.full() {
		w.clipped = true
		return
	}
	w.buf = append(w.buf, b)
	w.pos++
}

// putBytes appends p, clamped to the declared size.
func (w *window) putBytes(p []byte) {
	if n := w.room(); len(p) > n {
		p = p[:n]
		w.clipped = true
	}
	w.buf = append(w.buf, p...)
	w.pos += int64(len(p))
}

// repeat appends n copies of p, clamped to the declared size.
func (w *window) repeat(p []byte, n int) {
	for ; n > 0; n-- {
		if w.full() {
			w.clipped = true
			return
		}
		w.putBytes(p)
	}
}

// copyBack appends a match of length n starting dist bytes behind the write
// position. Bytes before the start of output come from the fill byte when
// the variant defines one.
func (w *window) copyBack(dist, n int) error {
	if dist < 1 {
		return corruptf("distance %d", dist)
	}
	if r := w.room(); n > r {
		n = r
		w.clipped = true
	}
	if n <= 0 {
		return nil
	}

	if int64(dist) > w.pos {
		if w.fill < 0 {
			return corruptf("distance %d at output position %d", dist, w.pos)
		}
		pre := int(int64(dist) - w.pos)
		if pre > n {
			pre = n
		}
		for i := 0; i < pre; i++ {
			w.buf = append(w.buf, byte(w.fill))
		}
		w.pos += int64(pre)
		n -= pre
		if n == 0 {
			return nil
		}
	}
	if dist > len(w.buf) {
		return corruptf("distance %d exceeds window of %d bytes", dist, len(w.buf))
	}

	start := len(w.buf)
	w.buf = slices.Grow(w.buf, n)[:start+n]
	CopyOverlapped(w.buf, start-dist, start, n)
	w.pos += int64(n)
	return nil
}

// pending returns the bytes not yet handed to a reader.
func (w *window) pending() []byte {
	return w.buf[w.rd:]
}

// next copies pending bytes into p.
func (w *window) next(p []byte) int {
	n := copy(p, w.buf[w.rd:])
	w.rd += n
	return n
}

// compact drops delivered history beyond keep bytes.
func (w *window) compact() {
	drop := w.rd - w.keep
	if drop <= 0 || drop < len(w.buf)/2 {
		return
	}
	n := copy(w.buf, w.buf[drop:])
	w.buf = w.buf[:n]
	w.rd -= drop
}

// unitDecoder decodes a compressed stream one unit at a time: a literal, a
// match, a run, or whatever the format's smallest self-contained step is.
//
// decodeUnit returns io.EOF when the input ends cleanly before a unit starts,
// errEndMarker when the stream carries an explicit end code, and any other
// error when the stream is truncated or corrupt. A unit may stop early once
// the window is full.
type unitDecoder interface {
	decodeUnit(w *window) error
	inputOffset() int64
}

// decodeAll runs d until the window is full or the input ends.
func decodeAll(method string, d unitDecoder, w *window) ([]byte, error) {
	for !w.full() {
		if err := d.decodeUnit(w); err != nil {
			if err == errEndMarker || (err == io.EOF && w.limit < 0) {
				break
			}
			if err == io.EOF {
				err = ErrEndOfStream
			}
			return w.buf, &DecodeError{Method: method, Offset: d.inputOffset(), Written: w.pos, Err: err}
		}
	}
	return w.buf, nil
}
