package compression

import (
	"errors"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// RLE compression errors
var (
	ErrRLECorrupted = fmt.Errorf("%w: bad RLE data", ErrCorruptStream)
	ErrRLEOverflow  = fmt.Errorf("%w: RLE decompressed size overflow", ErrCorruptStream)
)

// RLE constants
const (
	// MinRunLength is the minimum run length that triggers encoding
	rleMinRunLength = 3
	// MaxRunLength is the maximum run length that can be encoded
	rleMaxRunLength = 127
)

// RLEScheme is how an RLE control byte is read.
type RLEScheme int

const (
	// SchemeSigned is PackBits: a negative count n repeats the next unit
	// -n+1 times, a non-negative count copies n+1 units.
	SchemeSigned RLEScheme = iota
	// SchemeHighBitRun: a set high bit repeats the next unit
	// (c&0x7F)+MinRun times, otherwise c+1 units are copied.
	SchemeHighBitRun
	// SchemeNested is SchemeHighBitRun where the code 0x80 starts a run of
	// runs: a pattern length byte p, a repeat byte n, then p+1 bytes that
	// are written n+1 times.
	SchemeNested
)

// RLEParams describes an RLE variant.
type RLEParams struct {
	Scheme RLEScheme
	Unit   int // bytes per unit: 1, 3 for pixel triplets, or 4
	MinRun int // run length bias for the high-bit schemes
}

// SignedRLE is the byte-wise PackBits scheme.
func SignedRLE() RLEParams { return RLEParams{Scheme: SchemeSigned, Unit: 1} }

// TripletRLE is the high-bit scheme over RGB triplets.
func TripletRLE() RLEParams { return RLEParams{Scheme: SchemeHighBitRun, Unit: 3, MinRun: 1} }

// NestedRLE is the byte-wise run-of-runs scheme.
func NestedRLE() RLEParams { return RLEParams{Scheme: SchemeNested, Unit: 1, MinRun: 1} }

func (p *RLEParams) validate() error {
	switch p.Unit {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: RLE unit of %d bytes", ErrInvalidParams, p.Unit)
	}
	if p.Scheme < SchemeSigned || p.Scheme > SchemeNested || p.MinRun < 0 {
		return fmt.Errorf("%w: RLE scheme %d, min run %d", ErrInvalidParams, p.Scheme, p.MinRun)
	}
	return nil
}

type rleDecoder struct {
	src  byteio.Source
	p    RLEParams
	unit []byte
	pat  []byte
}

func (d *rleDecoder) inputOffset() int64 { return d.src.Offset() }

func (d *rleDecoder) decodeUnit(w *window) error {
	c, err := d.src.ReadByte()
	if err != nil {
		return atBoundary(err)
	}

	var run, lits int
	switch d.p.Scheme {
	case SchemeSigned:
		if n := int(int8(c)); n < 0 {
			run = -n + 1
		} else {
			lits = n + 1
		}
	case SchemeNested:
		if c == 0x80 {
			return d.nested(w)
		}
		fallthrough
	default:
		if c&0x80 != 0 {
			run = int(c&0x7F) + d.p.MinRun
		} else {
			lits = int(c) + 1
		}
	}

	if run > 0 {
		if _, err := io.ReadFull(d.src, d.unit); err != nil {
			return truncated(err)
		}
		w.repeat(d.unit, run)
		return nil
	}
	for ; lits > 0; lits-- {
		if _, err := io.ReadFull(d.src, d.unit); err != nil {
			return truncated(err)
		}
		w.putBytes(d.unit)
	}
	return nil
}

func (d *rleDecoder) nested(w *window) error {
	var hdr [2]byte
	if _, err := io.ReadFull(d.src, hdr[:]); err != nil {
		return truncated(err)
	}
	pat := d.pat[:int(hdr[0])+1]
	if _, err := io.ReadFull(d.src, pat); err != nil {
		return truncated(err)
	}
	w.repeat(pat, int(hdr[1])+1)
	return nil
}

func newRLEDecoder(src io.Reader, p RLEParams) *rleDecoder {
	return &rleDecoder{src: byteio.NewSource(src), p: p, unit: make([]byte, p.Unit), pat: make([]byte, 256)}
}

// DecompressRLE decodes an RLE stream of the variant p.
func DecompressRLE(src io.Reader, size int, p RLEParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return decodeAll("rle", newRLEDecoder(src, p), newWindow(size, 0, -1))
}

// NewRLEReader returns a Reader that decodes an RLE stream incrementally.
func NewRLEReader(src io.Reader, size int, p RLEParams) *Reader {
	if err := p.validate(); err != nil {
		return errReader("rle", err)
	}
	return newReader("rle", newRLEDecoder(src, p), size, 1, -1)
}

// RLEDecompressTo decodes a PackBits stream into dst, which must be exactly
// the decompressed size. Unlike DecompressRLE it rejects input that does
// not end exactly where dst is filled.
func RLEDecompressTo(src []byte, dst []byte) error {
	if len(src) == 0 {
		if len(dst) != 0 {
			return ErrRLECorrupted
		}
		return nil
	}
	r := byteio.NewReader(src)
	w := &window{buf: dst[:0], limit: int64(len(dst)), fill: -1}
	if _, err := decodeAll("rle", newRLEDecoder(r, SignedRLE()), w); err != nil {
		if errors.Is(err, ErrEndOfStream) {
			return ErrRLECorrupted
		}
		return err
	}
	if w.clipped || r.Len() != 0 {
		return ErrRLEOverflow
	}
	return nil
}

// RLEDecompress decodes a PackBits stream of exactly expectedSize bytes.
func RLEDecompress(src []byte, expectedSize int) ([]byte, error) {
	if len(src) == 0 {
		if expectedSize != 0 {
			return nil, ErrRLECorrupted
		}
		return nil, nil
	}
	dst := make([]byte, expectedSize)
	if err := RLEDecompressTo(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// RLECompress compresses data with the byte-wise PackBits scheme.
//
//	[A, A, A, A, B, C, D] -> [-3, A, 2, B, C, D]
//	(4 copies of A, then 3 literal bytes B, C, D)
func RLECompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	out, _ := CompressRLE(src, SignedRLE())
	return out
}

// CompressRLE encodes src for the variant p. A trailing partial unit is
// zero-padded; decode with the original length to drop the padding. The
// nested scheme is written without run-of-runs codes.
func CompressRLE(src []byte, p RLEParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	u := p.Unit
	if rem := len(src) % u; rem != 0 {
		padded := make([]byte, len(src)+u-rem)
		copy(padded, src)
		src = padded
	}
	units := len(src) / u
	same := func(i, j int) bool {
		for k := 0; k < u; k++ {
			if src[i*u+k] != src[j*u+k] {
				return false
			}
		}
		return true
	}

	maxRun := rleMaxRunLength + 1
	minRun := rleMinRunLength
	if p.Scheme != SchemeSigned {
		maxRun = 0x7F + p.MinRun
		minRun = max(2, p.MinRun)
		if p.Scheme == SchemeNested {
			// code 0x80 is the run-of-runs escape
			minRun = max(minRun, p.MinRun+1)
		}
	}
	runCode := func(n int) byte {
		if p.Scheme == SchemeSigned {
			return byte(-(n - 1))
		}
		return 0x80 | byte(n-p.MinRun)
	}

	dst := make([]byte, 0, len(src)+len(src)/2)
	for i := 0; i < units; {
		run := 1
		for i+run < units && run < maxRun && same(i, i+run) {
			run++
		}
		if run >= minRun {
			dst = append(dst, runCode(run))
			dst = append(dst, src[i*u:(i+1)*u]...)
			i += run
			continue
		}

		start := i
		for i < units && i-start < rleMaxRunLength+1 {
			if i+minRun <= units {
				r := 1
				for r < minRun && same(i, i+r) {
					r++
				}
				if r == minRun {
					break
				}
			}
			i++
		}
		dst = append(dst, byte(i-start-1))
		dst = append(dst, src[start*u:i*u]...)
	}
	return dst, nil
}
