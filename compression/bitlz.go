package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/icza/bitio"

	"github.com/mrjoshuak/go-vncodec/bitstream"
)

// BitLZParams describes an LZSS variant whose flags and fields are packed in
// a continuous bitstream instead of control bytes. A 1 flag is followed by an
// 8-bit literal; a 0 flag by an absolute ring position and a length.
type BitLZParams struct {
	Order      bitstream.Order
	OffsetBits uint
	LengthBits uint
	MinMatch   int
	RingSize   int
	RingStart  int
	RingFill   byte
	// EndOnZero treats ring position 0 as the end of the stream.
	EndOnZero bool
}

// BitLZ13 is the layout of Touhou archive entries: MSB-first, an 8 KiB ring
// with the first write at 1, 13-bit positions, 4-bit lengths plus 3, and
// position 0 as the end marker.
func BitLZ13() BitLZParams {
	return BitLZParams{
		Order:      bitstream.MSBFirst,
		OffsetBits: 13,
		LengthBits: 4,
		MinMatch:   3,
		RingSize:   1 << 13,
		RingStart:  1,
		EndOnZero:  true,
	}
}

func (p *BitLZParams) validate() error {
	if p.OffsetBits == 0 || p.OffsetBits > 24 || p.LengthBits == 0 || p.LengthBits > 16 {
		return fmt.Errorf("%w: %d offset bits, %d length bits", ErrInvalidParams, p.OffsetBits, p.LengthBits)
	}
	if p.RingSize <= 0 || p.RingSize > 1<<p.OffsetBits || p.RingStart < 0 || p.RingStart >= p.RingSize {
		return fmt.Errorf("%w: ring of %d bytes starting at %d", ErrInvalidParams, p.RingSize, p.RingStart)
	}
	if p.MinMatch < 0 {
		return fmt.Errorf("%w: negative minimum match", ErrInvalidParams)
	}
	return nil
}

type bitLZDecoder struct {
	br *bitstream.Reader
	p  BitLZParams
}

func (d *bitLZDecoder) inputOffset() int64 { return d.br.Consumed() }

// The last byte of a bitstream is zero-padded, so a unit that runs out of
// bits, or reads padding, ends the stream instead of corrupting it.
func (d *bitLZDecoder) decodeUnit(w *window) error {
	flag, err := d.br.ReadBit()
	if err != nil {
		return atBoundary(err)
	}
	if flag == 1 {
		b, err := d.br.ReadBits(8)
		if err != nil {
			return atBoundary(err)
		}
		if d.br.Exhausted() {
			return io.EOF
		}
		w.putByte(byte(b))
		return nil
	}

	off, err := d.br.ReadBits(d.p.OffsetBits)
	if err != nil {
		return atBoundary(err)
	}
	if d.br.Exhausted() {
		return io.EOF
	}
	if d.p.EndOnZero && off == 0 {
		return errEndMarker
	}
	lf, err := d.br.ReadBits(d.p.LengthBits)
	if err != nil {
		return atBoundary(err)
	}
	if d.br.Exhausted() {
		return io.EOF
	}

	n := d.p.RingSize
	cur := int((int64(d.p.RingStart) + w.pos) % int64(n))
	dist := (cur - int(off)%n + n) % n
	if dist == 0 {
		dist = n
	}
	return w.copyBack(dist, int(lf)+d.p.MinMatch)
}

func newBitLZDecoder(src io.Reader, p BitLZParams) *bitLZDecoder {
	return &bitLZDecoder{br: bitstream.NewReader(src, p.Order), p: p}
}

// DecompressBitLZ decodes size bytes of a bitstream LZ stream, or until the
// end marker or the end of input when size is negative.
func DecompressBitLZ(src io.Reader, size int, p BitLZParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return decodeAll("bitlz", newBitLZDecoder(src, p), newWindow(size, 0, int(p.RingFill)))
}

// NewBitLZReader returns a Reader that decodes a bitstream LZ stream
// incrementally.
func NewBitLZReader(src io.Reader, size int, p BitLZParams) *Reader {
	if err := p.validate(); err != nil {
		return errReader("bitlz", err)
	}
	return newReader("bitlz", newBitLZDecoder(src, p), size, p.RingSize, int(p.RingFill))
}

// CompressBitLZ encodes src for an MSB-first variant. When the variant has
// an end marker it is written after the last unit.
func CompressBitLZ(src []byte, p BitLZParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Order != bitstream.MSBFirst {
		return nil, fmt.Errorf("%w: bitstream LZ encoder is MSB-first only", ErrUnsupportedVariant)
	}

	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	maxLen := 1<<p.LengthBits - 1 + p.MinMatch
	mf := newMatchFinder(src, p.MinMatch, maxLen, p.RingSize-1)

	for pos := 0; pos < len(src); {
		length, dist := mf.find(pos)
		off := (p.RingStart + pos - dist) % p.RingSize
		if length == 0 || (p.EndOnZero && off == 0) {
			bw.TryWriteBool(true)
			bw.TryWriteBits(uint64(src[pos]), 8)
			mf.skip(pos, 1)
			pos++
			continue
		}
		bw.TryWriteBool(false)
		bw.TryWriteBits(uint64(off), uint8(p.OffsetBits))
		bw.TryWriteBits(uint64(length-p.MinMatch), uint8(p.LengthBits))
		mf.skip(pos, length)
		pos += length
	}
	if p.EndOnZero {
		bw.TryWriteBool(false)
		bw.TryWriteBits(0, uint8(p.OffsetBits))
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	if bw.TryError != nil {
		return nil, bw.TryError
	}
	return buf.Bytes(), nil
}
