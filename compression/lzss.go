package compression

import (
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vncodec/bitstream"
	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// PairLayout is how an LZSS match code packs its offset and length into two
// bytes.
type PairLayout int

const (
	// PairSplitNibble: offset = b0 | (b1>>4)<<8, length = b1&0x0F.
	PairSplitNibble PairLayout = iota
	// PairWordLE: a little-endian 16-bit word split by LengthHigh/LengthBits.
	PairWordLE
	// PairWordBE: a big-endian 16-bit word split by LengthHigh/LengthBits.
	PairWordBE
)

// PreStartPolicy decides what a back-reference to before the start of the
// output produces.
type PreStartPolicy int

const (
	PreStartError PreStartPolicy = iota // the stream is corrupt
	PreStartFill                        // the bytes read as FillByte
)

// LZSSParams describes one LZSS variant. Engines that share the algorithm
// differ only in these constants, so a format decoder picks a preset or fills
// in its own.
type LZSSParams struct {
	// FlagOrder is the order in which the 8 bits of a control byte are used.
	FlagOrder bitstream.Order
	// LiteralFlag is the control bit value that marks a literal byte.
	LiteralFlag uint8

	Pair       PairLayout
	LengthHigh bool // word layouts: the length field is the top bits
	LengthBits uint // width of the length field; 0 means 4

	// MinMatch is added to the length field.
	MinMatch int
	// DistanceBias is added to the offset field of relative variants: 0 for
	// "offset bytes back", 1 for "offset+1 bytes back".
	DistanceBias int

	// Ring selects absolute addressing into a RingSize ring whose first
	// write position is RingStart and whose initial contents are RingFill.
	Ring      bool
	RingSize  int
	RingStart int
	RingFill  byte

	PreStart PreStartPolicy
	FillByte byte

	// When Escape is set and the length field equals EscapeCode, the next
	// input byte plus EscapeBase is the match length.
	Escape     bool
	EscapeCode uint32
	EscapeBase int

	// EndOnZero treats an all-zero match code as the end of the stream.
	EndOnZero bool
}

// PlainLZSS is the big-endian 4/12 layout used by Nintendo LZ10 payloads:
// MSB-first flags with 0 for a literal, length in the top nibble plus 3, and
// distance equal to the offset field plus one.
func PlainLZSS() LZSSParams {
	return LZSSParams{
		FlagOrder:    bitstream.MSBFirst,
		LiteralFlag:  0,
		Pair:         PairWordBE,
		LengthHigh:   true,
		LengthBits:   4,
		MinMatch:     3,
		DistanceBias: 1,
	}
}

// RingLZSS is Okumura's LZSS: a 4 KiB zero-filled ring with the first write
// at 0xFEE, LSB-first flags with 1 for a literal, and absolute 12-bit ring
// positions.
func RingLZSS() LZSSParams {
	return LZSSParams{
		FlagOrder:   bitstream.LSBFirst,
		LiteralFlag: 1,
		Pair:        PairSplitNibble,
		LengthBits:  4,
		MinMatch:    3,
		Ring:        true,
		RingSize:    4096,
		RingStart:   0xFEE,
	}
}

// LZSS8 is the "LZSS:8bit" layout: LSB-first flags with 1 for a literal,
// split-nibble relative distances, and spaces for bytes before the start.
func LZSS8() LZSSParams {
	return LZSSParams{
		FlagOrder:   bitstream.LSBFirst,
		LiteralFlag: 1,
		Pair:        PairSplitNibble,
		LengthBits:  4,
		MinMatch:    3,
		PreStart:    PreStartFill,
		FillByte:    0x20,
	}
}

// PCMPLZSS is the PCMP texture layout: MSB-first flags with 1 for a match, a
// little-endian word with the length in the low nibble plus 3, distance equal
// to the offset plus one, and zeros before the start.
func PCMPLZSS() LZSSParams {
	return LZSSParams{
		FlagOrder:    bitstream.MSBFirst,
		LiteralFlag:  0,
		Pair:         PairWordLE,
		LengthBits:   4,
		MinMatch:     3,
		DistanceBias: 1,
		PreStart:     PreStartFill,
	}
}

func (p *LZSSParams) lengthBits() uint {
	if p.LengthBits == 0 {
		return 4
	}
	return p.LengthBits
}

func (p *LZSSParams) offsetBits() uint {
	if p.Pair == PairSplitNibble {
		return 12
	}
	return 16 - p.lengthBits()
}

func (p *LZSSParams) validate() error {
	lb := p.lengthBits()
	if p.Pair == PairSplitNibble && lb != 4 {
		return fmt.Errorf("%w: split-nibble pairs have a 4-bit length", ErrInvalidParams)
	}
	if lb >= 16 {
		return fmt.Errorf("%w: length field of %d bits", ErrInvalidParams, lb)
	}
	if p.LiteralFlag > 1 {
		return fmt.Errorf("%w: literal flag %d", ErrInvalidParams, p.LiteralFlag)
	}
	if p.MinMatch < 0 || p.DistanceBias < 0 || p.EscapeBase < 0 {
		return fmt.Errorf("%w: negative length or distance bias", ErrInvalidParams)
	}
	if p.Ring && (p.RingSize <= 0 || p.RingSize > 1<<p.offsetBits() || p.RingStart < 0 || p.RingStart >= p.RingSize) {
		return fmt.Errorf("%w: ring of %d bytes starting at %d", ErrInvalidParams, p.RingSize, p.RingStart)
	}
	return nil
}

// maxDistance is the largest back-reference the variant can express, which
// is also the history a streaming decoder must keep.
func (p *LZSSParams) maxDistance() int {
	if p.Ring {
		return p.RingSize
	}
	return 1<<p.offsetBits() - 1 + p.DistanceBias
}

func (p *LZSSParams) fill() int {
	switch {
	case p.Ring:
		return int(p.RingFill)
	case p.PreStart == PreStartFill:
		return int(p.FillByte)
	default:
		return -1
	}
}

// split returns the offset and length fields of a match code.
func (p *LZSSParams) split(b0, b1 byte) (off, length uint32) {
	if p.Pair == PairSplitNibble {
		return uint32(b0) | uint32(b1>>4)<<8, uint32(b1 & 0x0F)
	}
	word := uint32(b0) | uint32(b1)<<8
	if p.Pair == PairWordBE {
		word = uint32(b0)<<8 | uint32(b1)
	}
	lb := p.lengthBits()
	if p.LengthHigh {
		return word & (1<<(16-lb) - 1), word >> (16 - lb)
	}
	return word >> lb, word & (1<<lb - 1)
}

// join is the inverse of split.
func (p *LZSSParams) join(off, length uint32) (b0, b1 byte) {
	if p.Pair == PairSplitNibble {
		return byte(off), byte(off>>8)<<4 | byte(length)
	}
	lb := p.lengthBits()
	var word uint32
	if p.LengthHigh {
		word = length<<(16-lb) | off
	} else {
		word = off<<lb | length
	}
	if p.Pair == PairWordBE {
		return byte(word >> 8), byte(word)
	}
	return byte(word), byte(word >> 8)
}

type lzssDecoder struct {
	src   byteio.Source
	p     LZSSParams
	ctrl  byte
	nctrl int
}

func (d *lzssDecoder) inputOffset() int64 { return d.src.Offset() }

func (d *lzssDecoder) flag() (bool, error) {
	if d.nctrl == 0 {
		c, err := d.src.ReadByte()
		if err != nil {
			return false, atBoundary(err)
		}
		d.ctrl, d.nctrl = c, 8
	}
	var bit byte
	if d.p.FlagOrder == bitstream.MSBFirst {
		bit = d.ctrl >> 7
		d.ctrl <<= 1
	} else {
		bit = d.ctrl & 1
		d.ctrl >>= 1
	}
	d.nctrl--
	return bit == d.p.LiteralFlag, nil
}

func (d *lzssDecoder) decodeUnit(w *window) error {
	literal, err := d.flag()
	if err != nil {
		return err
	}
	b0, err := d.src.ReadByte()
	if err != nil {
		return atBoundary(err)
	}
	if literal {
		w.putByte(b0)
		return nil
	}

	b1, err := d.src.ReadByte()
	if err != nil {
		return truncated(err)
	}
	if d.p.EndOnZero && b0 == 0 && b1 == 0 {
		return errEndMarker
	}

	off, lf := d.p.split(b0, b1)
	length := int(lf) + d.p.MinMatch
	if d.p.Escape && lf == d.p.EscapeCode {
		ext, err := d.src.ReadByte()
		if err != nil {
			return truncated(err)
		}
		length = int(ext) + d.p.EscapeBase
	}

	var dist int
	if d.p.Ring {
		cur := int((int64(d.p.RingStart) + w.pos) % int64(d.p.RingSize))
		dist = (cur - int(off)%d.p.RingSize + d.p.RingSize) % d.p.RingSize
		if dist == 0 {
			dist = d.p.RingSize
		}
	} else {
		dist = int(off) + d.p.DistanceBias
	}
	return w.copyBack(dist, length)
}

// DecompressLZSS decodes size bytes of an LZSS stream. A negative size
// decodes until the input ends on a unit boundary.
//
// If the input ends early, the bytes decoded so far are returned with an
// error matching ErrEndOfStream.
func DecompressLZSS(src io.Reader, size int, p LZSSParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	d := &lzssDecoder{src: byteio.NewSource(src), p: p}
	return decodeAll("lzss", d, newWindow(size, 0, p.fill()))
}

// NewLZSSReader returns a Reader that decodes an LZSS stream incrementally.
func NewLZSSReader(src io.Reader, size int, p LZSSParams) *Reader {
	if err := p.validate(); err != nil {
		return errReader("lzss", err)
	}
	d := &lzssDecoder{src: byteio.NewSource(src), p: p}
	return newReader("lzss", d, size, p.maxDistance(), p.fill())
}

// CompressLZSS encodes src for the variant p with a greedy match search. The
// output decodes back to src with DecompressLZSS(…, len(src), p).
func CompressLZSS(src []byte, p LZSSParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	lb := p.lengthBits()
	maxField := uint32(1)<<lb - 1
	maxNormal := int(maxField) + p.MinMatch
	if p.Escape && p.EscapeCode <= maxField {
		maxNormal = int(p.EscapeCode) - 1 + p.MinMatch
	}
	maxLen := maxNormal
	if p.Escape && p.EscapeBase+255 > maxLen {
		maxLen = p.EscapeBase + 255
	}
	maxDist := p.maxDistance()
	if p.Ring {
		maxDist = p.RingSize - 1
	}

	// lengthCode returns the field and optional escape byte for n.
	lengthCode := func(n int) (field uint32, ext int, ok bool) {
		if n == 0 {
			return 0, 0, false
		}
		if n >= p.MinMatch && n <= maxNormal {
			f := uint32(n - p.MinMatch)
			if !(p.Escape && f == p.EscapeCode) {
				return f, -1, true
			}
		}
		if p.Escape && n >= p.EscapeBase && n-p.EscapeBase <= 255 {
			return p.EscapeCode, n - p.EscapeBase, true
		}
		return 0, 0, false
	}

	mf := newMatchFinder(src, max(p.MinMatch, 3), maxLen, maxDist)
	e := flagWriter{order: p.FlagOrder, literal: p.LiteralFlag}
	e.out = make([]byte, 0, len(src)+len(src)/8+2)

	for pos := 0; pos < len(src); {
		length, dist := mf.find(pos)
		if length > maxNormal && length < p.EscapeBase {
			length = maxNormal
		}
		field, ext, ok := lengthCode(length)
		var b0, b1 byte
		if ok {
			off := uint32(dist - p.DistanceBias)
			if p.Ring {
				off = uint32((p.RingStart + pos - dist) % p.RingSize)
			}
			b0, b1 = p.join(off, field)
			if p.EndOnZero && b0 == 0 && b1 == 0 {
				ok = false
			}
		}
		if !ok {
			e.literalByte(src[pos])
			mf.skip(pos, 1)
			pos++
			continue
		}
		e.match(b0, b1)
		if ext >= 0 {
			e.out = append(e.out, byte(ext))
		}
		mf.skip(pos, length)
		pos += length
	}
	if p.EndOnZero {
		e.match(0, 0)
	}
	return e.out, nil
}

// flagWriter lays out control bytes followed by their units.
type flagWriter struct {
	order   bitstream.Order
	literal uint8
	out     []byte
	ctrlPos int
	nbits   int
}

func (e *flagWriter) flag(bit uint8) {
	if e.nbits == 0 {
		e.ctrlPos = len(e.out)
		e.out = append(e.out, 0)
	}
	if bit != 0 {
		if e.order == bitstream.MSBFirst {
			e.out[e.ctrlPos] |= 0x80 >> e.nbits
		} else {
			e.out[e.ctrlPos] |= 1 << e.nbits
		}
	}
	e.nbits = (e.nbits + 1) % 8
}

func (e *flagWriter) literalByte(b byte) {
	e.flag(e.literal)
	e.out = append(e.out, b)
}

func (e *flagWriter) match(b0, b1 byte) {
	e.flag(1 - e.literal)
	e.out = append(e.out, b0, b1)
}
