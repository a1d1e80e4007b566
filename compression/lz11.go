package compression

import (
	"io"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// LZ11 length tiers. The top nibble of the first match byte selects the
// tier: 0 adds one byte of length above lz11Tier1, 1 adds two bytes above
// lz11Tier2, anything else is the length itself plus one.
const (
	lz11Tier1   = 0x11
	lz11Tier2   = 0x111
	lz11MaxDist = 0x1000
	lz11MaxLen  = lz11Tier2 + 0xFFFF
)

type lz11Decoder struct {
	src   byteio.Source
	ctrl  byte
	nctrl int
}

func (d *lz11Decoder) inputOffset() int64 { return d.src.Offset() }

func (d *lz11Decoder) decodeUnit(w *window) error {
	if d.nctrl == 0 {
		c, err := d.src.ReadByte()
		if err != nil {
			return atBoundary(err)
		}
		d.ctrl, d.nctrl = c, 8
	}
	match := d.ctrl&0x80 != 0
	d.ctrl <<= 1
	d.nctrl--

	b0, err := d.src.ReadByte()
	if err != nil {
		return atBoundary(err)
	}
	if !match {
		w.putByte(b0)
		return nil
	}

	var code [4]byte
	code[0] = b0
	extra := 1
	switch b0 >> 4 {
	case 0:
		extra = 2
	case 1:
		extra = 3
	}
	if _, err := io.ReadFull(d.src, code[1:1+extra]); err != nil {
		return truncated(err)
	}

	var length int
	var disp int
	switch b0 >> 4 {
	case 0:
		length = lz11Tier1 + int(b0&0x0F)<<4 + int(code[1]>>4)
		disp = int(code[1]&0x0F)<<8 | int(code[2])
	case 1:
		length = lz11Tier2 + int(b0&0x0F)<<12 + int(code[1])<<4 + int(code[2]>>4)
		disp = int(code[2]&0x0F)<<8 | int(code[3])
	default:
		length = 1 + int(b0>>4)
		disp = int(b0&0x0F)<<8 | int(code[1])
	}
	return w.copyBack(disp+1, length)
}

// DecompressLZ11 decodes an LZ11 stream (Nintendo's extended LZ77 with three
// length tiers). The 4-byte container header, if any, must already be
// stripped; see the "nintendo" method for header-aware decoding.
func DecompressLZ11(src io.Reader, size int) ([]byte, error) {
	d := &lz11Decoder{src: byteio.NewSource(src)}
	return decodeAll("lz11", d, newWindow(size, 0, -1))
}

// NewLZ11Reader returns a Reader that decodes an LZ11 stream incrementally.
func NewLZ11Reader(src io.Reader, size int) *Reader {
	d := &lz11Decoder{src: byteio.NewSource(src)}
	return newReader("lz11", d, size, lz11MaxDist, -1)
}

// CompressLZ11 encodes src as an LZ11 stream without a header.
func CompressLZ11(src []byte) []byte {
	mf := newMatchFinder(src, 3, lz11MaxLen, lz11MaxDist)
	e := flagWriter{literal: 0}
	e.out = make([]byte, 0, len(src)+len(src)/8+2)

	for pos := 0; pos < len(src); {
		length, dist := mf.find(pos)
		if length == 0 {
			e.literalByte(src[pos])
			mf.skip(pos, 1)
			pos++
			continue
		}
		d := dist - 1
		e.flag(1)
		switch {
		case length < lz11Tier1:
			e.out = append(e.out, byte(length-1)<<4|byte(d>>8), byte(d))
		case length < lz11Tier2:
			n := length - lz11Tier1
			e.out = append(e.out, byte(n>>4), byte(n)<<4|byte(d>>8), byte(d))
		default:
			n := length - lz11Tier2
			e.out = append(e.out, 0x10|byte(n>>12), byte(n>>4), byte(n)<<4|byte(d>>8), byte(d))
		}
		mf.skip(pos, length)
		pos += length
	}
	return e.out
}
