package compression

import (
	"io"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

const pk02MaxDist = 0x800

// pk02Decoder decodes the PK02 stream used by Metal Slug 3D archives.
//
// Control bits are taken MSB-first from control bytes that sit inline with
// the data; a new control byte is read only when the next bit is needed.
//
//	1           literal byte
//	0 0 l l     short match: distance 0x100-b, length ll+2
//	0 1         long match: w = b1<<8|b2, distance 0x800-(w>>5),
//	            length (w&0x1F)+2, or b3+1 when w&0x1F is zero
//
// A distance reaching before the start of output is clamped to the start;
// with no output yet the match produces zeros. The stream has no end code, so
// input that ends before a unit's first data byte ends the stream; the
// leftover control bits are padding.
type pk02Decoder struct {
	src   byteio.Source
	ctrl  byte
	nctrl int
}

func (d *pk02Decoder) inputOffset() int64 { return d.src.Offset() }

func (d *pk02Decoder) bit() (byte, error) {
	if d.nctrl == 0 {
		c, err := d.src.ReadByte()
		if err != nil {
			return 0, err
		}
		d.ctrl, d.nctrl = c, 8
	}
	b := d.ctrl >> 7
	d.ctrl <<= 1
	d.nctrl--
	return b, nil
}

func (d *pk02Decoder) decodeUnit(w *window) error {
	flag, err := d.bit()
	if err != nil {
		return atBoundary(err)
	}
	if flag == 1 {
		b, err := d.src.ReadByte()
		if err != nil {
			return atBoundary(err)
		}
		w.putByte(b)
		return nil
	}

	long, err := d.bit()
	if err != nil {
		return atBoundary(err)
	}

	var dist, length int
	if long == 0 {
		var n int
		for i := 0; i < 2; i++ {
			b, err := d.bit()
			if err != nil {
				return atBoundary(err)
			}
			n = n<<1 | int(b)
		}
		b, err := d.src.ReadByte()
		if err != nil {
			return atBoundary(err)
		}
		dist = 0x100 - int(b)
		length = n + 2
	} else {
		var code [2]byte
		if _, err := io.ReadFull(d.src, code[:]); err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return truncated(err)
		}
		word := int(code[0])<<8 | int(code[1])
		dist = pk02MaxDist - word>>5
		if n := word & 0x1F; n != 0 {
			length = n + 2
		} else {
			b, err := d.src.ReadByte()
			if err != nil {
				return truncated(err)
			}
			length = int(b) + 1
		}
	}

	if int64(dist) > w.pos {
		if w.pos == 0 {
			w.repeat([]byte{0}, length)
			return nil
		}
		dist = int(w.pos)
	}
	return w.copyBack(dist, length)
}

// DecompressPK02 decodes a PK02 payload (the bytes after the 16-byte PK02
// header). End-of-input handling follows the observed decoder: whatever was
// produced before the input ran out is returned, with ErrEndOfStream.
func DecompressPK02(src io.Reader, size int) ([]byte, error) {
	d := &pk02Decoder{src: byteio.NewSource(src)}
	return decodeAll("pk02", d, newWindow(size, 0, -1))
}

// NewPK02Reader returns a Reader that decodes a PK02 payload incrementally.
func NewPK02Reader(src io.Reader, size int) *Reader {
	d := &pk02Decoder{src: byteio.NewSource(src)}
	return newReader("pk02", d, size, pk02MaxDist, -1)
}
