package compression

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// Nintendo container magic bytes.
const (
	MagicLZ10 = 0x10
	MagicLZ11 = 0x11
)

// readNintendoHeader reads the 4-byte container header: a magic byte and a
// 24-bit little-endian size. LZ11 allows a zero size followed by a 32-bit
// size.
func readNintendoHeader(src byteio.Source) (magic byte, size int, err error) {
	var buf [4]byte
	if _, err := io.ReadFull(src, buf[:]); err != nil {
		return 0, 0, truncated(err)
	}
	hdr := byteio.NewReader(buf[:])
	magic, _ = hdr.ReadByte()
	if magic != MagicLZ10 && magic != MagicLZ11 {
		return 0, 0, fmt.Errorf("%w: nintendo magic 0x%02x", ErrUnsupportedVariant, magic)
	}
	lo, _ := hdr.ReadUint16()
	hi, _ := hdr.ReadByte()
	size = int(lo) | int(hi)<<16
	if size == 0 && magic == MagicLZ11 {
		if _, err := io.ReadFull(src, buf[:]); err != nil {
			return 0, 0, truncated(err)
		}
		hdr.Reset(buf[:])
		ext, _ := hdr.ReadUint32()
		if uint64(ext) > math.MaxInt {
			return 0, 0, fmt.Errorf("%w: nintendo size %d", ErrCorruptStream, ext)
		}
		size = int(ext)
	}
	return magic, size, nil
}

// nintendoSize caps the header size at a caller-declared size.
func nintendoSize(hdr, size int) int {
	if size >= 0 && size < hdr {
		return size
	}
	return hdr
}

// DecompressNintendo decodes an LZ10 or LZ11 payload with its container
// header. The size in the header is the output size; a non-negative size
// argument only shortens it.
func DecompressNintendo(src io.Reader, size int) ([]byte, error) {
	s := byteio.NewSource(src)
	magic, n, err := readNintendoHeader(s)
	if err != nil {
		return nil, &DecodeError{Method: "nintendo", Offset: s.Offset(), Err: err}
	}
	n = nintendoSize(n, size)
	if magic == MagicLZ10 {
		return DecompressLZSS(s, n, PlainLZSS())
	}
	return DecompressLZ11(s, n)
}

// NewNintendoReader returns a Reader for an LZ10 or LZ11 payload with its
// container header. The header is read on creation.
func NewNintendoReader(src io.Reader, size int) *Reader {
	s := byteio.NewSource(src)
	magic, n, err := readNintendoHeader(s)
	if err != nil {
		return errReader("nintendo", &DecodeError{Method: "nintendo", Offset: s.Offset(), Err: err})
	}
	n = nintendoSize(n, size)
	if magic == MagicLZ10 {
		return NewLZSSReader(s, n, PlainLZSS())
	}
	return NewLZ11Reader(s, n)
}

// CompressNintendo encodes src as LZ10 or LZ11 with a container header.
func CompressNintendo(src []byte, magic byte) ([]byte, error) {
	var body []byte
	switch magic {
	case MagicLZ10:
		b, err := CompressLZSS(src, PlainLZSS())
		if err != nil {
			return nil, err
		}
		body = b
	case MagicLZ11:
		body = CompressLZ11(src)
	default:
		return nil, fmt.Errorf("%w: nintendo magic 0x%02x", ErrUnsupportedVariant, magic)
	}

	n := len(src)
	var out []byte
	switch {
	case n < 1<<24 && (n > 0 || magic == MagicLZ10):
		out = append(out, magic, byte(n), byte(n>>8), byte(n>>16))
	case magic == MagicLZ11:
		out = append(out, magic, 0, 0, 0)
		out = binary.LittleEndian.AppendUint32(out, uint32(n))
	default:
		return nil, fmt.Errorf("%w: %d bytes exceed the LZ10 size field", ErrInvalidParams, n)
	}
	return append(out, body...), nil
}
