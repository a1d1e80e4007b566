package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// FLevel is the 2-bit compression level category from a zlib header.
type FLevel int

const (
	FLevelFastest FLevel = 0 // levels -2, 0, 1
	FLevelFast    FLevel = 1 // levels 2 to 5
	FLevelDefault FLevel = 2 // levels 6, -1
	FLevelBest    FLevel = 3 // levels 7 to 9
)

// DetectZlibFLevel validates a zlib header and extracts its FLEVEL. It
// returns false if data is too short or is not a deflate zlib header.
func DetectZlibFLevel(data []byte) (FLevel, bool) {
	hdr, err := byteio.NewReader(data).ReadUint16BE()
	if err != nil {
		return 0, false
	}
	if hdr>>8&0x0f != 8 || hdr%31 != 0 {
		return 0, false
	}
	return FLevel(hdr >> 6 & 3), true
}

// Pool for zlib writers; each item keeps its destination buffer.
type zlibWriterPoolItem struct {
	writer *zlib.Writer
	buf    *bytes.Buffer
}

var zlibWriterPool = sync.Pool{
	New: func() any {
		buf := new(bytes.Buffer)
		w, _ := zlib.NewWriterLevel(buf, zlib.DefaultCompression)
		return &zlibWriterPoolItem{writer: w, buf: buf}
	},
}

// ZlibCompress compresses src as a zlib stream at the default level.
func ZlibCompress(src []byte) ([]byte, error) {
	item := zlibWriterPool.Get().(*zlibWriterPoolItem)
	defer zlibWriterPool.Put(item)
	item.buf.Reset()
	item.writer.Reset(item.buf)

	if _, err := item.writer.Write(src); err != nil {
		item.writer.Close()
		return nil, err
	}
	if err := item.writer.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(item.buf.Bytes()), nil
}

// zlibReaders holds decompressors between calls; state is reset per call.
var zlibReaders sync.Pool

func openZlib(src byteio.Source) (io.ReadCloser, error) {
	hdr, _ := src.Peek(2)
	if _, ok := DetectZlibFLevel(hdr); !ok {
		if len(hdr) < 2 {
			return nil, ErrEndOfStream
		}
		return nil, corruptf("bad zlib header %x", hdr)
	}

	if zr, ok := zlibReaders.Get().(io.ReadCloser); ok {
		if rs, ok := zr.(zlib.Resetter); ok && rs.Reset(src, nil) == nil {
			return zr, nil
		}
	}
	zr, err := zlib.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}
	return zr, nil
}

// DecompressZlib decodes a zlib stream. The header is checked before any
// decoder state is set up.
func DecompressZlib(src io.Reader, size int) ([]byte, error) {
	s := byteio.NewSource(src)
	zr, err := openZlib(s)
	if err != nil {
		return nil, &DecodeError{Method: "zlib", Offset: s.Offset(), Err: err}
	}
	defer zlibReaders.Put(zr)
	return readSized("zlib", zr, s, size)
}

// NewZlibReader returns a reader that decodes a zlib stream incrementally.
func NewZlibReader(src io.Reader, size int) io.Reader {
	s := byteio.NewSource(src)
	zr, err := openZlib(s)
	if err != nil {
		return errReader("zlib", &DecodeError{Method: "zlib", Offset: s.Offset(), Err: err})
	}
	return newSizedReader("zlib", zr, s, size, func() { zlibReaders.Put(zr) })
}
