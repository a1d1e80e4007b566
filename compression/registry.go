package compression

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Decompressor is a named decompression method. size is the expected output
// size, or -1 when the stream itself marks its end.
type Decompressor interface {
	// Decompress decodes the whole stream. On ErrEndOfStream the bytes
	// decoded so far are returned with the error.
	Decompress(src io.Reader, size int) ([]byte, error)
	// NewReader returns a reader that decodes src incrementally.
	NewReader(src io.Reader, size int) io.Reader
}

// Funcs adapts a pair of functions to a Decompressor.
type Funcs struct {
	DecompressFunc func(io.Reader, int) ([]byte, error)
	NewReaderFunc  func(io.Reader, int) io.Reader
}

func (f Funcs) Decompress(src io.Reader, size int) ([]byte, error) {
	return f.DecompressFunc(src, size)
}

// NewReader calls NewReaderFunc, or for one-shot formats decodes everything
// up front and replays the result.
func (f Funcs) NewReader(src io.Reader, size int) io.Reader {
	if f.NewReaderFunc != nil {
		return f.NewReaderFunc(src, size)
	}
	out, err := f.DecompressFunc(src, size)
	return resultReader("", out, err)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Decompressor)
)

// Register makes a method available by name, replacing any method of the
// same name.
func Register(name string, d Decompressor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = d
}

// Lookup returns the method registered as name.
func Lookup(name string) (Decompressor, error) {
	registryMu.RLock()
	d, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: method %q", ErrUnsupportedVariant, name)
	}
	return d, nil
}

// Methods returns the registered method names in sorted order.
func Methods() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Decompress decodes src with the named method.
func Decompress(method string, src io.Reader, size int) ([]byte, error) {
	d, err := Lookup(method)
	if err != nil {
		return nil, err
	}
	return d.Decompress(src, size)
}

// Stage is one step of a Pipeline.
type Stage struct {
	Method string
	Size   int // output size of this stage, or -1
}

// NewPipeline chains the stages so that each one reads the output of the
// previous. Only the innermost stage touches src, and no stage output is
// held in full.
func NewPipeline(src io.Reader, stages ...Stage) (io.Reader, error) {
	r := src
	for _, st := range stages {
		d, err := Lookup(st.Method)
		if err != nil {
			return nil, err
		}
		r = d.NewReader(r, st.Size)
	}
	return r, nil
}

// Pipeline decodes src through every stage and returns the final output.
// With no stages the input is returned unchanged.
func Pipeline(src []byte, stages ...Stage) ([]byte, error) {
	if len(stages) == 0 {
		return src, nil
	}
	r, err := NewPipeline(bytes.NewReader(src), stages...)
	if err != nil {
		return nil, err
	}
	last := stages[len(stages)-1].Size
	return readSized(stages[len(stages)-1].Method, r, nil, last)
}

func lzssMethod(p LZSSParams) Funcs {
	return Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { return DecompressLZSS(src, size, p) },
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewLZSSReader(src, size, p) },
	}
}

func rleMethod(p RLEParams) Funcs {
	return Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { return DecompressRLE(src, size, p) },
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewRLEReader(src, size, p) },
	}
}

func init() {
	Register("lzss", lzssMethod(PlainLZSS()))
	Register("lzss-ring", lzssMethod(RingLZSS()))
	Register("lzss8", lzssMethod(LZSS8()))
	Register("pcmp", lzssMethod(PCMPLZSS()))
	Register("lz11", Funcs{
		DecompressFunc: DecompressLZ11,
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewLZ11Reader(src, size) },
	})
	Register("nintendo", Funcs{
		DecompressFunc: DecompressNintendo,
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewNintendoReader(src, size) },
	})
	Register("pk02", Funcs{
		DecompressFunc: DecompressPK02,
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewPK02Reader(src, size) },
	})
	Register("bitlz13", Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { return DecompressBitLZ(src, size, BitLZ13()) },
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewBitLZReader(src, size, BitLZ13()) },
	})
	Register("rank", Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { return DecompressRank(src, size, DefaultRank()) },
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewRankReader(src, size, DefaultRank()) },
	})
	Register("frame", Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { return DecompressFrame(src, size, FrameParams{}) },
		NewReaderFunc:  func(src io.Reader, size int) io.Reader { return NewFrameReader(src, size, FrameParams{}) },
	})
	Register("rle", rleMethod(SignedRLE()))
	Register("rle-triplet", rleMethod(TripletRLE()))
	Register("rle-nested", rleMethod(NestedRLE()))

	Register("zlib", Funcs{DecompressFunc: DecompressZlib, NewReaderFunc: NewZlibReader})
	Register("zstd", Funcs{DecompressFunc: DecompressZstd, NewReaderFunc: NewZstdReader})
	Register("lz4", Funcs{DecompressFunc: DecompressLZ4Block})
	Register("lz4-frame", Funcs{DecompressFunc: DecompressLZ4Frame, NewReaderFunc: NewLZ4FrameReader})
	Register("snappy", Funcs{DecompressFunc: DecompressSnappy})
	Register("snappy-frame", Funcs{DecompressFunc: DecompressSnappyFrame, NewReaderFunc: NewSnappyFrameReader})
	Register("brotli", Funcs{DecompressFunc: DecompressBrotli, NewReaderFunc: NewBrotliReader})
	Register("j2k", Funcs{DecompressFunc: DecompressJ2K})
	Register("none", Funcs{DecompressFunc: Stored, NewReaderFunc: NewStoredReader})
}
