package compression

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"testing"
	"testing/iotest"
)

func TestMethodsIncludesBuiltins(t *testing.T) {
	have := Methods()
	if !slices.IsSorted(have) {
		t.Errorf("Methods() not sorted: %v", have)
	}
	for _, name := range []string{
		"lzss", "lzss-ring", "lzss8", "pcmp", "lz11", "nintendo", "pk02",
		"bitlz13", "rank", "frame", "rle", "rle-triplet", "rle-nested",
		"zlib", "zstd", "lz4", "lz4-frame", "snappy", "snappy-frame",
		"brotli", "j2k", "none",
	} {
		if _, found := slices.BinarySearch(have, name); !found {
			t.Errorf("method %q not registered", name)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	out, err := Decompress("no-such-method", bytes.NewReader([]byte{1, 2, 3}), 3)
	if !errors.Is(err, ErrUnsupportedVariant) {
		t.Errorf("error = %v, want ErrUnsupportedVariant", err)
	}
	if out != nil {
		t.Errorf("output %v, want none", out)
	}
	if _, err := NewPipeline(bytes.NewReader(nil), Stage{"lzss", 1}, Stage{"no-such-method", 1}); !errors.Is(err, ErrUnsupportedVariant) {
		t.Errorf("pipeline: %v", err)
	}
}

func TestRegisterCustomMethod(t *testing.T) {
	invert := func(src io.Reader, size int) ([]byte, error) {
		out, err := Stored(src, size)
		for i := range out {
			out[i] = ^out[i]
		}
		return out, err
	}
	Register("test-invert", Funcs{DecompressFunc: invert})

	got, err := Decompress("test-invert", bytes.NewReader([]byte{0x00, 0xF0}), 2)
	if err != nil || !bytes.Equal(got, []byte{0xFF, 0x0F}) {
		t.Errorf("Decompress: %x, %v", got, err)
	}

	// without a streaming form the reader replays a one-shot decode
	d, err := Lookup("test-invert")
	if err != nil {
		t.Fatal(err)
	}
	got, err = io.ReadAll(d.NewReader(bytes.NewReader([]byte{0x01}), 1))
	if err != nil || !bytes.Equal(got, []byte{0xFE}) {
		t.Errorf("NewReader: %x, %v", got, err)
	}
	_, err = io.ReadAll(d.NewReader(bytes.NewReader([]byte{0x01}), 4))
	if !errors.Is(err, ErrEndOfStream) {
		t.Errorf("NewReader, short input: %v", err)
	}
}

func TestRegistryDecodesEachFamily(t *testing.T) {
	data := sampleData(5000)
	encode := map[string]func([]byte) ([]byte, error){
		"lzss":     func(b []byte) ([]byte, error) { return CompressLZSS(b, PlainLZSS()) },
		"lzss8":    func(b []byte) ([]byte, error) { return CompressLZSS(b, LZSS8()) },
		"lz11":     func(b []byte) ([]byte, error) { return CompressLZ11(b), nil },
		"nintendo": func(b []byte) ([]byte, error) { return CompressNintendo(b, MagicLZ11) },
		"bitlz13":  func(b []byte) ([]byte, error) { return CompressBitLZ(b, BitLZ13()) },
		"rank":     func(b []byte) ([]byte, error) { return CompressRank(b, DefaultRank()) },
		"frame":    func(b []byte) ([]byte, error) { return CompressFrame(b, FrameParams{}) },
		"rle":      func(b []byte) ([]byte, error) { return CompressRLE(b, SignedRLE()) },
		"zlib":     ZlibCompress,
		"none":     func(b []byte) ([]byte, error) { return b, nil },
	}
	for method, enc := range encode {
		c, err := enc(data)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		got, err := Decompress(method, bytes.NewReader(c), len(data))
		if err != nil || !bytes.Equal(got, data) {
			t.Errorf("%s: Decompress: %v", method, err)
		}
		d, _ := Lookup(method)
		got, err = io.ReadAll(d.NewReader(iotest.OneByteReader(bytes.NewReader(c)), len(data)))
		if err != nil || !bytes.Equal(got, data) {
			t.Errorf("%s: NewReader: %v", method, err)
		}
	}
}

func TestPipeline(t *testing.T) {
	data := sampleData(8000)
	rle, err := CompressRLE(data, SignedRLE())
	if err != nil {
		t.Fatal(err)
	}
	packed, err := CompressLZSS(rle, PlainLZSS())
	if err != nil {
		t.Fatal(err)
	}
	stages := []Stage{{"lzss", len(rle)}, {"rle", len(data)}}

	got, err := Pipeline(packed, stages...)
	if err != nil || !bytes.Equal(got, data) {
		t.Fatalf("Pipeline: %v", err)
	}

	r, err := NewPipeline(bytes.NewReader(packed), stages...)
	if err != nil {
		t.Fatal(err)
	}
	got, err = io.ReadAll(r)
	if err != nil || !bytes.Equal(got, data) {
		t.Errorf("NewPipeline: %v", err)
	}

	got, err = Pipeline(packed)
	if err != nil || !bytes.Equal(got, packed) {
		t.Errorf("no stages: %v", err)
	}

	// the error surfaces from the inner stage
	got, err = Pipeline(packed[:len(packed)/2], stages...)
	if !errors.Is(err, ErrEndOfStream) {
		t.Errorf("truncated: %v", err)
	}
	if len(got) >= len(data) || !bytes.Equal(got, data[:len(got)]) {
		t.Errorf("truncated: %d bytes, not a proper prefix", len(got))
	}
}
