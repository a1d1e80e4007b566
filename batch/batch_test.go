package batch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/mrjoshuak/go-vncodec/compression"
	"github.com/mrjoshuak/go-vncodec/predictor"
)

func payload(i int) []byte {
	return bytes.Repeat([]byte(fmt.Sprintf("file %d payload ", i)), 40+i)
}

func TestRunIsolatesFailures(t *testing.T) {
	var jobs []Job
	for i := 0; i < 20; i++ {
		data := payload(i)
		c, err := compression.CompressLZSS(data, compression.PlainLZSS())
		if err != nil {
			t.Fatal(err)
		}
		if i%5 == 3 {
			c = c[:len(c)/2]
		}
		jobs = append(jobs, Job{Name: fmt.Sprintf("f%02d", i), Method: "lzss", Src: c, Size: len(data)})
	}
	jobs = append(jobs, Job{Name: "bad method", Method: "nope", Src: []byte{1}, Size: 1})

	for _, c := range []Config{{Workers: 1}, {Workers: 4, GrainSize: 1}, {}} {
		results := Run(jobs, c)
		if len(results) != len(jobs) {
			t.Fatalf("%+v: %d results for %d jobs", c, len(results), len(jobs))
		}
		for i, r := range results {
			if r.Index != i || r.Name != jobs[i].Name {
				t.Errorf("%+v: result %d is %d/%q", c, i, r.Index, r.Name)
			}
			switch {
			case i == len(jobs)-1:
				if !errors.Is(r.Err, compression.ErrUnsupportedVariant) || r.Data != nil {
					t.Errorf("%+v: unknown method: %v, %d bytes", c, r.Err, len(r.Data))
				}
			case i%5 == 3:
				if !errors.Is(r.Err, compression.ErrEndOfStream) {
					t.Errorf("%+v: %s: error = %v", c, r.Name, r.Err)
				}
				want := payload(i)
				if len(r.Data) >= len(want) || !bytes.Equal(r.Data, want[:len(r.Data)]) {
					t.Errorf("%+v: %s: partial output is not a prefix", c, r.Name)
				}
			default:
				if r.Err != nil || !bytes.Equal(r.Data, payload(i)) {
					t.Errorf("%+v: %s: %v", c, r.Name, r.Err)
				}
			}
		}
		if n := len(Errors(results)); n != 5 {
			t.Errorf("%+v: %d failures, want 5", c, n)
		}
	}
}

func TestRunAppliesFilter(t *testing.T) {
	pixels := []byte{10, 20, 30, 1, 2, 3, 1, 1, 1}
	c, err := compression.CompressRLE(pixels, compression.SignedRLE())
	if err != nil {
		t.Fatal(err)
	}
	results := Run([]Job{{
		Name:   "rgb",
		Method: "rle",
		Src:    c,
		Size:   len(pixels),
		Filter: predictor.Filter{Kind: predictor.Delta, Stride: 3},
	}}, Config{Workers: 1})
	want := []byte{10, 20, 30, 11, 22, 33, 12, 23, 34}
	if results[0].Err != nil || !bytes.Equal(results[0].Data, want) {
		t.Errorf("got %v, %v", results[0].Data, results[0].Err)
	}

	results = Run([]Job{{
		Method: "none",
		Src:    pixels,
		Size:   len(pixels),
		Filter: predictor.Filter{Kind: predictor.Paeth, Width: 4, Height: 4, Stride: 1},
	}}, Config{Workers: 1})
	if !errors.Is(results[0].Err, predictor.ErrDimensions) || results[0].Data != nil {
		t.Errorf("filter failure: %v", results[0].Err)
	}
}

func TestRunStages(t *testing.T) {
	data := payload(7)
	rle, err := compression.CompressRLE(data, compression.SignedRLE())
	if err != nil {
		t.Fatal(err)
	}
	packed, err := compression.ZlibCompress(rle)
	if err != nil {
		t.Fatal(err)
	}
	results := Run([]Job{{
		Name:   "chained",
		Src:    packed,
		Stages: []compression.Stage{{Method: "zlib", Size: len(rle)}, {Method: "rle", Size: len(data)}},
	}}, Config{})
	if results[0].Err != nil || !bytes.Equal(results[0].Data, data) {
		t.Errorf("chained: %v", results[0].Err)
	}
}

func TestRunDropsCorruptOutput(t *testing.T) {
	// a literal, then a match reaching 4096 bytes behind the start
	corrupt := []byte{0x40, 'A', 0x0F, 0xFF}
	good, err := compression.CompressLZSS([]byte("0123456789"), compression.PlainLZSS())
	if err != nil {
		t.Fatal(err)
	}
	jobs := []Job{
		{Name: "corrupt", Method: "lzss", Src: corrupt, Size: 10},
		{Name: "truncated", Method: "lzss", Src: good[:len(good)-2], Size: 10},
	}
	results := Run(jobs, Config{Workers: 1})

	if !errors.Is(results[0].Err, compression.ErrCorruptStream) {
		t.Errorf("corrupt: error = %v", results[0].Err)
	}
	if results[0].Data != nil {
		t.Errorf("corrupt: kept %q", results[0].Data)
	}

	if !errors.Is(results[1].Err, compression.ErrEndOfStream) {
		t.Errorf("truncated: error = %v", results[1].Err)
	}
	if len(results[1].Data) == 0 || !bytes.HasPrefix([]byte("0123456789"), results[1].Data) {
		t.Errorf("truncated: partial output %q", results[1].Data)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	compression.Register("batch-test-panic", compression.Funcs{
		DecompressFunc: func(src io.Reader, size int) ([]byte, error) { panic("boom") },
	})
	jobs := []Job{
		{Name: "panics", Method: "batch-test-panic", Size: 1},
		{Name: "fine", Method: "none", Src: []byte("ok"), Size: 2},
	}
	results := Run(jobs, Config{Workers: 2, GrainSize: 0})
	if results[0].Err == nil {
		t.Error("panic not reported")
	}
	if results[1].Err != nil || string(results[1].Data) != "ok" {
		t.Errorf("second job: %q, %v", results[1].Data, results[1].Err)
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run(nil, Config{}); len(got) != 0 {
		t.Errorf("got %d results", len(got))
	}
}
