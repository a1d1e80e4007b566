package compression

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"testing"
)

// sampleData returns n bytes of repetitive text with some noise mixed in,
// roughly what script and image payloads look like.
func sampleData(n int) []byte {
	words := []string{"the ", "quick ", "brown ", "fox ", "jumps ", "over ", "lazy ", "dog ", "\x00\x00\x00\x00", "\xff\xfe"}
	rng := rand.New(rand.NewPCG(1, 2))
	b := make([]byte, 0, n+16)
	for len(b) < n {
		if rng.IntN(8) == 0 {
			b = append(b, byte(rng.Uint32()))
			continue
		}
		b = append(b, words[rng.IntN(len(words))]...)
	}
	return b[:n]
}

// noise returns n pseudo-random bytes.
func noise(n int) []byte {
	rng := rand.New(rand.NewPCG(3, 4))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}

// roundTripInputs are the inputs every encoder must reproduce exactly.
func roundTripInputs() map[string][]byte {
	return map[string][]byte{
		"empty":    {},
		"one byte": {0x5A},
		"short":    []byte("abcabcabcabcabc"),
		"zeros":    make([]byte, 10000),
		"text":     sampleData(3000),
		"long":     sampleData(20000),
		"noise":    noise(5000),
	}
}

// checkTruncated verifies a decode of a cut-short stream: output bounded by
// the declared size, a prefix of the original, and ErrEndOfStream.
func checkTruncated(t *testing.T, want, got []byte, err error) {
	t.Helper()
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("error = %v, want ErrEndOfStream", err)
	}
	if len(got) >= len(want) {
		t.Fatalf("truncated decode produced %d of %d bytes", len(got), len(want))
	}
	if !bytes.Equal(got, want[:len(got)]) {
		t.Fatal("partial output is not a prefix of the original")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %v is not a *DecodeError", err)
	}
	if de.Written != int64(len(got)) {
		t.Errorf("DecodeError.Written = %d, want %d", de.Written, len(got))
	}
}
