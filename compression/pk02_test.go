package compression

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestPK02Decode(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
		want string
	}{
		// 1 1 | 0 0 10: two literals, short match length 4 at distance 2
		{"short match", []byte{0xC8, 'A', 'B', 0xFE}, "ABABAB"},
		// 1 | 0 1: literal, long match w=0xFFE3 (distance 1, length 5)
		{"long match", []byte{0xA0, 'X', 0xFF, 0xE3}, "XXXXXX"},
		// zero length field: the next byte plus one is the length
		{"long match escape", []byte{0xA0, 'X', 0xFF, 0xE0, 0x09}, "XXXXXXXXXXX"},
		// a short match at distance 256 after one byte starts from the first byte
		{"clamped distance", []byte{0x80, 'A', 0x00}, "AAA"},
		// a match before any output produces zeros
		{"match at start", []byte{0x00, 0xFF}, "\x00\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecompressPK02(bytes.NewReader(tt.src), len(tt.want))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}

			got, err = io.ReadAll(NewPK02Reader(bytes.NewReader(tt.src), len(tt.want)))
			if err != nil || string(got) != tt.want {
				t.Errorf("reader: got %q, %v", got, err)
			}
		})
	}
}

func TestPK02Truncated(t *testing.T) {
	got, err := DecompressPK02(bytes.NewReader([]byte{0xC8, 'A'}), 6)
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("error = %v", err)
	}
	if string(got) != "A" {
		t.Errorf("got %q", got)
	}

	// cut inside a long match code
	got, err = DecompressPK02(bytes.NewReader([]byte{0xA0, 'X', 0xFF}), 6)
	if !errors.Is(err, ErrEndOfStream) || string(got) != "X" {
		t.Errorf("got %q, %v", got, err)
	}
}

func TestPK02UnknownSizeStopsAtInputEnd(t *testing.T) {
	got, err := DecompressPK02(bytes.NewReader([]byte{0xC8, 'A', 'B', 0xFE}), -1)
	if err != nil || string(got) != "ABABAB" {
		t.Errorf("got %q, %v", got, err)
	}
}
