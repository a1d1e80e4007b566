// Package predictor implements the scanline filters applied to pixel data
// after decompression: running deltas, the Paeth predictor, XOR with the
// previous line, and plane interleaving.
//
// Every Decode function works in place and runs in one fixed direction.
// The filters are not idempotent, so a buffer must be decoded exactly once.
// The matching Encode functions exist for building test data and for
// repacking.
package predictor

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensions is returned when a buffer is too small for the image
// dimensions given.
var ErrDimensions = errors.New("predictor: buffer smaller than image dimensions")

// Encode applies horizontal differencing to the data in place.
// The first byte remains unchanged, subsequent bytes become
// differences from their predecessor.
func Encode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	// Work backwards to preserve values we need
	i := n - 1
	for ; i >= 8; i -= 8 {
		data[i] = data[i] - data[i-1]
		data[i-1] = data[i-1] - data[i-2]
		data[i-2] = data[i-2] - data[i-3]
		data[i-3] = data[i-3] - data[i-4]
		data[i-4] = data[i-4] - data[i-5]
		data[i-5] = data[i-5] - data[i-6]
		data[i-6] = data[i-6] - data[i-7]
		data[i-7] = data[i-7] - data[i-8]
	}
	for ; i >= 1; i-- {
		data[i] = data[i] - data[i-1]
	}
}

// Decode reverses horizontal differencing in place.
// Each byte becomes the sum of itself and all previous bytes.
func Decode(data []byte) {
	n := len(data)
	if n < 2 {
		return
	}

	// Process in chunks of 8 for better pipelining
	i := 1
	for ; i+7 < n; i += 8 {
		data[i] = data[i] + data[i-1]
		data[i+1] = data[i+1] + data[i]
		data[i+2] = data[i+2] + data[i+1]
		data[i+3] = data[i+3] + data[i+2]
		data[i+4] = data[i+4] + data[i+3]
		data[i+5] = data[i+5] + data[i+4]
		data[i+6] = data[i+6] + data[i+5]
		data[i+7] = data[i+7] + data[i+6]
	}
	for ; i < n; i++ {
		data[i] = data[i] + data[i-1]
	}
}

// DecodeStride reverses a running delta with the given step:
// data[i] += data[i-stride]. A stride of 3 or 4 restores RGB or RGBA
// pixels channel by channel.
func DecodeStride(data []byte, stride int) {
	if stride == 1 {
		Decode(data)
		return
	}
	if stride <= 0 {
		return
	}
	for i := stride; i < len(data); i++ {
		data[i] += data[i-stride]
	}
}

// EncodeStride is the inverse of DecodeStride.
func EncodeStride(data []byte, stride int) {
	if stride == 1 {
		Encode(data)
		return
	}
	if stride <= 0 {
		return
	}
	for i := len(data) - 1; i >= stride; i-- {
		data[i] -= data[i-stride]
	}
}

// DecodePlanar reverses a delta between whole planes: each plane after the
// first holds its difference from the plane before it. A trailing partial
// plane is restored against the matching prefix of the previous plane.
func DecodePlanar(data []byte, planeSize int) {
	if planeSize <= 0 {
		return
	}
	for start := planeSize; start < len(data); start += planeSize {
		plane := data[start:min(start+planeSize, len(data))]
		prev := data[start-planeSize:]
		for i := range plane {
			plane[i] += prev[i]
		}
	}
}

// EncodePlanar is the inverse of DecodePlanar.
func EncodePlanar(data []byte, planeSize int) {
	if planeSize <= 0 || len(data) <= planeSize {
		return
	}
	last := (len(data) - 1) / planeSize * planeSize
	for start := last; start >= planeSize; start -= planeSize {
		plane := data[start:min(start+planeSize, len(data))]
		prev := data[start-planeSize:]
		for i := range plane {
			plane[i] -= prev[i]
		}
	}
}

// DecodeRows applies DecodeStride to each rowLen-byte row independently,
// so the first pixel of every row is stored as is. A short final row is
// decoded too.
func DecodeRows(data []byte, rowLen, stride int) {
	if rowLen <= 0 {
		return
	}
	for start := 0; start < len(data); start += rowLen {
		DecodeStride(data[start:min(start+rowLen, len(data))], stride)
	}
}

// EncodeRows is the inverse of DecodeRows.
func EncodeRows(data []byte, rowLen, stride int) {
	if rowLen <= 0 {
		return
	}
	for start := 0; start < len(data); start += rowLen {
		EncodeStride(data[start:min(start+rowLen, len(data))], stride)
	}
}

func checkDims(data []byte, width, height, bpp int) error {
	if width < 0 || height < 0 || bpp <= 0 {
		return fmt.Errorf("predictor: bad dimensions %dx%d, %d bytes per pixel", width, height, bpp)
	}
	if width > 0 && height > 0 && (width > math.MaxInt/bpp || height > math.MaxInt/(width*bpp)) {
		return fmt.Errorf("%w: %dx%dx%d overflows", ErrDimensions, width, height, bpp)
	}
	if len(data) < width*height*bpp {
		return fmt.Errorf("%w: %d bytes for %dx%dx%d", ErrDimensions, len(data), width, height, bpp)
	}
	return nil
}
