package predictor

// Planar images store all of one channel before the next:
//
//	Planar:      [R0, R1, R2, G0, G1, G2, B0, B1, B2]
//	Interleaved: [R0, G0, B0, R1, G1, B1, R2, G2, B2]

// InterleavePlanes writes the planes into dst as interleaved pixels. Every
// plane must have the same length and dst must hold all of them; it returns
// the number of bytes written.
func InterleavePlanes(dst []byte, planes [][]byte) int {
	if len(planes) == 0 {
		return 0
	}
	n := len(planes[0])
	stride := len(planes)
	if len(dst) < n*stride {
		panic("predictor: interleave destination too small")
	}
	for k, plane := range planes {
		if len(plane) != n {
			panic("predictor: planes differ in length")
		}
		for i, b := range plane {
			dst[i*stride+k] = b
		}
	}
	return n * stride
}

// DeinterleavePlanes splits interleaved pixels in src into the planes. It
// returns the number of bytes consumed from src.
func DeinterleavePlanes(src []byte, planes [][]byte) int {
	if len(planes) == 0 {
		return 0
	}
	n := len(planes[0])
	stride := len(planes)
	if len(src) < n*stride {
		panic("predictor: deinterleave source too small")
	}
	for k, plane := range planes {
		if len(plane) != n {
			panic("predictor: planes differ in length")
		}
		for i := range plane {
			plane[i] = src[i*stride+k]
		}
	}
	return n * stride
}

// Interleave converts a planar buffer of stride planes into interleaved
// pixels. Bytes past the last whole pixel are copied unchanged. If out is
// nil, a new buffer is allocated.
func Interleave(data []byte, stride int, out []byte) []byte {
	if out == nil {
		out = make([]byte, len(data))
	}
	if len(data) == 0 || stride <= 1 {
		copy(out, data)
		return out
	}

	n := len(data) / stride
	planes := make([][]byte, stride)
	for k := range planes {
		planes[k] = data[k*n : (k+1)*n]
	}
	InterleavePlanes(out, planes)
	copy(out[stride*n:], data[stride*n:])
	return out
}

// Deinterleave is the inverse of Interleave.
func Deinterleave(data []byte, stride int, out []byte) []byte {
	if out == nil {
		out = make([]byte, len(data))
	}
	if len(data) == 0 || stride <= 1 {
		copy(out, data)
		return out
	}

	n := len(data) / stride
	planes := make([][]byte, stride)
	for k := range planes {
		planes[k] = out[k*n : (k+1)*n]
	}
	DeinterleavePlanes(data, planes)
	copy(out[stride*n:], data[stride*n:])
	return out
}
