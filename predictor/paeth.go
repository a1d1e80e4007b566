package predictor

// paeth picks whichever of left, up and upper-left is closest to
// left + up - upperLeft, preferring them in that order on ties.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// DecodePaeth restores a width x height image of bpp-byte pixels whose
// bytes were stored as residuals from the Paeth predictor. Neighbours are
// the same byte of the pixel to the left, above, and above-left.
//
// The first row has no upper neighbour and is a plain left delta; the first
// column of later rows is a plain up delta.
func DecodePaeth(data []byte, width, height, bpp int) error {
	if err := checkDims(data, width, height, bpp); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return nil
	}
	stride := width * bpp
	DecodeStride(data[:stride], bpp)
	for y := 1; y < height; y++ {
		row := data[y*stride : (y+1)*stride]
		up := data[(y-1)*stride : y*stride]
		for i := 0; i < bpp && i < stride; i++ {
			row[i] += up[i]
		}
		for i := bpp; i < stride; i++ {
			row[i] += paeth(row[i-bpp], up[i], up[i-bpp])
		}
	}
	return nil
}

// EncodePaeth replaces each byte with its residual from the Paeth
// predictor. It is the inverse of DecodePaeth.
func EncodePaeth(data []byte, width, height, bpp int) error {
	if err := checkDims(data, width, height, bpp); err != nil {
		return err
	}
	if width == 0 || height == 0 {
		return nil
	}
	stride := width * bpp
	// Bottom-up and right-to-left, so every prediction still sees
	// original bytes.
	for y := height - 1; y >= 1; y-- {
		row := data[y*stride : (y+1)*stride]
		up := data[(y-1)*stride : y*stride]
		for i := stride - 1; i >= bpp; i-- {
			row[i] -= paeth(row[i-bpp], up[i], up[i-bpp])
		}
		for i := 0; i < bpp && i < stride; i++ {
			row[i] -= up[i]
		}
	}
	EncodeStride(data[:stride], bpp)
	return nil
}
