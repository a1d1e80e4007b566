package predictor

// DecodeXor restores rows that were stored XORed with the row above. The
// first row is stored as is; a short final row uses the matching prefix of
// the row above.
func DecodeXor(data []byte, rowLen int) {
	if rowLen <= 0 {
		return
	}
	for start := rowLen; start < len(data); start += rowLen {
		row := data[start:min(start+rowLen, len(data))]
		up := data[start-rowLen:]
		for i := range row {
			row[i] ^= up[i]
		}
	}
}

// EncodeXor is the inverse of DecodeXor.
func EncodeXor(data []byte, rowLen int) {
	if rowLen <= 0 || len(data) <= rowLen {
		return
	}
	last := (len(data) - 1) / rowLen * rowLen
	for start := last; start >= rowLen; start -= rowLen {
		row := data[start:min(start+rowLen, len(data))]
		up := data[start-rowLen:]
		for i := range row {
			row[i] ^= up[i]
		}
	}
}
