package compression

// CopyOverlapped copies count bytes within buf from index src to index dst
// and returns the number of bytes written. The count is clamped so that the
// copy never runs past the end of buf.
//
// When dst > src and the ranges overlap, the result is the same as copying
// one byte at a time in increasing index order: bytes written at the start of
// the destination are read back later as source. This is how an LZ match with
// a length greater than its distance repeats a short pattern.
//
// Negative indices or src >= len(buf) indicate a caller bug and panic.
func CopyOverlapped(buf []byte, src, dst, count int) int {
	if src < 0 || dst < 0 || count < 0 {
		panic("compression: CopyOverlapped: negative index or count")
	}
	if src >= len(buf) || dst > len(buf) {
		panic("compression: CopyOverlapped: index out of range")
	}
	if count > len(buf)-dst {
		count = len(buf) - dst
	}
	if count == 0 {
		return 0
	}

	if dst <= src || src+count <= dst {
		// copy has memmove semantics, which match a forward byte loop
		// whenever the destination does not run ahead of the source.
		copy(buf[dst:dst+count], buf[src:src+count])
		return count
	}

	// Expanding copy. buf[src:dst+n] is periodic with period dst-src, and n
	// stays a multiple of that period until the last step, so each block copy
	// reproduces the byte-by-byte result while doubling the chunk size.
	n := 0
	for n < count {
		n += copy(buf[dst+n:dst+count], buf[src:dst+n])
	}
	return count
}
