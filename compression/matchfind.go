package compression

const (
	mfHashBits  = 14
	mfMaxChain  = 64
	mfMinHashed = 3
)

// matchFinder is a hash-chain search over 3-byte prefixes shared by the
// encoders. Every position must be passed to skip exactly once, in order,
// so that it becomes a candidate for later searches.
type matchFinder struct {
	src     []byte
	minLen  int
	maxLen  int
	maxDist int
	head    [1 << mfHashBits]int32
	prev    []int32
	next    int // first position not yet inserted
}

func newMatchFinder(src []byte, minLen, maxLen, maxDist int) *matchFinder {
	mf := &matchFinder{
		src:     src,
		minLen:  max(minLen, mfMinHashed),
		maxLen:  maxLen,
		maxDist: maxDist,
		prev:    make([]int32, len(src)),
	}
	for i := range mf.head {
		mf.head[i] = -1
	}
	return mf
}

func (mf *matchFinder) hash(pos int) uint32 {
	v := uint32(mf.src[pos]) | uint32(mf.src[pos+1])<<8 | uint32(mf.src[pos+2])<<16
	return (v * 2654435761) >> (32 - mfHashBits)
}

// find returns the longest match at pos, or a zero length if none reaches
// minLen. The match may overlap pos.
func (mf *matchFinder) find(pos int) (length, dist int) {
	src := mf.src
	if pos+mf.minLen > len(src) || mf.maxLen < mf.minLen {
		return 0, 0
	}
	limit := min(mf.maxLen, len(src)-pos)

	cand := mf.head[mf.hash(pos)]
	for chain := 0; cand >= 0 && chain < mfMaxChain; chain++ {
		c := int(cand)
		d := pos - c
		if d > mf.maxDist {
			break
		}
		n := 0
		for n < limit && src[c+n] == src[pos+n] {
			n++
		}
		if n > length {
			length, dist = n, d
			if n == limit {
				break
			}
		}
		cand = mf.prev[c]
	}
	if length < mf.minLen {
		return 0, 0
	}
	return length, dist
}

// skip inserts positions pos through pos+n-1.
func (mf *matchFinder) skip(pos, n int) {
	for end := pos + n; mf.next < end; mf.next++ {
		if mf.next+mfMinHashed > len(mf.src) {
			continue
		}
		h := mf.hash(mf.next)
		mf.prev[mf.next] = mf.head[h]
		mf.head[h] = int32(mf.next)
	}
}
