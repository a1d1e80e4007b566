package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/icza/bitio"

	"github.com/mrjoshuak/go-vncodec/bitstream"
)

// Promotion is how the rank table reorders a symbol each time it is used.
type Promotion int

const (
	// PromoteTranspose swaps the symbol with the one ranked just above it.
	PromoteTranspose Promotion = iota
	// PromoteFront moves the symbol to rank 0.
	PromoteFront
)

// RankParams describes an adaptive rank LZ variant.
//
// The stream is MSB-first:
//
//	0  + 8 bits                    literal byte
//	10 + RankBits                  the symbol currently at that rank
//	11 + OffsetBits + unary        match: distance field+1, length unary+MinMatch
//
// Every literal, every ranked symbol and every byte copied by a match is
// then promoted in the table, so the encoder and decoder tables stay in step.
type RankParams struct {
	RankBits   uint
	OffsetBits uint
	MinMatch   int
	Promote    Promotion
}

// DefaultRank returns 4-bit ranks, 12-bit distances, a minimum match of 2
// and transpose promotion.
func DefaultRank() RankParams {
	return RankParams{RankBits: 4, OffsetBits: 12, MinMatch: 2, Promote: PromoteTranspose}
}

func (p *RankParams) validate() error {
	if p.RankBits == 0 || p.RankBits > 8 || p.OffsetBits == 0 || p.OffsetBits > 24 || p.MinMatch < 1 {
		return fmt.Errorf("%w: rank %d bits, offset %d bits, min match %d", ErrInvalidParams, p.RankBits, p.OffsetBits, p.MinMatch)
	}
	return nil
}

// rankTable maps ranks to symbols and back. It starts as the identity.
type rankTable struct {
	sym  [256]byte // rank -> symbol
	rank [256]byte // symbol -> rank
	rule Promotion
}

func newRankTable(rule Promotion) *rankTable {
	t := &rankTable{rule: rule}
	for i := range t.sym {
		t.sym[i] = byte(i)
		t.rank[i] = byte(i)
	}
	return t
}

func (t *rankTable) promote(s byte) {
	r := int(t.rank[s])
	if r == 0 {
		return
	}
	switch t.rule {
	case PromoteFront:
		copy(t.sym[1:r+1], t.sym[:r])
		t.sym[0] = s
		for i := 0; i <= r; i++ {
			t.rank[t.sym[i]] = byte(i)
		}
	default:
		above := t.sym[r-1]
		t.sym[r-1], t.sym[r] = s, above
		t.rank[s], t.rank[above] = byte(r-1), byte(r)
	}
}

type rankDecoder struct {
	br    *bitstream.Reader
	p     RankParams
	table *rankTable
}

func (d *rankDecoder) inputOffset() int64 { return d.br.Consumed() }

func (d *rankDecoder) decodeUnit(w *window) error {
	b, err := d.br.ReadBit()
	if err != nil {
		return atBoundary(err)
	}
	if b == 0 {
		v, err := d.br.ReadBits(8)
		if err != nil {
			return atBoundary(err)
		}
		if d.br.Exhausted() {
			return io.EOF
		}
		w.putByte(byte(v))
		d.table.promote(byte(v))
		return nil
	}

	b, err = d.br.ReadBit()
	if err != nil {
		return atBoundary(err)
	}
	if b == 0 {
		r, err := d.br.ReadBits(d.p.RankBits)
		if err != nil {
			return atBoundary(err)
		}
		if d.br.Exhausted() {
			return io.EOF
		}
		s := d.table.sym[r]
		w.putByte(s)
		d.table.promote(s)
		return nil
	}

	off, err := d.br.ReadBits(d.p.OffsetBits)
	if err != nil {
		return atBoundary(err)
	}
	n, err := d.br.ReadUnary()
	if err != nil {
		if err == bitstream.ErrCodeTooLong {
			return corruptf("match length code too long")
		}
		return atBoundary(err)
	}
	if d.br.Exhausted() {
		return io.EOF
	}

	start := len(w.buf)
	if err := w.copyBack(int(off)+1, n+d.p.MinMatch); err != nil {
		return err
	}
	for _, s := range w.buf[start:] {
		d.table.promote(s)
	}
	return nil
}

func newRankDecoder(src io.Reader, p RankParams) *rankDecoder {
	return &rankDecoder{br: bitstream.NewReader(src, bitstream.MSBFirst), p: p, table: newRankTable(p.Promote)}
}

// DecompressRank decodes an adaptive rank LZ stream. Each call owns its own
// rank table.
func DecompressRank(src io.Reader, size int, p RankParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	return decodeAll("rank", newRankDecoder(src, p), newWindow(size, 0, -1))
}

// NewRankReader returns a Reader that decodes an adaptive rank LZ stream
// incrementally.
func NewRankReader(src io.Reader, size int, p RankParams) *Reader {
	if err := p.validate(); err != nil {
		return errReader("rank", err)
	}
	return newReader("rank", newRankDecoder(src, p), size, 1<<p.OffsetBits, -1)
}

// rankMaxUnary caps the unary length field the encoder writes.
const rankMaxUnary = 64

// CompressRank encodes src for the variant p, mirroring the decoder's table.
func CompressRank(src []byte, p RankParams) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	bw := bitio.NewWriter(&buf)
	table := newRankTable(p.Promote)
	ranked := 1 << p.RankBits
	mf := newMatchFinder(src, p.MinMatch, rankMaxUnary+p.MinMatch, 1<<p.OffsetBits)

	for pos := 0; pos < len(src); {
		length, dist := mf.find(pos)
		if length > 0 {
			bw.TryWriteBits(0b11, 2)
			bw.TryWriteBits(uint64(dist-1), uint8(p.OffsetBits))
			for i := 0; i < length-p.MinMatch; i++ {
				bw.TryWriteBool(true)
			}
			bw.TryWriteBool(false)
			for _, s := range src[pos : pos+length] {
				table.promote(s)
			}
			mf.skip(pos, length)
			pos += length
			continue
		}

		s := src[pos]
		if r := int(table.rank[s]); r < ranked {
			bw.TryWriteBits(0b10, 2)
			bw.TryWriteBits(uint64(r), uint8(p.RankBits))
		} else {
			bw.TryWriteBool(false)
			bw.TryWriteBits(uint64(s), 8)
		}
		table.promote(s)
		mf.skip(pos, 1)
		pos++
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	if bw.TryError != nil {
		return nil, bw.TryError
	}
	return buf.Bytes(), nil
}
