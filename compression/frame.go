package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vncodec/internal/byteio"
)

// FrameParams describes a frame-indexed dictionary stream.
//
// The stream is a sequence of one-byte codes over groups of Group bytes
// (usually one RGB pixel):
//
//	0xxxxxxx   x+1 literal groups follow
//	10xxxxxx   emit the group in frame slot x (0 is the newest)
//	11xxxxxx   emit the last group x+1 more times
//
// Every literal group and every slot hit is pushed into the frame table as
// the newest entry, evicting the oldest. A repeat pushes its group once.
// Slots never written hold zero bytes.
type FrameParams struct {
	Group int // bytes per group; 0 means 3
	Slots int // frame table size, at most 64; 0 means 64
}

const frameMaxSlots = 64

func (p FrameParams) normalize() (FrameParams, error) {
	if p.Group == 0 {
		p.Group = 3
	}
	if p.Slots == 0 {
		p.Slots = frameMaxSlots
	}
	if p.Group < 1 || p.Group > 16 || p.Slots < 1 || p.Slots > frameMaxSlots {
		return p, fmt.Errorf("%w: frame group %d, %d slots", ErrInvalidParams, p.Group, p.Slots)
	}
	return p, nil
}

// frameTable is the FIFO of recent groups. One table belongs to one decode.
type frameTable struct {
	group int
	slots int
	data  []byte
	head  int // index of the next slot to overwrite
	count int // groups pushed so far, saturating at slots
}

func newFrameTable(p FrameParams) *frameTable {
	return &frameTable{group: p.Group, slots: p.Slots, data: make([]byte, p.Group*p.Slots)}
}

// at returns slot i, where 0 is the newest group.
func (t *frameTable) at(i int) []byte {
	j := ((t.head-1-i)%t.slots + t.slots) % t.slots
	return t.data[j*t.group : (j+1)*t.group]
}

func (t *frameTable) push(g []byte) {
	copy(t.data[t.head*t.group:(t.head+1)*t.group], g)
	t.head = (t.head + 1) % t.slots
	if t.count < t.slots {
		t.count++
	}
}

// find returns the slot holding g, or -1.
func (t *frameTable) find(g []byte) int {
	for i := 0; i < t.slots; i++ {
		if bytes.Equal(t.at(i), g) {
			return i
		}
	}
	return -1
}

type frameDecoder struct {
	src   byteio.Source
	table *frameTable
	group []byte
	todo  int // literal groups left in the current run
}

func (d *frameDecoder) inputOffset() int64 { return d.src.Offset() }

func (d *frameDecoder) decodeUnit(w *window) error {
	if d.todo > 0 {
		if _, err := io.ReadFull(d.src, d.group); err != nil {
			return truncated(err)
		}
		d.todo--
		w.putBytes(d.group)
		d.table.push(d.group)
		return nil
	}

	c, err := d.src.ReadByte()
	if err != nil {
		return atBoundary(err)
	}
	switch {
	case c&0x80 == 0:
		d.todo = int(c) + 1
		return nil
	case c&0x40 == 0:
		slot := int(c & 0x3F)
		if slot >= d.table.slots {
			return corruptf("frame slot %d of %d", slot, d.table.slots)
		}
		copy(d.group, d.table.at(slot))
		w.putBytes(d.group)
		d.table.push(d.group)
	default:
		if d.table.count == 0 {
			return corruptf("repeat before any group")
		}
		copy(d.group, d.table.at(0))
		w.repeat(d.group, int(c&0x3F)+1)
		d.table.push(d.group)
	}
	return nil
}

func newFrameDecoder(src io.Reader, p FrameParams) *frameDecoder {
	return &frameDecoder{src: byteio.NewSource(src), table: newFrameTable(p), group: make([]byte, p.Group)}
}

// DecompressFrame decodes a frame-indexed dictionary stream.
func DecompressFrame(src io.Reader, size int, p FrameParams) ([]byte, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}
	return decodeAll("frame", newFrameDecoder(src, p), newWindow(size, 0, -1))
}

// NewFrameReader returns a Reader that decodes a frame-indexed stream
// incrementally.
func NewFrameReader(src io.Reader, size int, p FrameParams) *Reader {
	p, err := p.normalize()
	if err != nil {
		return errReader("frame", err)
	}
	return newReader("frame", newFrameDecoder(src, p), size, 1, -1)
}

// CompressFrame encodes src as a frame-indexed stream. A trailing partial
// group is zero-padded; decode with the original length to drop the padding.
func CompressFrame(src []byte, p FrameParams) ([]byte, error) {
	p, err := p.normalize()
	if err != nil {
		return nil, err
	}
	table := newFrameTable(p)
	var out []byte
	var lits []byte // pending literal groups
	flush := func() {
		for len(lits) > 0 {
			n := min(len(lits)/p.Group, 128)
			out = append(out, byte(n-1))
			out = append(out, lits[:n*p.Group]...)
			lits = lits[n*p.Group:]
		}
	}

	g := make([]byte, p.Group)
	for pos := 0; pos < len(src); {
		clear(g)
		copy(g, src[pos:])
		pos += p.Group

		if table.count > 0 && bytes.Equal(g, table.at(0)) {
			run := 1
			for run < 64 && pos+p.Group <= len(src) && bytes.Equal(src[pos:pos+p.Group], g) {
				run++
				pos += p.Group
			}
			flush()
			out = append(out, 0xC0|byte(run-1))
			table.push(g)
			continue
		}
		if slot := table.find(g); slot >= 0 {
			flush()
			out = append(out, 0x80|byte(slot))
			table.push(g)
			continue
		}
		lits = append(lits, g...)
		table.push(g)
	}
	flush()
	return out, nil
}
