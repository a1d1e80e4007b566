package predictor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind selects a scanline filter.
type Kind int

const (
	None Kind = iota
	Delta
	Rows
	Planar
	Paeth
	Xor
	PlanesToPixels
)

var kindNames = map[Kind]string{
	None:           "none",
	Delta:          "delta",
	Rows:           "rows",
	Planar:         "planar",
	Paeth:          "paeth",
	Xor:            "xor",
	PlanesToPixels: "interleave",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Filter is a filter together with its geometry, so a decode job can carry
// it as plain data.
type Filter struct {
	Kind   Kind
	Stride int // delta step, bytes per pixel, or plane count
	RowLen int // Rows, Xor
	Width  int // Paeth
	Height int // Paeth
	Plane  int // Planar
}

// Apply decodes data in place.
func (f Filter) Apply(data []byte) error {
	switch f.Kind {
	case None:
	case Delta:
		DecodeStride(data, f.Stride)
	case Rows:
		DecodeRows(data, f.RowLen, f.Stride)
	case Planar:
		DecodePlanar(data, f.Plane)
	case Paeth:
		return DecodePaeth(data, f.Width, f.Height, f.Stride)
	case Xor:
		DecodeXor(data, f.RowLen)
	case PlanesToPixels:
		copy(data, Interleave(data, f.Stride, nil))
	default:
		return fmt.Errorf("predictor: unknown filter %v", f.Kind)
	}
	return nil
}

func (f Filter) String() string {
	switch f.Kind {
	case Delta, PlanesToPixels:
		return fmt.Sprintf("%v:%d", f.Kind, f.Stride)
	case Rows:
		return fmt.Sprintf("rows:%d:%d", f.RowLen, f.Stride)
	case Planar:
		return fmt.Sprintf("planar:%d", f.Plane)
	case Paeth:
		return fmt.Sprintf("paeth:%dx%dx%d", f.Width, f.Height, f.Stride)
	case Xor:
		return fmt.Sprintf("xor:%d", f.RowLen)
	}
	return f.Kind.String()
}

// ParseFilter parses the textual form used on the command line:
//
//	none
//	delta[:STRIDE]
//	rows:ROWLEN[:STRIDE]
//	planar:PLANESIZE
//	paeth:WIDTHxHEIGHTxBPP
//	xor:ROWLEN
//	interleave:PLANES
func ParseFilter(s string) (Filter, error) {
	name, arg, _ := strings.Cut(s, ":")
	bad := func(err error) (Filter, error) {
		return Filter{}, fmt.Errorf("predictor: bad filter %q: %w", s, err)
	}
	num := func(v string) (int, error) {
		n, err := strconv.Atoi(v)
		if err == nil && n <= 0 {
			err = fmt.Errorf("%d is not positive", n)
		}
		return n, err
	}

	switch name {
	case "", "none":
		return Filter{}, nil
	case "delta":
		f := Filter{Kind: Delta, Stride: 1}
		if arg != "" {
			n, err := num(arg)
			if err != nil {
				return bad(err)
			}
			f.Stride = n
		}
		return f, nil
	case "rows":
		rowArg, strideArg, hasStride := strings.Cut(arg, ":")
		rowLen, err := num(rowArg)
		if err != nil {
			return bad(err)
		}
		f := Filter{Kind: Rows, RowLen: rowLen, Stride: 1}
		if hasStride {
			if f.Stride, err = num(strideArg); err != nil {
				return bad(err)
			}
		}
		return f, nil
	case "planar":
		n, err := num(arg)
		if err != nil {
			return bad(err)
		}
		return Filter{Kind: Planar, Plane: n}, nil
	case "paeth":
		parts := strings.Split(arg, "x")
		if len(parts) != 3 {
			return bad(errors.New("want WIDTHxHEIGHTxBPP"))
		}
		var dims [3]int
		for i, p := range parts {
			n, err := num(p)
			if err != nil {
				return bad(err)
			}
			dims[i] = n
		}
		return Filter{Kind: Paeth, Width: dims[0], Height: dims[1], Stride: dims[2]}, nil
	case "xor":
		n, err := num(arg)
		if err != nil {
			return bad(err)
		}
		return Filter{Kind: Xor, RowLen: n}, nil
	case "interleave":
		n, err := num(arg)
		if err != nil {
			return bad(err)
		}
		return Filter{Kind: PlanesToPixels, Stride: n}, nil
	}
	return bad(errors.New("unknown filter"))
}
