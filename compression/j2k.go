package compression

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/mrjoshuak/go-jpeg2000"
)

// J2KOptions controls CompressJ2K.
type J2KOptions struct {
	HighThroughput bool // HTJ2K block coder instead of EBCOT
	BlockSize      int  // code block width and height; 0 means 64
	Resolutions    int  // 0 means 6
}

// CompressJ2K encodes img as a lossless raw JPEG 2000 codestream.
func CompressJ2K(img image.Image, o J2KOptions) ([]byte, error) {
	if o.BlockSize == 0 {
		o.BlockSize = 64
	}
	if o.Resolutions == 0 {
		o.Resolutions = 6
	}
	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		HighThroughput: o.HighThroughput,
		HTBlockWidth:   o.BlockSize,
		HTBlockHeight:  o.BlockSize,
		NumResolutions: o.Resolutions,
	}
	var buf bytes.Buffer
	if err := jpeg2000.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("j2k: encode failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeJ2K decodes a JPEG 2000 codestream or JP2 file into an image.
func DecodeJ2K(src io.Reader) (image.Image, error) {
	img, err := jpeg2000.Decode(src)
	if err != nil {
		return nil, &DecodeError{Method: "j2k", Err: fmt.Errorf("%w: %v", ErrCorruptStream, err)}
	}
	return img, nil
}

// DecompressJ2K decodes a JPEG 2000 image and returns its pixels flattened
// as by FlattenImage.
func DecompressJ2K(src io.Reader, size int) ([]byte, error) {
	img, err := DecodeJ2K(src)
	if err != nil {
		return nil, err
	}
	out := FlattenImage(img)
	if size >= 0 {
		if len(out) < size {
			return out, &DecodeError{Method: "j2k", Written: int64(len(out)), Err: ErrEndOfStream}
		}
		out = out[:size]
	}
	return out, nil
}

// FlattenImage returns the pixels of img row by row with interleaved
// components:
//
//	*image.Gray       1 byte
//	*image.Gray16     2 bytes, little-endian
//	*image.NRGBA64    R, G, B, A as 2 little-endian bytes each
//	anything else     R, G, B, A bytes, non-premultiplied
func FlattenImage(img image.Image) []byte {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	switch src := img.(type) {
	case *image.Gray:
		dst := make([]byte, 0, width*height)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			dst = append(dst, src.Pix[i:i+width]...)
		}
		return dst

	case *image.Gray16:
		dst := make([]byte, width*height*2)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				g := src.Gray16At(b.Min.X+x, b.Min.Y+y)
				binary.LittleEndian.PutUint16(dst[(y*width+x)*2:], g.Y)
			}
		}
		return dst

	case *image.NRGBA64:
		dst := make([]byte, width*height*8)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := src.NRGBA64At(b.Min.X+x, b.Min.Y+y)
				o := dst[(y*width+x)*8:]
				binary.LittleEndian.PutUint16(o[0:], c.R)
				binary.LittleEndian.PutUint16(o[2:], c.G)
				binary.LittleEndian.PutUint16(o[4:], c.B)
				binary.LittleEndian.PutUint16(o[6:], c.A)
			}
		}
		return dst

	case *image.NRGBA:
		dst := make([]byte, 0, width*height*4)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			dst = append(dst, src.Pix[i:i+width*4]...)
		}
		return dst

	default:
		dst := make([]byte, width*height*4)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				copy(dst[(y*width+x)*4:], []byte{c.R, c.G, c.B, c.A})
			}
		}
		return dst
	}
}
