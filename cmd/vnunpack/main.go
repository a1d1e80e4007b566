// vnunpack decodes raw compressed resource payloads.
//
// Usage:
//
//	vnunpack [options] -m <method> <file> [<file> ...]
//
// Options:
//
//	-m, --method NAME    Compression method (see --list).
//	-s, --size N         Decompressed size in bytes; -1 if the stream ends itself.
//	-f, --filter SPEC    Scanline filter to apply after decoding, e.g. delta:3,
//	                     paeth:640x480x4, xor:1920.
//	--png WxHxBPP        Also write a PNG of the decoded pixels (BPP 1, 3 or 4).
//	-o, --out DIR        Output directory (default: next to each input).
//	-j, --jobs N         Number of parallel decodes (default: all CPUs).
//	-q, --quiet          Only output errors.
//	--list               List the available methods.
//	-h, --help           Show this help message.
//	--version            Show version information.
//
// Each input <name> is written to <name>.raw.
//
// Exit codes:
//
//	0: All files decoded
//	1: One or more files failed to decode
//	2: Error (bad arguments, file not found, etc.)
package main

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/mrjoshuak/go-vncodec/batch"
	"github.com/mrjoshuak/go-vncodec/compression"
	"github.com/mrjoshuak/go-vncodec/predictor"
)

const version = "1.0.0"

type options struct {
	method  string
	size    int
	filter  predictor.Filter
	png     *pngLayout
	outDir  string
	workers int
	quiet   bool
	files   []string
}

type pngLayout struct {
	width, height, bpp int
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			printUsage()
		}
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// parseArgs handles --list, --help and --version itself and exits.
func parseArgs(args []string) (*options, error) {
	opts := &options{size: -1}
	value := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", usageError{fmt.Sprintf("%s needs a value", name)}
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-m", "--method":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			opts.method = v
		case "-s", "--size":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < -1 {
				return nil, usageError{fmt.Sprintf("bad size %q", v)}
			}
			opts.size = n
		case "-f", "--filter":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			f, err := predictor.ParseFilter(v)
			if err != nil {
				return nil, err
			}
			opts.filter = f
		case "--png":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			layout, err := parseLayout(v)
			if err != nil {
				return nil, err
			}
			opts.png = layout
		case "-o", "--out":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			opts.outDir = v
		case "-j", "--jobs":
			v, err := value(&i, arg)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, usageError{fmt.Sprintf("bad job count %q", v)}
			}
			opts.workers = n
		case "-q", "--quiet":
			opts.quiet = true
		case "--list":
			for _, m := range compression.Methods() {
				fmt.Println(m)
			}
			os.Exit(0)
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("vnunpack version %s\n", version)
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				return nil, usageError{fmt.Sprintf("unknown option: %s", arg)}
			}
			opts.files = append(opts.files, arg)
		}
	}

	if opts.method == "" {
		return nil, usageError{"no method specified"}
	}
	if _, err := compression.Lookup(opts.method); err != nil {
		return nil, err
	}
	if len(opts.files) == 0 {
		return nil, usageError{"no input files specified"}
	}
	return opts, nil
}

func parseLayout(s string) (*pngLayout, error) {
	parts := strings.Split(s, "x")
	if len(parts) != 3 {
		return nil, usageError{fmt.Sprintf("bad PNG layout %q, want WIDTHxHEIGHTxBPP", s)}
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 1 {
			return nil, usageError{fmt.Sprintf("bad PNG layout %q", s)}
		}
		n[i] = v
	}
	switch n[2] {
	case 1, 3, 4:
	default:
		return nil, usageError{fmt.Sprintf("PNG needs 1, 3 or 4 bytes per pixel, not %d", n[2])}
	}
	return &pngLayout{width: n[0], height: n[1], bpp: n[2]}, nil
}

func printUsage() {
	fmt.Println(`Usage: vnunpack [options] -m <method> <file> [<file> ...]

Decode raw compressed resource payloads. Each input <name> is written
to <name>.raw.

Options:
  -m, --method NAME    Compression method (see --list).
  -s, --size N         Decompressed size in bytes; -1 if the stream ends itself.
  -f, --filter SPEC    Scanline filter: none, delta[:STRIDE], rows:ROWLEN[:STRIDE],
                       planar:PLANESIZE, paeth:WxHxBPP, xor:ROWLEN, interleave:PLANES
  --png WxHxBPP        Also write a PNG of the decoded pixels (BPP 1, 3 or 4).
  -o, --out DIR        Output directory (default: next to each input).
  -j, --jobs N         Number of parallel decodes (default: all CPUs).
  -q, --quiet          Only output errors.
  --list               List the available methods.
  -h, --help           Show this help message.
  --version            Show version information.

Exit codes:
  0: All files decoded
  1: One or more files failed to decode
  2: Error (bad arguments, file not found, etc.)

Examples:
  vnunpack -m lzss -s 307200 bg01.bin
  vnunpack -m rank -f paeth:320x240x4 --png 320x240x4 *.cg`)
}

// run decodes every file and returns the exit code.
func run(opts *options) int {
	jobs := make([]batch.Job, 0, len(opts.files))
	for _, name := range opts.files {
		src, err := os.ReadFile(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: error: %v\n", name, err)
			return 2
		}
		jobs = append(jobs, batch.Job{
			Name:   name,
			Method: opts.method,
			Src:    src,
			Size:   opts.size,
			Filter: opts.filter,
		})
	}

	results := batch.Run(jobs, batch.Config{Workers: opts.workers, GrainSize: 1})

	failed := 0
	ioError := false
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%v\n", r.Err)
			if len(r.Data) == 0 {
				continue
			}
			// keep what was decoded before the stream ended
		}
		out, err := writeOutputs(r, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: error: %v\n", r.Name, err)
			ioError = true
			continue
		}
		if !opts.quiet && r.Err == nil {
			fmt.Printf("%s: %d bytes -> %s\n", r.Name, len(r.Data), strings.Join(out, ", "))
		}
	}

	if len(results) > 1 && !opts.quiet {
		fmt.Printf("\nSummary: %d of %d files decoded\n", len(results)-failed, len(results))
	}

	if ioError {
		return 2
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func writeOutputs(r batch.Result, opts *options) ([]string, error) {
	base := r.Name
	if opts.outDir != "" {
		base = filepath.Join(opts.outDir, filepath.Base(r.Name))
	}
	rawPath := base + ".raw"
	if err := os.WriteFile(rawPath, r.Data, 0o644); err != nil {
		return nil, err
	}
	written := []string{rawPath}
	if opts.png == nil || r.Err != nil {
		return written, nil
	}

	img, err := pixelImage(r.Data, opts.png)
	if err != nil {
		return written, err
	}
	pngPath := base + ".png"
	if err := imgio.Save(pngPath, img, imgio.PNGEncoder()); err != nil {
		return written, err
	}
	return append(written, pngPath), nil
}

// pixelImage wraps decoded bytes as an image: 1 byte per pixel is gray,
// 3 is RGB, 4 is RGBA.
func pixelImage(data []byte, l *pngLayout) (image.Image, error) {
	need := l.width * l.height * l.bpp
	if len(data) < need {
		return nil, fmt.Errorf("%d bytes is too small for a %dx%d image with %d bytes per pixel", len(data), l.width, l.height, l.bpp)
	}
	rect := image.Rect(0, 0, l.width, l.height)
	switch l.bpp {
	case 1:
		img := image.NewGray(rect)
		copy(img.Pix, data)
		return img, nil
	case 3:
		img := image.NewNRGBA(rect)
		for i, j := 0, 0; j < need; i, j = i+4, j+3 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = data[j], data[j+1], data[j+2], 0xFF
		}
		return img, nil
	}
	img := image.NewNRGBA(rect)
	copy(img.Pix, data)
	return img, nil
}
