// ecbcolor paints the blocks of a file by frequency so that repeated
// blocks, such as those left by ECB-mode encryption of structured data,
// show up as a picture. The most frequent block is painted white, the
// next most frequent ones get their own colors and everything else is
// black.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprint(out, "Analyze: ecbcolor [flags] <input>\nDecode:  ecbcolor <input.ecbr>\n\nFlags:\n")
		fs.PrintDefaults()
	}
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := defaultConfig()
	fs := newFlagSet("ecbcolor", &cfg, stderr)
	fs.Usage = usage(fs)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 0
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(stderr, "ecbcolor: config: exactly one input file expected")
		return 1
	}
	cfg.Input = fs.Arg(0)

	logger := log.New(io.Discard, "ecbcolor: ", 0)
	if cfg.Verbose {
		logger.SetOutput(stderr)
	}

	// If input is .ecbr → decode to PNG
	if strings.ToLower(filepath.Ext(cfg.Input)) == rawExt {
		outPath := strings.TrimSuffix(cfg.Input, filepath.Ext(cfg.Input)) + ".png"
		if err := decodeRawFile(cfg.Input, outPath); err != nil {
			fmt.Fprintln(stderr, "ecbcolor: decode:", err)
			return 1
		}
		fmt.Fprintf(stdout, "Decoded %s → %s\n", cfg.Input, outPath)
		return 0
	}

	if err := process(context.Background(), cfg, stdout, logger); err != nil {
		fmt.Fprintln(stderr, "ecbcolor:", err)
		return 1
	}
	return 0
}

// process runs one analysis from file to artifact.
func process(ctx context.Context, cfg Config, stdout io.Writer, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return stageErr("config", err)
	}

	data, err := readInput(cfg.Input, cfg.Decompress)
	if err != nil {
		return stageErr("read", err)
	}
	logger.Printf("read %d bytes from %s", len(data), cfg.Input)

	res, err := Analyze(ctx, data, cfg, logger)
	if err != nil {
		return err
	}

	if _, err := res.Report.WriteTo(stdout); err != nil {
		return stageErr("report", err)
	}
	fmt.Fprintf(stdout, "Size: %v\n", res.Size)

	img := Transform(res.Canvas.Image(), cfg.Flip, cfg.Scale)
	outPath := OutputPath(cfg.Input, cfg.Colors, cfg.Format)
	err = writeFileAtomic(outPath, func(w io.Writer) error {
		return EncodeImage(w, cfg.Format, img, res.Canvas)
	})
	if err != nil {
		return stageErr("write", err)
	}
	logger.Printf("wrote %s", outPath)

	switch cfg.Show {
	case ShowSixel:
		err = ShowSixelImage(stdout, img)
	case ShowTerm:
		err = ShowTerminal(img, filepath.Base(outPath))
	}
	if err != nil {
		return stageErr("show", err)
	}
	return nil
}

// Result is everything Analyze derived from the input.
type Result struct {
	Tokens     []Token
	Histogram  Histogram
	Assignment *ColorAssignment
	Report     *Report
	Policy     DimensionPolicy
	Period     Period
	Size       Size
	Canvas     *Canvas
}

// Analyze runs tokenizer, histogram, palette, optional width inference
// and renderer over data. It does no I/O besides logging.
func Analyze(ctx context.Context, data []byte, cfg Config, logger *log.Logger) (*Result, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, stageErr("config", err)
	}
	res := &Result{Policy: policy}

	res.Tokens, err = Tokenize(data, cfg.BlockSize, cfg.Offset)
	if err != nil {
		return nil, stageErr("tokenize", err)
	}
	if len(res.Tokens) == 0 {
		return nil, stageErr("tokenize", fmt.Errorf("%w: %d bytes, blocksize %d, offset %d blocks",
			ErrNoData, len(data), cfg.BlockSize, cfg.Offset))
	}

	res.Histogram = BuildHistogram(res.Tokens)
	logger.Printf("%d blocks, %d distinct", res.Histogram.Total, len(res.Histogram.Ranked))

	var rng *rand.Rand
	if cfg.HasSeed {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	res.Assignment, res.Report, err = SelectPalette(res.Histogram, PaletteOptions{
		Colors: cfg.Colors,
		Groups: cfg.Groups,
		Mode:   cfg.Mode(),
		Rand:   rng,
	})
	if err != nil {
		return nil, stageErr("palette", err)
	}
	logger.Printf("%d blocks colored, %d residual", res.Histogram.Total-res.Report.Residual, res.Report.Residual)

	ppt := PixelsPerToken(cfg.BlockSize, cfg.PixelBytes)
	pixels := len(res.Tokens) * ppt

	inferred := 0
	if policy.Kind == DimInferred {
		ictx := ctx
		if cfg.InferTimeout > 0 {
			var cancel context.CancelFunc
			ictx, cancel = context.WithTimeout(ctx, cfg.InferTimeout)
			defer cancel()
		}
		top, _ := res.Histogram.Top()
		res.Period, err = InferPeriod(ictx, res.Tokens, top, InferOptions{
			Step:     cfg.Step,
			Factor:   cfg.Factor,
			MinShift: cfg.MinShift,
			MaxShift: cfg.MaxShift,
		})
		if err != nil {
			return nil, stageErr("infer", err)
		}
		inferred = res.Period.Shift * ppt
		logger.Printf("period %d blocks (score %.3f over %d samples, searched %d..%d)",
			res.Period.Shift, res.Period.Score, res.Period.Samples, res.Period.From, res.Period.To)
	}

	res.Size, err = policy.Resolve(pixels, inferred)
	if err != nil {
		return nil, stageErr("render", err)
	}
	logger.Printf("%s dimensions: %v, %d pixels per block", policy.Kind, res.Size, ppt)

	res.Canvas, err = Render(res.Assignment, res.Tokens, ppt, res.Size)
	if err != nil {
		return nil, stageErr("render", err)
	}
	return res, nil
}

func readInput(path string, decompress bool) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if decompress && isZstd(data) {
		return decompressZstd(data)
	}
	return data, nil
}

func decodeRawFile(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	c, err := DecodeRaw(data)
	if err != nil {
		return err
	}

	var img image.Image = c.Image()
	return writeFileAtomic(outPath, func(w io.Writer) error {
		return EncodeImage(w, FormatPNG, img, c)
	})
}
