package main

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Config holds everything one run needs.
type Config struct {
	Input string

	Colors     int
	BlockSize  int
	Groups     int
	Offset     int
	PixelBytes int
	Indexed    bool

	Ratio  string
	Width  int
	Height int

	Step         int
	Factor       float64
	MinShift     int
	MaxShift     int
	InferTimeout time.Duration

	Seed    uint64
	HasSeed bool

	Flip       bool
	Scale      int
	Format     string
	Show       string
	Decompress bool
	Verbose    bool
}

func defaultConfig() Config {
	return Config{
		Colors:     16,
		BlockSize:  16,
		Groups:     1,
		PixelBytes: 4,
		Step:       defaultInferStep,
		Factor:     defaultInferFactor,
		Scale:      1,
		Format:     FormatPNG,
		Decompress: true,
	}
}

// newFlagSet binds cfg to a flag set named after the program.
func newFlagSet(name string, cfg *Config, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)

	fs.IntVar(&cfg.Colors, "colors", cfg.Colors, "number of colors, background included")
	fs.IntVar(&cfg.BlockSize, "blocksize", cfg.BlockSize, "block size in bytes")
	fs.IntVar(&cfg.Groups, "groups", cfg.Groups, "paint this many consecutive ranked blocks in one color")
	fs.IntVar(&cfg.Offset, "offset", cfg.Offset, "skip this many leading blocks")
	fs.IntVar(&cfg.PixelBytes, "pixel", cfg.PixelBytes, "bytes per source pixel")
	fs.BoolVar(&cfg.Indexed, "indexed", cfg.Indexed, "palette-indexed rendering with hue-spread colors")

	fs.StringVar(&cfg.Ratio, "ratio", cfg.Ratio, "output aspect ratio W:H")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "output width in pixels")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "output height in pixels")

	fs.IntVar(&cfg.Step, "step", cfg.Step, "sampling step of the width inference (smaller is slower and more precise)")
	fs.Float64Var(&cfg.Factor, "factor", cfg.Factor, "width inference searches sqrt(N)/factor .. sqrt(N)*factor")
	fs.IntVar(&cfg.MinShift, "min-shift", cfg.MinShift, "lowest row length in blocks to try (0 = automatic)")
	fs.IntVar(&cfg.MaxShift, "max-shift", cfg.MaxShift, "highest row length in blocks to try (0 = automatic)")
	fs.DurationVar(&cfg.InferTimeout, "infer-timeout", cfg.InferTimeout, "give up width inference after this long (0 = never)")

	fs.Func("seed", "seed for the color generator (default: random)", func(s string) error {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return err
		}
		cfg.Seed, cfg.HasSeed = v, true
		return nil
	})

	fs.BoolVar(&cfg.Flip, "flip", cfg.Flip, "flip the image vertically")
	fs.IntVar(&cfg.Scale, "scale", cfg.Scale, "upscale the image by this factor")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: png, qoi, svg or ecbr")
	fs.StringVar(&cfg.Show, "show", cfg.Show, "display the result: sixel or term")
	fs.BoolVar(&cfg.Decompress, "decompress", cfg.Decompress, "inflate zstd-compressed input")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose diagnostics on stderr")
	return fs
}

// Mode is the render mode implied by the config.
func (c Config) Mode() RenderMode {
	if c.Indexed {
		return ModeIndexed
	}
	return ModeRGBA
}

// Validate rejects bad values and conflicting dimension flags before
// any data is read.
func (c Config) Validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: -blocksize must be > 0", ErrInvalidConfig)
	case c.Colors < 2 || c.Colors > c.Mode().maxColors():
		return fmt.Errorf("%w: -colors must be in [2, %d] in %s mode", ErrInvalidConfig, c.Mode().maxColors(), c.Mode())
	case c.Groups < 1:
		return fmt.Errorf("%w: -groups must be >= 1", ErrInvalidConfig)
	case c.Offset < 0:
		return fmt.Errorf("%w: -offset must be >= 0", ErrInvalidConfig)
	case c.PixelBytes <= 0:
		return fmt.Errorf("%w: -pixel must be > 0", ErrInvalidConfig)
	case c.Width < 0 || c.Height < 0:
		return fmt.Errorf("%w: -width and -height must be positive", ErrInvalidConfig)
	case c.Width > maxDimension || c.Height > maxDimension:
		return fmt.Errorf("%w: -width and -height must be <= %d", ErrInvalidConfig, maxDimension)
	case c.Step <= 0:
		return fmt.Errorf("%w: -step must be > 0", ErrInvalidConfig)
	case c.Factor < 1:
		return fmt.Errorf("%w: -factor must be >= 1", ErrInvalidConfig)
	case c.MinShift < 0 || c.MaxShift < 0:
		return fmt.Errorf("%w: -min-shift and -max-shift must be >= 0", ErrInvalidConfig)
	case c.MaxShift > 0 && c.MinShift > c.MaxShift:
		return fmt.Errorf("%w: -min-shift above -max-shift", ErrInvalidConfig)
	case c.Scale < 1 || c.Scale > maxScale:
		return fmt.Errorf("%w: -scale must be in [1, %d]", ErrInvalidConfig, maxScale)
	case !validFormat(c.Format):
		return fmt.Errorf("%w: unknown -format %q", ErrInvalidConfig, c.Format)
	case c.Show != ShowNone && c.Show != ShowSixel && c.Show != ShowTerm:
		return fmt.Errorf("%w: unknown -show %q", ErrInvalidConfig, c.Show)
	}
	_, err := c.Policy()
	return err
}

// Policy resolves the mutually exclusive dimension flags into one choice.
func (c Config) Policy() (DimensionPolicy, error) {
	set := 0
	if c.Ratio != "" {
		set++
	}
	if c.Width > 0 {
		set++
	}
	if c.Height > 0 {
		set++
	}
	if set > 1 {
		return DimensionPolicy{}, fmt.Errorf("%w: -ratio, -width and -height are mutually exclusive", ErrInvalidConfig)
	}

	switch {
	case c.Ratio != "":
		w, h, err := parseRatio(c.Ratio)
		if err != nil {
			return DimensionPolicy{}, err
		}
		return DimensionPolicy{Kind: DimRatio, W: w, H: h}, nil
	case c.Width > 0:
		return DimensionPolicy{Kind: DimWidth, W: c.Width}, nil
	case c.Height > 0:
		return DimensionPolicy{Kind: DimHeight, H: c.Height}, nil
	}
	return DimensionPolicy{Kind: DimInferred}, nil
}

// parseRatio parses "W:H" with both parts positive.
func parseRatio(s string) (int, int, error) {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: ratio %q is not W:H", ErrInvalidConfig, s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: ratio %q: %v", ErrInvalidConfig, s, err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: ratio %q: %v", ErrInvalidConfig, s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: ratio %q must be positive", ErrInvalidConfig, s)
	}
	return w, h, nil
}
