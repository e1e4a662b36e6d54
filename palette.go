package main

import (
	"fmt"
	"image/color"
	"io"
	"math/rand/v2"
	"strings"
)

// RenderMode selects how the canvas stores pixels.
type RenderMode int

const (
	// ModeRGBA writes 4 bytes per pixel with random colors.
	ModeRGBA RenderMode = iota
	// ModeIndexed writes one palette index per pixel with hue-spread colors.
	ModeIndexed
)

func (m RenderMode) String() string {
	if m == ModeIndexed {
		return "indexed"
	}
	return "rgba"
}

// BytesPerPixel is the canvas footprint of one pixel.
func (m RenderMode) BytesPerPixel() int {
	if m == ModeIndexed {
		return 1
	}
	return 4
}

// maxColors is the largest usable -colors value for a mode.
func (m RenderMode) maxColors() int {
	if m == ModeIndexed {
		// 0 is residual, 255 is background, 1..254 are hues
		return 255
	}
	return 256
}

var (
	residualColor   = color.RGBA{0x00, 0x00, 0x00, 0xff}
	backgroundColor = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// ColorAssignment maps tokens to palette indices. It is built once by
// SelectPalette and only read afterwards; any token it does not know
// resolves to the residual index.
type ColorAssignment struct {
	Mode       RenderMode
	Palette    color.Palette
	Residual   uint8
	Background uint8

	index map[Token]uint8
}

// Lookup returns the palette index for t.
func (a *ColorAssignment) Lookup(t Token) uint8 {
	if i, ok := a.index[t]; ok {
		return i
	}
	return a.Residual
}

// Color returns the RGBA color for t.
func (a *ColorAssignment) Color(t Token) color.RGBA {
	return a.Palette[a.Lookup(t)].(color.RGBA)
}

// Colored reports whether t got a dedicated color.
func (a *ColorAssignment) Colored(t Token) bool {
	_, ok := a.index[t]
	return ok
}

// Len is the number of tokens with a dedicated color.
func (a *ColorAssignment) Len() int { return len(a.index) }

// PaletteOptions configures SelectPalette. A nil Rand means an unseeded
// source, so colors differ between runs.
type PaletteOptions struct {
	Colors int
	Groups int
	Mode   RenderMode
	Rand   *rand.Rand
}

// ReportLine describes one colored token.
type ReportLine struct {
	Token Token
	Count int
	Index uint8
	Color color.RGBA
}

// Report is the diagnostic listing of the palette decision: one line per
// colored token plus the residual bucket.
type Report struct {
	Lines         []ReportLine
	Residual      int
	ResidualColor color.RGBA
	Total         int
}

// WriteTo prints the report as "<token> <count> #rrggbb" lines.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder
	width := 0
	for _, l := range r.Lines {
		fmt.Fprintf(&sb, "%s %10d #%s\n", l.Token.Hex(), l.Count, hexColor(l.Color))
		width = len(l.Token.Hex())
	}
	fmt.Fprintf(&sb, "%s %10d #%s\n", strings.Repeat("*", width), r.Residual, hexColor(r.ResidualColor))
	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// SelectPalette picks the most frequent repeated tokens and gives each
// group of them one color. The first group, which holds the most
// frequent token, gets the background color.
func SelectPalette(h Histogram, opts PaletteOptions) (*ColorAssignment, *Report, error) {
	if opts.Colors < 2 || opts.Colors > opts.Mode.maxColors() {
		return nil, nil, fmt.Errorf("%w: colors must be in [2, %d] for %s mode, got %d",
			ErrInvalidConfig, opts.Mode.maxColors(), opts.Mode, opts.Colors)
	}
	if opts.Groups < 1 {
		return nil, nil, fmt.Errorf("%w: groups must be >= 1, got %d", ErrInvalidConfig, opts.Groups)
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	limit := (opts.Colors - 1) * opts.Groups
	top := h.Ranked
	if len(top) > limit {
		top = top[:limit]
	}

	selected := make([]Entry, 0, len(top))
	for _, e := range top {
		if e.Count > 1 {
			selected = append(selected, e)
		}
	}
	selected = selected[:len(selected)/opts.Groups*opts.Groups]
	if len(selected) == 0 {
		return nil, nil, ErrNoRepetition
	}

	chunks := len(selected) / opts.Groups
	a := &ColorAssignment{
		Mode:  opts.Mode,
		index: make(map[Token]uint8, len(selected)),
	}
	var slots []uint8
	switch opts.Mode {
	case ModeIndexed:
		a.Palette = huePalette()
		a.Residual, a.Background = 0, 255
		slots = spreadHueSlots(chunks-1, rng)
	default:
		a.Palette = color.Palette{residualColor, backgroundColor}
		a.Residual, a.Background = 0, 1
		for i := 1; i < chunks; i++ {
			a.Palette = append(a.Palette, randomColor(rng))
			slots = append(slots, uint8(len(a.Palette)-1))
		}
	}

	rep := &Report{ResidualColor: residualColor, Total: h.Total}
	colored := 0
	for c := 0; c < chunks; c++ {
		idx := a.Background
		if c > 0 {
			idx = slots[c-1]
		}
		for g := 0; g < opts.Groups; g++ {
			e := selected[c*opts.Groups+g]
			a.index[e.Token] = idx
			colored += e.Count
			rep.Lines = append(rep.Lines, ReportLine{
				Token: e.Token,
				Count: e.Count,
				Index: idx,
				Color: a.Palette[idx].(color.RGBA),
			})
		}
	}
	rep.Residual = h.Total - colored

	return a, rep, nil
}

// huePalette is the fixed 256-entry palette of indexed mode.
func huePalette() color.Palette {
	p := make(color.Palette, 256)
	p[0] = residualColor
	p[255] = backgroundColor
	for i := 1; i < 255; i++ {
		p[i] = HSVToRGBA(float64(i-1)/254, 1, 1)
	}
	return p
}

// spreadHueSlots returns n hue indices spaced evenly over 1..254, in
// random order.
func spreadHueSlots(n int, rng *rand.Rand) []uint8 {
	slots := make([]uint8, n)
	for j := range slots {
		slots[j] = uint8(1 + j*254/n)
	}
	rng.Shuffle(len(slots), func(i, j int) { slots[i], slots[j] = slots[j], slots[i] })
	return slots
}

func randomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(1 + rng.IntN(254)),
		G: uint8(1 + rng.IntN(254)),
		B: uint8(1 + rng.IntN(254)),
		A: 0xff,
	}
}
