package main

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// DimensionKind tags how the output rectangle is chosen.
type DimensionKind int

const (
	DimInferred DimensionKind = iota
	DimRatio
	DimWidth
	DimHeight
)

func (k DimensionKind) String() string {
	switch k {
	case DimRatio:
		return "ratio"
	case DimWidth:
		return "width"
	case DimHeight:
		return "height"
	default:
		return "inferred"
	}
}

// DimensionPolicy is one of: inferred, ratio W:H, explicit width W,
// explicit height H.
type DimensionPolicy struct {
	Kind DimensionKind
	W, H int
}

// maxDimension caps the width and height a canvas may be asked for.
const maxDimension = 1 << 20

// Size is a resolved canvas rectangle in pixels.
type Size struct {
	Width, Height int
}

func (s Size) String() string { return fmt.Sprintf("%dx%d", s.Width, s.Height) }

// PixelsPerToken is the number of output pixels one block expands to.
func PixelsPerToken(blocksize, pixelBytes int) int {
	if pixelBytes <= 0 {
		return 1
	}
	return max(blocksize/pixelBytes, 1)
}

// Resolve turns the policy into a rectangle holding pixels pixels.
// inferredWidth is only read for DimInferred. Height is rounded up; the
// renderer pads the tail with the residual color.
func (p DimensionPolicy) Resolve(pixels, inferredWidth int) (Size, error) {
	if pixels <= 0 {
		return Size{}, fmt.Errorf("%w: nothing to draw", ErrNoData)
	}
	var w int
	switch p.Kind {
	case DimRatio:
		if p.W <= 0 || p.H <= 0 {
			return Size{}, fmt.Errorf("%w: ratio %d:%d", ErrInvalidConfig, p.W, p.H)
		}
		fw := math.Round(math.Sqrt(float64(p.W) / float64(p.H) * float64(pixels)))
		if fw > maxDimension {
			return Size{}, fmt.Errorf("%w: ratio %d:%d needs width %.0f", ErrSizeMismatch, p.W, p.H, fw)
		}
		w = max(int(fw), 1)
	case DimWidth:
		if p.W <= 0 || p.W > maxDimension {
			return Size{}, fmt.Errorf("%w: width %d", ErrInvalidConfig, p.W)
		}
		w = p.W
	case DimHeight:
		if p.H <= 0 || p.H > maxDimension {
			return Size{}, fmt.Errorf("%w: height %d", ErrInvalidConfig, p.H)
		}
		w = ceilDiv(pixels, min(p.H, pixels))
	default:
		if inferredWidth <= 0 {
			return Size{}, fmt.Errorf("%w: inferred width %d", ErrInsufficientData, inferredWidth)
		}
		w = inferredWidth
	}
	if w > maxDimension {
		return Size{}, fmt.Errorf("%w: width %d above %d", ErrSizeMismatch, w, maxDimension)
	}
	return Size{Width: w, Height: ceilDiv(pixels, w)}, nil
}

// Canvas is the rendered grid. Index holds one palette index per pixel;
// Pix is the buffer handed to encoders: RGBA bytes in ModeRGBA, the same
// slice as Index in ModeIndexed.
type Canvas struct {
	Size
	Mode    RenderMode
	Palette []color.RGBA
	Index   []uint8
	Pix     []byte
}

// Render expands every token to pixelsPerToken pixels of its color, in
// token order, and lays them out row-major in size. Pixels past the data
// are residual.
func Render(a *ColorAssignment, tokens []Token, pixelsPerToken int, size Size) (*Canvas, error) {
	if pixelsPerToken <= 0 {
		return nil, fmt.Errorf("%w: %d pixels per block", ErrInvalidConfig, pixelsPerToken)
	}
	pixels := len(tokens) * pixelsPerToken
	area := size.Width * size.Height
	if size.Width <= 0 || size.Height <= 0 || area < pixels {
		return nil, fmt.Errorf("%w: %v holds %d pixels, data has %d", ErrSizeMismatch, size, area, pixels)
	}

	c := &Canvas{
		Size:    size,
		Mode:    a.Mode,
		Palette: paletteRGBA(a.Palette),
		Index:   make([]uint8, area),
	}
	p := 0
	for _, t := range tokens {
		idx := a.Lookup(t)
		for j := 0; j < pixelsPerToken; j++ {
			c.Index[p] = idx
			p++
		}
	}
	for ; p < area; p++ {
		c.Index[p] = a.Residual
	}
	c.fillPix()
	return c, nil
}

func (c *Canvas) fillPix() {
	if c.Mode == ModeIndexed {
		c.Pix = c.Index
		return
	}
	c.Pix = make([]byte, len(c.Index)*4)
	for i, idx := range c.Index {
		col := c.Palette[idx]
		c.Pix[i*4+0] = col.R
		c.Pix[i*4+1] = col.G
		c.Pix[i*4+2] = col.B
		c.Pix[i*4+3] = col.A
	}
}

// Image wraps Pix without copying.
func (c *Canvas) Image() image.Image {
	rect := image.Rect(0, 0, c.Width, c.Height)
	if c.Mode == ModeIndexed {
		return &image.Paletted{Pix: c.Pix, Stride: c.Width, Rect: rect, Palette: colorPalette(c.Palette)}
	}
	return &image.RGBA{Pix: c.Pix, Stride: c.Width * 4, Rect: rect}
}
