package main

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	svg "github.com/ajstarks/svgo"
	"github.com/disintegration/gift"
	"github.com/xfmoulet/qoi"
)

// Output formats.
const (
	FormatPNG  = "png"
	FormatQOI  = "qoi"
	FormatSVG  = "svg"
	FormatECBR = "ecbr"
)

// maxScale bounds -scale.
const maxScale = 64

func validFormat(f string) bool {
	switch f {
	case FormatPNG, FormatQOI, FormatSVG, FormatECBR:
		return true
	}
	return false
}

// OutputPath names the artifact next to the input, e.g. "x.bin.ecb_16.png".
func OutputPath(input string, colors int, format string) string {
	return fmt.Sprintf("%s.ecb_%d.%s", input, colors, format)
}

// Transform applies the optional vertical flip and nearest-neighbour
// upscale. Paletted images stay paletted.
func Transform(img image.Image, flip bool, scale int) image.Image {
	var filters []gift.Filter
	if flip {
		filters = append(filters, gift.FlipVertical())
	}
	if scale > 1 {
		b := img.Bounds()
		filters = append(filters, gift.Resize(b.Dx()*scale, b.Dy()*scale, gift.NearestNeighborResampling))
	}
	if len(filters) == 0 {
		return img
	}

	g := gift.New(filters...)
	bounds := g.Bounds(img.Bounds())
	if p, ok := img.(*image.Paletted); ok {
		dst := image.NewPaletted(bounds, p.Palette)
		g.Draw(dst, img)
		return dst
	}
	dst := image.NewRGBA(bounds)
	g.Draw(dst, img)
	return dst
}

// EncodeImage writes img in the given format. FormatECBR needs the
// canvas and ignores img.
func EncodeImage(w io.Writer, format string, img image.Image, c *Canvas) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatQOI:
		return qoi.Encode(w, img)
	case FormatSVG:
		return encodeSVG(w, img)
	case FormatECBR:
		return EncodeRaw(w, c)
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, format)
	}
}

// encodeSVG draws one rect per horizontal run of equal color.
func encodeSVG(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	b := img.Bounds()
	canvas := svg.New(bw)
	canvas.Start(b.Dx(), b.Dy(), `shape-rendering="crispEdges"`)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		x := b.Min.X
		for x < b.Max.X {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			run := 1
			for x+run < b.Max.X && color.RGBAModel.Convert(img.At(x+run, y)).(color.RGBA) == c {
				run++
			}
			canvas.Rect(x-b.Min.X, y-b.Min.Y, run, 1, "fill:#"+hexColor(c))
			x += run
		}
	}
	canvas.End()
	return bw.Flush()
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place only when write succeeds.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
