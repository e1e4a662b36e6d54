package main

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-sixel"
	"golang.org/x/image/draw"
)

// Display modes for -show.
const (
	ShowNone  = ""
	ShowSixel = "sixel"
	ShowTerm  = "term"
)

// maxSixelWidth keeps the preview within a typical terminal window.
const maxSixelWidth = 800

// fitInto scales img with nearest-neighbour sampling so it fits in w x h,
// keeping the aspect ratio. Images that already fit are returned as is.
func fitInto(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() <= w && b.Dy() <= h {
		return img
	}
	sx := float64(w) / float64(b.Dx())
	sy := float64(h) / float64(b.Dy())
	s := min(sx, sy)
	dw := max(int(float64(b.Dx())*s), 1)
	dh := max(int(float64(b.Dy())*s), 1)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// ShowSixelImage prints img to a sixel capable terminal.
func ShowSixelImage(w io.Writer, img image.Image) error {
	b := img.Bounds()
	img = fitInto(img, maxSixelWidth, b.Dy()*maxSixelWidth/max(b.Dx(), 1)+1)
	enc := sixel.NewEncoder(w)
	enc.Dither = false
	return enc.Encode(img)
}

// ShowTerminal draws img with half-block cells until q or Esc is pressed.
// Every cell shows two pixels: the upper one as foreground, the lower as
// background.
func ShowTerminal(img image.Image, title string) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	defStyle := tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset)
	s.SetStyle(defStyle)

	redraw := func() {
		s.Clear()
		cols, rows := s.Size()
		if rows < 2 {
			return
		}
		view := fitInto(img, cols, (rows-1)*2)
		vb := view.Bounds()
		for y := 0; y < vb.Dy(); y += 2 {
			for x := 0; x < vb.Dx(); x++ {
				top := termColor(view.At(vb.Min.X+x, vb.Min.Y+y))
				bottom := tcell.ColorReset
				if y+1 < vb.Dy() {
					bottom = termColor(view.At(vb.Min.X+x, vb.Min.Y+y+1))
				}
				s.SetContent(x, y/2, '▀', nil, defStyle.Foreground(top).Background(bottom))
			}
		}
		msg := fmt.Sprintf(" %s  %dx%d  q to quit ", title, img.Bounds().Dx(), img.Bounds().Dy())
		for i, c := range msg {
			s.SetContent(i, rows-1, c, nil, defStyle.Reverse(true))
		}
		s.Show()
	}

	redraw()
	for {
		switch ev := s.PollEvent().(type) {
		case *tcell.EventResize:
			s.Sync()
			redraw()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
				return nil
			}
		case nil:
			return nil
		}
	}
}

func termColor(c color.Color) tcell.Color {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	return tcell.NewRGBColor(int32(rgba.R), int32(rgba.G), int32(rgba.B))
}
