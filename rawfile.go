package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"io"
)

// The .ecbr archive keeps a rendered canvas losslessly:
//
//	magic "ECBR"
//	width, height  uint32 big endian
//	mode           uint8
//	palette size   uint16, then size * RGBA
//	zstd frame     palette indices, bitsNeeded(size-1) bits each, msb-first
const (
	magicRaw = "ECBR"
	rawExt   = ".ecbr"
)

func writeRawHeader(b *bytes.Buffer, c *Canvas) error {
	if _, err := b.WriteString(magicRaw); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint32(c.Width)); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint32(c.Height)); err != nil {
		return err
	}
	if err := b.WriteByte(byte(c.Mode)); err != nil {
		return err
	}
	if err := binary.Write(b, binary.BigEndian, uint16(len(c.Palette))); err != nil {
		return err
	}
	for _, p := range c.Palette {
		if _, err := b.Write([]byte{p.R, p.G, p.B, p.A}); err != nil {
			return err
		}
	}
	return nil
}

func readRawHeader(r *bytes.Reader) (*Canvas, error) {
	magic := make([]byte, len(magicRaw))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if string(magic) != magicRaw {
		return nil, ErrInvalidMagic
	}

	var w32, h32 uint32
	if err := binary.Read(r, binary.BigEndian, &w32); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &h32); err != nil {
		return nil, err
	}
	if w32 == 0 || h32 == 0 || w32 > maxDimension || h32 > maxDimension {
		return nil, fmt.Errorf("ecbr: canvas %dx%d out of range", w32, h32)
	}
	mode, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if RenderMode(mode) != ModeRGBA && RenderMode(mode) != ModeIndexed {
		return nil, fmt.Errorf("ecbr: unknown mode %d", mode)
	}
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if n == 0 || n > 256 {
		return nil, fmt.Errorf("ecbr: palette size %d out of range", n)
	}
	pal := make([]color.RGBA, n)
	entry := make([]byte, 4)
	for i := range pal {
		if _, err := io.ReadFull(r, entry); err != nil {
			return nil, err
		}
		pal[i] = color.RGBA{entry[0], entry[1], entry[2], entry[3]}
	}

	return &Canvas{
		Size:    Size{Width: int(w32), Height: int(h32)},
		Mode:    RenderMode(mode),
		Palette: pal,
	}, nil
}

// EncodeRaw writes c as an .ecbr archive.
func EncodeRaw(w io.Writer, c *Canvas) error {
	if len(c.Palette) == 0 || len(c.Palette) > 256 {
		return fmt.Errorf("ecbr: palette size %d out of range", len(c.Palette))
	}
	var b bytes.Buffer
	if err := writeRawHeader(&b, c); err != nil {
		return err
	}

	nbits := bitsNeeded(len(c.Palette) - 1)
	var packed bytes.Buffer
	packed.Grow(len(c.Index)*nbits/8 + 1)
	bw := NewBitWriter(&packed)
	for _, idx := range c.Index {
		if err := bw.WriteBits(idx, nbits); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	b.Write(compressZstd(packed.Bytes()))

	_, err := w.Write(b.Bytes())
	return err
}

// DecodeRaw reads an .ecbr archive back into a canvas.
func DecodeRaw(data []byte) (*Canvas, error) {
	r := bytes.NewReader(data)
	c, err := readRawHeader(r)
	if err != nil {
		return nil, err
	}
	rest := data[len(data)-r.Len():]
	packed, err := decompressZstd(rest)
	if err != nil {
		return nil, fmt.Errorf("ecbr: payload: %w", err)
	}

	area := c.Width * c.Height
	nbits := bitsNeeded(len(c.Palette) - 1)
	if len(packed)*8 < area*nbits {
		return nil, fmt.Errorf("ecbr: truncated payload: %d bytes for %v", len(packed), c.Size)
	}
	c.Index = make([]uint8, area)
	br := NewBitReader(packed)
	for i := range c.Index {
		v, err := br.ReadBits(nbits)
		if err != nil {
			return nil, err
		}
		if int(v) >= len(c.Palette) {
			return nil, fmt.Errorf("ecbr: index %d outside palette of %d", v, len(c.Palette))
		}
		c.Index[i] = v
	}
	c.fillPix()
	return c, nil
}
