package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestRaw_RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mode   RenderMode
		colors int
	}{
		{name: "rgba_2", mode: ModeRGBA, colors: 2},
		{name: "rgba_16", mode: ModeRGBA, colors: 16},
		{name: "indexed_16", mode: ModeIndexed, colors: 16},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := makeTestData(9000, 11)
			tokens, err := Tokenize(buf, 2, 0)
			if err != nil {
				t.Fatalf("Tokenize: %v", err)
			}
			a, _, err := SelectPalette(BuildHistogram(tokens), PaletteOptions{Colors: tc.colors, Groups: 1, Mode: tc.mode, Rand: seeded(4)})
			if err != nil {
				t.Fatalf("SelectPalette: %v", err)
			}
			size, err := DimensionPolicy{Kind: DimRatio, W: 4, H: 3}.Resolve(len(tokens), 0)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			src, err := Render(a, tokens, 1, size)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}

			var enc bytes.Buffer
			if err := EncodeRaw(&enc, src); err != nil {
				t.Fatalf("EncodeRaw: %v", err)
			}
			dec, err := DecodeRaw(enc.Bytes())
			if err != nil {
				t.Fatalf("DecodeRaw: %v", err)
			}

			if dec.Size != src.Size || dec.Mode != src.Mode {
				t.Fatalf("header mismatch: got %v %s, want %v %s", dec.Size, dec.Mode, src.Size, src.Mode)
			}
			if len(dec.Palette) != len(src.Palette) {
				t.Fatalf("palette size %d, want %d", len(dec.Palette), len(src.Palette))
			}
			for i := range src.Palette {
				if dec.Palette[i] != src.Palette[i] {
					t.Fatalf("palette entry %d differs", i)
				}
			}
			if !bytes.Equal(dec.Pix, src.Pix) {
				t.Fatalf("pixels differ after round trip")
			}
		})
	}
}

func TestRaw_Corrupt(t *testing.T) {
	if _, err := DecodeRaw([]byte("NOPE0000000000")); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("bad magic: %v", err)
	}
	if _, err := DecodeRaw([]byte("EC")); err == nil {
		t.Fatalf("short header accepted")
	}

	for _, dim := range [][2]uint32{{0xffffffff, 0xffffffff}, {0, 8}, {maxDimension + 1, 1}, {maxDimension, maxDimension}} {
		var hdr bytes.Buffer
		hdr.WriteString(magicRaw)
		binary.Write(&hdr, binary.BigEndian, dim[0])
		binary.Write(&hdr, binary.BigEndian, dim[1])
		hdr.WriteByte(byte(ModeRGBA))
		binary.Write(&hdr, binary.BigEndian, uint16(2))
		hdr.Write([]byte{0, 0, 0, 255, 255, 255, 255, 255})
		if _, err := DecodeRaw(hdr.Bytes()); err == nil {
			t.Fatalf("%dx%d canvas with empty payload accepted", dim[0], dim[1])
		}
	}

	c := stripedCanvas(t, ModeRGBA, 8, 8)
	var enc bytes.Buffer
	if err := EncodeRaw(&enc, c); err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}
	data := enc.Bytes()
	if _, err := DecodeRaw(data[:len(data)-8]); err == nil {
		t.Fatalf("truncated payload accepted")
	}
}
