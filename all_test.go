package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// -----------------------------
// End-to-end tests
// -----------------------------

// makeECBFile fakes an ECB-encrypted raster: rows of width blocks, mostly
// one repeated "background" block, with a vertical stripe of a second
// repeated block and some unique noise away from the first and last rows.
func makeECBFile(rows, width int) []byte {
	bg := bytes.Repeat([]byte{0x11}, 16)
	stripe := bytes.Repeat([]byte{0x22}, 16)
	var buf bytes.Buffer
	n := 0
	for y := 0; y < rows; y++ {
		for x := 0; x < width; x++ {
			switch {
			case x == 3 || x == 4:
				buf.Write(stripe)
			case y >= 5 && y < rows-5 && (x*7+y*13)%31 == 0:
				blk := make([]byte, 16)
				blk[0], blk[1], blk[2] = byte(n), byte(n>>8), 0xee
				n++
				buf.Write(blk)
			default:
				buf.Write(bg)
			}
		}
	}
	return buf.Bytes()
}

func writeTestInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cipher.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func decodePNGFile(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	return img
}

func TestRun_InferredWidth(t *testing.T) {
	in := writeTestInput(t, makeECBFile(40, 24))

	code, stdout, stderr := runCLI("-seed", "1", "-step", "1", in)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	// 24 blocks per row, 4 pixels per block
	if !strings.Contains(stdout, "Size: 96x40") {
		t.Fatalf("unexpected size in report:\n%s", stdout)
	}
	if !strings.HasPrefix(stdout, strings.Repeat("11", 16)) {
		t.Fatalf("report does not start with the background block:\n%s", stdout)
	}

	img := decodePNGFile(t, OutputPath(in, 16, FormatPNG))
	if got := img.Bounds(); got != image.Rect(0, 0, 96, 40) {
		t.Fatalf("image bounds %v", got)
	}
	if c := rgbaAt(img, 0, 0); c != backgroundColor {
		t.Fatalf("top-left pixel %v, want background", c)
	}
}

func TestRun_ExplicitWidth(t *testing.T) {
	// 64 blocks of 4 bytes, one RGBA pixel each
	data := bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7, 8}, 32)
	in := writeTestInput(t, data)

	code, stdout, stderr := runCLI("-blocksize", "4", "-width", "8", "-seed", "3", in)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Size: 8x8") {
		t.Fatalf("want 8x8:\n%s", stdout)
	}
}

func TestRun_Failures(t *testing.T) {
	unique := make([]byte, 16*20)
	for i := 0; i < 20; i++ {
		unique[i*16] = byte(i)
	}

	for _, tc := range []struct {
		name  string
		data  []byte
		args  []string
		stage string
	}{
		{name: "width_and_height", data: makeECBFile(4, 8), args: []string{"-width", "8", "-height", "8"}, stage: "config"},
		{name: "ratio_and_width", data: makeECBFile(4, 8), args: []string{"-ratio", "4:3", "-width", "8"}, stage: "config"},
		{name: "no_data", data: []byte("short"), stage: "tokenize"},
		{name: "offset_past_end", data: makeECBFile(1, 4), args: []string{"-offset", "4"}, stage: "tokenize"},
		{name: "huge_offset", data: makeECBFile(1, 4), args: []string{"-offset", "1152921504606846976"}, stage: "tokenize"},
		{name: "huge_height", data: makeECBFile(4, 8), args: []string{"-height", "9223372036854775807"}, stage: "config"},
		{name: "no_repetition", data: unique, stage: "palette"},
		{name: "cannot_infer", data: bytes.Repeat([]byte{9}, 32), args: []string{"-min-shift", "5"}, stage: "infer"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := writeTestInput(t, tc.data)
			code, _, stderr := runCLI(append(tc.args, in)...)
			if code == 0 {
				t.Fatalf("expected failure")
			}
			if !strings.Contains(stderr, tc.stage+":") {
				t.Fatalf("stderr does not name stage %q: %s", tc.stage, stderr)
			}
			entries, err := os.ReadDir(filepath.Dir(in))
			if err != nil {
				t.Fatalf("ReadDir: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("failed run left %d files", len(entries))
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI()
	if code != 0 {
		t.Fatalf("exit %d without input", code)
	}
	if !strings.Contains(stderr, "ecbcolor [flags] <input>") {
		t.Fatalf("usage not printed: %s", stderr)
	}
}

func TestRun_ZstdInput(t *testing.T) {
	data := makeECBFile(30, 16)
	plain := writeTestInput(t, data)
	packed := writeTestInput(t, compressZstd(data))

	_, want, _ := runCLI("-seed", "5", "-width", "64", plain)
	code, got, stderr := runCLI("-seed", "5", "-width", "64", packed)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if got != want {
		t.Fatalf("compressed input gave a different report:\n%s\nwant:\n%s", got, want)
	}
}

func TestRun_RawArchiveRoundTrip(t *testing.T) {
	in := writeTestInput(t, makeECBFile(20, 16))

	code, _, stderr := runCLI("-seed", "2", "-ratio", "1:1", "-indexed", "-format", "ecbr", in)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	archive := OutputPath(in, 16, FormatECBR)
	code, stdout, stderr := runCLI(archive)
	if code != 0 {
		t.Fatalf("decode exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Decoded") {
		t.Fatalf("unexpected output %q", stdout)
	}
	decoded := decodePNGFile(t, strings.TrimSuffix(archive, rawExt)+".png")

	data, err := os.ReadFile(in)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	cfg := defaultConfig()
	cfg.Seed, cfg.HasSeed = 2, true
	cfg.Ratio = "1:1"
	cfg.Indexed = true
	res, err := Analyze(context.Background(), data, cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := res.Canvas.Image()
	if decoded.Bounds() != want.Bounds() {
		t.Fatalf("bounds %v, want %v", decoded.Bounds(), want.Bounds())
	}
	b := want.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rgbaAt(decoded, x, y) != rgbaAt(want, x, y) {
				t.Fatalf("pixel (%d,%d) differs", x, y)
			}
		}
	}
}

func TestAnalyze_StageErrors(t *testing.T) {
	cfg := defaultConfig()
	_, err := Analyze(context.Background(), nil, cfg, log.New(io.Discard, "", 0))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != "tokenize" {
		t.Fatalf("stage not recorded: %v", err)
	}
}

func TestAnalyze_Groups(t *testing.T) {
	// three interchangeable blocks that must share one color
	a := bytes.Repeat([]byte{0xa1}, 16)
	b := bytes.Repeat([]byte{0xb2}, 16)
	c := bytes.Repeat([]byte{0xc3}, 16)
	bg := bytes.Repeat([]byte{0x00}, 16)
	var buf bytes.Buffer
	for i := 0; i < 40; i++ {
		buf.Write(bg)
		buf.Write(bg)
		buf.Write(bg)
		buf.Write(bg)
		if i%2 == 0 {
			buf.Write(a)
			buf.Write(b)
			buf.Write(c)
		}
	}

	cfg := defaultConfig()
	cfg.Groups = 3
	cfg.Colors = 3
	cfg.Width = 64
	cfg.Seed, cfg.HasSeed = 8, true
	res, err := Analyze(context.Background(), buf.Bytes(), cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// top (3-1)*3 = 6 entries: bg, a, b, c survive, truncated to 3: bg, a, b
	if res.Assignment.Len() != 3 {
		t.Fatalf("colored %d tokens, want 3", res.Assignment.Len())
	}
	if res.Assignment.Lookup(Token(a)) != res.Assignment.Background || res.Assignment.Lookup(Token(b)) != res.Assignment.Background {
		t.Fatalf("first group not painted as background")
	}
	if res.Assignment.Colored(Token(c)) {
		t.Fatalf("partial group member was colored")
	}
}
