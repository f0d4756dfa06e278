package redact

import (
	"image"
	"image/color"
	"testing"

	"github.com/ppiankov/deskbridge/internal/model"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestRedactBlacksOutBoxes(t *testing.T) {
	src := whiteImage(100, 50)
	frame := Redact(src, []model.TextBox{
		{Text: "a@b.co", Left: 10, Top: 10, Width: 20, Height: 10},
	})

	if !frame.Redacted() {
		t.Fatal("frame not marked redacted")
	}
	if frame.Meta().PIIBoxCount != 1 {
		t.Errorf("expected pii_box_count=1, got %d", frame.Meta().PIIBoxCount)
	}

	// Inside the box: black.
	if r, g, b, _ := frame.At(15, 15); r != 0 || g != 0 || b != 0 {
		t.Errorf("pixel inside box not black: %d %d %d", r, g, b)
	}
	// Outside the box: untouched.
	if r, _, _, _ := frame.At(50, 40); r == 0 {
		t.Error("pixel outside box was overdrawn")
	}
}

func TestRedactDoesNotMutateSource(t *testing.T) {
	src := whiteImage(20, 20)
	Redact(src, []model.TextBox{{Left: 0, Top: 0, Width: 20, Height: 20}})

	if r, _, _, _ := src.At(5, 5).RGBA(); r == 0 {
		t.Error("source image was mutated")
	}
}

func TestRedactZeroBoxesIsPixelIdentical(t *testing.T) {
	src := whiteImage(30, 30)
	frame := Redact(src, nil)

	if !frame.Redacted() {
		t.Fatal("frame not marked redacted")
	}
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			fr, fg, fb, fa := frame.At(x, y)
			sr, sg, sb, sa := src.At(x, y).RGBA()
			if fr != sr || fg != sg || fb != sb || fa != sa {
				t.Fatalf("pixel (%d,%d) differs from source", x, y)
			}
		}
	}
}

func TestRedactClampsOutOfBoundsBoxes(t *testing.T) {
	src := whiteImage(40, 40)

	// Negative origin and overshooting extent must not panic and must
	// still cover the in-bounds part.
	frame := Redact(src, []model.TextBox{
		{Left: -10, Top: -10, Width: 25, Height: 25},
		{Left: 35, Top: 35, Width: 100, Height: 100},
	})

	if r, _, _, _ := frame.At(5, 5); r != 0 {
		t.Error("in-bounds part of clamped box not covered")
	}
	if r, _, _, _ := frame.At(38, 38); r != 0 {
		t.Error("bottom-right clamped box not covered")
	}
	if r, _, _, _ := frame.At(30, 5); r == 0 {
		t.Error("pixel outside both boxes was overdrawn")
	}
}

func TestFramePNGRoundTrip(t *testing.T) {
	frame := Redact(whiteImage(8, 8), nil)
	data, err := frame.PNG()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty PNG output")
	}
	// PNG signature.
	if data[1] != 'P' || data[2] != 'N' || data[3] != 'G' {
		t.Error("output is not a PNG")
	}
}
