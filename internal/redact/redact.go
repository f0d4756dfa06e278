// Package redact turns raw captured frames into frames that are safe
// to disclose. A raw frame must not outlive the capture cycle that
// produced it; the *Frame returned here is the only representation the
// rest of the system may pass to a model or persist.
package redact

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/ppiankov/deskbridge/internal/model"
)

// Redact copies src, draws an opaque black rectangle over every PII
// box (clamped to image bounds), and returns the result tagged
// redacted. The source image is never mutated.
func Redact(src image.Image, piiBoxes []model.TextBox) *Frame {
	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, src, bounds.Min, draw.Src)

	black := image.NewUniform(color.Black)
	for _, box := range piiBoxes {
		r := clampBox(box, bounds)
		if r.Empty() {
			continue
		}
		draw.Draw(dst, r, black, image.Point{}, draw.Src)
	}

	return &Frame{
		img:      dst,
		redacted: true,
		meta: Meta{
			PIIBoxCount: len(piiBoxes),
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
		},
	}
}

// clampBox converts a text box to an image rectangle clamped to
// non-negative, in-bounds coordinates.
func clampBox(box model.TextBox, bounds image.Rectangle) image.Rectangle {
	left := max(box.Left, 0)
	top := max(box.Top, 0)
	right := max(box.Left+box.Width, left)
	bottom := max(box.Top+box.Height, top)
	return image.Rect(left, top, right, bottom).Intersect(bounds)
}
