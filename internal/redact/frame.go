package redact

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
)

// Meta describes a redacted frame for audit payloads. Counts only —
// never the covered text.
type Meta struct {
	PIIBoxCount int `json:"pii_box_count"`
	Width       int `json:"width"`
	Height      int `json:"height"`
}

// Frame is a raster image that is safe to disclose to models and logs.
// It is only constructed by Redact, so holding a *Frame with
// Redacted()==true is proof the pipeline ran. The underlying image is
// deliberately not exported: the invariant cannot be bypassed by
// reaching through to raw pixels.
type Frame struct {
	img      *image.RGBA
	redacted bool
	meta     Meta
}

// Redacted reports whether the frame went through the redaction
// pipeline. Always true for frames built by Redact.
func (f *Frame) Redacted() bool { return f.redacted }

// Meta returns the frame's audit metadata.
func (f *Frame) Meta() Meta { return f.meta }

// Size returns the frame dimensions in pixels.
func (f *Frame) Size() (width, height int) {
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}

// At returns the pixel at (x, y). Exposed for tests and the pilot
// loop's frame inspection; does not leak the mutable image.
func (f *Frame) At(x, y int) (r, g, b, a uint32) {
	return f.img.At(x, y).RGBA()
}

// PNG encodes the frame as PNG bytes, the only serialized form handed
// to providers.
func (f *Frame) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.img); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the frame as a PNG file.
func (f *Frame) Save(path string) error {
	data, err := f.PNG()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	return nil
}
