// Package vision holds the screen-capture and OCR collaborator
// boundaries. The capture primitive and the OCR engine are external;
// the core consumes only an image and a list of text boxes.
package vision

import (
	"image"

	"github.com/ppiankov/deskbridge/internal/model"
)

// ScreenCapturer produces a raw frame of the current screen. A nil
// image with a nil error means capture degraded gracefully (e.g. the
// VM screenshot never materialized); callers skip the cycle.
type ScreenCapturer interface {
	Capture() (image.Image, error)
}

// OCREngine detects text regions in a frame. An empty slice is a valid
// result; errors are reserved for engine failures.
type OCREngine interface {
	DetectTextBoxes(img image.Image) ([]model.TextBox, error)
}
