package model

// TextBox is one OCR-detected text region in frame pixel coordinates.
// Ephemeral: produced per capture, consumed by the PII detector and
// redaction pipeline, discarded after redaction.
type TextBox struct {
	Text   string
	Left   int
	Top    int
	Width  int
	Height int
}
