package vision

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ppiankov/deskbridge/internal/model"
)

// Tesseract runs the tesseract binary in TSV mode. The OCR algorithm
// itself is out of scope; this adapter only shells out and parses.
type Tesseract struct {
	binary  string
	workDir string
}

// NewTesseract creates an engine using the given binary path, or
// "tesseract" from PATH when empty.
func NewTesseract(binary string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	return &Tesseract{binary: binary, workDir: os.TempDir()}
}

// DetectTextBoxes OCRs the frame. A missing binary degrades to an
// empty result — text detection is a best-effort input, not a safety
// gate (the redaction pipeline handles whatever boxes it receives).
func (t *Tesseract) DetectTextBoxes(img image.Image) ([]model.TextBox, error) {
	if _, err := exec.LookPath(t.binary); err != nil {
		return nil, nil
	}

	tmp, err := os.CreateTemp(t.workDir, "deskbridge-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("ocr temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("encode ocr input: %w", err)
	}
	tmp.Close()

	cmd := exec.Command(t.binary, filepath.Clean(tmp.Name()), "stdout", "tsv")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run tesseract: %w", err)
	}

	return ParseTSV(out.String()), nil
}

// ParseTSV extracts text boxes from tesseract's TSV output. Rows with
// blank text are dropped; malformed rows are skipped rather than
// failing the whole frame.
func ParseTSV(tsv string) []model.TextBox {
	var boxes []model.TextBox

	scanner := bufio.NewScanner(strings.NewReader(tsv))
	first := true
	for scanner.Scan() {
		if first {
			first = false // header row
			continue
		}
		fields := strings.Split(scanner.Text(), "\t")
		if len(fields) < 12 {
			continue
		}
		text := strings.TrimSpace(fields[11])
		if text == "" {
			continue
		}
		left, err1 := strconv.Atoi(fields[6])
		top, err2 := strconv.Atoi(fields[7])
		width, err3 := strconv.Atoi(fields[8])
		height, err4 := strconv.Atoi(fields[9])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		boxes = append(boxes, model.TextBox{
			Text:   text,
			Left:   left,
			Top:    top,
			Width:  width,
			Height: height,
		})
	}
	return boxes
}
