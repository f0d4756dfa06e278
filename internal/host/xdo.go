// Package host injects input into the physical desktop. Like the OCR
// and VM layers it shells out to an external binary behind a small
// interface, so the core never links against display libraries.
package host

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// XDo drives the host pointer and keyboard through xdotool.
type XDo struct {
	binary string
}

// NewXDo creates the adapter. An empty binary defaults to xdotool on
// PATH.
func NewXDo(binary string) *XDo {
	if binary == "" {
		binary = "xdotool"
	}
	return &XDo{binary: binary}
}

func (x *XDo) run(args ...string) error {
	if _, err := exec.LookPath(x.binary); err != nil {
		return fmt.Errorf("%s not found: install it or run in a VM mode", x.binary)
	}
	out, err := exec.Command(x.binary, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w (%s)", x.binary, args[0], err, out)
	}
	return nil
}

func (x *XDo) Move(px, py int) error {
	return x.run("mousemove", strconv.Itoa(px), strconv.Itoa(py))
}

func (x *XDo) Click(px, py int) error {
	if err := x.Move(px, py); err != nil {
		return err
	}
	return x.run("click", "1")
}

func (x *XDo) Type(text string) error {
	return x.run("type", "--delay", "50", "--", text)
}

// Screenshot captures the host screen with an external grabber
// (scrot by default). A missing binary degrades to (nil, nil) so a
// headless run keeps cycling instead of failing.
type Screenshot struct {
	binary  string
	workDir string
}

func NewScreenshot(binary string) *Screenshot {
	if binary == "" {
		binary = "scrot"
	}
	return &Screenshot{binary: binary, workDir: os.TempDir()}
}

func (s *Screenshot) Capture() (image.Image, error) {
	if _, err := exec.LookPath(s.binary); err != nil {
		return nil, nil
	}
	path := filepath.Join(s.workDir, "deskbridge_host_frame.png")
	if out, err := exec.Command(s.binary, "--overwrite", path).CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", s.binary, err, out)
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode host frame: %w", err)
	}
	return img, nil
}
