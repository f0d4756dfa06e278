// Package provider holds concrete model backends for the router.
package provider

import (
	"context"
	"fmt"

	"github.com/ppiankov/deskbridge/internal/redact"
)

// Static is an offline provider that echoes prompts with its name.
// Used for dry runs, selfcheck, and as a terminal fallback so the
// pipeline stays exercisable without any model endpoint.
type Static struct {
	name string
}

// NewStatic creates a static provider.
func NewStatic(name string) *Static {
	return &Static{name: name}
}

func (s *Static) Name() string { return s.name }

func (s *Static) Describe(_ context.Context, frame *redact.Frame, prompt string) (string, error) {
	w, h := frame.Size()
	return fmt.Sprintf("[%s] %dx%d frame, %d regions redacted: %s",
		s.name, w, h, frame.Meta().PIIBoxCount, prompt), nil
}

func (s *Static) Plan(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("[%s] %s", s.name, prompt), nil
}

func (s *Static) Execute(_ context.Context, prompt string) (string, error) {
	return fmt.Sprintf("[%s] %s", s.name, prompt), nil
}
