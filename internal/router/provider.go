package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/deskbridge/internal/redact"
)

// ErrUnredactedFrame is returned by the redaction guard when a describe
// call carries a frame that did not pass through the redaction
// pipeline. This is a safety-boundary breach, never swallowed.
var ErrUnredactedFrame = errors.New("frame must be redacted before model use")

// Provider is one model backend. Describe sees a frame; Plan and
// Execute are text-only.
type Provider interface {
	Name() string
	Describe(ctx context.Context, frame *redact.Frame, prompt string) (string, error)
	Plan(ctx context.Context, prompt string) (string, error)
	Execute(ctx context.Context, prompt string) (string, error)
}

// RedactionGuard wraps a provider and rejects any Describe call whose
// frame is not marked redacted. This is the single enforcement point
// tying the redaction invariant to the model boundary — every provider
// handed to the router's vision role must be wrapped.
type RedactionGuard struct {
	inner Provider
}

// Guard wraps a provider with the redaction check.
func Guard(inner Provider) *RedactionGuard {
	return &RedactionGuard{inner: inner}
}

func (g *RedactionGuard) Name() string {
	return g.inner.Name()
}

func (g *RedactionGuard) Describe(ctx context.Context, frame *redact.Frame, prompt string) (string, error) {
	if frame == nil || !frame.Redacted() {
		return "", fmt.Errorf("%s: %w", g.inner.Name(), ErrUnredactedFrame)
	}
	return g.inner.Describe(ctx, frame, prompt)
}

func (g *RedactionGuard) Plan(ctx context.Context, prompt string) (string, error) {
	return g.inner.Plan(ctx, prompt)
}

func (g *RedactionGuard) Execute(ctx context.Context, prompt string) (string, error) {
	return g.inner.Execute(ctx, prompt)
}
