// Package router maps logical model roles to providers with ordered
// fallback. First success wins; no retries, no backoff, no quorum.
package router

import (
	"context"
	"fmt"

	"github.com/ppiankov/deskbridge/internal/model"
	"github.com/ppiankov/deskbridge/internal/redact"
)

// Role is a logical model role.
type Role string

const (
	RoleVision   Role = "vision"
	RoleReasoner Role = "reasoner"
	RoleExecutor Role = "executor"
)

// Overrides maps (mode, role) to an ordered candidate list. When an
// entry exists it replaces the default provider for that role entirely.
type Overrides map[model.Mode]map[Role][]Provider

// Router holds the default provider per role plus per-mode overrides.
type Router struct {
	vision    Provider
	reasoner  Provider
	executor  Provider
	overrides Overrides
}

// New creates a router. The vision default should already be wrapped
// with Guard; New wraps it again defensively only when callers pass a
// bare provider — wrapping twice is harmless.
func New(vision, reasoner, executor Provider, overrides Overrides) *Router {
	if _, guarded := vision.(*RedactionGuard); !guarded {
		vision = Guard(vision)
	}
	return &Router{
		vision:    vision,
		reasoner:  reasoner,
		executor:  executor,
		overrides: overrides,
	}
}

// Describe asks the vision chain to describe a redacted frame.
func (r *Router) Describe(ctx context.Context, frame *redact.Frame, prompt string, mode model.Mode) (string, error) {
	return r.attempt(r.candidates(mode, RoleVision, r.vision), func(p Provider) (string, error) {
		return p.Describe(ctx, frame, prompt)
	})
}

// Plan asks the reasoner chain for a plan.
func (r *Router) Plan(ctx context.Context, prompt string, mode model.Mode) (string, error) {
	return r.attempt(r.candidates(mode, RoleReasoner, r.reasoner), func(p Provider) (string, error) {
		return p.Plan(ctx, prompt)
	})
}

// Execute asks the executor chain to translate a plan into an action.
func (r *Router) Execute(ctx context.Context, prompt string, mode model.Mode) (string, error) {
	return r.attempt(r.candidates(mode, RoleExecutor, r.executor), func(p Provider) (string, error) {
		return p.Execute(ctx, prompt)
	})
}

// candidates returns the mode-specific list if present, else the single
// default. Vision candidates are always guarded.
func (r *Router) candidates(mode model.Mode, role Role, fallback Provider) []Provider {
	if byRole, ok := r.overrides[mode]; ok {
		if list, ok := byRole[role]; ok && len(list) > 0 {
			if role != RoleVision {
				return list
			}
			guarded := make([]Provider, len(list))
			for i, p := range list {
				if g, ok := p.(*RedactionGuard); ok {
					guarded[i] = g
				} else {
					guarded[i] = Guard(p)
				}
			}
			return guarded
		}
	}
	return []Provider{fallback}
}

// attempt invokes candidates strictly in order, returning the first
// success. Each failure is recorded and the next candidate tried; if
// every candidate fails the last error surfaces.
func (r *Router) attempt(candidates []Provider, call func(Provider) (string, error)) (string, error) {
	var lastErr error
	for _, p := range candidates {
		out, err := call(p)
		if err == nil {
			return out, nil
		}
		lastErr = fmt.Errorf("provider %s: %w", p.Name(), err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return "", lastErr
}
