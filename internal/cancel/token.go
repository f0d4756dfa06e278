// Package cancel implements the kill-switch latch: a shared flag set by
// the physical-input listener and polled by the orchestrator before
// every dispatch.
package cancel

import "sync"

// Token is a thread-safe boolean latch. Set by the listener goroutine,
// read by the main control flow. Cancellation is cooperative and
// polled, not preemptive: an action already mid-flight is not aborted,
// only the next one is blocked.
type Token struct {
	mu        sync.Mutex
	cancelled bool
}

// NewToken returns an unset token.
func NewToken() *Token {
	return &Token{}
}

// Cancel sets the latch.
func (t *Token) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
}

// Reset clears the latch. Called when the session returns to NORMAL
// mode.
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = false
}

// IsCancelled reports whether the latch is set.
func (t *Token) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}
