package cancel

import "sync"

// InputMonitor watches physical mouse/keyboard hardware and invokes its
// callback on any observed event. Implementations wrap an OS hook; the
// core only needs start/stop.
type InputMonitor interface {
	// Start begins delivering events to fn. Must not block.
	Start(fn func()) error
	// Stop detaches the hook. Idempotent.
	Stop()
}

// KillSwitch arms an InputMonitor so that the first physical input sets
// the token. Armed exactly while the session is in NORMAL mode: the
// host's own input devices must abort host-facing automation, but they
// are irrelevant while actions target an isolated VM.
type KillSwitch struct {
	token    *Token
	monitor  InputMonitor
	onCancel func(reason string)

	mu    sync.Mutex
	armed bool
}

// NewKillSwitch wires a monitor to a token. onCancel is invoked once
// per trip so the orchestrator can record why automation stopped; it
// may be nil.
func NewKillSwitch(token *Token, monitor InputMonitor, onCancel func(reason string)) *KillSwitch {
	return &KillSwitch{token: token, monitor: monitor, onCancel: onCancel}
}

// Arm starts the listener. The callback runs on the monitor's
// goroutine; it only touches the thread-safe token.
func (k *KillSwitch) Arm() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.armed || k.monitor == nil {
		return nil
	}
	if err := k.monitor.Start(k.trip); err != nil {
		return err
	}
	k.armed = true
	return nil
}

// Disarm stops the listener.
func (k *KillSwitch) Disarm() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.armed || k.monitor == nil {
		return
	}
	k.monitor.Stop()
	k.armed = false
}

// Armed reports whether the listener is running.
func (k *KillSwitch) Armed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.armed
}

func (k *KillSwitch) trip() {
	if k.token.IsCancelled() {
		return
	}
	k.token.Cancel()
	if k.onCancel != nil {
		k.onCancel("Cancelled by user input")
	}
}
