package host

import (
	"bufio"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// InputWatcher reports physical mouse/keyboard activity by tailing the
// event stream of an external probe (xinput by default). It satisfies
// the kill-switch monitor contract: Start spawns the probe and returns
// immediately, Stop kills it.
type InputWatcher struct {
	binary string

	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
}

// NewInputWatcher creates the watcher. An empty binary defaults to
// xinput on PATH.
func NewInputWatcher(binary string) *InputWatcher {
	if binary == "" {
		binary = "xinput"
	}
	return &InputWatcher{binary: binary}
}

// Start spawns `xinput test-xi2 --root` and invokes fn once per event
// line on a reader goroutine. Returns an error when the probe binary
// is missing: with no way to observe host input there is no safe
// pretend-armed state.
func (w *InputWatcher) Start(fn func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd != nil {
		return nil
	}
	if _, err := exec.LookPath(w.binary); err != nil {
		return fmt.Errorf("%s not found: host input cannot be watched", w.binary)
	}

	cmd := exec.Command(w.binary, "test-xi2", "--root")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	w.cmd = cmd
	w.done = make(chan struct{})
	done := w.done

	go func() {
		scanner := bufio.NewScanner(out)
		for scanner.Scan() {
			if !isInputEvent(scanner.Text()) {
				continue
			}
			select {
			case <-done:
				return
			default:
				fn()
			}
		}
		cmd.Wait()
	}()
	return nil
}

// Stop kills the probe. Idempotent; events already buffered are
// dropped, not delivered.
func (w *InputWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd == nil {
		return
	}
	close(w.done)
	w.cmd.Process.Kill()
	w.cmd = nil
	w.done = nil
}

// isInputEvent filters the probe's stdout down to device events,
// skipping the banner and the indented field lines under each event.
func isInputEvent(line string) bool {
	return strings.HasPrefix(line, "EVENT type")
}
