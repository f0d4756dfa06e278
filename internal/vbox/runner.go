package vbox

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes VBoxManage subcommands. An interface so the adapter
// state machine can be tested without VirtualBox installed.
type Runner interface {
	Run(args ...string) error
	Output(args ...string) (string, error)
}

// ErrNoBinary is returned when no VBoxManage binary is configured or
// found on PATH. Pretending success here would hide a broken isolation
// boundary, so every call fails loudly instead.
var ErrNoBinary = fmt.Errorf("VBoxManage not found: install VirtualBox and add it to PATH")

// execRunner shells out to the control binary with a per-call timeout.
// A hung external binary must not stall the whole pipeline.
type execRunner struct {
	binary  string
	timeout time.Duration
}

func newExecRunner(binary string, timeout time.Duration) *execRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &execRunner{binary: binary, timeout: timeout}
}

func (r *execRunner) Run(args ...string) error {
	_, err := r.Output(args...)
	return err
}

func (r *execRunner) Output(args ...string) (string, error) {
	if r.binary == "" {
		return "", ErrNoBinary
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("VBoxManage %s timed out after %s", args[0], r.timeout)
		}
		return "", fmt.Errorf("VBoxManage %s: %w (%s)", args[0], err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}
