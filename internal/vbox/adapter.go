package vbox

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/deskbridge/internal/model"
)

// VM lifecycle states tracked by the adapter. The state is advisory:
// VirtualBox is the source of truth, the adapter only remembers what it
// last asked for.
const (
	StateStopped = "stopped"
	StateRunning = "running"
)

// Network modes a guest adapter may use. Anything that puts the guest
// on the host's LAN defeats the isolation the VM exists for, so only
// NAT and host-only are accepted.
var allowedNetworkModes = map[string]bool{
	"nat":      true,
	"hostonly": true,
}

// PreconditionError reports a safety check that failed before a VM
// operation was attempted. Fix carries the operator remediation.
type PreconditionError struct {
	Op     string
	Reason string
	Fix    string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s (fix: %s)", e.Op, e.Reason, e.Fix)
}

// Config describes the target virtual machine.
type Config struct {
	Binary    string        `yaml:"binary"`
	VMName    string        `yaml:"vm_name"`
	Snapshot  string        `yaml:"snapshot"`
	FramePath string        `yaml:"frame_path"`
	VRDEPort  int           `yaml:"vrde_port"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Adapter drives a VirtualBox guest through the VBoxManage CLI.
type Adapter struct {
	cfg    Config
	runner Runner
	state  string
	status string
}

// New builds an adapter that shells out to VBoxManage. NewWithRunner is
// the test seam.
func New(cfg Config) *Adapter {
	if cfg.FramePath == "" {
		cfg.FramePath = "/tmp/deskbridge_vm_frame.png"
	}
	if cfg.VRDEPort == 0 {
		cfg.VRDEPort = 3389
	}
	return NewWithRunner(cfg, newExecRunner(cfg.Binary, cfg.Timeout))
}

func NewWithRunner(cfg Config, r Runner) *Adapter {
	if cfg.FramePath == "" {
		cfg.FramePath = "/tmp/deskbridge_vm_frame.png"
	}
	return &Adapter{cfg: cfg, runner: r, state: StateStopped, status: "not started"}
}

// State returns the lifecycle state the adapter last transitioned to.
func (a *Adapter) State() string { return a.state }

// Status returns a human-readable note about the last operation.
func (a *Adapter) Status() string { return a.status }

// Start boots the guest headless. It refuses to start a VM that is not
// registered or whose first network adapter is outside the allowed
// modes.
func (a *Adapter) Start() error {
	if err := a.requireRegistered("start"); err != nil {
		return err
	}
	if err := a.requireNetworkIsolation("start"); err != nil {
		return err
	}

	if err := a.runner.Run("startvm", a.cfg.VMName, "--type", "headless"); err != nil {
		a.status = "start failed: " + err.Error()
		return err
	}
	a.state = StateRunning
	a.status = "running"
	return nil
}

// Stop powers the guest off hard. Acceptable because the workflow
// reverts to a clean snapshot before the next run anyway.
func (a *Adapter) Stop() error {
	if err := a.runner.Run("controlvm", a.cfg.VMName, "poweroff"); err != nil {
		a.status = "stop failed: " + err.Error()
		return err
	}
	a.state = StateStopped
	a.status = "stopped"
	return nil
}

// SnapshotRevert restores the configured snapshot, verifying first that
// it actually exists so a typo cannot silently leave stale guest state.
func (a *Adapter) SnapshotRevert() error {
	if a.cfg.Snapshot == "" {
		return &PreconditionError{
			Op:     "revert",
			Reason: "no snapshot configured",
			Fix:    "set vm.snapshot in the bridge config",
		}
	}
	out, err := a.runner.Output("snapshot", a.cfg.VMName, "list")
	if err != nil {
		return fmt.Errorf("snapshot list: %w", err)
	}
	if !strings.Contains(out, a.cfg.Snapshot) {
		return &PreconditionError{
			Op:     "revert",
			Reason: fmt.Sprintf("snapshot %q not found on VM %q", a.cfg.Snapshot, a.cfg.VMName),
			Fix:    fmt.Sprintf("VBoxManage snapshot %q take %q", a.cfg.VMName, a.cfg.Snapshot),
		}
	}
	if err := a.runner.Run("snapshot", a.cfg.VMName, "restore", a.cfg.Snapshot); err != nil {
		a.status = "revert failed: " + err.Error()
		return err
	}
	a.status = "reverted to " + a.cfg.Snapshot
	return nil
}

// GetFrame captures the guest screen as a PNG. A capture that produced
// no file degrades to (nil, nil) so callers can continue without a
// frame instead of aborting the loop.
func (a *Adapter) GetFrame() (image.Image, error) {
	if err := a.runner.Run("controlvm", a.cfg.VMName, "screenshotpng", a.cfg.FramePath); err != nil {
		return nil, fmt.Errorf("screenshotpng: %w", err)
	}
	f, err := os.Open(a.cfg.FramePath)
	if err != nil {
		if os.IsNotExist(err) {
			a.status = "screenshot produced no file"
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// SendInput injects one action into the guest. Characters with no scan
// code mapping are skipped; wait actions are handled by the caller's
// pacing and are a no-op here.
func (a *Adapter) SendInput(act model.Action) error {
	switch act.Kind {
	case model.ActionMove:
		return a.runner.Run("controlvm", a.cfg.VMName,
			"mouseputstate", fmt.Sprint(act.X), fmt.Sprint(act.Y), "0")
	case model.ActionClick:
		if err := a.runner.Run("controlvm", a.cfg.VMName,
			"mouseputstate", fmt.Sprint(act.X), fmt.Sprint(act.Y), "1"); err != nil {
			return err
		}
		return a.runner.Run("controlvm", a.cfg.VMName,
			"mouseputstate", fmt.Sprint(act.X), fmt.Sprint(act.Y), "0")
	case model.ActionType:
		for _, r := range strings.ToLower(act.Text) {
			press, release, ok := scanPair(r)
			if !ok {
				continue
			}
			if err := a.runner.Run("controlvm", a.cfg.VMName,
				"keyboardputscancode", press, release); err != nil {
				return err
			}
		}
		return nil
	case model.ActionWait:
		return nil
	default:
		return fmt.Errorf("unsupported action kind %q", act.Kind)
	}
}

func (a *Adapter) requireRegistered(op string) error {
	out, err := a.runner.Output("list", "vms")
	if err != nil {
		return fmt.Errorf("list vms: %w", err)
	}
	if !strings.Contains(out, `"`+a.cfg.VMName+`"`) {
		return &PreconditionError{
			Op:     op,
			Reason: fmt.Sprintf("VM %q is not registered", a.cfg.VMName),
			Fix:    "create the VM or fix vm.name in the bridge config",
		}
	}
	return nil
}

func (a *Adapter) requireNetworkIsolation(op string) error {
	mode, err := a.networkMode()
	if err != nil {
		return err
	}
	if !allowedNetworkModes[mode] {
		return &PreconditionError{
			Op:     op,
			Reason: fmt.Sprintf("network adapter mode %q exposes the guest to the LAN", mode),
			Fix:    fmt.Sprintf("VBoxManage modifyvm %q --nic1 nat", a.cfg.VMName),
		}
	}
	return nil
}

func (a *Adapter) networkMode() (string, error) {
	out, err := a.runner.Output("showvminfo", a.cfg.VMName, "--machine-readable")
	if err != nil {
		return "", fmt.Errorf("showvminfo: %w", err)
	}
	info := parseMachineReadable(out)
	mode, ok := info["nic1"]
	if !ok {
		return "", fmt.Errorf("showvminfo did not report nic1 for VM %q", a.cfg.VMName)
	}
	return mode, nil
}

// parseMachineReadable splits `showvminfo --machine-readable` output
// into a key/value map, stripping the quoting VirtualBox applies to
// both sides.
func parseMachineReadable(out string) map[string]string {
	info := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		info[strings.Trim(key, `"`)] = strings.Trim(value, `"`)
	}
	return info
}
