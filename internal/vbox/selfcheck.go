package vbox

import (
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"
)

// CheckResult is one line of the preflight report.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
	Fix    string `json:"fix,omitempty"`
}

// Selfcheck verifies the VM sandbox end to end without mutating it:
// binary present, VM registered, snapshot present, VRDE enabled and
// reachable, network isolated. Every check runs even after an earlier
// failure so the operator sees the full picture at once.
func (a *Adapter) Selfcheck() []CheckResult {
	var results []CheckResult

	bin := a.cfg.Binary
	if bin == "" {
		bin = "VBoxManage"
	}
	if _, err := exec.LookPath(bin); err != nil {
		results = append(results, CheckResult{
			Name:   "binary",
			Detail: fmt.Sprintf("%s not found on PATH", bin),
			Fix:    "install VirtualBox",
		})
	} else {
		results = append(results, CheckResult{Name: "binary", Passed: true, Detail: bin})
	}

	if err := a.requireRegistered("selfcheck"); err != nil {
		results = append(results, checkFromErr("vm_registered", err))
	} else {
		results = append(results, CheckResult{Name: "vm_registered", Passed: true, Detail: a.cfg.VMName})
	}

	results = append(results, a.checkSnapshot())

	info := map[string]string{}
	if out, err := a.runner.Output("showvminfo", a.cfg.VMName, "--machine-readable"); err == nil {
		info = parseMachineReadable(out)
	}
	results = append(results, a.checkVRDE(info))
	results = append(results, a.checkNetwork(info))

	return results
}

func (a *Adapter) checkSnapshot() CheckResult {
	if a.cfg.Snapshot == "" {
		return CheckResult{
			Name:   "snapshot",
			Detail: "no snapshot configured",
			Fix:    "set vm.snapshot in the bridge config",
		}
	}
	out, err := a.runner.Output("snapshot", a.cfg.VMName, "list")
	if err != nil {
		return CheckResult{Name: "snapshot", Detail: err.Error()}
	}
	if !strings.Contains(out, a.cfg.Snapshot) {
		return CheckResult{
			Name:   "snapshot",
			Detail: fmt.Sprintf("snapshot %q not found", a.cfg.Snapshot),
			Fix:    fmt.Sprintf("VBoxManage snapshot %q take %q", a.cfg.VMName, a.cfg.Snapshot),
		}
	}
	return CheckResult{Name: "snapshot", Passed: true, Detail: a.cfg.Snapshot}
}

func (a *Adapter) checkVRDE(info map[string]string) CheckResult {
	if info["VRDEEnabled"] != "on" {
		return CheckResult{
			Name:   "vrde",
			Detail: "VRDE is not enabled",
			Fix:    fmt.Sprintf("VBoxManage modifyvm %q --vrde on", a.cfg.VMName),
		}
	}
	addr := net.JoinHostPort("127.0.0.1", fmt.Sprint(a.cfg.VRDEPort))
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return CheckResult{
			Name:   "vrde",
			Detail: fmt.Sprintf("VRDE enabled but %s unreachable: %v", addr, err),
			Fix:    "start the VM, then re-run selfcheck",
		}
	}
	conn.Close()
	return CheckResult{Name: "vrde", Passed: true, Detail: "listening on " + addr}
}

func (a *Adapter) checkNetwork(info map[string]string) CheckResult {
	mode, ok := info["nic1"]
	if !ok {
		return CheckResult{Name: "network", Detail: "showvminfo did not report nic1"}
	}
	if !allowedNetworkModes[mode] {
		return CheckResult{
			Name:   "network",
			Detail: fmt.Sprintf("nic1 mode %q is not isolated", mode),
			Fix:    fmt.Sprintf("VBoxManage modifyvm %q --nic1 nat", a.cfg.VMName),
		}
	}
	return CheckResult{Name: "network", Passed: true, Detail: "nic1 " + mode}
}

func checkFromErr(name string, err error) CheckResult {
	if pe, ok := err.(*PreconditionError); ok {
		return CheckResult{Name: name, Detail: pe.Reason, Fix: pe.Fix}
	}
	return CheckResult{Name: name, Detail: err.Error()}
}
