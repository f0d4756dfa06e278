package model

import "fmt"

// Mode is the session-wide operating mode. NORMAL drives the physical
// host and is held to the strictest policy bar; GAME and SANDBOX drive
// an isolated VM and are granted more autonomy.
type Mode string

const (
	ModeNormal  Mode = "normal"
	ModeGame    Mode = "game"
	ModeSandbox Mode = "sandbox"
)

// Dispatch targets.
const (
	TargetHost = "host"
	TargetVM   = "vm"
)

// ParseMode maps a string to a Mode. Fail-closed: unknown values error
// rather than defaulting to a permissive mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeNormal, ModeGame, ModeSandbox:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want normal, game, or sandbox)", s)
	}
}

// Target returns where actions land in this mode.
func (m Mode) Target() string {
	if m == ModeNormal {
		return TargetHost
	}
	return TargetVM
}
