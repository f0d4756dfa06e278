package model

// ActionKind identifies the type of input event an agent proposes.
type ActionKind string

const (
	ActionMove  ActionKind = "move"
	ActionClick ActionKind = "click"
	ActionType  ActionKind = "type"
	ActionWait  ActionKind = "wait"
)

// Action is one intended input event. Immutable once constructed.
// The raw Text payload is never written to any log; audit payloads
// carry only its length (see orchestrator.actionPayload).
type Action struct {
	Kind       ActionKind
	X          int
	Y          int
	Text       string
	DurationMS int
}

// Move returns a pointer-move action targeting (x, y).
func Move(x, y int) Action {
	return Action{Kind: ActionMove, X: x, Y: y}
}

// Click returns a click action at (x, y).
func Click(x, y int) Action {
	return Action{Kind: ActionClick, X: x, Y: y}
}

// Type returns a keyboard-text action.
func Type(text string) Action {
	return Action{Kind: ActionType, Text: text}
}

// Wait returns a pause action.
func Wait(durationMS int) Action {
	return Action{Kind: ActionWait, DurationMS: durationMS}
}

// HasPoint reports whether the action carries target coordinates.
func (a Action) HasPoint() bool {
	return a.Kind == ActionMove || a.Kind == ActionClick
}

// TextLength returns the length of the text payload. This is the only
// view of Text that may appear in serialized records.
func (a Action) TextLength() int {
	return len(a.Text)
}
