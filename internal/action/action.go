// Package action defines the lifecycle actions a signal can trigger on a bar.
package action

import (
	"fmt"
	"strings"
)

// Action is a lifecycle action applied to a bar in response to a signal.
type Action int

// Lifecycle actions. NoOp is the zero value.
const (
	NoOp Action = iota
	Hide
	Show
	Toggle
	Reload
)

var names = [...]string{
	NoOp:   "noop",
	Hide:   "hide",
	Show:   "show",
	Toggle: "toggle",
	Reload: "reload",
}

// String returns the config name of the action.
func (a Action) String() string {
	if a < 0 || int(a) >= len(names) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return names[a]
}

// Valid reports whether a is one of the defined actions.
func (a Action) Valid() bool {
	return a >= NoOp && a <= Reload
}

// Parse converts a config name into an Action. Matching is case-insensitive
// and ignores surrounding whitespace.
func Parse(s string) (Action, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == key {
			return Action(i), nil
		}
	}
	return NoOp, fmt.Errorf("unknown action %q (want noop, hide, show, toggle or reload)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so actions can be
// decoded straight from TOML strings.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
