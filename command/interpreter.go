// Package command turns polled key input into discrete pipeline actions.
package command

import "unicode"

// Action is one discrete command applied by the pipeline controller at the
// end of a tick.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionSaveScreenshot
	ActionResetStats
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionSaveScreenshot:
		return "save-screenshot"
	case ActionResetStats:
		return "reset-statistics"
	default:
		return "none"
	}
}

// Interpreter maps key codes to actions. Bindings are matched
// case-insensitively, so every alias covers both cases.
type Interpreter struct {
	bindings map[rune]Action
}

// NewInterpreter returns the default key map: k/q quit, s screenshot,
// r reset.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		bindings: map[rune]Action{
			'k': ActionQuit,
			'q': ActionQuit,
			's': ActionSaveScreenshot,
			'r': ActionResetStats,
		},
	}
}

// Bind adds or replaces an alias.
func (i *Interpreter) Bind(key rune, action Action) {
	i.bindings[unicode.ToLower(key)] = action
}

// Interpret maps a polled key code to its action. Negative codes (no input)
// and unbound keys map to ActionNone.
func (i *Interpreter) Interpret(key int) Action {
	if key < 0 {
		return ActionNone
	}
	if action, ok := i.bindings[unicode.ToLower(rune(key))]; ok {
		return action
	}
	return ActionNone
}
