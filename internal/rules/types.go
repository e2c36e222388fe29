// Package rules defines the declarative rule/condition/test/suite data
// model and the parsing and merge semantics over it.
package rules

import "strings"

// Task is a unit of work bound to a Rule: a command name or path, its
// keyword arguments, and whether its failure should gate the test run.
type Task struct {
	Command string
	Args    map[string]interface{}
	Gating  bool
}

// Name is the task's short name: the basename of the dotted Command.
// "tests.deploy" -> "deploy"; "tests.health" -> "health"; a bare command
// with no dots is its own name.
func (t Task) Name() string {
	if i := strings.LastIndex(t.Command, "."); i >= 0 {
		return t.Command[i+1:]
	}
	return t.Command
}

// Mode is one of the six condition kinds a Rule may carry.
type Mode string

const (
	When     Mode = "when"
	After    Mode = "after"
	Until    Mode = "until"
	While    Mode = "while"
	On       Mode = "on"
	Periodic Mode = "periodic"
)

// Condition gates when a Rule activates or terminates. Statement's
// meaning depends on Mode: for when/after/while/until it is a state
// name or "name.value" pair; for on it is a glob over event kinds; for
// periodic it is a non-negative number of seconds.
type Condition struct {
	Mode      Mode
	Statement string
}

// Rule binds one Task to zero or more Conditions. Its lifecycle value
// lives in the Context state map under Name(), not on the Rule itself:
// Rules are immutable once parsed.
type Rule struct {
	Task       Task
	Conditions []Condition
}

// Name is the rule's identity in the state map: its task's short name.
func (r Rule) Name() string { return r.Task.Name() }

// Condition returns the first condition with the given mode, if any.
func (r Rule) Condition(mode Mode) (Condition, bool) {
	for _, c := range r.Conditions {
		if c.Mode == mode {
			return c, true
		}
	}
	return Condition{}, false
}

// Test is a named, ordered sequence of Rules.
type Test struct {
	Name        string
	Description string
	Rules       []Rule
}

// Suite is an ordered list of Tests, as loaded from one or more suite
// files and merged per §4.3.
type Suite struct {
	Fmt   int
	Tests []Test
}
