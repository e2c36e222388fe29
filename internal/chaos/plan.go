package chaos

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jujuqa/matrix/internal/engineerr"
)

// SelectorSpec is one step of an action's selector chain, as loaded
// from or written to plan YAML. Kwargs carries the selector's own
// keyword arguments, handed to the selector as loaded (e.g.
// application: "foo" reaches the units selector as the string "foo").
type SelectorSpec struct {
	Selector string                 `yaml:"selector"`
	Kwargs   map[string]interface{} `yaml:",inline"`
}

// ActionSpec is one planned action: its name, its selector chain, and
// any extra keyword arguments passed straight to the action.
type ActionSpec struct {
	Action    string                 `yaml:"action"`
	Selectors []SelectorSpec         `yaml:"selectors"`
	Kwargs    map[string]interface{} `yaml:",inline"`
}

// Plan is a chaos plan: an ordered list of actions to execute.
type Plan struct {
	Actions []ActionSpec `yaml:"actions"`
}

// ParsePlan loads a plan from YAML.
func ParsePlan(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, &engineerr.ParseError{Where: "chaos plan", Err: err}
	}
	return p, nil
}

// Marshal serializes the plan back to YAML, for persistence.
func (p Plan) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}

// Validate checks the structural requirements of §4.6: a plan must
// have actions, and each action must name an action.
func (p Plan) Validate() error {
	if len(p.Actions) == 0 {
		return &engineerr.ParseError{Where: "chaos plan", Err: engineerr.ErrInvalidPlan}
	}
	for i, a := range p.Actions {
		if a.Action == "" {
			return &engineerr.ParseError{Where: "chaos plan action " + strconv.Itoa(i), Err: engineerr.ErrInvalidPlan}
		}
	}
	return nil
}
