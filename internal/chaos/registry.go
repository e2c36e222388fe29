// Package chaos implements the chaos planner described in spec §4.6:
// selector/action registries, plan generation, validation, persistence,
// and execution against a cluster.Model.
package chaos

import (
	"context"

	"github.com/jujuqa/matrix/internal/cluster"
)

// ObjectType names the kind of cluster object an action or selector
// output targets.
type ObjectType string

const (
	ObjectMachine     ObjectType = "machine"
	ObjectUnit        ObjectType = "unit"
	ObjectApplication ObjectType = "application"
)

// Action is an action registry entry: the callable, the object type of
// its primary argument (Run's target, the parameter after model), and a
// set of descriptive tags such as "subordinate_ok".
type Action struct {
	Name       string
	ObjectType ObjectType
	Tags       map[string]bool
	Run        func(ctx context.Context, model cluster.Model, target interface{}, kwargs map[string]interface{}) error
}

// Selector is a selector registry entry: a chainable callable that
// narrows or transforms a set of candidate objects.
type Selector struct {
	Name string
	Run  func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{}
}

// Registry is the name → descriptor map for both actions and
// selectors, matching §4.6's "each name → descriptor maps".
type Registry struct {
	actions   map[string]Action
	selectors map[string]Selector
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action), selectors: make(map[string]Selector)}
}

func (r *Registry) RegisterAction(a Action)     { r.actions[a.Name] = a }
func (r *Registry) RegisterSelector(s Selector) { r.selectors[s.Name] = s }

func (r *Registry) Action(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

func (r *Registry) Selector(name string) (Selector, bool) {
	s, ok := r.selectors[name]
	return s, ok
}

// ActionNames returns every registered action name, for random plan
// generation.
func (r *Registry) ActionNames() []string {
	names := make([]string, 0, len(r.actions))
	for n := range r.actions {
		names = append(names, n)
	}
	return names
}
