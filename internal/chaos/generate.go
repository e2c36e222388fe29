package chaos

import (
	"math/rand"

	"github.com/jujuqa/matrix/internal/cluster"
	"github.com/jujuqa/matrix/internal/engineerr"
)

// Generate builds a plan of num actions, each a random registered
// action against a random candidate object of its declared type, with
// implicit selectors reproducing that choice (§4.6 Generation).
func Generate(reg *Registry, model cluster.Model, num int, rng *rand.Rand) (Plan, error) {
	names := reg.ActionNames()
	if len(names) == 0 {
		return Plan{}, &engineerr.ResolutionError{Command: "chaos.generate", Err: engineerr.ErrUnknownTask}
	}

	var plan Plan
	for i := 0; i < num; i++ {
		spec, err := drawAction(reg, names, model, rng)
		if err != nil {
			return Plan{}, err
		}
		plan.Actions = append(plan.Actions, spec)
	}
	return plan, nil
}

// drawAction picks a random registered action, then, if its object type
// has no live candidate, tries the remaining action names in a random
// order until one does, so Generate always fills every requested slot
// (§8: len(actions) == num always). It returns ErrNoObjects if no
// registered action's object type has any candidate in model.
func drawAction(reg *Registry, names []string, model cluster.Model, rng *rand.Rand) (ActionSpec, error) {
	order := rng.Perm(len(names))
	for _, idx := range order {
		action, _ := reg.Action(names[idx])
		spec, err := implicitSpec(model, action, rng)
		if err == nil {
			return spec, nil
		}
	}
	return ActionSpec{}, engineerr.ErrNoObjects
}

func implicitSpec(model cluster.Model, action Action, rng *rand.Rand) (ActionSpec, error) {
	switch action.ObjectType {
	case ObjectMachine:
		machines := model.Machines()
		if len(machines) == 0 {
			return ActionSpec{}, engineerr.ErrNoObjects
		}
		return ActionSpec{
			Action:    action.Name,
			Selectors: []SelectorSpec{{Selector: "machines"}, {Selector: "one"}},
		}, nil

	case ObjectUnit:
		units := model.Units()
		if len(units) == 0 {
			return ActionSpec{}, engineerr.ErrNoObjects
		}
		u := units[rng.Intn(len(units))]
		return ActionSpec{
			Action: action.Name,
			Selectors: []SelectorSpec{
				{Selector: "units", Kwargs: map[string]interface{}{"application": u.Application}},
				{Selector: "leader", Kwargs: map[string]interface{}{"value": u.IsLeader}},
				{Selector: "one"},
			},
		}, nil

	case ObjectApplication:
		apps := model.Applications()
		if len(apps) == 0 {
			return ActionSpec{}, engineerr.ErrNoObjects
		}
		return ActionSpec{
			Action:    action.Name,
			Selectors: []SelectorSpec{{Selector: "applications"}, {Selector: "one"}},
		}, nil

	default:
		return ActionSpec{}, engineerr.ErrInvalidModel
	}
}
