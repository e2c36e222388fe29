package chaos

import (
	"math/rand"

	"github.com/jujuqa/matrix/internal/cluster"
)

// RegisterBaseSelectors adds the selectors the implicit-selector
// generation of §4.6 depends on: machines, units(application=...),
// leader(value=...), applications, and one (picks a single random
// element, short-circuiting to empty on an empty input).
func RegisterBaseSelectors(reg *Registry, rng *rand.Rand) {
	reg.RegisterSelector(Selector{
		Name: "machines",
		Run: func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{} {
			out := make([]interface{}, 0, len(model.Machines()))
			for _, m := range model.Machines() {
				out = append(out, m)
			}
			return out
		},
	})

	reg.RegisterSelector(Selector{
		Name: "applications",
		Run: func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{} {
			out := make([]interface{}, 0)
			for _, a := range model.Applications() {
				out = append(out, a)
			}
			return out
		},
	})

	reg.RegisterSelector(Selector{
		Name: "units",
		Run: func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{} {
			app, _ := kwargs["application"].(string)
			out := make([]interface{}, 0)
			for _, u := range model.UnitsFor(app) {
				out = append(out, u)
			}
			return out
		},
	})

	reg.RegisterSelector(Selector{
		Name: "leader",
		Run: func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{} {
			want, _ := kwargs["value"].(bool)
			out := make([]interface{}, 0)
			for _, v := range input {
				u, ok := v.(cluster.Unit)
				if ok && u.IsLeader == want {
					out = append(out, v)
				}
			}
			return out
		},
	})

	reg.RegisterSelector(Selector{
		Name: "one",
		Run: func(model cluster.Model, input []interface{}, kwargs map[string]interface{}) []interface{} {
			if len(input) == 0 {
				return nil
			}
			return []interface{}{input[rng.Intn(len(input))]}
		},
	})
}
