package rules

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/state"
)

// validSets gives the bare-statement value set each when/after/while/
// until mode matches against (on and periodic have none).
var validSets = map[Mode]map[string]bool{
	When:  {"running": true, "complete": true, "paused": true},
	After: {"complete": true},
	While: {"running": true, "paused": true},
	// Until shares after's notion of "reached its terminal value": a
	// bare `until: chaos` condition is satisfied once chaos==complete,
	// matching the dotted `until: chaos.complete` form.
	Until: {"complete": true},
}

// stateMatches evaluates one when/after/while/until-shaped statement
// against the context's state map. A dotted statement "key.value"
// matches state[key]==value; a bare statement matches state[name]
// against the mode's valid set.
func stateMatches(ctx *state.Context, mode Mode, statement string) bool {
	if key, value, ok := strings.Cut(statement, "."); ok {
		return ctx.GetState(key) == value
	}
	return validSets[mode][ctx.GetState(statement)]
}

// EnterMatches is the enter-phase poll: the logical AND over all
// non-`on` conditions, with `until` contributing its negation and
// `periodic` always contributing true.
func (r Rule) EnterMatches(ctx *state.Context) bool {
	for _, c := range r.Conditions {
		switch c.Mode {
		case On:
			continue
		case Periodic:
			continue
		case Until:
			if stateMatches(ctx, Until, c.Statement) {
				return false
			}
		default:
			if !stateMatches(ctx, c.Mode, c.Statement) {
				return false
			}
		}
	}
	return true
}

// HasOn and HasPeriodic report whether the rule carries those modes,
// which drive the run/exit phases specially (see §4.4).
func (r Rule) HasOn() (Condition, bool)       { return r.Condition(On) }
func (r Rule) HasPeriodic() (Condition, bool) { return r.Condition(Periodic) }
func (r Rule) HasUntil() (Condition, bool)    { return r.Condition(Until) }

// PeriodDuration parses a periodic condition's statement as a
// non-negative number of seconds. A non-numeric statement is a
// ParseError. PeriodSchedule turns the returned duration into a
// robfig/cron schedule.
func PeriodDuration(statement string) (time.Duration, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(statement), 64)
	if err != nil || seconds < 0 {
		return 0, &engineerr.ParseError{Where: "periodic", Err: engineerr.ErrInvalidPeriod}
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// PeriodSchedule wraps a periodic condition's interval as a
// robfig/cron ConstantDelaySchedule, usable to compute successive
// activation times.
func PeriodSchedule(d time.Duration) cron.Schedule {
	return cron.ConstantDelaySchedule{Delay: d}
}

// WaitKey is the waiter-registry key an until condition's statement
// cancels on: the statement itself if dotted, or "statement.complete"
// if bare.
func WaitKey(statement string) string {
	if strings.Contains(statement, ".") {
		return statement
	}
	return statement + ".complete"
}
