package bus

import "path"

// Predicate reports whether an Event should be delivered to a subscriber.
// A subscription's predicates are ANDed together.
type Predicate func(Event) bool

// Eq matches events whose Kind is exactly kind.
func Eq(kind string) Predicate {
	return func(e Event) bool { return e.Kind == kind }
}

// Prefixed matches events whose Kind starts with prefix. Prefixed("")
// matches every event.
func Prefixed(prefix string) Predicate {
	return func(e Event) bool {
		return len(e.Kind) >= len(prefix) && e.Kind[:len(prefix)] == prefix
	}
}

// Glob matches events whose Kind matches a shell glob pattern (as used by
// the `on` condition's fnmatch semantics).
func Glob(pattern string) Predicate {
	return func(e Event) bool {
		ok, err := path.Match(pattern, e.Kind)
		return err == nil && ok
	}
}

func allMatch(preds []Predicate, e Event) bool {
	for _, p := range preds {
		if !p(e) {
			return false
		}
	}
	return true
}
