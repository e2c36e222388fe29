package cluster

import (
	"context"
	"fmt"
	"sync"
)

// FakeModel is an in-memory Model used by tests and by the chaos-planner
// property tests in spec.md §8. It never talks to a real controller.
type FakeModel struct {
	mu sync.Mutex

	name     string
	machines []Machine
	units    []Unit

	destroyErr     error
	destroyAttempt int
	rebooted       []string
}

// NewFakeModel builds a FakeModel with the given machines and units
// already present, as if deployed.
func NewFakeModel(name string, machines []Machine, units []Unit) *FakeModel {
	return &FakeModel{name: name, machines: machines, units: units}
}

func (f *FakeModel) Name() string { return f.name }

func (f *FakeModel) Machines() []Machine {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Machine, len(f.machines))
	copy(out, f.machines)
	return out
}

func (f *FakeModel) Units() []Unit {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Unit, len(f.units))
	copy(out, f.units)
	return out
}

func (f *FakeModel) Applications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var apps []string
	for _, u := range f.units {
		if !seen[u.Application] {
			seen[u.Application] = true
			apps = append(apps, u.Application)
		}
	}
	return apps
}

func (f *FakeModel) UnitsFor(application string) []Unit {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Unit
	for _, u := range f.units {
		if u.Application == application {
			out = append(out, u)
		}
	}
	return out
}

func (f *FakeModel) Leader(application string) (Unit, bool) {
	for _, u := range f.UnitsFor(application) {
		if u.IsLeader {
			return u, true
		}
	}
	return Unit{}, false
}

func (f *FakeModel) Deploy(ctx context.Context) error  { return nil }
func (f *FakeModel) Connect(ctx context.Context) error { return nil }

// SetDestroyFailures makes the first n calls to Destroy fail with err,
// for exercising the test driver's retry-with-backoff behavior.
func (f *FakeModel) SetDestroyFailures(n int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyAttempt = -n
	f.destroyErr = err
}

func (f *FakeModel) Destroy(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.destroyAttempt < 0 {
		f.destroyAttempt++
		return f.destroyErr
	}
	return nil
}

func (f *FakeModel) RebootUnit(ctx context.Context, unitID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.units {
		if u.ID == unitID {
			f.rebooted = append(f.rebooted, unitID)
			return nil
		}
	}
	return fmt.Errorf("unknown unit %s", unitID)
}

func (f *FakeModel) WaitIdle(ctx context.Context) error { return nil }

// Rebooted returns the IDs passed to RebootUnit, in call order.
func (f *FakeModel) Rebooted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.rebooted))
	copy(out, f.rebooted)
	return out
}
