// Package cluster defines the boundary between the engine and the live
// deployment it drives. The cluster client library itself (deploy/connect/
// destroy, unit reboot, leader lookup) is an external collaborator per
// spec.md §1; this package holds only the interface the rest of the
// engine programs against, plus an in-memory fake for tests.
package cluster

import "context"

// Machine is a cluster compute unit a chaos action can target directly.
type Machine struct {
	ID string
}

// Unit is one running instance of an Application.
type Unit struct {
	ID          string
	Application string
	IsLeader    bool
}

// Application is a deployed workload, made up of zero or more Units.
type Application struct {
	Name string
}

// Model is the cluster handle the engine mutates and queries. A concrete
// implementation wraps the real controller/model connection; FakeModel
// below is an in-memory stand-in for tests.
type Model interface {
	Name() string

	Machines() []Machine
	Units() []Unit
	Applications() []string
	UnitsFor(application string) []Unit
	Leader(application string) (Unit, bool)

	Deploy(ctx context.Context) error
	Connect(ctx context.Context) error
	Destroy(ctx context.Context) error
	RebootUnit(ctx context.Context, unitID string) error
	WaitIdle(ctx context.Context) error
}
