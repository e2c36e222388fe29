package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujuqa/matrix/internal/bus"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/state"
)

func TestParseSuiteStringDo(t *testing.T) {
	doc := []byte(`
fmt: 1
tests:
  - name: basic
    description: sequential gating
    rules:
      - do: tests.deploy
      - do: tests.health
        after: deploy
`)
	s, err := ParseSuite(doc)
	require.NoError(t, err)
	require.Len(t, s.Tests, 1)
	require.Len(t, s.Tests[0].Rules, 2)

	deploy := s.Tests[0].Rules[0]
	assert.Equal(t, "deploy", deploy.Name())
	assert.True(t, deploy.Task.Gating)

	health := s.Tests[0].Rules[1]
	assert.Equal(t, "health", health.Name())
	cond, ok := health.Condition(After)
	require.True(t, ok)
	assert.Equal(t, "deploy", cond.Statement)
}

func TestParseSuiteMapDoWithArgsAndGating(t *testing.T) {
	doc := []byte(`
fmt: 1
tests:
  - name: t
    rules:
      - do:
          task: tests.chaos.run_action
          args:
            unit: mysql/0
        gating: false
        until: chaos.complete
`)
	s, err := ParseSuite(doc)
	require.NoError(t, err)
	r := s.Tests[0].Rules[0]
	assert.False(t, r.Task.Gating)
	assert.Equal(t, "mysql/0", r.Task.Args["unit"])
	cond, ok := r.Condition(Until)
	require.True(t, ok)
	assert.Equal(t, "chaos.complete", cond.Statement)
}

func TestParseSuiteMissingDoIsParseError(t *testing.T) {
	doc := []byte(`
fmt: 1
tests:
  - name: t
    rules:
      - gating: true
`)
	_, err := ParseSuite(doc)
	require.Error(t, err)
	var pe *engineerr.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestMergeSuitesOverridesByName(t *testing.T) {
	a := Suite{Tests: []Test{{Name: "t1", Rules: []Rule{{Task: Task{Command: "r1"}}}}, {Name: "t2", Rules: []Rule{{Task: Task{Command: "r2"}}}}}}
	b := Suite{Tests: []Test{{Name: "t2", Rules: []Rule{{Task: Task{Command: "r3"}}}}, {Name: "t3", Rules: []Rule{{Task: Task{Command: "r4"}}}}}}

	merged := MergeSuites(a, b)
	require.Len(t, merged.Tests, 3)
	assert.Equal(t, "t1", merged.Tests[0].Name)
	assert.Equal(t, "t2", merged.Tests[1].Name)
	assert.Equal(t, "r3", merged.Tests[1].Rules[0].Task.Command)
	assert.Equal(t, "t3", merged.Tests[2].Name)
}

func TestMergeSuitesAssociative(t *testing.T) {
	a := Suite{Tests: []Test{{Name: "t1"}}}
	b := Suite{Tests: []Test{{Name: "t2"}}}
	c := Suite{Tests: []Test{{Name: "t1", Description: "replaced"}}}

	left := MergeSuites(MergeSuites(a, b), c)
	right := MergeSuites(a, MergeSuites(b, c))
	assert.Equal(t, left, right)
}

func TestEnterMatchesDottedAndBareStatements(t *testing.T) {
	ctx := state.New(bus.New(bus.Config{}, nil), nil, 5)
	ctx.SetState("deploy", "complete")

	r := Rule{Conditions: []Condition{{Mode: After, Statement: "deploy.complete"}}}
	assert.True(t, r.EnterMatches(ctx))

	r2 := Rule{Conditions: []Condition{{Mode: After, Statement: "deploy"}}}
	assert.True(t, r2.EnterMatches(ctx))

	ctx.SetState("deploy", "running")
	assert.False(t, r.EnterMatches(ctx))
}

func TestUntilContributesNegation(t *testing.T) {
	ctx := state.New(bus.New(bus.Config{}, nil), nil, 5)
	r := Rule{Conditions: []Condition{{Mode: Until, Statement: "chaos.complete"}}}

	assert.True(t, r.EnterMatches(ctx), "until must not block entry before the terminal state is reached")
	ctx.SetState("chaos", "complete")
	assert.False(t, r.EnterMatches(ctx), "until blocks re-entry once its terminal state is reached")
}

func TestPeriodDurationRejectsNonNumeric(t *testing.T) {
	_, err := PeriodDuration("soon")
	require.Error(t, err)

	d, err := PeriodDuration("2.5")
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, d)
}

func TestWaitKey(t *testing.T) {
	assert.Equal(t, "chaos.complete", WaitKey("chaos.complete"))
	assert.Equal(t, "chaos.complete", WaitKey("chaos"))
}
