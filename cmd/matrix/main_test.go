package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jujuqa/matrix/internal/driver"
	"github.com/jujuqa/matrix/internal/engineerr"
	"github.com/jujuqa/matrix/internal/rules"
)

func TestFilterOrAllDefaultsToMatchEverything(t *testing.T) {
	assert.Equal(t, "*", filterOrAll(""))
	assert.Equal(t, "rule.*", filterOrAll("rule.*"))
}

func TestFilterTestsEmptyPatternReturnsSuiteUnchanged(t *testing.T) {
	suite := rules.Suite{Fmt: 1, Tests: []rules.Test{{Name: "deploy"}, {Name: "health"}}}
	assert.Equal(t, suite, filterTests(suite, ""))
}

func TestFilterTestsKeepsOnlyMatchingNames(t *testing.T) {
	suite := rules.Suite{Fmt: 1, Tests: []rules.Test{{Name: "deploy-mysql"}, {Name: "health-mysql"}, {Name: "deploy-pgsql"}}}
	filtered := filterTests(suite, "deploy-*")
	assert.Len(t, filtered.Tests, 2)
	assert.Equal(t, "deploy-mysql", filtered.Tests[0].Name)
	assert.Equal(t, "deploy-pgsql", filtered.Tests[1].Name)
}

func TestWorstExitCodeIsTheMaximumAcrossResults(t *testing.T) {
	results := []driver.Result{
		{Test: "a", ExitCode: engineerr.ExitSuccess},
		{Test: "b", ExitCode: engineerr.ExitInfraFailure},
		{Test: "c", ExitCode: engineerr.ExitGating},
	}
	assert.Equal(t, engineerr.ExitGating, worstExitCode(results))
}

func TestWorstExitCodeIsSuccessWhenNoResults(t *testing.T) {
	assert.Equal(t, engineerr.ExitSuccess, worstExitCode(nil))
}
