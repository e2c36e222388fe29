package engineerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorUnwrapsToSentinel(t *testing.T) {
	err := &ParseError{Where: "rule", Err: ErrNoDoClause}
	assert.ErrorIs(t, err, ErrNoDoClause)
	assert.Contains(t, err.Error(), "rule")
}

func TestResolutionErrorUnwrapsToSentinel(t *testing.T) {
	err := &ResolutionError{Command: "tests.deploy", Err: ErrUnknownTask}
	assert.ErrorIs(t, err, ErrUnknownTask)
	assert.Contains(t, err.Error(), "tests.deploy")
}

func TestInfraFailureUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &InfraFailure{Phase: "destroy", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "destroy")
}

func TestTestFailureMessage(t *testing.T) {
	err := &TestFailure{Task: "deploy", Message: "exit status 1"}
	assert.Equal(t, "deploy: exit status 1", err.Error())
}

func TestClassifyTestResultSuccess(t *testing.T) {
	assert.Equal(t, ExitSuccess, ClassifyTestResult(nil, true))
}

func TestClassifyTestResultGatingTestFailure(t *testing.T) {
	err := &TestFailure{Task: "health", Message: "down"}
	assert.Equal(t, ExitGating, ClassifyTestResult(err, true))
}

func TestClassifyTestResultNonGatingTestFailure(t *testing.T) {
	err := &TestFailure{Task: "health", Message: "down"}
	assert.Equal(t, ExitInfraFailure, ClassifyTestResult(err, false))
}

func TestClassifyTestResultNonTestFailureAlwaysInfra(t *testing.T) {
	err := &InfraFailure{Phase: "deploy", Err: errors.New("timeout")}
	assert.Equal(t, ExitInfraFailure, ClassifyTestResult(err, true))
}
