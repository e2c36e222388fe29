package xunit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jujuqa/matrix/internal/driver"
	"github.com/jujuqa/matrix/internal/engineerr"
)

func TestRecordAndReportCountsFailures(t *testing.T) {
	w := NewWriter("matrix")
	w.Record("mysql", driver.Result{Test: "deploy", Success: true, ExitCode: engineerr.ExitSuccess}, 1.5)
	w.Record("mysql", driver.Result{Test: "chaos", Success: false, ExitCode: engineerr.ExitGating, Err: assert.AnError}, 2.0)

	report := w.Report()
	require.Len(t, report.Suites, 1)
	assert.Equal(t, 2, report.Suites[0].Tests)
	assert.Equal(t, 1, report.Suites[0].Failures)
	assert.Equal(t, "mysql: deploy", report.Suites[0].Cases[0].Name)
	require.NotNil(t, report.Suites[0].Cases[1].Failure)
}

func TestWriteFileProducesValidXML(t *testing.T) {
	w := NewWriter("matrix")
	w.Record("", driver.Result{Test: "solo", Success: true}, 0.1)

	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, w.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<testsuites>")
	assert.Contains(t, string(data), `name="solo"`)
}
