// Package xunit renders a completed run as a JUnit/XUnit-style XML
// report, matching the --xunit output named in spec §6.3.
package xunit

import (
	"encoding/xml"
	"os"
	"sync"

	"github.com/jujuqa/matrix/internal/driver"
)

// TestCase is one <testcase> element.
type TestCase struct {
	XMLName xml.Name `xml:"testcase"`
	Name    string   `xml:"name,attr"`
	Time    float64  `xml:"time,attr"`
	Failure *Failure `xml:"failure,omitempty"`
}

// Failure is a <failure> child element, present only on a failing case.
type Failure struct {
	Message string `xml:",chardata"`
	Attr    string `xml:"message,attr"`
}

// Suite is the <testsuite> wrapping all cases.
type Suite struct {
	XMLName  xml.Name   `xml:"testsuite"`
	Name     string     `xml:"name,attr"`
	Tests    int        `xml:"tests,attr"`
	Failures int        `xml:"failures,attr"`
	Cases    []TestCase `xml:"testcase"`
}

// Report is the <testsuites> document root.
type Report struct {
	XMLName xml.Name `xml:"testsuites"`
	Suites  []Suite  `xml:"testsuite"`
}

// Writer accumulates test results and renders them as a Report.
type Writer struct {
	mu    sync.Mutex
	name  string
	cases []TestCase
}

// NewWriter builds a Writer for a named suite (the report's top-level
// <testsuite name="...">, conventionally "matrix").
func NewWriter(suiteName string) *Writer {
	return &Writer{name: suiteName}
}

// Record adds one test's outcome to the report, naming the case
// "<entity>: <test>" per §6.3's convention when entity is non-empty.
func (w *Writer) Record(entity string, res driver.Result, elapsedSeconds float64) {
	name := res.Test
	if entity != "" {
		name = entity + ": " + res.Test
	}

	tc := TestCase{Name: name, Time: elapsedSeconds}
	if !res.Success {
		msg := "test failed"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		tc.Failure = &Failure{Message: msg, Attr: msg}
	}

	w.mu.Lock()
	w.cases = append(w.cases, tc)
	w.mu.Unlock()
}

// Report builds the accumulated Report document.
func (w *Writer) Report() Report {
	w.mu.Lock()
	defer w.mu.Unlock()

	failures := 0
	for _, c := range w.cases {
		if c.Failure != nil {
			failures++
		}
	}
	return Report{Suites: []Suite{{
		Name:     w.name,
		Tests:    len(w.cases),
		Failures: failures,
		Cases:    append([]TestCase{}, w.cases...),
	}}}
}

// WriteFile renders the accumulated report as indented XML to path.
func (w *Writer) WriteFile(path string) error {
	data, err := xml.MarshalIndent(w.Report(), "", "  ")
	if err != nil {
		return err
	}
	data = append([]byte(xml.Header), data...)
	return os.WriteFile(path, data, 0644)
}
