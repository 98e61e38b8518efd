// internal/reporting/reporter.go

// Package reporting renders scenario results in the supported output
// formats.
package reporting

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/formwalk/internal/runner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Supported formats.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatJUnit = "junit"
	FormatSARIF = "sarif"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatJSON, FormatJUnit, FormatSARIF}

// Reporter receives results as scenarios finish.
type Reporter interface {
	// Write records one scenario result.
	Write(result *runner.Result) error
	// Close finalizes the report and closes the underlying output.
	Close() error
}

// nopWriteCloser keeps Close from closing stdout.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// NopWriteCloser wraps w so a reporter can own it without closing it.
func NopWriteCloser(w io.Writer) io.WriteCloser {
	return &nopWriteCloser{w}
}

// New creates a reporter for format writing to outputPath. An empty path or
// "stdout" writes to standard output.
func New(format, outputPath, version string) (Reporter, error) {
	switch format {
	case FormatText, FormatJSON, FormatJUnit, FormatSARIF:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = NopWriteCloser(os.Stdout)
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, version)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, version string) (Reporter, error) {
	switch format {
	case FormatText:
		return NewTextReporter(writer), nil
	case FormatJSON:
		return NewJSONReporter(writer, version), nil
	case FormatJUnit:
		return NewJUnitReporter(writer), nil
	case FormatSARIF:
		return NewSARIFReporter(writer, version), nil
	}
	writer.Close()
	return nil, fmt.Errorf("unsupported output format: %s", format)
}

// totals counts results by status.
type totals struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
	Skipped int `json:"skipped"`
}

func (t *totals) add(r *runner.Result) {
	t.Total++
	switch r.Status {
	case runner.StatusPassed:
		t.Passed++
	case runner.StatusFailed:
		t.Failed++
	case runner.StatusErrored:
		t.Errored++
	case runner.StatusSkipped:
		t.Skipped++
	}
}

// pString returns a pointer to s.
func pString(s string) *string {
	return &s
}
