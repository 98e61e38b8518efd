// internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"
	"sync"

	"github.com/xkilldash9x/formwalk/internal/runner"
)

// jsonReport is the document written by JSONReporter.
type jsonReport struct {
	Tool    string           `json:"tool"`
	Version string           `json:"version"`
	Totals  totals           `json:"totals"`
	Results []*runner.Result `json:"results"`
}

// JSONReporter buffers results and writes one JSON document on Close.
type JSONReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
	report jsonReport
}

func NewJSONReporter(writer io.WriteCloser, version string) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		report: jsonReport{Tool: ToolName, Version: version, Results: []*runner.Result{}},
	}
}

func (r *JSONReporter) Write(result *runner.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report.Totals.add(result)
	r.report.Results = append(r.report.Results, result)
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(&r.report)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
