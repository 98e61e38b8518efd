// internal/reporting/text_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/formwalk/internal/runner"
)

// TextReporter prints one line per scenario as results arrive and a
// summary line on Close.
type TextReporter struct {
	mu     sync.Mutex
	writer io.WriteCloser
	totals totals
	err    error
}

func NewTextReporter(writer io.WriteCloser) *TextReporter {
	return &TextReporter{writer: writer}
}

var statusLabels = map[runner.Status]string{
	runner.StatusPassed:  "PASS",
	runner.StatusFailed:  "FAIL",
	runner.StatusErrored: "ERROR",
	runner.StatusSkipped: "SKIP",
}

func (r *TextReporter) Write(result *runner.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals.add(result)

	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %s (%s)\n", statusLabels[result.Status], result.Scenario, result.Duration.Round(time.Millisecond))
	if f := result.Failure; f != nil {
		fmt.Fprintf(&b, "      %s\n", f.Message)
		if f.File != "" {
			fmt.Fprintf(&b, "      at %s:%d (step %d)\n", f.File, f.Line, f.StepIndex)
		}
	}
	_, err := io.WriteString(r.writer, b.String())
	if err != nil && r.err == nil {
		r.err = err
	}
	return err
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.totals
	_, err := fmt.Fprintf(r.writer, "\n%d scenarios: %d passed, %d failed, %d errored, %d skipped\n",
		t.Total, t.Passed, t.Failed, t.Errored, t.Skipped)
	closeErr := r.writer.Close()
	switch {
	case r.err != nil:
		return r.err
	case err != nil:
		return err
	}
	return closeErr
}
