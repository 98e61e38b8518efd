// internal/reporting/junit_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/formwalk/internal/runner"
)

// JUnitReporter writes a JUnit XML report with one testsuite per suite file
// and one testcase per scenario.
type JUnitReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	order   []string
	results map[string][]*runner.Result
}

func NewJUnitReporter(writer io.WriteCloser) *JUnitReporter {
	return &JUnitReporter{writer: writer, results: make(map[string][]*runner.Result)}
}

func (r *JUnitReporter) Write(result *runner.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[result.Suite]; !ok {
		r.order = append(r.order, result.Suite)
	}
	r.results[result.Suite] = append(r.results[result.Suite], result)
	return nil
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// build renders the report document. Must be called while holding the mutex.
func (r *JUnitReporter) build() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("testsuites")
	root.CreateAttr("name", ToolName)

	var all totals
	var total time.Duration
	for _, name := range r.order {
		var t totals
		var elapsed time.Duration
		suite := root.CreateElement("testsuite")
		suite.CreateAttr("name", name)

		for _, res := range r.results[name] {
			t.add(res)
			all.add(res)
			elapsed += res.Duration

			tc := suite.CreateElement("testcase")
			tc.CreateAttr("name", res.Scenario)
			tc.CreateAttr("classname", name)
			tc.CreateAttr("time", seconds(res.Duration))

			switch res.Status {
			case runner.StatusFailed, runner.StatusErrored:
				tag := "failure"
				if res.Status == runner.StatusErrored {
					tag = "error"
				}
				el := tc.CreateElement(tag)
				if f := res.Failure; f != nil {
					el.CreateAttr("message", f.Message)
					el.CreateAttr("type", f.Class)
					el.CreateText(fmt.Sprintf("%s:%d step %d %s\nurl: %s\nrun: %s", f.File, f.Line, f.StepIndex, f.Step, res.URL, res.RunID))
				}
			case runner.StatusSkipped:
				tc.CreateElement("skipped")
			}
		}
		total += elapsed
		suite.CreateAttr("tests", strconv.Itoa(t.Total))
		suite.CreateAttr("failures", strconv.Itoa(t.Failed))
		suite.CreateAttr("errors", strconv.Itoa(t.Errored))
		suite.CreateAttr("skipped", strconv.Itoa(t.Skipped))
		suite.CreateAttr("time", seconds(elapsed))
	}
	root.CreateAttr("tests", strconv.Itoa(all.Total))
	root.CreateAttr("failures", strconv.Itoa(all.Failed))
	root.CreateAttr("errors", strconv.Itoa(all.Errored))
	root.CreateAttr("skipped", strconv.Itoa(all.Skipped))
	root.CreateAttr("time", seconds(total))

	doc.Indent(2)
	return doc
}

func (r *JUnitReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, writeErr := r.build().WriteTo(r.writer)
	closeErr := r.writer.Close()
	if writeErr != nil {
		return fmt.Errorf("failed to write JUnit output: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
