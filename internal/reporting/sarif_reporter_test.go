// internal/reporting/sarif_reporter_test.go
package reporting_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/formwalk/internal/reporting"
	"github.com/xkilldash9x/formwalk/internal/reporting/sarif"
	"github.com/xkilldash9x/formwalk/internal/runner"
	"github.com/xkilldash9x/formwalk/internal/walker"
)

// MockWriteCloser allows capturing output and simulating I/O errors.
type MockWriteCloser struct {
	Buffer    *bytes.Buffer
	FailWrite bool
	FailClose bool
	Closed    bool
}

func (m *MockWriteCloser) Write(p []byte) (n int, err error) {
	if m.FailWrite {
		return 0, errors.New("simulated write error")
	}
	return m.Buffer.Write(p)
}

func (m *MockWriteCloser) Close() error {
	m.Closed = true
	if m.FailClose {
		return errors.New("simulated close error")
	}
	return nil
}

func newMockWriter() *MockWriteCloser {
	return &MockWriteCloser{Buffer: new(bytes.Buffer)}
}

// -- Fixtures --

func passed(name string) *runner.Result {
	return &runner.Result{
		RunID:      "run-1",
		Suite:      "suites/checkout.yaml",
		Scenario:   name,
		URL:        "https://forms.example/" + name,
		Driver:     "htmldoc",
		Status:     runner.StatusPassed,
		StepsRun:   3,
		StepsTotal: 3,
		Duration:   1500 * time.Millisecond,
	}
}

func failed(name, class string, line int) *runner.Result {
	r := passed(name)
	r.Status = runner.StatusFailed
	r.StepsRun = 2
	r.Failure = &runner.Failure{
		StepIndex: 2,
		StepKind:  "expect_text",
		Step:      `expect_text "Welcome"`,
		File:      "suites/checkout.yaml",
		Line:      line,
		Class:     class,
		Message:   `expect_text: text "Welcome" not found`,
	}
	return r
}

func errored(name string) *runner.Result {
	r := passed(name)
	r.Status = runner.StatusErrored
	r.StepsRun = 0
	r.Failure = &runner.Failure{
		Class:   walker.ClassSession,
		Message: "open session: connection refused",
	}
	return r
}

func skipped(name string) *runner.Result {
	r := passed(name)
	r.Status = runner.StatusSkipped
	r.StepsRun = 0
	return r
}

func decodeSARIF(t *testing.T, w *MockWriteCloser) *sarif.Log {
	t.Helper()
	var log sarif.Log
	require.NoError(t, json.Unmarshal(w.Buffer.Bytes(), &log), "Output should be valid SARIF JSON")
	require.Len(t, log.Runs, 1)
	return &log
}

// -- Test Cases --

func TestSARIFReporter_Initialization(t *testing.T) {
	writer := newMockWriter()
	reporter := reporting.NewSARIFReporter(writer, "v1.2.3-test")

	require.NoError(t, reporter.Close())
	assert.True(t, writer.Closed)

	log := decodeSARIF(t, writer)
	assert.Equal(t, reporting.SARIFVersion, log.Version)
	assert.Equal(t, reporting.SARIFSchema, log.Schema)

	run := log.Runs[0]
	require.NotNil(t, run.Tool.Driver)
	assert.Equal(t, reporting.ToolName, run.Tool.Driver.Name)
	assert.Equal(t, "v1.2.3-test", *run.Tool.Driver.Version)
	require.NotNil(t, run.Results)
	assert.Empty(t, run.Results)
	assert.Empty(t, run.Tool.Driver.Rules)

	require.Len(t, run.Invocations, 1)
	assert.True(t, run.Invocations[0].ExecutionSuccessful)
}

func TestSARIFReporter_WriteAndClose(t *testing.T) {
	writer := newMockWriter()
	reporter := reporting.NewSARIFReporter(writer, "dev")

	require.NoError(t, reporter.Write(passed("start")))
	require.NoError(t, reporter.Write(failed("plan", walker.ClassElementNotFound, 14)))
	require.NoError(t, reporter.Write(skipped("later")))
	require.NoError(t, reporter.Write(failed("table", walker.ClassContentMismatch, 22)))
	require.NoError(t, reporter.Write(failed("name", walker.ClassElementNotFound, 30)))
	require.NoError(t, reporter.Write(errored("remote")))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]

	// Passed and skipped scenarios produce no result.
	require.Len(t, run.Results, 4)
	// One rule per failure class.
	require.Len(t, run.Tool.Driver.Rules, 3)

	first := run.Results[0]
	assert.Equal(t, "FORMWALK-ELEMENT-NOT-FOUND", first.RuleID)
	assert.Equal(t, sarif.LevelError, first.Level)
	assert.Equal(t, `plan: expect_text: text "Welcome" not found`, *first.Message.Text)
	require.Len(t, first.Locations, 1)
	phys := first.Locations[0].PhysicalLocation
	assert.Equal(t, "suites/checkout.yaml", *phys.ArtifactLocation.URI)
	require.NotNil(t, phys.Region)
	assert.Equal(t, 14, phys.Region.StartLine)
	assert.Equal(t, "plan", (*first.Properties)["scenario"])

	assert.Equal(t, "FORMWALK-CONTENT-MISMATCH", run.Results[1].RuleID)
	assert.Equal(t, first.RuleID, run.Results[2].RuleID, "same class reuses the rule")

	remote := run.Results[3]
	assert.Equal(t, "FORMWALK-SESSION-ERROR", remote.RuleID)
	assert.Equal(t, sarif.LevelWarning, remote.Level)
	// No step to point at, so the location falls back to the scenario URL.
	rphys := remote.Locations[0].PhysicalLocation
	assert.Equal(t, "https://forms.example/remote", *rphys.ArtifactLocation.URI)
	assert.Nil(t, rphys.Region)

	rules := make(map[string]*sarif.ReportingDescriptor)
	for _, r := range run.Tool.Driver.Rules {
		rules[r.ID] = r
	}
	notFound := rules["FORMWALK-ELEMENT-NOT-FOUND"]
	require.NotNil(t, notFound)
	assert.Equal(t, "ElementNotFound", *notFound.Name)
	assert.Contains(t, *notFound.Help.Markdown, "**ElementNotFound**")

	require.Len(t, run.Invocations, 1)
	assert.False(t, run.Invocations[0].ExecutionSuccessful)
}

func TestSARIFReporter_UnclassifiedFailure(t *testing.T) {
	writer := newMockWriter()
	reporter := reporting.NewSARIFReporter(writer, "dev")

	res := failed("bad", "", 9)
	require.NoError(t, reporter.Write(res))
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	require.Len(t, run.Results, 1)
	assert.Equal(t, "FORMWALK-INVALID-STEP", run.Results[0].RuleID)
}

func TestSARIFReporter_Concurrency(t *testing.T) {
	writer := newMockWriter()
	reporter := reporting.NewSARIFReporter(writer, "dev")

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			class := walker.ClassElementNotFound
			if i%2 == 0 {
				class = walker.ClassContentMismatch
			}
			assert.NoError(t, reporter.Write(failed(fmt.Sprintf("s%d", i), class, i+1)))
		}()
	}
	wg.Wait()
	require.NoError(t, reporter.Close())

	run := decodeSARIF(t, writer).Runs[0]
	assert.Len(t, run.Results, n)
	assert.Len(t, run.Tool.Driver.Rules, 2)
}

func TestSARIFReporter_IOErrors(t *testing.T) {
	t.Run("write failure", func(t *testing.T) {
		writer := newMockWriter()
		writer.FailWrite = true
		reporter := reporting.NewSARIFReporter(writer, "dev")

		err := reporter.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to encode SARIF output")
		assert.True(t, writer.Closed, "writer is closed even when encoding fails")
	})

	t.Run("close failure", func(t *testing.T) {
		writer := newMockWriter()
		writer.FailClose = true
		reporter := reporting.NewSARIFReporter(writer, "dev")

		err := reporter.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to close output writer")
	})
}
