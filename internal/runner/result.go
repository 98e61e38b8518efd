// internal/runner/result.go
package runner

import (
	"time"

	"github.com/xkilldash9x/formwalk/internal/walker"
)

// Status is the outcome of one scenario.
type Status string

const (
	// StatusPassed means every step succeeded.
	StatusPassed Status = "passed"
	// StatusFailed means a step did not find or did not match its target.
	StatusFailed Status = "failed"
	// StatusErrored means the session broke or the scenario could not run.
	StatusErrored Status = "errored"
	// StatusSkipped means the run was canceled before the scenario finished.
	StatusSkipped Status = "skipped"
)

// Result records one scenario run.
type Result struct {
	RunID      string        `json:"run_id"`
	Suite      string        `json:"suite"`
	Scenario   string        `json:"scenario"`
	URL        string        `json:"url"`
	Driver     string        `json:"driver"`
	Status     Status        `json:"status"`
	StepsRun   int           `json:"steps_run"`
	StepsTotal int           `json:"steps_total"`
	Failure    *Failure      `json:"failure,omitempty"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration_ns"`
}

// Failure locates the step that ended a scenario.
type Failure struct {
	// StepIndex is 1-based; 0 means the scenario failed before its first
	// step, e.g. while opening the session or checking the title.
	StepIndex int    `json:"step_index"`
	StepKind  string `json:"step_kind,omitempty"`
	Step      string `json:"step,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Class     string `json:"class,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// statusFor maps a step error onto a scenario status.
func statusFor(err error) Status {
	switch walker.Classify(err) {
	case walker.ClassElementNotFound, walker.ClassContentMismatch:
		return StatusFailed
	}
	return StatusErrored
}

// Summary aggregates a run.
type Summary struct {
	Results  []*Result     `json:"results"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Errored  int           `json:"errored"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration_ns"`
}

func newSummary(results []*Result, d time.Duration) *Summary {
	s := &Summary{Duration: d}
	for _, r := range results {
		if r == nil {
			continue
		}
		s.Results = append(s.Results, r)
		switch r.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusErrored:
			s.Errored++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// OK reports whether every scenario passed.
func (s *Summary) OK() bool {
	return s.Failed == 0 && s.Errored == 0 && s.Skipped == 0
}
