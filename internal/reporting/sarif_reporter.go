// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/observability"
	"github.com/xkilldash9x/formwalk/internal/reporting/sarif"
	"github.com/xkilldash9x/formwalk/internal/runner"
	"github.com/xkilldash9x/formwalk/internal/walker"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "formwalk"
	ToolInfoURI  = "https://github.com/xkilldash9x/formwalk"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// classRule describes the rule emitted for a failure class.
type classRule struct {
	name  string
	short string
	help  string
	level sarif.Level
}

// classInvalid covers failures outside the walker taxonomy.
const classInvalid = "invalid_step"

var classRules = map[string]classRule{
	walker.ClassElementNotFound: {
		name:  "ElementNotFound",
		short: "A required element did not appear within the wait budget.",
		help:  "Check that the label, text or option still exists on the page, or raise walker.wait_timeout for slow pages.",
		level: sarif.LevelError,
	},
	walker.ClassContentMismatch: {
		name:  "ContentMismatch",
		short: "An element was found but did not carry the expected content.",
		help:  "Compare the expected and actual values in the message; the form content may have changed.",
		level: sarif.LevelError,
	},
	walker.ClassSession: {
		name:  "SessionError",
		short: "The browser session could not be created or became unusable.",
		help:  "Check the browser configuration and, for remote browsers, the hub availability.",
		level: sarif.LevelWarning,
	},
	classInvalid: {
		name:  "InvalidStep",
		short: "A step could not be executed as written.",
		help:  "Run `formwalk validate` on the suite file.",
		level: sarif.LevelError,
	},
}

// SARIFReporter renders every failed or errored scenario as a SARIF
// result located at the step that stopped it. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects log and rules.
	mu    sync.Mutex
	rules map[string]bool
	ok    bool
}

// NewSARIFReporter creates a reporter that writes SARIF output on Close.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	log := &sarif.Log{
		Version: SARIFVersion,
		Schema:  SARIFSchema,
		Runs: []*sarif.Run{
			{
				Tool: &sarif.Tool{
					Driver: &sarif.ToolComponent{
						Name:           ToolName,
						Version:        pString(toolVersion),
						InformationURI: pString(ToolInfoURI),
						Rules:          []*sarif.ReportingDescriptor{},
					},
				},
				Results: []*sarif.Result{},
			},
		},
	}

	return &SARIFReporter{
		writer: writer,
		logger: observability.GetLogger().Named("sarif_reporter"),
		log:    log,
		rules:  make(map[string]bool),
		ok:     true,
	}
}

// Write adds a SARIF result for failed and errored scenarios.
func (r *SARIFReporter) Write(result *runner.Result) error {
	if result.Status == runner.StatusPassed || result.Status == runner.StatusSkipped {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ok = false

	class := classInvalid
	message := string(result.Status)
	if f := result.Failure; f != nil {
		if f.Class != "" {
			class = f.Class
		}
		message = f.Message
	}
	id, level := r.ensureRule(class)

	r.log.Runs[0].Results = append(r.log.Runs[0].Results, &sarif.Result{
		RuleID:    id,
		Message:   &sarif.Message{Text: pString(fmt.Sprintf("%s: %s", result.Scenario, message))},
		Level:     level,
		Locations: createLocations(result),
		Properties: &sarif.PropertyBag{
			"scenario": result.Scenario,
			"run_id":   result.RunID,
			"url":      result.URL,
			"status":   string(result.Status),
		},
	})
	return nil
}

// Close encodes the log and closes the writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	run.Invocations = []*sarif.Invocation{{ExecutionSuccessful: r.ok}}
	r.logger.Debug("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Wrote SARIF report", zap.Duration("duration", time.Since(startTime)))
	return nil
}

// ruleID derives the SARIF rule id of a failure class.
func ruleID(class string) string {
	return "FORMWALK-" + strings.ToUpper(strings.ReplaceAll(class, "_", "-"))
}

// ensureRule registers the rule of class on first use and returns its id
// and result level. Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(class string) (string, sarif.Level) {
	id := ruleID(class)
	rule, ok := classRules[class]
	if !ok {
		rule = classRules[classInvalid]
	}
	if r.rules[class] {
		return id, rule.level
	}
	r.rules[class] = true
	markdown := fmt.Sprintf("**%s**\n\n%s\n\n%s", rule.name, rule.short, rule.help)

	driver := r.log.Runs[0].Tool.Driver
	driver.Rules = append(driver.Rules, &sarif.ReportingDescriptor{
		ID:               id,
		Name:             pString(rule.name),
		ShortDescription: &sarif.MultiformatMessageString{Text: pString(rule.short)},
		FullDescription:  &sarif.MultiformatMessageString{Text: pString(rule.short)},
		Help: &sarif.MultiformatMessageString{
			Text:     pString(rule.help),
			Markdown: pString(markdown),
		},
		Properties: &sarif.PropertyBag{
			"tags": []string{"ui", "formwalk"},
		},
	})
	return id, rule.level
}

// createLocations points at the failing step in its suite file, or at the
// scenario URL when the failure has no step.
func createLocations(result *runner.Result) []*sarif.Location {
	f := result.Failure
	if f == nil || f.File == "" {
		return []*sarif.Location{{
			PhysicalLocation: &sarif.PhysicalLocation{
				ArtifactLocation: &sarif.ArtifactLocation{URI: pString(result.URL)},
			},
			Message: &sarif.Message{Text: pString("Scenario " + result.Scenario)},
		}}
	}

	loc := &sarif.Location{
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(f.File)},
		},
		Message: &sarif.Message{Text: pString(fmt.Sprintf("Step %d: %s", f.StepIndex, f.Step))},
	}
	if f.Line > 0 {
		loc.PhysicalLocation.Region = &sarif.Region{StartLine: f.Line}
	}
	return []*sarif.Location{loc}
}
