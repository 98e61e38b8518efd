// internal/walker/options.go
package walker

import (
	"time"

	"github.com/xkilldash9x/formwalk/internal/locator"
)

// Defaults match the hosted forms, which can be slow to render.
const (
	DefaultTimeout      = 50 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultConfirmButton is the confirm control of single-choice fields.
	DefaultConfirmButton = "Next"
)

// Option configures a Walker.
type Option func(*Walker)

// WithTimeout sets the wait budget of every locate.
func WithTimeout(d time.Duration) Option {
	return func(w *Walker) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithPollInterval sets how often a locate re-queries the document.
func WithPollInterval(d time.Duration) Option {
	return func(w *Walker) {
		if d > 0 {
			w.poll = d
		}
	}
}

// WithDiagnostics installs a hook that runs after every locate attempt.
func WithDiagnostics(h Hook) Option {
	return func(w *Walker) {
		if h != nil {
			w.hook = h
		}
	}
}

// stepConfig holds per-step overrides. Nil pointers keep the field kind's
// defaults.
type stepConfig struct {
	advance       bool
	placeholder   *string
	inputKind     string
	index         int
	confirmButton string
}

// StepOption adjusts a single step.
type StepOption func(*stepConfig)

func newStepConfig(opts []StepOption) stepConfig {
	c := stepConfig{advance: true, confirmButton: DefaultConfirmButton}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NoAdvance keeps the walker on the current page after the step.
func NoAdvance() StepOption { return AdvanceAfter(false) }

// AdvanceAfter sets whether the step ends with an advance.
func AdvanceAfter(on bool) StepOption {
	return func(c *stepConfig) { c.advance = on }
}

// Placeholder overrides the placeholder hint the input must carry. An
// empty hint disables the check.
func Placeholder(hint string) StepOption {
	return func(c *stepConfig) { c.placeholder = &hint }
}

// InputKind overrides the input-kind tag of the field container id.
func InputKind(tag string) StepOption {
	return func(c *stepConfig) { c.inputKind = tag }
}

// Index selects the field position on the page.
func Index(i int) StepOption {
	return func(c *stepConfig) { c.index = i }
}

// ConfirmButton names the control that confirms a single choice. An empty
// text means the option buttons advance the form themselves.
func ConfirmButton(text string) StepOption {
	return func(c *stepConfig) { c.confirmButton = text }
}

// field applies the overrides to the defaults of kind k.
func (c stepConfig) field(k locator.Kind) locator.Field {
	f := locator.DefaultField(k)
	if c.placeholder != nil {
		f.Placeholder = *c.placeholder
	}
	if c.inputKind != "" {
		f.InputKind = c.inputKind
	}
	f.Index = c.index
	return f
}
