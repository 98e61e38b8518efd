// internal/scenario/scenario.go

// Package scenario models form walks as data: a suite file lists scenarios,
// each an ordered list of steps against one page of a target site.
package scenario

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/formwalk/internal/walker"
)

// Suite is the content of one suite file.
type Suite struct {
	BaseURL   string      `yaml:"base_url"`
	Scenarios []*Scenario `yaml:"scenarios"`
	// File is the path the suite was loaded from.
	File string `yaml:"-"`
}

// Scenario is one walk through a form.
type Scenario struct {
	Name string `yaml:"name"`
	// Path is appended to the base URL to form the start page.
	Path string `yaml:"path"`
	// Title, when set, must match the document title of the start page.
	Title string  `yaml:"title"`
	Steps []*Step `yaml:"steps"`

	File string `yaml:"-"`
	Line int    `yaml:"-"`
}

var scenarioFields = map[string]bool{"name": true, "path": true, "title": true, "steps": true}

// UnmarshalYAML records the scenario's line. Decoding through a custom
// unmarshaler drops the decoder's KnownFields setting, so keys are checked here.
func (s *Scenario) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			if !scenarioFields[key.Value] {
				return fmt.Errorf("line %d: field %s not found in scenario", key.Line, key.Value)
			}
		}
	}
	type plain Scenario
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	s.Line = node.Line
	return nil
}

// URL joins base and the scenario path.
func (s *Scenario) URL(base string) string {
	if base == "" {
		return s.Path
	}
	if s.Path == "" {
		return base
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(s.Path, "/")
}

// Terminal reports whether the walk ends on a confirmation check: a final
// expect_text that does not advance.
func (s *Scenario) Terminal() bool {
	if len(s.Steps) == 0 {
		return false
	}
	last := s.Steps[len(s.Steps)-1]
	return last.Kind == KindExpectText && last.Advance != nil && !*last.Advance
}

// Validate reports every problem of the suite at once.
func (s *Suite) Validate() error {
	var errs error
	if len(s.Scenarios) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s: no scenarios", s.name()))
	}

	seen := map[string]int{}
	for i, sc := range s.Scenarios {
		if sc == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: scenario %d is empty", s.name(), i+1))
			continue
		}
		where := fmt.Sprintf("%s:%d", s.name(), sc.Line)
		switch {
		case sc.Name == "":
			errs = multierr.Append(errs, fmt.Errorf("%s: scenario has no name", where))
		case seen[sc.Name] > 0:
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate scenario name %q (first at line %d)", where, sc.Name, seen[sc.Name]))
		default:
			seen[sc.Name] = sc.Line
		}
		if len(sc.Steps) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: scenario %q has no steps", where, sc.Name))
		}
		for _, st := range sc.Steps {
			if st == nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: scenario %q has an empty step", where, sc.Name))
				continue
			}
			if err := st.Validate(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", st.Location(), err))
			}
		}
	}
	return errs
}

func (s *Suite) name() string {
	if s.File == "" {
		return "suite"
	}
	return s.File
}

// Apply runs the step on w.
func (s *Step) Apply(ctx context.Context, w *walker.Walker) error {
	opts := s.options()
	switch s.Kind {
	case KindExpectTitle:
		return w.ExpectTitle(ctx, s.Title)
	case KindExpectText:
		return w.ExpectText(ctx, s.Content, opts...)
	case KindExpectLink:
		return w.ExpectLink(ctx, s.Content, s.URL, opts...)
	case KindExpectFile:
		return w.ExpectFile(ctx, s.Content, s.URL, opts...)
	case KindExpectTable:
		return w.ExpectTable(ctx, s.Columns, opts...)
	case KindFillText:
		return w.FillText(ctx, s.Label, s.Value, opts...)
	case KindFillTextArea:
		return w.FillTextArea(ctx, s.Label, s.Value, opts...)
	case KindFillPhone:
		return w.FillPhone(ctx, s.Label, s.Value, opts...)
	case KindFillDate:
		return w.FillDate(ctx, s.Label, s.Value, opts...)
	case KindFillFile:
		return w.FillFile(ctx, s.Label, s.Value, opts...)
	case KindFillOption:
		return w.FillOption(ctx, s.Label, s.Value, opts...)
	case KindFillMultipleOptions:
		return w.FillMultipleOptions(ctx, s.Label, s.Values, opts...)
	case KindFillDropdown:
		return w.FillDropdown(ctx, s.Label, s.Value, opts...)
	case KindFillCard:
		return w.FillCard(ctx, s.Label, s.Value, opts...)
	case KindAdvance:
		return w.Advance(ctx)
	}
	return fmt.Errorf("unknown step kind %q", s.Kind)
}

// options translates the explicit parameters into walker step options.
// A confirm_button written as null means the option buttons advance the
// form themselves.
func (s *Step) options() []walker.StepOption {
	var opts []walker.StepOption
	if s.Advance != nil {
		opts = append(opts, walker.AdvanceAfter(*s.Advance))
	}
	if s.Placeholder != nil {
		opts = append(opts, walker.Placeholder(*s.Placeholder))
	}
	if s.InputKind != "" {
		opts = append(opts, walker.InputKind(s.InputKind))
	}
	if s.Index != nil {
		opts = append(opts, walker.Index(*s.Index))
	}
	switch {
	case s.ConfirmButton != nil:
		opts = append(opts, walker.ConfirmButton(*s.ConfirmButton))
	case s.Has(keyConfirmButton):
		opts = append(opts, walker.ConfirmButton(""))
	}
	return opts
}

// Describe renders the step for logs.
func (s *Step) Describe() string {
	var arg string
	switch {
	case s.Title != "":
		arg = s.Title
	case s.Label != "":
		arg = s.Label
	case s.Content != "":
		arg = s.Content
	case len(s.Columns) > 0:
		arg = strings.Join(s.Columns, ", ")
	}
	desc := string(s.Kind)
	if arg != "" {
		desc += fmt.Sprintf(" %q", arg)
	}
	if s.Kind == KindExpectTitle || s.Kind == KindAdvance {
		return desc
	}
	return desc + " (" + walker.Describe(s.options()...) + ")"
}
