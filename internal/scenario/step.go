// internal/scenario/step.go
package scenario

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind names a step in suite files.
type Kind string

const (
	KindExpectTitle         Kind = "expect_title"
	KindExpectText          Kind = "expect_text"
	KindExpectLink          Kind = "expect_link"
	KindExpectFile          Kind = "expect_file"
	KindExpectTable         Kind = "expect_table"
	KindFillText            Kind = "fill_text"
	KindFillTextArea        Kind = "fill_textarea"
	KindFillPhone           Kind = "fill_phone"
	KindFillDate            Kind = "fill_date"
	KindFillFile            Kind = "fill_file"
	KindFillOption          Kind = "fill_option"
	KindFillMultipleOptions Kind = "fill_multiple_options"
	KindFillDropdown        Kind = "fill_dropdown"
	KindFillCard            Kind = "fill_card"
	KindAdvance             Kind = "advance"
)

// Parameter keys.
const (
	keyTitle         = "title"
	keyContent       = "content"
	keyURL           = "url"
	keyColumns       = "columns"
	keyLabel         = "label"
	keyValue         = "value"
	keyValues        = "values"
	keyAdvance       = "advance"
	keyPlaceholder   = "placeholder"
	keyInputKind     = "input_kind"
	keyIndex         = "index"
	keyConfirmButton = "confirm_button"
)

var allKeys = []string{
	keyTitle, keyContent, keyURL, keyColumns, keyLabel, keyValue, keyValues,
	keyAdvance, keyPlaceholder, keyInputKind, keyIndex, keyConfirmButton,
}

var knownKey = func() map[string]bool {
	m := make(map[string]bool, len(allKeys))
	for _, k := range allKeys {
		m[k] = true
	}
	return m
}()

// kindParams lists the parameters a step kind requires and accepts.
type kindParams struct {
	required []string
	optional []string
}

var fieldOptional = []string{keyAdvance, keyInputKind, keyIndex}

var kinds = map[Kind]kindParams{
	KindExpectTitle:         {required: []string{keyTitle}},
	KindExpectText:          {required: []string{keyContent}, optional: []string{keyAdvance}},
	KindExpectLink:          {required: []string{keyContent, keyURL}, optional: []string{keyAdvance}},
	KindExpectFile:          {required: []string{keyContent, keyURL}, optional: []string{keyAdvance}},
	KindExpectTable:         {required: []string{keyColumns}, optional: []string{keyAdvance}},
	KindFillText:            {required: []string{keyLabel, keyValue}, optional: append([]string{keyPlaceholder}, fieldOptional...)},
	KindFillTextArea:        {required: []string{keyLabel, keyValue}, optional: append([]string{keyPlaceholder}, fieldOptional...)},
	KindFillPhone:           {required: []string{keyLabel, keyValue}, optional: append([]string{keyPlaceholder}, fieldOptional...)},
	KindFillDate:            {required: []string{keyLabel, keyValue}, optional: fieldOptional},
	KindFillFile:            {required: []string{keyLabel, keyValue}, optional: fieldOptional},
	KindFillOption:          {required: []string{keyLabel, keyValue}, optional: append([]string{keyConfirmButton}, fieldOptional...)},
	KindFillMultipleOptions: {required: []string{keyLabel, keyValues}, optional: fieldOptional},
	KindFillDropdown:        {required: []string{keyLabel, keyValue}, optional: fieldOptional},
	KindFillCard:            {required: []string{keyLabel, keyValue}, optional: fieldOptional},
	KindAdvance:             {},
}

// StepKinds returns every known step kind, sorted.
func StepKinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Params are the arguments of a step. Pointer fields distinguish an
// explicit value from an omitted one.
type Params struct {
	Title         string   `yaml:"title"`
	Content       string   `yaml:"content"`
	URL           string   `yaml:"url"`
	Columns       []string `yaml:"columns"`
	Label         string   `yaml:"label"`
	Value         string   `yaml:"value"`
	Values        []string `yaml:"values"`
	Advance       *bool    `yaml:"advance"`
	Placeholder   *string  `yaml:"placeholder"`
	InputKind     string   `yaml:"input_kind"`
	Index         *int     `yaml:"index"`
	ConfirmButton *string  `yaml:"confirm_button"`
}

// Step is one entry of a scenario.
type Step struct {
	Kind Kind
	Params
	// File and Line locate the step in its suite file.
	File string
	Line int

	keys map[string]bool
}

// Has reports whether the step sets parameter key. Steps decoded from YAML
// know which keys were written; steps built in code fall back to the
// non-zero fields.
func (s *Step) Has(key string) bool {
	if s.keys != nil {
		return s.keys[key]
	}
	p := s.Params
	switch key {
	case keyTitle:
		return p.Title != ""
	case keyContent:
		return p.Content != ""
	case keyURL:
		return p.URL != ""
	case keyColumns:
		return p.Columns != nil
	case keyLabel:
		return p.Label != ""
	case keyValue:
		return p.Value != ""
	case keyValues:
		return p.Values != nil
	case keyAdvance:
		return p.Advance != nil
	case keyPlaceholder:
		return p.Placeholder != nil
	case keyInputKind:
		return p.InputKind != ""
	case keyIndex:
		return p.Index != nil
	case keyConfirmButton:
		return p.ConfirmButton != nil
	}
	return false
}

// setKeys returns the parameters the step sets.
func (s *Step) setKeys() []string {
	var out []string
	for _, k := range allKeys {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	if s.keys != nil {
		for k := range s.keys {
			if !knownKey[k] {
				out = append(out, k)
			}
		}
	}
	return out
}

// UnmarshalYAML accepts a bare kind ("- advance") or a single-key mapping
// from kind to parameters.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	s.Line = node.Line
	s.keys = map[string]bool{}

	switch node.Kind {
	case yaml.ScalarNode:
		s.Kind = Kind(node.Value)
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: a step must be a kind or a single-key mapping", node.Line)
	}

	if len(node.Content) != 2 {
		return fmt.Errorf("line %d: a step must have exactly one kind, got %d keys", node.Line, len(node.Content)/2)
	}
	s.Kind = Kind(node.Content[0].Value)
	body := node.Content[1]

	switch {
	case body.Kind == yaml.ScalarNode && body.Tag == "!!null":
		return nil
	case body.Kind != yaml.MappingNode:
		return fmt.Errorf("line %d: parameters of %s must be a mapping", body.Line, s.Kind)
	}
	for i := 0; i+1 < len(body.Content); i += 2 {
		s.keys[body.Content[i].Value] = true
	}
	if err := body.Decode(&s.Params); err != nil {
		return fmt.Errorf("line %d: %s: %w", body.Line, s.Kind, err)
	}
	return nil
}

// Validate checks the step against the parameters its kind needs.
func (s *Step) Validate() error {
	params, ok := kinds[s.Kind]
	if !ok {
		return fmt.Errorf("unknown step kind %q", s.Kind)
	}

	allowed := map[string]bool{}
	for _, k := range params.required {
		allowed[k] = true
	}
	for _, k := range params.optional {
		allowed[k] = true
	}
	var unknown []string
	for _, k := range s.setKeys() {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s does not take %s", s.Kind, strings.Join(unknown, ", "))
	}

	for _, k := range params.required {
		if !s.Has(k) {
			return fmt.Errorf("%s requires %s", s.Kind, k)
		}
	}
	if s.Has(keyColumns) && len(s.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", s.Kind)
	}
	if s.Has(keyValues) && len(s.Values) == 0 {
		return fmt.Errorf("%s requires at least one value", s.Kind)
	}
	if s.Index != nil && *s.Index < 0 {
		return fmt.Errorf("%s index must not be negative (got %d)", s.Kind, *s.Index)
	}
	return nil
}

// Location renders file:line for messages.
func (s *Step) Location() string {
	if s.File == "" {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}
