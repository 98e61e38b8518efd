// internal/locator/kind.go
package locator

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the form controls the walker knows how to fill.
type Kind string

const (
	KindText         Kind = "text"
	KindTextArea     Kind = "textarea"
	KindPhone        Kind = "phone"
	KindDate         Kind = "date"
	KindFile         Kind = "file"
	KindSingleChoice Kind = "single-choice"
	KindMultiChoice  Kind = "multi-choice"
	KindDropdown     Kind = "dropdown"
	KindCard         Kind = "card"
)

// Kinds lists every recognized kind in a stable order.
var Kinds = []Kind{
	KindText, KindTextArea, KindPhone, KindDate, KindFile,
	KindSingleChoice, KindMultiChoice, KindDropdown, KindCard,
}

// Default placeholder hints rendered by the hosted forms.
const (
	AnswerPlaceholder = "Your answer here"
	PhonePlaceholder  = "(000)000-0000"
)

// defaults holds the input-kind tag and placeholder hint of each kind.
var defaults = map[Kind]Field{
	KindText:         {Kind: KindText, InputKind: "text-input", Placeholder: AnswerPlaceholder},
	KindTextArea:     {Kind: KindTextArea, InputKind: "textarea-input", Placeholder: AnswerPlaceholder},
	KindPhone:        {Kind: KindPhone, InputKind: "phone-input", Placeholder: PhonePlaceholder},
	KindDate:         {Kind: KindDate, InputKind: "date-input"},
	KindFile:         {Kind: KindFile, InputKind: "file-input"},
	KindSingleChoice: {Kind: KindSingleChoice, InputKind: "multiple-choice-input"},
	KindMultiChoice:  {Kind: KindMultiChoice, InputKind: "multiple-choice-input"},
	KindDropdown:     {Kind: KindDropdown, InputKind: "dropdown-input"},
	KindCard:         {Kind: KindCard, InputKind: "cards-input"},
}

// ParseKind accepts a kind name, case-insensitively, with '_' or '-'.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := defaults[k]; !ok {
		return "", fmt.Errorf("unknown field kind %q", s)
	}
	return k, nil
}

// Field describes where the concrete control of a labeled form field lives.
// The hosted forms wrap every control in a container whose id embeds the
// input-kind tag followed by the field's position on the page.
type Field struct {
	Kind Kind
	// InputKind is the tag embedded in the container id, e.g. "number-input".
	InputKind string
	// Index is the position of the field on the current page.
	Index int
	// Placeholder is matched as a substring; empty disables the check.
	Placeholder string
}

// DefaultField returns the field description used when a step does not
// override anything.
func DefaultField(k Kind) Field {
	f, ok := defaults[k]
	if !ok {
		return Field{Kind: k}
	}
	return f
}

// ContainerID is the id fragment of the field's wrapper element.
func (f Field) ContainerID() string {
	return f.InputKind + strconv.Itoa(f.Index)
}

// Validate reports descriptions that cannot produce a locator.
func (f Field) Validate() error {
	if _, ok := defaults[f.Kind]; !ok {
		return fmt.Errorf("unknown field kind %q", f.Kind)
	}
	if f.InputKind == "" {
		return fmt.Errorf("%s field has no input kind", f.Kind)
	}
	if f.Index < 0 {
		return fmt.Errorf("%s field index must not be negative (got %d)", f.Kind, f.Index)
	}
	return nil
}
