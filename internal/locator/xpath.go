// internal/locator/xpath.go
package locator

import (
	"fmt"
	"strings"
)

// Condition is the readiness an element must reach before a step uses it.
type Condition int

const (
	// Present only requires the element to exist in the document.
	Present Condition = iota
	// Clickable requires the element to be displayed and enabled.
	Clickable
)

func (c Condition) String() string {
	if c == Clickable {
		return "clickable"
	}
	return "present"
}

// Query is a derived locator: a human description for error messages plus the
// XPath that resolves it.
type Query struct {
	Description string
	XPath       string
	Condition   Condition
}

func (q Query) String() string {
	return fmt.Sprintf("%s [%s] %s", q.Description, q.Condition, q.XPath)
}

// Literal renders s as an XPath 1.0 string literal. XPath has no escape
// sequences, so strings holding both quote kinds are split into concat().
func Literal(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	args := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			args = append(args, `'"'`)
		}
		if p != "" {
			args = append(args, `"`+p+`"`)
		}
	}
	if len(args) == 1 {
		return args[0]
	}
	return "concat(" + strings.Join(args, ", ") + ")"
}

// classContains matches class attributes by substring, which is how the
// hosted forms are targeted ("text" also matches "text-block").
func classContains(class string) string {
	return fmt.Sprintf("contains(@class, %s)", Literal(class))
}

// hasClass matches a whole class token.
func hasClass(class string) string {
	return fmt.Sprintf("contains(concat(' ', normalize-space(@class), ' '), %s)", Literal(" "+class+" "))
}

func textContains(s string) string {
	return fmt.Sprintf("contains(., %s)", Literal(s))
}

func attrContains(attr, s string) string {
	return fmt.Sprintf("contains(@%s, %s)", attr, Literal(s))
}

func within(f Field) string {
	return fmt.Sprintf("//div[%s]", attrContains("id", f.ContainerID()))
}

// Text locates a text display block containing content.
func Text(content string) Query {
	return Query{
		Description: fmt.Sprintf("text %q", content),
		XPath:       fmt.Sprintf("//div[%s and %s]", classContains("text"), textContains(content)),
	}
}

// Link locates a hyperlink whose text contains content and whose href
// contains url.
func Link(content, url string) Query {
	return Query{
		Description: fmt.Sprintf("link %q", content),
		XPath:       fmt.Sprintf("//a[%s and %s]", attrContains("href", url), textContains(content)),
	}
}

// File locates a download link for a generated file.
func File(content, downloadRef string) Query {
	return Query{
		Description: fmt.Sprintf("file %q", content),
		XPath:       fmt.Sprintf("//a[%s and %s]", attrContains("href", downloadRef), textContains(content)),
	}
}

// TableHeader locates the header cell of the column at position col
// (zero-based). The first rendered column is the row index, hence the +2.
func TableHeader(col int) Query {
	return Query{
		Description: fmt.Sprintf("table column %d", col+1),
		XPath:       fmt.Sprintf("//table/thead/tr/th[%d]", col+2),
		Condition:   Clickable,
	}
}

// Label locates the label block of a form field.
func Label(label string) Query {
	return Query{
		Description: fmt.Sprintf("label %q", label),
		XPath:       fmt.Sprintf("//div[%s and %s]", classContains("label"), textContains(label)),
	}
}

// NextButton locates the control that advances the form.
func NextButton() Query {
	return Query{
		Description: "next button",
		XPath:       fmt.Sprintf("//*[%s]", hasClass("next-button")),
		Condition:   Clickable,
	}
}

// ChoiceButton locates a single-choice option rendered as its own button,
// used when the form has no separate confirmation control.
func ChoiceButton(value string) Query {
	return Query{
		Description: fmt.Sprintf("option %q", value),
		XPath:       fmt.Sprintf("//div[%s and %s]", classContains("multiple-choice-button"), textContains(value)),
		Condition:   Clickable,
	}
}

// Input locates the concrete input of a text-like field.
func Input(f Field) (Query, error) {
	if err := f.Validate(); err != nil {
		return Query{}, err
	}

	var tag string
	preds := []string{classContains("input")}
	switch f.Kind {
	case KindText, KindPhone:
		tag = "input"
	case KindTextArea:
		tag = "textarea"
	case KindDate:
		tag = "input"
		preds = append(preds, attrContains("type", "date"))
	case KindFile:
		tag = "input"
		preds = append(preds, attrContains("type", "file"))
	default:
		return Query{}, fmt.Errorf("%s field has no text input", f.Kind)
	}
	if f.Placeholder != "" && f.Kind != KindDate && f.Kind != KindFile {
		preds = append(preds, attrContains("placeholder", f.Placeholder))
	}

	return Query{
		Description: fmt.Sprintf("%s input %s", f.Kind, f.ContainerID()),
		XPath:       fmt.Sprintf("%s//%s[%s]", within(f), tag, strings.Join(preds, " and ")),
	}, nil
}

// Option locates the choice matching value inside a choice or card field.
func Option(f Field, value string) (Query, error) {
	if err := f.Validate(); err != nil {
		return Query{}, err
	}

	var el, class, noun string
	switch f.Kind {
	case KindSingleChoice:
		el, class, noun = "div", "radiobox", "option"
	case KindMultiChoice:
		el, class, noun = "div", "checkbox", "option"
	case KindCard:
		el, class, noun = "h3", "card-title", "card"
	default:
		return Query{}, fmt.Errorf("%s field has no options", f.Kind)
	}

	return Query{
		Description: fmt.Sprintf("%s %q", noun, value),
		XPath:       fmt.Sprintf("%s//%s[%s and %s]", within(f), el, classContains(class), textContains(value)),
	}, nil
}

// DropdownToggle locates the element that opens a dropdown's option list.
func DropdownToggle(f Field) (Query, error) {
	if err := f.Validate(); err != nil {
		return Query{}, err
	}
	if f.Kind != KindDropdown {
		return Query{}, fmt.Errorf("%s field is not a dropdown", f.Kind)
	}
	return Query{
		Description: fmt.Sprintf("dropdown %s", f.ContainerID()),
		XPath:       fmt.Sprintf("%s//div[%s]", within(f), classContains("v-select")),
	}, nil
}

// DropdownOption locates an entry of the currently open dropdown list. The
// list is rendered outside the field container, so the query is global.
func DropdownOption(value string) Query {
	return Query{
		Description: fmt.Sprintf("dropdown option %q", value),
		XPath:       fmt.Sprintf("//li[%s and %s]", classContains("vs__dropdown-option"), textContains(value)),
	}
}
