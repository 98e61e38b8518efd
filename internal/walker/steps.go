// internal/walker/steps.go
package walker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/locator"
)

// -- Expectations --

// ExpectText waits for a text block containing content.
func (w *Walker) ExpectText(ctx context.Context, content string, opts ...StepOption) error {
	return w.expect(ctx, "expect_text", locator.Text(content), opts)
}

// ExpectLink waits for a link whose text contains content and whose target
// contains url.
func (w *Walker) ExpectLink(ctx context.Context, content, url string, opts ...StepOption) error {
	return w.expect(ctx, "expect_link", locator.Link(content, url), opts)
}

// ExpectFile waits for a download link of a generated file.
func (w *Walker) ExpectFile(ctx context.Context, content, downloadRef string, opts ...StepOption) error {
	return w.expect(ctx, "expect_file", locator.File(content, downloadRef), opts)
}

func (w *Walker) expect(ctx context.Context, step string, q locator.Query, opts []StepOption) error {
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, q); err != nil {
		return err
	}
	w.logger.Debug("Expectation met.", zap.String("step", step), zap.String("target", q.Description))
	return w.finish(ctx, c)
}

// ExpectTable checks the header row of a rendered table column by column
// and fails on the first column that is missing or does not match.
func (w *Walker) ExpectTable(ctx context.Context, columns []string, opts ...StepOption) error {
	const step = "expect_table"
	c := newStepConfig(opts)
	for i, col := range columns {
		q := locator.TableHeader(i)
		el, err := w.require(ctx, step, q)
		if err != nil {
			return err
		}
		text, err := el.Text(ctx)
		if err != nil {
			return &StepError{Step: step, Target: q.Description, Err: sessionError(err)}
		}
		if !strings.Contains(text, col) {
			return &StepError{Step: step, Target: q.Description, Expected: col, Actual: text, Err: ErrContentMismatch}
		}
	}
	return w.finish(ctx, c)
}

// ExpectTitle waits until the document title equals title.
func (w *Walker) ExpectTitle(ctx context.Context, title string) error {
	const step = "expect_title"
	q := locator.Query{Description: fmt.Sprintf("title %q", title)}

	var last string
	found, err := w.pollFor(ctx, q, func(ctx context.Context) (bool, error) {
		t, err := w.d.Title(ctx)
		if err != nil {
			return false, err
		}
		last = t
		return t == title, nil
	})
	if err != nil {
		return &StepError{Step: step, Target: "title", Err: sessionError(err)}
	}
	if !found {
		return &StepError{Step: step, Target: "title", Expected: title, Actual: last, Err: ErrContentMismatch}
	}
	return nil
}

// -- Text-like fields --

// FillText types value into the text field labeled label.
func (w *Walker) FillText(ctx context.Context, label, value string, opts ...StepOption) error {
	return w.fillInput(ctx, "fill_text", locator.KindText, label, value, opts)
}

// FillTextArea types value into the textarea labeled label.
func (w *Walker) FillTextArea(ctx context.Context, label, value string, opts ...StepOption) error {
	return w.fillInput(ctx, "fill_textarea", locator.KindTextArea, label, value, opts)
}

// FillPhone types value into the phone field labeled label.
func (w *Walker) FillPhone(ctx context.Context, label, value string, opts ...StepOption) error {
	return w.fillInput(ctx, "fill_phone", locator.KindPhone, label, value, opts)
}

// FillDate types value into the date field labeled label. The value is
// sent as keystrokes, so it must follow the browser's date input format.
func (w *Walker) FillDate(ctx context.Context, label, value string, opts ...StepOption) error {
	return w.fillInput(ctx, "fill_date", locator.KindDate, label, value, opts)
}

// FillFile attaches the file at path to the upload field labeled label.
func (w *Walker) FillFile(ctx context.Context, label, path string, opts ...StepOption) error {
	return w.fillInput(ctx, "fill_file", locator.KindFile, label, path, opts)
}

func (w *Walker) fillInput(ctx context.Context, step string, kind locator.Kind, label, value string, opts []StepOption) error {
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, locator.Label(label)); err != nil {
		return err
	}
	q, err := locator.Input(c.field(kind))
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	el, err := w.require(ctx, step, q)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, value); err != nil {
		return &StepError{Step: step, Target: q.Description, Err: sessionError(err)}
	}
	w.logger.Debug("Filled field.", zap.String("step", step), zap.String("label", label))
	return w.finish(ctx, c)
}

// -- Choice fields --

// FillOption selects value in the single-choice group labeled label. With
// a confirm button configured (the default) the radio option is clicked and
// the form advanced once. With ConfirmButton("") the option is rendered as
// its own button; clicking it advances the form and no further advance is
// issued.
func (w *Walker) FillOption(ctx context.Context, label, value string, opts ...StepOption) error {
	const step = "fill_option"
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, locator.Label(label)); err != nil {
		return err
	}

	if c.confirmButton == "" {
		return w.click(ctx, step, locator.ChoiceButton(value))
	}

	q, err := locator.Option(c.field(locator.KindSingleChoice), value)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := w.click(ctx, step, q); err != nil {
		return err
	}
	return w.finish(ctx, c)
}

// FillMultipleOptions toggles one checkbox per value, in order, and then
// advances at most once.
func (w *Walker) FillMultipleOptions(ctx context.Context, label string, values []string, opts ...StepOption) error {
	const step = "fill_multiple_options"
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, locator.Label(label)); err != nil {
		return err
	}
	f := c.field(locator.KindMultiChoice)
	for _, v := range values {
		q, err := locator.Option(f, v)
		if err != nil {
			return fmt.Errorf("%s: %w", step, err)
		}
		if err := w.click(ctx, step, q); err != nil {
			return err
		}
	}
	return w.finish(ctx, c)
}

// FillDropdown opens the dropdown labeled label and picks the entry
// containing value.
func (w *Walker) FillDropdown(ctx context.Context, label, value string, opts ...StepOption) error {
	const step = "fill_dropdown"
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, locator.Label(label)); err != nil {
		return err
	}
	toggle, err := locator.DropdownToggle(c.field(locator.KindDropdown))
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := w.click(ctx, step, toggle); err != nil {
		return err
	}
	if err := w.click(ctx, step, locator.DropdownOption(value)); err != nil {
		return err
	}
	return w.finish(ctx, c)
}

// FillCard picks the card titled value in the card field labeled label.
func (w *Walker) FillCard(ctx context.Context, label, value string, opts ...StepOption) error {
	const step = "fill_card"
	c := newStepConfig(opts)
	if _, err := w.require(ctx, step, locator.Label(label)); err != nil {
		return err
	}
	q, err := locator.Option(c.field(locator.KindCard), value)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	if err := w.click(ctx, step, q); err != nil {
		return err
	}
	return w.finish(ctx, c)
}

// Describe renders a step option set for logs, e.g. "index=1 advance=false".
func Describe(opts ...StepOption) string {
	c := newStepConfig(opts)
	parts := []string{"advance=" + strconv.FormatBool(c.advance)}
	if c.placeholder != nil {
		parts = append(parts, fmt.Sprintf("placeholder=%q", *c.placeholder))
	}
	if c.inputKind != "" {
		parts = append(parts, "input_kind="+c.inputKind)
	}
	if c.index != 0 {
		parts = append(parts, "index="+strconv.Itoa(c.index))
	}
	if c.confirmButton != DefaultConfirmButton {
		parts = append(parts, fmt.Sprintf("confirm_button=%q", c.confirmButton))
	}
	return strings.Join(parts, " ")
}
