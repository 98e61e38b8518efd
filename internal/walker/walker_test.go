// internal/walker/walker_test.go
package walker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/driver/htmldoc"
)

// -- Fixtures --

const nextButton = `<button class="btn next-button">Next</button>`

func page(title, body string) htmldoc.Page {
	return htmldoc.Page{
		Name: title,
		HTML: fmt.Sprintf(`<html><head><title>%s</title></head><body>%s</body></html>`, title, body),
	}
}

func label(text string) string {
	return fmt.Sprintf(`<div class="label">%s</div>`, text)
}

// session loads pages into a fresh htmldoc session and wraps it in a walker
// with a short budget.
func session(t *testing.T, pages ...htmldoc.Page) (*Walker, *htmldoc.Driver) {
	t.Helper()
	d := htmldoc.New(htmldoc.Static(pages...), nil)
	require.NoError(t, d.Navigate(context.Background(), "http://forms.test/flow"))
	w := New(d, zaptest.NewLogger(t), WithTimeout(300*time.Millisecond), WithPollInterval(20*time.Millisecond))
	return w, d
}

func clickOrder(d *htmldoc.Driver) []string {
	var out []string
	for _, ev := range d.Events() {
		if ev.Action == "click" {
			out = append(out, ev.Class)
		}
	}
	return out
}

// -- Advancement --

func TestAdvance_MissingControlFailsWithinBudget(t *testing.T) {
	w, _ := session(t, page("One", `<div class="text">Welcome</div>`))

	start := time.Now()
	err := w.ExpectText(context.Background(), "Welcome")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "advance", se.Step)
	assert.Equal(t, "next button", se.Target)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestAdvance_AllStepsFailWithoutNextButton(t *testing.T) {
	body := label("Field") +
		`<div id="text-input0"><input class="input" placeholder="Your answer here"></div>` +
		`<div id="textarea-input0"><textarea class="input" placeholder="Your answer here"></textarea></div>` +
		`<div id="phone-input0"><input class="input" placeholder="(000)000-0000"></div>` +
		`<div id="date-input0"><input class="input" type="date"></div>` +
		`<div id="file-input0"><input class="input" type="file"></div>` +
		`<div id="multiple-choice-input0"><div class="radiobox">A</div><div class="checkbox">B</div></div>` +
		`<div id="dropdown-input0"><div class="v-select">open</div></div><ul><li class="vs__dropdown-option">C</li></ul>` +
		`<div id="cards-input0"><h3 class="card-title">D</h3></div>` +
		`<div class="text">Hello</div><a href="/x">Link</a><table><thead><tr><th>#</th><th>A</th></tr></thead></table>`

	steps := map[string]func(context.Context, *Walker) error{
		"expect_text":  func(ctx context.Context, w *Walker) error { return w.ExpectText(ctx, "Hello") },
		"expect_link":  func(ctx context.Context, w *Walker) error { return w.ExpectLink(ctx, "Link", "/x") },
		"expect_file":  func(ctx context.Context, w *Walker) error { return w.ExpectFile(ctx, "Link", "/x") },
		"expect_table": func(ctx context.Context, w *Walker) error { return w.ExpectTable(ctx, []string{"A"}) },
		"fill_text":    func(ctx context.Context, w *Walker) error { return w.FillText(ctx, "Field", "v") },
		"fill_textarea": func(ctx context.Context, w *Walker) error {
			return w.FillTextArea(ctx, "Field", "v")
		},
		"fill_phone": func(ctx context.Context, w *Walker) error { return w.FillPhone(ctx, "Field", "1") },
		"fill_date":  func(ctx context.Context, w *Walker) error { return w.FillDate(ctx, "Field", "01012020") },
		"fill_file":  func(ctx context.Context, w *Walker) error { return w.FillFile(ctx, "Field", "/tmp/f") },
		"fill_option": func(ctx context.Context, w *Walker) error {
			return w.FillOption(ctx, "Field", "A")
		},
		"fill_multiple_options": func(ctx context.Context, w *Walker) error {
			return w.FillMultipleOptions(ctx, "Field", []string{"B"})
		},
		"fill_dropdown": func(ctx context.Context, w *Walker) error { return w.FillDropdown(ctx, "Field", "C") },
		"fill_card":     func(ctx context.Context, w *Walker) error { return w.FillCard(ctx, "Field", "D") },
	}

	for name, run := range steps {
		t.Run(name, func(t *testing.T) {
			w, _ := session(t, page("Form", body))
			err := run(context.Background(), w)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrElementNotFound)
			var se *StepError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, "advance", se.Step)
		})
	}
}

func TestAdvance_MovesToNextPage(t *testing.T) {
	w, d := session(t, page("One", nextButton), page("Two", ""))
	require.NoError(t, w.Advance(context.Background()))
	idx, name := d.Page()
	assert.Equal(t, 1, idx)
	assert.Equal(t, "Two", name)
}

func TestAdvance_IgnoresDisabledControl(t *testing.T) {
	w, d := session(t, page("One", `<button class="next-button" disabled>Next</button>`))
	err := w.Advance(context.Background())
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Zero(t, d.Clicks("next-button"))
}

// -- Choice fields --

func optionPage() htmldoc.Page {
	return page("Choice", label("Plan")+
		`<div id="multiple-choice-input0">`+
		`<div class="radiobox">Free</div><div class="radiobox">Pro</div>`+
		`<div class="checkbox">Email</div><div class="checkbox">Phone</div><div class="checkbox">Mail</div>`+
		`</div>`+
		`<div class="multiple-choice-button">Yes</div><div class="multiple-choice-button">No</div>`+
		nextButton)
}

func TestFillOption_DefaultConfirmAdvancesOnce(t *testing.T) {
	w, d := session(t, optionPage(), page("Done", ""))
	require.NoError(t, w.FillOption(context.Background(), "Plan", "Pro"))

	assert.Equal(t, 1, d.Clicks("next-button"))
	assert.Equal(t, 1, d.Clicks("radiobox"))
	assert.Equal(t, []string{"radiobox", "btn next-button"}, clickOrder(d))
}

func TestFillOption_WithoutConfirmButtonOptionIsSoleTrigger(t *testing.T) {
	w, d := session(t, optionPage(), page("Done", ""))
	require.NoError(t, w.FillOption(context.Background(), "Plan", "No", ConfirmButton("")))

	assert.Equal(t, []string{"multiple-choice-button"}, clickOrder(d))
	assert.Zero(t, d.Clicks("next-button"))
	idx, _ := d.Page()
	assert.Equal(t, 1, idx)
}

func TestFillOption_NoAdvance(t *testing.T) {
	w, d := session(t, optionPage())
	require.NoError(t, w.FillOption(context.Background(), "Plan", "Free", NoAdvance()))
	assert.Zero(t, d.Clicks("next-button"))
}

func TestFillMultipleOptions_TogglesEachValueBeforeAdvance(t *testing.T) {
	w, d := session(t, optionPage(), page("Done", ""))
	values := []string{"Mail", "Email", "Phone"}
	require.NoError(t, w.FillMultipleOptions(context.Background(), "Plan", values))

	assert.Equal(t, []string{"checkbox", "checkbox", "checkbox", "btn next-button"}, clickOrder(d))

	var toggled []string
	for _, ev := range d.Events() {
		if ev.Action == "click" && ev.Class == "checkbox" {
			toggled = append(toggled, ev.Text)
		}
	}
	assert.Equal(t, values, toggled)
}

func TestFillMultipleOptions_MissingValue(t *testing.T) {
	w, d := session(t, optionPage())
	err := w.FillMultipleOptions(context.Background(), "Plan", []string{"Email", "Fax"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), `option "Fax" not found`)
	assert.Zero(t, d.Clicks("next-button"))
}

func TestFillDropdown(t *testing.T) {
	w, d := session(t, page("Dropdown", label("Country")+
		`<div id="dropdown-input0"><div class="v-select">Choose</div></div>`+
		`<ul><li class="vs__dropdown-option">Brazil</li><li class="vs__dropdown-option">Chile</li></ul>`+
		nextButton))
	require.NoError(t, w.FillDropdown(context.Background(), "Country", "Chile", NoAdvance()))

	var texts []string
	for _, ev := range d.Events() {
		if ev.Action == "click" {
			texts = append(texts, ev.Text)
		}
	}
	assert.Equal(t, []string{"Choose", "Chile"}, texts)
}

func TestFillCard(t *testing.T) {
	w, d := session(t, page("Cards", label("Size")+
		`<div id="cards-input1"><h3 class="card-title">Small</h3><h3 class="card-title">Large</h3></div>`+
		nextButton), page("Done", ""))
	require.NoError(t, w.FillCard(context.Background(), "Size", "Large", Index(1)))
	assert.Equal(t, 1, d.Clicks("card-title"))
	assert.Equal(t, 1, d.Clicks("next-button"))
}

// -- Text-like fields --

func TestFillInputs(t *testing.T) {
	body := label("Name") + label("Bio") + label("Phone") + label("Birth") + label("CV") +
		`<div id="text-input0"><input class="input" placeholder="Your answer here"></div>` +
		`<div id="textarea-input0"><textarea class="input" placeholder="Your answer here"></textarea></div>` +
		`<div id="phone-input0"><input class="input" placeholder="(000)000-0000"></div>` +
		`<div id="date-input0"><input class="input" type="date"></div>` +
		`<div id="file-input0"><input class="input" type="file"></div>` +
		`<div id="number-input2"><input class="input" placeholder="0"></div>`

	w, d := session(t, page("Inputs", body))
	ctx := context.Background()

	require.NoError(t, w.FillText(ctx, "Name", "Abstra", NoAdvance()))
	require.NoError(t, w.FillTextArea(ctx, "Bio", "Long text", NoAdvance()))
	require.NoError(t, w.FillPhone(ctx, "Phone", "2125551234", NoAdvance()))
	require.NoError(t, w.FillDate(ctx, "Birth", "01012000", NoAdvance()))
	require.NoError(t, w.FillFile(ctx, "CV", "/tmp/cv.pdf", NoAdvance()))
	require.NoError(t, w.FillText(ctx, "Name", "42", NoAdvance(), InputKind("number-input"), Index(2), Placeholder("0")))

	checks := map[string]string{
		`//div[@id="text-input0"]/input`:     "Abstra",
		`//div[@id="textarea-input0"]/textarea`: "Long text",
		`//div[@id="phone-input0"]/input`:    "2125551234",
		`//div[@id="date-input0"]/input`:     "01012000",
		`//div[@id="file-input0"]/input`:     "/tmp/cv.pdf",
		`//div[@id="number-input2"]/input`:   "42",
	}
	for xp, want := range checks {
		got, err := d.Value(xp)
		require.NoError(t, err)
		assert.Equal(t, want, got, xp)
	}
}

func TestFillText_WrongPlaceholder(t *testing.T) {
	w, _ := session(t, page("Inputs", label("Name")+
		`<div id="text-input0"><input class="input" placeholder="Type here"></div>`))

	err := w.FillText(context.Background(), "Name", "x", NoAdvance())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)

	require.NoError(t, w.FillText(context.Background(), "Name", "x", NoAdvance(), Placeholder("")))
}

func TestFillText_NegativeIndexIsRejected(t *testing.T) {
	w, _ := session(t, page("Inputs", label("Name")))
	err := w.FillText(context.Background(), "Name", "x", Index(-1))
	require.Error(t, err)
	assert.Empty(t, Classify(err))
}

// -- Tables --

func tablePage(headers ...string) htmldoc.Page {
	row := ""
	for _, h := range headers {
		row += "<th>" + h + "</th>"
	}
	return page("Table", `<table><thead><tr>`+row+`</tr></thead><tbody></tbody></table>`)
}

func TestExpectTable(t *testing.T) {
	t.Run("headers at offset two", func(t *testing.T) {
		w, _ := session(t, tablePage("#", "A", "B"))
		require.NoError(t, w.ExpectTable(context.Background(), []string{"A", "B"}, NoAdvance()))
	})

	t.Run("fails on first expected column", func(t *testing.T) {
		w, _ := session(t, tablePage("#", "B", "A"))
		err := w.ExpectTable(context.Background(), []string{"A", "B"}, NoAdvance())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrContentMismatch)

		var se *StepError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "table column 1", se.Target)
		assert.Equal(t, "A", se.Expected)
		assert.Equal(t, "B", se.Actual)
	})

	t.Run("missing column", func(t *testing.T) {
		w, _ := session(t, tablePage("#", "A"))
		err := w.ExpectTable(context.Background(), []string{"A", "B"}, NoAdvance())
		assert.ErrorIs(t, err, ErrElementNotFound)
	})
}

// -- Round trip and timeouts --

func TestRoundTrip_ReachesTerminalState(t *testing.T) {
	w, d := session(t,
		page("Welcome", `<div class="text">Thank you for showing interest</div>`+nextButton),
		page("Name", label("Name")+`<div id="text-input0"><input class="input" placeholder="Your answer here"></div>`+nextButton),
		page("Done", `<div class="text">We've got your information</div>`+nextButton),
	)
	ctx := context.Background()

	require.NoError(t, w.ExpectText(ctx, "Thank you for showing interest"))
	require.NoError(t, w.FillText(ctx, "Name", "Abstra"))
	require.NoError(t, w.ExpectText(ctx, "We've got your information", NoAdvance()))

	idx, name := d.Page()
	assert.Equal(t, 2, idx)
	assert.Equal(t, "Done", name)
	assert.Equal(t, 2, d.Clicks("next-button"))

	var typed []string
	for _, ev := range d.Events() {
		if ev.Action == "keys" {
			typed = append(typed, ev.Value)
		}
	}
	assert.Equal(t, []string{"Abstra"}, typed)
}

func TestTimeout_MissingLabel(t *testing.T) {
	d := htmldoc.New(htmldoc.Static(page("Empty", "")), nil)
	require.NoError(t, d.Navigate(context.Background(), "http://forms.test/"))
	w := New(d, zaptest.NewLogger(t), WithTimeout(time.Millisecond), WithPollInterval(time.Millisecond))

	start := time.Now()
	err := w.FillText(context.Background(), "Name", "Abstra")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Equal(t, `fill_text: label "Name" not found`, err.Error())
	assert.Less(t, elapsed, 500*time.Millisecond)
}

// delayed hides every match for the first n FindAll calls.
type delayed struct {
	driver.Driver
	mu    sync.Mutex
	n     int
	calls int
}

func (d *delayed) FindAll(ctx context.Context, xpath string) ([]driver.Element, error) {
	d.mu.Lock()
	d.calls++
	hide := d.calls <= d.n
	d.mu.Unlock()
	if hide {
		return nil, nil
	}
	return d.Driver.FindAll(ctx, xpath)
}

func TestLookup_PollsUntilElementAppears(t *testing.T) {
	inner := htmldoc.New(htmldoc.Static(page("Late", `<div class="text">Loaded</div>`)), nil)
	require.NoError(t, inner.Navigate(context.Background(), "http://forms.test/"))
	d := &delayed{Driver: inner, n: 3}

	var attempts []Attempt
	hook := func(_ context.Context, _ driver.Driver, a Attempt) error {
		attempts = append(attempts, a)
		return nil
	}
	w := New(d, zaptest.NewLogger(t), WithTimeout(time.Second), WithPollInterval(5*time.Millisecond), WithDiagnostics(hook))

	require.NoError(t, w.ExpectText(context.Background(), "Loaded", NoAdvance()))
	require.Len(t, attempts, 4)
	for i, a := range attempts[:3] {
		assert.False(t, a.Found)
		assert.Equal(t, i+1, a.Number)
	}
	assert.True(t, attempts[3].Found)
}

// hanging blocks every FindAll until its context ends and then reports a
// plain cancellation, the way a CDP call interrupted by the budget does.
type hanging struct {
	driver.Driver
}

func (hanging) FindAll(ctx context.Context, _ string) ([]driver.Element, error) {
	<-ctx.Done()
	return nil, context.Canceled
}

func TestLookup_FindOutlivingBudgetIsAbsence(t *testing.T) {
	inner := htmldoc.New(htmldoc.Static(page("Slow", "")), nil)
	require.NoError(t, inner.Navigate(context.Background(), "http://forms.test/"))
	w := New(hanging{Driver: inner}, zaptest.NewLogger(t), WithTimeout(50*time.Millisecond), WithPollInterval(10*time.Millisecond))

	start := time.Now()
	err := w.ExpectText(context.Background(), "Welcome")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.NotErrorIs(t, err, ErrSession)
	assert.Equal(t, ClassElementNotFound, Classify(err))
	assert.Equal(t, `expect_text: text "Welcome" not found`, err.Error())
	assert.Less(t, time.Since(start), time.Second)
}

func TestLookup_ParentCancelDuringFindIsSessionError(t *testing.T) {
	inner := htmldoc.New(htmldoc.Static(page("Slow", "")), nil)
	require.NoError(t, inner.Navigate(context.Background(), "http://forms.test/"))
	w := New(hanging{Driver: inner}, zaptest.NewLogger(t), WithTimeout(time.Second), WithPollInterval(10*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := w.ExpectText(ctx, "Welcome")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSession)
}

// -- Diagnostics and session failures --

func TestDiagnostics_HookErrorsDoNotChangeOutcome(t *testing.T) {
	d := htmldoc.New(htmldoc.Static(page("One", `<div class="text">Hi</div>`)), nil)
	require.NoError(t, d.Navigate(context.Background(), "http://forms.test/"))

	calls := 0
	failing := func(context.Context, driver.Driver, Attempt) error {
		calls++
		return errors.New("disk full")
	}
	w := New(d, zaptest.NewLogger(t), WithTimeout(50*time.Millisecond), WithPollInterval(10*time.Millisecond), WithDiagnostics(failing))

	require.NoError(t, w.ExpectText(context.Background(), "Hi", NoAdvance()))
	assert.Equal(t, 1, calls)

	err := w.ExpectText(context.Background(), "Bye", NoAdvance())
	assert.ErrorIs(t, err, ErrElementNotFound)
	assert.Greater(t, calls, 1)
}

func TestScreenshotHook(t *testing.T) {
	dir := t.TempDir()
	d := htmldoc.New(htmldoc.Static(page("Shot", `<div class="text">Hi</div>`)), nil)
	require.NoError(t, d.Navigate(context.Background(), "http://forms.test/"))
	w := New(d, zaptest.NewLogger(t), WithDiagnostics(ScreenshotHook(dir)))

	require.NoError(t, w.ExpectText(context.Background(), "Hi", NoAdvance()))
	data, err := os.ReadFile(filepath.Join(dir, "screen.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Shot</title>")
}

func TestSessionError(t *testing.T) {
	w, d := session(t, page("One", `<div class="text">Hi</div>`))
	require.NoError(t, d.Close(context.Background()))

	err := w.ExpectText(context.Background(), "Hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSession)
	assert.ErrorIs(t, err, driver.ErrClosed)
	assert.Equal(t, ClassSession, Classify(err))
}

func TestCanceledContextIsSessionError(t *testing.T) {
	w, _ := session(t, page("One", ""))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.ExpectText(ctx, "Hi")
	assert.ErrorIs(t, err, ErrSession)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpectTitle(t *testing.T) {
	w, _ := session(t, page("Upgrade Abstra Cloud", ""))
	require.NoError(t, w.ExpectTitle(context.Background(), "Upgrade Abstra Cloud"))

	err := w.ExpectTitle(context.Background(), "Other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContentMismatch)
	assert.Equal(t, `expect_title: title: expected "Other", got "Upgrade Abstra Cloud"`, err.Error())
}

func TestExpectLinkAndFile(t *testing.T) {
	w, _ := session(t, page("Links",
		`<a href="https://abstra.io/docs">Read the docs</a>`+
			`<a href="/_files/report.pdf">report.pdf</a>`))
	ctx := context.Background()

	require.NoError(t, w.ExpectLink(ctx, "docs", "abstra.io", NoAdvance()))
	require.NoError(t, w.ExpectFile(ctx, "report", "/_files/", NoAdvance()))
	assert.ErrorIs(t, w.ExpectLink(ctx, "docs", "example.com", NoAdvance()), ErrElementNotFound)
}
