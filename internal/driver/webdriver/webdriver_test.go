// internal/driver/webdriver/webdriver_test.go
package webdriver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/driver"
	"github.com/xkilldash9x/formwalk/internal/walker"
)

// fakeWebDriver implements the parts of selenium.WebDriver the driver uses.
// Anything else panics through the nil embedded interface.
type fakeWebDriver struct {
	selenium.WebDriver

	url        string
	elements   []selenium.WebElement
	batches    [][]selenium.WebElement
	finds      int
	findErr    error
	readyAfter int
	readyCalls int
	quits      int
	implicit   time.Duration
}

func (f *fakeWebDriver) Get(url string) error                       { f.url = url; return nil }
func (f *fakeWebDriver) Title() (string, error)                     { return "Form", nil }
func (f *fakeWebDriver) Quit() error                                { f.quits++; return nil }
func (f *fakeWebDriver) Screenshot() ([]byte, error)                { return []byte("png"), nil }
func (f *fakeWebDriver) SetImplicitWaitTimeout(d time.Duration) error { f.implicit = d; return nil }
func (f *fakeWebDriver) SetPageLoadTimeout(time.Duration) error     { return nil }

func (f *fakeWebDriver) FindElements(by, value string) ([]selenium.WebElement, error) {
	if by != selenium.ByXPATH {
		return nil, errors.New("unexpected strategy " + by)
	}
	f.finds++
	if len(f.batches) > 0 {
		batch := f.batches[0]
		if len(f.batches) > 1 {
			f.batches = f.batches[1:]
		}
		return batch, nil
	}
	return f.elements, f.findErr
}

func (f *fakeWebDriver) ExecuteScript(script string, args []interface{}) (interface{}, error) {
	f.readyCalls++
	if f.readyCalls > f.readyAfter {
		return "complete", nil
	}
	return "loading", nil
}

type fakeElement struct {
	selenium.WebElement
	attrs  map[string]string
	typed  string
	clicks int
}

func (e *fakeElement) Click() error                  { e.clicks++; return nil }
func (e *fakeElement) SendKeys(keys string) error     { e.typed += keys; return nil }
func (e *fakeElement) Text() (string, error)          { return "Next", nil }
func (e *fakeElement) IsDisplayed() (bool, error)     { return true, nil }
func (e *fakeElement) IsEnabled() (bool, error)       { return true, nil }
func (e *fakeElement) GetAttribute(name string) (string, error) {
	if v, ok := e.attrs[name]; ok {
		return v, nil
	}
	return "", errors.New("nil return value")
}

// staleElement belongs to a page that has since been replaced.
type staleElement struct {
	fakeElement
}

func staleErr() error {
	return &selenium.Error{Err: "stale element reference", Message: "element is not attached to the page document"}
}

func (e *staleElement) IsDisplayed() (bool, error) { return false, staleErr() }
func (e *staleElement) IsEnabled() (bool, error)   { return false, staleErr() }

func newFactory(wd *fakeWebDriver) *Factory {
	f := NewFactory(config.BrowserConfig{RemoteURL: "http://hub:4444/wd/hub", Headless: true}, zap.NewNop())
	f.remote = func(caps selenium.Capabilities, url string) (selenium.WebDriver, error) {
		return wd, nil
	}
	return f
}

func TestOpenRequiresRemoteURL(t *testing.T) {
	f := NewFactory(config.BrowserConfig{}, zap.NewNop())
	_, err := f.Open(context.Background())
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	f := NewFactory(config.BrowserConfig{
		Headless: true,
		Args:     []string{"--no-sandbox"},
		Viewport: map[string]int{"width": 800, "height": 600},
	}, zap.NewNop())
	caps := f.capabilities()
	assert.Equal(t, "chrome", caps["browserName"])
	assert.NotNil(t, caps["goog:chromeOptions"])
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	wd := &fakeWebDriver{readyAfter: 2}
	d, err := newFactory(wd).Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), wd.implicit)

	require.NoError(t, d.Navigate(ctx, "http://app/form"))
	assert.Equal(t, "http://app/form", wd.url)

	require.NoError(t, d.Ready(ctx))
	assert.Equal(t, 3, wd.readyCalls)

	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, ".png", snap.Ext)

	require.NoError(t, d.Close(ctx))
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 1, wd.quits)

	_, err = d.Title(ctx)
	assert.ErrorIs(t, err, driver.ErrClosed)
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()
	el := &fakeElement{attrs: map[string]string{"class": "next-button"}}
	wd := &fakeWebDriver{elements: []selenium.WebElement{el}}
	d, err := newFactory(wd).Open(ctx)
	require.NoError(t, err)

	found, err := d.FindAll(ctx, "//button")
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, found[0].Click(ctx))
	require.NoError(t, found[0].SendKeys(ctx, "42"))
	assert.Equal(t, 1, el.clicks)
	assert.Equal(t, "42", el.typed)

	v, ok, err := found[0].Attribute(ctx, "class")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "next-button", v)

	_, ok, err = found[0].Attribute(ctx, "href")
	require.NoError(t, err)
	assert.False(t, ok)

	clickable, err := driver.Clickable(ctx, found[0])
	require.NoError(t, err)
	assert.True(t, clickable)

	wd.findErr = &selenium.Error{Err: "no such element"}
	wd.elements = nil
	found, err = d.FindAll(ctx, "//table")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReadyHonoursContext(t *testing.T) {
	wd := &fakeWebDriver{readyAfter: 1 << 30}
	d, err := newFactory(wd).Open(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Ready(ctx), context.DeadlineExceeded)
}

func TestStaleElementIsNotClickable(t *testing.T) {
	ctx := context.Background()
	wd := &fakeWebDriver{}
	d, err := newFactory(wd).Open(ctx)
	require.NoError(t, err)

	wd.elements = []selenium.WebElement{&staleElement{}}
	found, err := d.FindAll(ctx, "//button")
	require.NoError(t, err)
	require.Len(t, found, 1)

	shown, err := found[0].Displayed(ctx)
	require.NoError(t, err)
	assert.False(t, shown)
	enabled, err := found[0].Enabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	clickable, err := driver.Clickable(ctx, found[0])
	require.NoError(t, err)
	assert.False(t, clickable)
}

func TestAdvance_RetriesPastStaleElement(t *testing.T) {
	ctx := context.Background()
	fresh := &fakeElement{attrs: map[string]string{"class": "next-button"}}
	wd := &fakeWebDriver{batches: [][]selenium.WebElement{
		{&staleElement{}},
		{fresh},
	}}
	d, err := newFactory(wd).Open(ctx)
	require.NoError(t, err)

	w := walker.New(d, zap.NewNop(), walker.WithTimeout(time.Second), walker.WithPollInterval(10*time.Millisecond))
	require.NoError(t, w.Advance(ctx))
	assert.Equal(t, 2, wd.finds)
	assert.Equal(t, 1, fresh.clicks)
}

func TestOtherElementErrorsStillFail(t *testing.T) {
	ctx := context.Background()
	wd := &fakeWebDriver{elements: []selenium.WebElement{&brokenElement{}}}
	d, err := newFactory(wd).Open(ctx)
	require.NoError(t, err)

	found, err := d.FindAll(ctx, "//button")
	require.NoError(t, err)
	_, err = found[0].Displayed(ctx)
	assert.Error(t, err)
}

type brokenElement struct {
	fakeElement
}

func (e *brokenElement) IsDisplayed() (bool, error) {
	return false, &selenium.Error{Err: "unknown error", Message: "session deleted"}
}
