// internal/driver/webdriver/webdriver.go

// Package webdriver drives a browser through a W3C WebDriver endpoint such
// as a Selenium hub or a standalone chromedriver.
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/driver"
)

// readyPoll is how often Ready checks document.readyState.
const readyPoll = 100 * time.Millisecond

// remoteFunc matches selenium.NewRemote.
type remoteFunc func(selenium.Capabilities, string) (selenium.WebDriver, error)

// Factory opens one remote session per Open.
type Factory struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
	remote remoteFunc
}

var _ driver.Factory = (*Factory)(nil)

func NewFactory(cfg config.BrowserConfig, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger.Named("webdriver"), remote: selenium.NewRemote}
}

func (f *Factory) Name() string { return config.DriverWebDriver }

// capabilities requests Chrome with the configured arguments.
func (f *Factory) capabilities() selenium.Capabilities {
	args := append([]string(nil), f.cfg.Args...)
	if f.cfg.Headless {
		args = append(args, "--headless=new")
	}
	if w, h := f.cfg.Viewport["width"], f.cfg.Viewport["height"]; w > 0 && h > 0 {
		args = append(args, fmt.Sprintf("--window-size=%d,%d", w, h))
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: args, W3C: true})
	return caps
}

func (f *Factory) Open(ctx context.Context) (driver.Driver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.cfg.RemoteURL == "" {
		return nil, errors.New("webdriver requires browser.remote_url")
	}

	wd, err := f.remote(f.capabilities(), f.cfg.RemoteURL)
	if err != nil {
		return nil, fmt.Errorf("could not open remote session at %s: %w", f.cfg.RemoteURL, err)
	}
	// Waiting is the walker's job; lookups must answer immediately.
	if err := wd.SetImplicitWaitTimeout(0); err != nil {
		_ = wd.Quit()
		return nil, fmt.Errorf("could not disable implicit wait: %w", err)
	}
	if f.cfg.NavigationTimeout > 0 {
		if err := wd.SetPageLoadTimeout(f.cfg.NavigationTimeout); err != nil {
			f.logger.Warn("Could not set page load timeout.", zap.Error(err))
		}
	}

	id := uuid.New().String()
	return &Driver{wd: wd, logger: f.logger.With(zap.String("session_id", id))}, nil
}

// Driver wraps one remote session. Selenium calls are not cancellable, so
// the context is checked before each one.
type Driver struct {
	wd     selenium.WebDriver
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

var _ driver.Driver = (*Driver)(nil)

func (d *Driver) check(ctx context.Context) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return driver.ErrClosed
	}
	return ctx.Err()
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.check(ctx); err != nil {
		return err
	}
	d.logger.Info("Navigating.", zap.String("url", url))
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.wd.Title()
}

func (d *Driver) FindAll(ctx context.Context, xpath string) ([]driver.Element, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	found, err := d.wd.FindElements(selenium.ByXPATH, xpath)
	if err != nil {
		if isNoSuchElement(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]driver.Element, 0, len(found))
	for _, we := range found {
		out = append(out, &element{d: d, we: we})
	}
	return out, nil
}

// Ready polls document.readyState until the page reports complete.
func (d *Driver) Ready(ctx context.Context) error {
	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()
	for {
		if err := d.check(ctx); err != nil {
			return err
		}
		state, err := d.wd.ExecuteScript("return document.readyState", nil)
		if err != nil {
			return err
		}
		if s, _ := state.(string); s == "complete" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Driver) Snapshot(ctx context.Context) (driver.Snapshot, error) {
	if err := d.check(ctx); err != nil {
		return driver.Snapshot{}, err
	}
	buf, err := d.wd.Screenshot()
	if err != nil {
		return driver.Snapshot{}, err
	}
	return driver.Snapshot{Data: buf, Ext: ".png"}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.logger.Debug("Quitting remote session.")
	return d.wd.Quit()
}

func isNoSuchElement(err error) bool {
	return hasErrorCode(err, "no such element")
}

// isStale reports an element that left the DOM, typically because an advance
// replaced the page between FindElements and the next call on it.
func isStale(err error) bool {
	return hasErrorCode(err, "stale element reference")
}

func hasErrorCode(err error, code string) bool {
	var se *selenium.Error
	if errors.As(err, &se) {
		return se.Err == code
	}
	return false
}

type element struct {
	d  *Driver
	we selenium.WebElement
}

var _ driver.Element = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	return e.we.Click()
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := e.d.check(ctx); err != nil {
		return err
	}
	return e.we.SendKeys(keys)
}

func (e *element) Text(ctx context.Context) (string, error) {
	if err := e.d.check(ctx); err != nil {
		return "", err
	}
	return e.we.Text()
}

// Attribute maps selenium's null-value error to an unset attribute.
func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	if err := e.d.check(ctx); err != nil {
		return "", false, err
	}
	val, err := e.we.GetAttribute(name)
	if err != nil {
		if strings.Contains(err.Error(), "nil return value") {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

// Displayed and Enabled report a stale element as not ready, so the walker
// keeps polling and finds the replacement on its next attempt.
func (e *element) Displayed(ctx context.Context) (bool, error) {
	if err := e.d.check(ctx); err != nil {
		return false, err
	}
	shown, err := e.we.IsDisplayed()
	if isStale(err) {
		return false, nil
	}
	return shown, err
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	if err := e.d.check(ctx); err != nil {
		return false, err
	}
	enabled, err := e.we.IsEnabled()
	if isStale(err) {
		return false, nil
	}
	return enabled, err
}
