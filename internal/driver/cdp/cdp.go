// internal/driver/cdp/cdp.go

// Package cdp drives Chrome through the DevTools protocol using chromedp.
// A Factory owns one browser process (or remote endpoint) and every Open
// creates a fresh tab in its own browser context.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formwalk/internal/config"
	"github.com/xkilldash9x/formwalk/internal/driver"
)

// -- Factory --

// Factory launches or attaches to Chrome and opens tabs on demand.
type Factory struct {
	cfg    config.BrowserConfig
	logger *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	browser  context.Context
	shutdown context.CancelFunc
}

var _ driver.Factory = (*Factory)(nil)

// NewFactory prepares the allocator. Chrome itself is started lazily by the
// first Open. With a RemoteURL set the factory attaches to that DevTools
// endpoint instead of launching a local process.
func NewFactory(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) *Factory {
	f := &Factory{cfg: cfg, logger: logger.Named("cdp")}

	if cfg.RemoteURL != "" {
		f.allocCtx, f.allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
		return f
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.DisableGPU)
	if !cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if w, h := cfg.Viewport["width"], cfg.Viewport["height"]; w > 0 && h > 0 {
		opts = append(opts, chromedp.WindowSize(w, h))
	}
	for _, arg := range cfg.Args {
		name, val := splitFlag(arg)
		opts = append(opts, chromedp.Flag(name, val))
	}
	f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	return f
}

func (f *Factory) Name() string { return config.DriverCDP }

// Open creates a new tab with an isolated browser context.
func (f *Factory) Open(ctx context.Context) (driver.Driver, error) {
	if err := f.ensureBrowser(ctx); err != nil {
		return nil, err
	}

	tabCtx, tabCancel := chromedp.NewContext(f.browser, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("could not open tab: %w", err)
	}

	id := uuid.New().String()
	return &Driver{
		ctx:        tabCtx,
		cancel:     tabCancel,
		navTimeout: f.cfg.NavigationTimeout,
		logger:     f.logger.With(zap.String("session_id", id)),
	}, nil
}

// ensureBrowser starts the browser on first use.
func (f *Factory) ensureBrowser(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.browser != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	browserCtx, cancel := chromedp.NewContext(f.allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return fmt.Errorf("could not start browser: %w", err)
	}
	f.browser, f.shutdown = browserCtx, cancel
	f.logger.Info("Browser started.", zap.Bool("remote", f.cfg.RemoteURL != ""))
	return nil
}

// Close shuts the browser down. Open sessions are terminated with it.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.shutdown != nil {
		f.shutdown()
		f.shutdown = nil
	}
	f.allocCancel()
}

// -- Driver --

// Driver is one tab.
type Driver struct {
	ctx        context.Context
	cancel     context.CancelFunc
	navTimeout time.Duration
	logger     *zap.Logger

	closeOnce sync.Once
}

var _ driver.Driver = (*Driver)(nil)

// run executes actions against the tab, bounded by the caller's context.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	if d.ctx.Err() != nil {
		return driver.ErrClosed
	}
	runCtx, cancel := combineContext(d.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if d.navTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.navTimeout)
		defer cancel()
	}
	d.logger.Info("Navigating.", zap.String("url", url))
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// FindAll runs a single DOM search. AtLeast(0) keeps chromedp from waiting
// for a match; polling belongs to the walker.
func (d *Driver) FindAll(ctx context.Context, xpath string) ([]driver.Element, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	out := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{d: d, node: n})
	}
	return out, nil
}

func (d *Driver) Ready(ctx context.Context) error {
	return d.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// Snapshot captures a PNG of the viewport.
func (d *Driver) Snapshot(ctx context.Context) (driver.Snapshot, error) {
	var buf []byte
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().WithFormat(page.CaptureScreenshotFormatPng).Do(ctx)
		return err
	}))
	if err != nil {
		return driver.Snapshot{}, err
	}
	return driver.Snapshot{Data: buf, Ext: ".png"}, nil
}

// Close closes the tab. The browser keeps running for other sessions.
func (d *Driver) Close(ctx context.Context) error {
	var err error
	d.closeOnce.Do(func() {
		d.logger.Debug("Closing tab.")
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(d.ctx) }()
		select {
		case err = <-done:
		case <-ctx.Done():
			d.cancel()
			err = ctx.Err()
		}
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	})
	return err
}

// splitFlag turns "--name=value" or "--name" into a chromedp flag.
func splitFlag(arg string) (string, interface{}) {
	name, val, ok := strings.Cut(strings.TrimLeft(arg, "-"), "=")
	if !ok {
		return name, true
	}
	return name, val
}
