// internal/driver/driver.go

// Package driver abstracts the browser-automation backend the walker runs on.
// Implementations live in the cdp, webdriver and htmldoc subpackages.
package driver

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a session that has been closed.
var ErrClosed = errors.New("browser session closed")

// Element is a handle to one node of the current document.
type Element interface {
	Click(ctx context.Context) error
	// SendKeys types keys into the element. For file inputs the keys are the
	// path of the file to attach.
	SendKeys(ctx context.Context, keys string) error
	// Text returns the rendered text of the element and its descendants.
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether it is set.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// Displayed and Enabled report false, not an error, for a handle the
	// backend knows to be stale, so polling callers look it up again.
	Displayed(ctx context.Context) (bool, error)
	Enabled(ctx context.Context) (bool, error)
}

// Snapshot is a diagnostic capture of the current view.
type Snapshot struct {
	Data []byte
	// Ext is the file extension matching Data, including the dot.
	Ext string
}

// Driver is one live browser session. A Driver is owned by a single
// scenario at a time and is not safe for concurrent steps.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	// FindAll evaluates an XPath expression against the current document and
	// returns immediately; an empty result is not an error.
	FindAll(ctx context.Context, xpath string) ([]Element, error)
	// Ready blocks until the document has finished loading.
	Ready(ctx context.Context) error
	Snapshot(ctx context.Context) (Snapshot, error)
	// Close releases the session. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Factory opens new sessions.
type Factory interface {
	Open(ctx context.Context) (Driver, error)
	// Name identifies the backend in logs and reports.
	Name() string
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Driver, error)

func (f FactoryFunc) Open(ctx context.Context) (Driver, error) { return f(ctx) }

func (f FactoryFunc) Name() string { return "custom" }

// Clickable reports whether el is displayed and enabled.
func Clickable(ctx context.Context, el Element) (bool, error) {
	shown, err := el.Displayed(ctx)
	if err != nil || !shown {
		return false, err
	}
	return el.Enabled(ctx)
}
