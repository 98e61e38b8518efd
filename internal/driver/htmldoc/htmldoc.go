// internal/driver/htmldoc/htmldoc.go

// Package htmldoc implements driver.Driver over static HTML documents. A
// flow is an ordered list of documents; clicking an advancing control moves
// the session to the next one. It backs offline dry runs against saved
// pages and is the fixture engine of the walker tests.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/formwalk/internal/driver"
)

// Page is one state of a flow.
type Page struct {
	Name string
	HTML string
}

// Loader returns the flow served for a URL.
type Loader func(url string) ([]Page, error)

// Static serves the same flow for every URL.
func Static(pages ...Page) Loader {
	return func(string) ([]Page, error) { return pages, nil }
}

// advancingClasses mark controls that move the flow to its next document.
var advancingClasses = []string{"next-button", "multiple-choice-button"}

// Event records one interaction, in order.
type Event struct {
	Action string // "navigate", "click" or "keys"
	Page   int
	Tag    string
	Class  string
	Text   string
	Value  string
}

// Driver is a session over parsed documents.
type Driver struct {
	id     string
	loader Loader
	logger *zap.Logger

	mu      sync.Mutex
	url     string
	names   []string
	docs    []*html.Node
	current int
	events  []Event
	closed  bool
}

var _ driver.Driver = (*Driver)(nil)

// New creates a session that resolves URLs through loader.
func New(loader Loader, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return &Driver{
		id:     id,
		loader: loader,
		logger: logger.Named("htmldoc").With(zap.String("session_id", id)),
	}
}

// ID returns the session identifier.
func (d *Driver) ID() string { return d.id }

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pages, err := d.loader(url)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("navigation failed: no documents for %s", url)
	}

	docs := make([]*html.Node, 0, len(pages))
	names := make([]string, 0, len(pages))
	for i, p := range pages {
		doc, err := htmlquery.Parse(strings.NewReader(p.HTML))
		if err != nil {
			return fmt.Errorf("could not parse document %d of %s: %w", i, url, err)
		}
		docs = append(docs, doc)
		names = append(names, p.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return driver.ErrClosed
	}
	d.url, d.docs, d.names, d.current = url, docs, names, 0
	d.events = append(d.events, Event{Action: "navigate", Value: url})
	d.logger.Debug("Loaded flow.", zap.String("url", url), zap.Int("documents", len(docs)))
	return nil
}

// document returns the active document. Callers hold d.mu.
func (d *Driver) document() (*html.Node, error) {
	if d.closed {
		return nil, driver.ErrClosed
	}
	if len(d.docs) == 0 {
		return nil, fmt.Errorf("no document loaded")
	}
	return d.docs[d.current], nil
}

func (d *Driver) Title(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.document()
	if err != nil {
		return "", err
	}
	n := htmlquery.FindOne(doc, "//title")
	if n == nil {
		return "", nil
	}
	return normalizeSpace(htmlquery.InnerText(n)), nil
}

func (d *Driver) FindAll(ctx context.Context, xpath string) ([]driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.document()
	if err != nil {
		return nil, err
	}
	nodes, err := htmlquery.QueryAll(doc, xpath)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", xpath, err)
	}
	out := make([]driver.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{d: d, node: n, page: d.current})
	}
	return out, nil
}

func (d *Driver) Ready(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.document()
	return err
}

// Snapshot renders the active document as HTML.
func (d *Driver) Snapshot(ctx context.Context) (driver.Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.document()
	if err != nil {
		return driver.Snapshot{}, err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return driver.Snapshot{}, err
	}
	return driver.Snapshot{Data: buf.Bytes(), Ext: ".html"}, nil
}

func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.logger.Debug("Session closed.")
	}
	return nil
}

// Closed reports whether Close has been called.
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Page returns the index and name of the active document.
func (d *Driver) Page() (int, string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.names) == 0 {
		return 0, ""
	}
	return d.current, d.names[d.current]
}

// Events returns a copy of the interaction log.
func (d *Driver) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Clicks counts click events on elements carrying the class token.
func (d *Driver) Clicks(class string) int {
	n := 0
	for _, ev := range d.Events() {
		if ev.Action == "click" && hasClassToken(ev.Class, class) {
			n++
		}
	}
	return n
}

// Value returns what has been typed into the first element matching xpath
// in the active document.
func (d *Driver) Value(xpath string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, err := d.document()
	if err != nil {
		return "", err
	}
	n, err := htmlquery.Query(doc, xpath)
	if err != nil {
		return "", err
	}
	if n == nil {
		return "", fmt.Errorf("no element matches %s", xpath)
	}
	return htmlquery.SelectAttr(n, "value"), nil
}
