// internal/driver/htmldoc/element.go
package htmldoc

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/formwalk/internal/driver"
)

type element struct {
	d    *Driver
	node *html.Node
	// page is the document the node belongs to; clicks that advanced the
	// flow leave earlier handles stale.
	page int
}

var _ driver.Element = (*element)(nil)

// live checks the handle against the session. Callers hold e.d.mu.
func (e *element) live() error {
	if e.d.closed {
		return driver.ErrClosed
	}
	if e.stale() {
		return fmt.Errorf("stale element <%s>: document changed", e.node.Data)
	}
	return nil
}

func (e *element) stale() bool { return e.page != e.d.current }

// ready is the Displayed/Enabled form of live: a stale handle is reported as
// not ready rather than failing, matching what browsers do.
func (e *element) ready() (bool, error) {
	if e.d.closed {
		return false, driver.ErrClosed
	}
	return !e.stale(), nil
}

func (e *element) event(action, value string) Event {
	return Event{
		Action: action,
		Page:   e.page,
		Tag:    e.node.Data,
		Class:  htmlquery.SelectAttr(e.node, "class"),
		Text:   normalizeSpace(htmlquery.InnerText(e.node)),
		Value:  value,
	}
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	e.d.events = append(e.d.events, e.event("click", ""))

	if advances(e.node) && e.d.current < len(e.d.docs)-1 {
		e.d.current++
	}
	return nil
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.live(); err != nil {
		return err
	}
	setAttr(e.node, "value", htmlquery.SelectAttr(e.node, "value")+keys)
	e.d.events = append(e.d.events, e.event("keys", keys))
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.live(); err != nil {
		return "", err
	}
	return normalizeSpace(htmlquery.InnerText(e.node)), nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if err := e.live(); err != nil {
		return "", false, err
	}
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val, true, nil
		}
	}
	return "", false, nil
}

// Displayed is false when the node or an ancestor is hidden through the
// hidden attribute or an inline display:none, and for a stale handle.
func (e *element) Displayed(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if ok, err := e.ready(); !ok {
		return false, err
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		for _, a := range n.Attr {
			if a.Key == "hidden" {
				return false, nil
			}
			if a.Key == "style" && strings.Contains(strings.ReplaceAll(a.Val, " ", ""), "display:none") {
				return false, nil
			}
		}
	}
	return true, nil
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	e.d.mu.Lock()
	defer e.d.mu.Unlock()
	if ok, err := e.ready(); !ok {
		return false, err
	}
	for _, a := range e.node.Attr {
		if a.Key == "disabled" {
			return false, nil
		}
	}
	return true, nil
}

func advances(n *html.Node) bool {
	class := htmlquery.SelectAttr(n, "class")
	for _, c := range advancingClasses {
		if hasClassToken(class, c) {
			return true
		}
	}
	return false
}

func hasClassToken(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
