// internal/driver/cdp/element.go
package cdp

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/formwalk/internal/driver"
)

const (
	jsText      = `function() { return (this.innerText || this.textContent || "").trim(); }`
	jsAttribute = `function(name) { return this.hasAttribute(name) ? [true, this.getAttribute(name)] : [false, ""]; }`
	jsDisplayed = `function() {
		if (!this.isConnected) return false;
		const style = window.getComputedStyle(this);
		if (style.display === "none" || style.visibility === "hidden") return false;
		const rect = this.getBoundingClientRect();
		return rect.width > 0 || rect.height > 0;
	}`
	jsEnabled = `function() { return !this.disabled && !this.closest("fieldset[disabled]"); }`
)

type element struct {
	d    *Driver
	node *cdp.Node
}

var _ driver.Element = (*element)(nil)

// call evaluates fn with this bound to the node and decodes the result.
func (e *element) call(ctx context.Context, fn string, res interface{}, args ...interface{}) error {
	return e.d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return err
		}
		// Release fails once the page has navigated away; nothing to do then.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
}

func (e *element) Click(ctx context.Context) error {
	if err := e.d.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return fmt.Errorf("click on <%s> failed: %w", e.node.LocalName, err)
	}
	return nil
}

// SendKeys types into the node. chromedp routes file inputs through
// DOM.setFileInputFiles, so keys is then the path to attach.
func (e *element) SendKeys(ctx context.Context, keys string) error {
	err := e.d.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, keys, chromedp.ByNodeID))
	if err != nil {
		return fmt.Errorf("typing into <%s> failed: %w", e.node.LocalName, err)
	}
	return nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, jsText, &text)
	return text, err
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	var res [2]interface{}
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false, err
	}
	ok, _ := res[0].(bool)
	val, _ := res[1].(string)
	return val, ok, nil
}

func (e *element) Displayed(ctx context.Context) (bool, error) {
	var shown bool
	err := e.call(ctx, jsDisplayed, &shown)
	return shown, err
}

func (e *element) Enabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.call(ctx, jsEnabled, &enabled)
	return enabled, err
}
