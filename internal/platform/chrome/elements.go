package chrome

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/mj1618/gridcheck/internal/platform"
)

// findScript evaluates a query and stamps each matched element with a ref.
// The ref prefix is random per document so refs from a previous page load
// can never resolve to a new node.
const findScript = `(function(scopeRef, kind, expr) {
  var attr = %q;
  if (!window.__gridcheckPrefix) {
    window.__gridcheckPrefix = Math.random().toString(36).slice(2, 8);
    window.__gridcheckSeq = 0;
  }
  var root = document;
  if (scopeRef) {
    root = document.querySelector('[' + attr + '="' + scopeRef + '"]');
    if (!root) { return {stale: true, refs: []}; }
  }
  var nodes = [];
  if (kind === 'xpath') {
    var r = document.evaluate(expr, root, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
    for (var i = 0; i < r.snapshotLength; i++) { nodes.push(r.snapshotItem(i)); }
  } else {
    nodes = Array.prototype.slice.call(root.querySelectorAll(expr));
  }
  var refs = [];
  for (var j = 0; j < nodes.length; j++) {
    var n = nodes[j];
    if (n.nodeType !== 1) { continue; }
    if (!n.hasAttribute(attr)) {
      window.__gridcheckSeq++;
      n.setAttribute(attr, window.__gridcheckPrefix + '-' + window.__gridcheckSeq);
    }
    refs.push(n.getAttribute(attr));
  }
  return {stale: false, refs: refs};
})(%s, %s, %s)`

// elementScript runs body with the referenced element bound to el and the
// JSON arguments bound to args.
const elementScript = `(function() {
  var el = document.querySelector(%s);
  if (!el) { return {stale: true, value: 'null'}; }
  var args = %s;
  var v = (function(el, args) { %s })(el, args);
  return {stale: false, value: JSON.stringify(v === undefined ? null : v)};
})()`

type findResult struct {
	Stale bool     `json:"stale"`
	Refs  []string `json:"refs"`
}

type elementResult struct {
	Stale bool   `json:"stale"`
	Value string `json:"value"`
}

func (b *Browser) FindAll(ctx context.Context, scope platform.Element, q platform.Query) ([]platform.Element, error) {
	scopeRef := ""
	if scope != nil {
		r, err := refOf(scope)
		if err != nil {
			return nil, err
		}
		scopeRef = string(r)
	}
	script := fmt.Sprintf(findScript, refAttr, jsArg(scopeRef), jsArg(q.Kind.String()), jsArg(q.Expr))

	var res findResult
	if err := b.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return nil, fmt.Errorf("failed to evaluate %s: %w", q, err)
	}
	if res.Stale {
		return nil, fmt.Errorf("scope %s: %w", scopeRef, platform.ErrStaleElement)
	}
	els := make([]platform.Element, len(res.Refs))
	for i, r := range res.Refs {
		els[i] = ref(r)
	}
	return els, nil
}

// eval runs body against el and decodes its return value into out.
func (b *Browser) eval(ctx context.Context, el platform.Element, body string, out interface{}, args ...interface{}) error {
	r, err := refOf(el)
	if err != nil {
		return err
	}
	if args == nil {
		args = []interface{}{}
	}
	script := fmt.Sprintf(elementScript, jsArg(r.selector()), jsArg(args), body)

	var res elementResult
	if err := b.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return err
	}
	if res.Stale {
		return fmt.Errorf("%s: %w", r, platform.ErrStaleElement)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value), out); err != nil {
		return fmt.Errorf("failed to decode result for %s: %w", r, err)
	}
	return nil
}

const textBody = `return (el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim();`

const displayedBody = `
  var t = el;
  if (el.tagName === 'OPTION' || el.tagName === 'OPTGROUP') { t = el.closest('select') || el; }
  if (!t.isConnected) { return false; }
  for (var p = t; p; p = p.parentElement) {
    var s = window.getComputedStyle(p);
    if (s.display === 'none') { return false; }
  }
  var own = window.getComputedStyle(t);
  if (own.visibility === 'hidden' || own.visibility === 'collapse') { return false; }
  return t.getClientRects().length > 0;`

const valueBody = `
  if (el.tagName === 'SELECT') { var o = el.selectedOptions[0]; return o ? o.value : ''; }
  if (el.value === undefined) { return el.getAttribute('value') || ''; }
  return String(el.value);`

func (b *Browser) TagName(ctx context.Context, el platform.Element) (string, error) {
	var tag string
	err := b.eval(ctx, el, `return el.tagName.toLowerCase();`, &tag)
	return tag, err
}

func (b *Browser) Text(ctx context.Context, el platform.Element) (string, error) {
	var text string
	err := b.eval(ctx, el, textBody, &text)
	return text, err
}

func (b *Browser) Attribute(ctx context.Context, el platform.Element, name string) (string, bool, error) {
	var res struct {
		Present bool   `json:"present"`
		Value   string `json:"value"`
	}
	err := b.eval(ctx, el, `return {present: el.hasAttribute(args[0]), value: el.getAttribute(args[0]) || ''};`, &res, name)
	return res.Value, res.Present, err
}

func (b *Browser) Value(ctx context.Context, el platform.Element) (string, error) {
	var v string
	err := b.eval(ctx, el, valueBody, &v)
	return v, err
}

func (b *Browser) CSSValue(ctx context.Context, el platform.Element, property string) (string, error) {
	var v string
	err := b.eval(ctx, el, `return window.getComputedStyle(el).getPropertyValue(args[0]);`, &v, property)
	return v, err
}

func (b *Browser) OuterHTML(ctx context.Context, el platform.Element) (string, error) {
	var v string
	err := b.eval(ctx, el, `return el.outerHTML;`, &v)
	return v, err
}

func (b *Browser) IsDisplayed(ctx context.Context, el platform.Element) (bool, error) {
	var v bool
	err := b.eval(ctx, el, displayedBody, &v)
	return v, err
}

func (b *Browser) IsEnabled(ctx context.Context, el platform.Element) (bool, error) {
	var v bool
	err := b.eval(ctx, el, `return !el.disabled;`, &v)
	return v, err
}

func (b *Browser) IsSelected(ctx context.Context, el platform.Element) (bool, error) {
	var v bool
	err := b.eval(ctx, el, `return el.tagName === 'OPTION' ? el.selected : !!el.checked;`, &v)
	return v, err
}
