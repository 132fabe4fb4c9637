package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/mj1618/gridcheck/internal/platform"
	"golang.org/x/net/html"
)

func (d *Document) FindAll(ctx context.Context, scope platform.Element, q platform.Query) ([]platform.Element, error) {
	top := d.root
	if scope != nil {
		n, err := d.resolve(scope)
		if err != nil {
			return nil, err
		}
		top = n
	}

	var found []*html.Node
	switch q.Kind {
	case platform.ByXPath:
		nodes, err := htmlquery.QueryAll(top, q.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", q.Expr, err)
		}
		found = elementsOnly(nodes)
	case platform.ByCSS:
		sel, err := cascadia.Compile(q.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid css selector %q: %w", q.Expr, err)
		}
		for _, n := range sel.MatchAll(top) {
			if n != top {
				found = append(found, n)
			}
		}
	default:
		return nil, fmt.Errorf("unsupported query kind %s", q.Kind)
	}

	els := make([]platform.Element, len(found))
	for i, n := range found {
		els[i] = node{n}
	}
	return els, nil
}

func (d *Document) TagName(ctx context.Context, el platform.Element) (string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", err
	}
	return strings.ToLower(n.Data), nil
}

func (d *Document) Text(ctx context.Context, el platform.Element) (string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", err
	}
	if !displayed(n) {
		return "", nil
	}
	var b strings.Builder
	visibleText(n, &b)
	return strings.Join(strings.Fields(b.String()), " "), nil
}

func visibleText(n *html.Node, b *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if hiddenSelf(c) {
				continue
			}
			visibleText(c, b)
			if blockLevel[c.Data] {
				b.WriteString(" ")
			}
		}
	}
}

var blockLevel = map[string]bool{
	"div": true, "p": true, "li": true, "tr": true, "td": true, "th": true,
	"br": true, "option": true,
}

func (d *Document) Attribute(ctx context.Context, el platform.Element, name string) (string, bool, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", false, err
	}
	v, ok := lookupAttr(n, strings.ToLower(name))
	return v, ok, nil
}

func (d *Document) Value(ctx context.Context, el platform.Element) (string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", err
	}
	switch n.Data {
	case "textarea":
		return htmlquery.InnerText(n), nil
	case "select":
		opts := selectedOptions(n)
		if len(opts) == 0 {
			return "", nil
		}
		return optionValue(opts[0]), nil
	default:
		return attr(n, "value"), nil
	}
}

// CSSValue reads a property from the inline style of n or its nearest
// ancestor declaring it.
func (d *Document) CSSValue(ctx context.Context, el platform.Element, property string) (string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", err
	}
	property = strings.ToLower(property)
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if v, ok := styleDecls(p)[property]; ok {
			return v, nil
		}
	}
	return "", nil
}

func (d *Document) OuterHTML(ctx context.Context, el platform.Element) (string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", fmt.Errorf("failed to render element: %w", err)
	}
	return buf.String(), nil
}

func (d *Document) IsDisplayed(ctx context.Context, el platform.Element) (bool, error) {
	n, err := d.resolve(el)
	if err != nil {
		return false, err
	}
	return displayed(n), nil
}

func (d *Document) IsEnabled(ctx context.Context, el platform.Element) (bool, error) {
	n, err := d.resolve(el)
	if err != nil {
		return false, err
	}
	return enabled(n), nil
}

func (d *Document) IsSelected(ctx context.Context, el platform.Element) (bool, error) {
	n, err := d.resolve(el)
	if err != nil {
		return false, err
	}
	switch n.Data {
	case "input":
		_, checked := lookupAttr(n, "checked")
		return checked, nil
	case "option":
		_, selected := lookupAttr(n, "selected")
		return selected, nil
	default:
		return false, nil
	}
}

var invisibleTags = map[string]bool{
	"head": true, "script": true, "style": true, "template": true, "title": true, "meta": true,
}

func hiddenSelf(n *html.Node) bool {
	if invisibleTags[n.Data] {
		return true
	}
	if _, ok := lookupAttr(n, "hidden"); ok {
		return true
	}
	if n.Data == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return true
	}
	decls := styleDecls(n)
	return decls["display"] == "none" || decls["visibility"] == "hidden"
}

func displayed(n *html.Node) bool {
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if hiddenSelf(p) {
			return false
		}
	}
	return true
}

func enabled(n *html.Node) bool {
	if _, ok := lookupAttr(n, "disabled"); ok {
		return false
	}
	if n.Data == "option" {
		for p := n.Parent; p != nil && p.Type == html.ElementNode; p = p.Parent {
			if p.Data == "select" || p.Data == "optgroup" {
				if _, ok := lookupAttr(p, "disabled"); ok {
					return false
				}
			}
		}
	}
	return true
}

func styleDecls(n *html.Node) map[string]string {
	decls := map[string]string{}
	for _, part := range strings.Split(attr(n, "style"), ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		decls[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return decls
}
