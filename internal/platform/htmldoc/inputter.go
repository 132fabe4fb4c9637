package htmldoc

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/mj1618/gridcheck/internal/platform"
	"golang.org/x/net/html"
)

// interactable resolves el and rejects hidden or disabled targets the way a
// browser refuses pointer and keyboard input.
func (d *Document) interactable(el platform.Element) (*html.Node, error) {
	n, err := d.resolve(el)
	if err != nil {
		return nil, err
	}
	if !displayed(n) {
		return nil, fmt.Errorf("element %s is not displayed", node{n}.Ref())
	}
	return n, nil
}

// Click applies the native behaviour of checkboxes, radios and options,
// then runs the first matching click handler. Clicks on disabled elements
// do nothing.
func (d *Document) Click(ctx context.Context, el platform.Element) error {
	n, err := d.interactable(el)
	if err != nil {
		return err
	}
	if !enabled(n) {
		return nil
	}

	changed := false
	switch {
	case n.Data == "input" && strings.EqualFold(attr(n, "type"), "checkbox"):
		if _, ok := lookupAttr(n, "checked"); ok {
			RemoveAttr(n, "checked")
		} else {
			SetAttr(n, "checked", "")
		}
		changed = true
	case n.Data == "input" && strings.EqualFold(attr(n, "type"), "radio"):
		checkRadio(d.root, n)
		changed = true
	case n.Data == "option":
		if sel := enclosingSelect(n); sel != nil {
			choose(sel, n)
			if err := d.fire(EventChange, sel); err != nil {
				return err
			}
		}
	}

	if err := d.fire(EventClick, n); err != nil {
		return err
	}
	if changed {
		// the click handler may have re-rendered the page
		if _, err := d.resolve(el); err == nil {
			return d.fire(EventChange, n)
		}
	}
	return nil
}

func (d *Document) Type(ctx context.Context, el platform.Element, text string) error {
	n, err := d.interactable(el)
	if err != nil {
		return err
	}
	if !enabled(n) {
		return fmt.Errorf("element %s is disabled", node{n}.Ref())
	}
	switch n.Data {
	case "textarea":
		setText(n, htmlquery.InnerText(n)+text)
	case "input":
		SetAttr(n, "value", attr(n, "value")+text)
	default:
		if _, ok := lookupAttr(n, "contenteditable"); !ok {
			return fmt.Errorf("element %s does not accept text input", node{n}.Ref())
		}
		setText(n, htmlquery.InnerText(n)+text)
	}
	return d.fire(EventChange, n)
}

func (d *Document) Clear(ctx context.Context, el platform.Element) error {
	n, err := d.interactable(el)
	if err != nil {
		return err
	}
	switch n.Data {
	case "textarea":
		setText(n, "")
	case "input":
		SetAttr(n, "value", "")
	default:
		if _, ok := lookupAttr(n, "contenteditable"); !ok {
			return fmt.Errorf("element %s cannot be cleared", node{n}.Ref())
		}
		setText(n, "")
	}
	return nil
}

// SetFiles attaches paths to a file input. Hidden file inputs are accepted,
// matching what browsers allow for programmatic uploads.
func (d *Document) SetFiles(ctx context.Context, el platform.Element, paths []string) error {
	n, err := d.resolve(el)
	if err != nil {
		return err
	}
	if n.Data != "input" || !strings.EqualFold(attr(n, "type"), "file") {
		return fmt.Errorf("element %s is not a file input", node{n}.Ref())
	}
	d.files[n] = append([]string(nil), paths...)
	if len(paths) > 0 {
		SetAttr(n, "value", `C:\fakepath\`+filepath.Base(paths[0]))
	}
	return d.fire(EventChange, n)
}

func (d *Document) SelectByText(ctx context.Context, el platform.Element, text string) error {
	return d.selectWhere(el, func(opt *html.Node) bool {
		return optionText(opt) == strings.TrimSpace(text)
	})
}

func (d *Document) SelectByValue(ctx context.Context, el platform.Element, value string) error {
	return d.selectWhere(el, func(opt *html.Node) bool {
		return optionValue(opt) == value
	})
}

func (d *Document) selectWhere(el platform.Element, match func(*html.Node) bool) error {
	n, err := d.interactable(el)
	if err != nil {
		return err
	}
	if n.Data != "select" {
		return fmt.Errorf("element %s is not a select", node{n}.Ref())
	}
	if !enabled(n) {
		return fmt.Errorf("element %s is disabled", node{n}.Ref())
	}
	for _, opt := range options(n) {
		if match(opt) {
			choose(n, opt)
			return d.fire(EventChange, n)
		}
	}
	return platform.ErrNoSuchOption
}

func (d *Document) SelectedTexts(ctx context.Context, el platform.Element) ([]string, error) {
	n, err := d.resolve(el)
	if err != nil {
		return nil, err
	}
	var texts []string
	for _, opt := range selectedOptions(n) {
		texts = append(texts, optionText(opt))
	}
	return texts, nil
}

func (d *Document) IsMultiple(ctx context.Context, el platform.Element) (bool, error) {
	n, err := d.resolve(el)
	if err != nil {
		return false, err
	}
	_, ok := lookupAttr(n, "multiple")
	return ok, nil
}

func options(sel *html.Node) []*html.Node {
	nodes, _ := htmlquery.QueryAll(sel, ".//option")
	return nodes
}

// selectedOptions mirrors browser behaviour: a single select with no
// explicit selection reports its first option.
func selectedOptions(sel *html.Node) []*html.Node {
	opts := options(sel)
	var out []*html.Node
	for _, opt := range opts {
		if _, ok := lookupAttr(opt, "selected"); ok {
			out = append(out, opt)
		}
	}
	if len(out) == 0 && len(opts) > 0 {
		if _, multi := lookupAttr(sel, "multiple"); !multi {
			out = opts[:1]
		}
	}
	return out
}

func choose(sel, opt *html.Node) {
	if _, multi := lookupAttr(sel, "multiple"); !multi {
		for _, o := range options(sel) {
			RemoveAttr(o, "selected")
		}
	}
	SetAttr(opt, "selected", "")
}

func enclosingSelect(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "select" {
			return p
		}
	}
	return nil
}

func optionText(opt *html.Node) string {
	return strings.Join(strings.Fields(htmlquery.InnerText(opt)), " ")
}

func optionValue(opt *html.Node) string {
	if v, ok := lookupAttr(opt, "value"); ok {
		return v
	}
	return optionText(opt)
}

func checkRadio(root, n *html.Node) {
	name := attr(n, "name")
	if name != "" {
		group, _ := htmlquery.QueryAll(root, "//input[@type='radio']")
		for _, r := range group {
			if attr(r, "name") == name {
				RemoveAttr(r, "checked")
			}
		}
	}
	SetAttr(n, "checked", "")
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
