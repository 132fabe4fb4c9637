// Package htmldoc is a driver backend over a parsed HTML document held in
// memory. It evaluates XPath with antchfx/htmlquery and CSS with cascadia,
// emulates native form controls, and lets callers attach click and change
// handlers that rewrite the document the way a client-side app re-renders.
//
// It serves offline verification of saved pages and is the backend the
// package tests run against.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/mj1618/gridcheck/internal/platform"
	"golang.org/x/net/html"
)

func init() {
	platform.Register("htmldoc", func(ctx context.Context, opts platform.Options) (*platform.Provider, error) {
		if opts.Document == "" {
			doc, err := Parse("<html><head></head><body></body></html>")
			if err != nil {
				return nil, err
			}
			return doc.Provider(), nil
		}
		doc, err := Load(opts.Document)
		if err != nil {
			return nil, err
		}
		return doc.Provider(), nil
	})
}

// Event names a handler trigger.
type Event string

const (
	EventClick  Event = "click"
	EventChange Event = "change"
)

// Handler reacts to an event on target, the nearest ancestor-or-self of the
// event origin matching the handler's expression.
type Handler func(d *Document, target *html.Node) error

type binding struct {
	event Event
	expr  string
	fn    Handler
}

// Document is a mutable HTML page.
type Document struct {
	root     *html.Node
	url      string
	bindings []binding
	files    map[*html.Node][]string
}

// Parse builds a Document from HTML text.
func Parse(text string) (*Document, error) {
	d := &Document{files: map[*html.Node][]string{}}
	if err := d.SetHTML(text); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reads a Document from a local HTML file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	d, err := Parse(string(data))
	if err != nil {
		return nil, err
	}
	d.url = "file://" + path
	return d, nil
}

// SetHTML replaces the whole document. Every handle taken before the call
// becomes stale.
func (d *Document) SetHTML(text string) error {
	root, err := htmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}
	d.root = root
	d.files = map[*html.Node][]string{}
	return nil
}

// On registers fn for event on elements matching the XPath expression expr.
// Handlers are tried in registration order and the first match wins.
func (d *Document) On(event Event, expr string, fn Handler) {
	d.bindings = append(d.bindings, binding{event: event, expr: expr, fn: fn})
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Query evaluates an XPath expression against the document.
func (d *Document) Query(expr string) []*html.Node {
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil
	}
	return elementsOnly(nodes)
}

// Files returns the paths attached to a file input.
func (d *Document) Files(n *html.Node) []string { return d.files[n] }

// HTML serializes the current document.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// ReplaceInner replaces the children of n with the parsed fragment.
func (d *Document) ReplaceInner(n *html.Node, fragment string) error {
	nodes, err := html.ParseFragment(strings.NewReader(fragment), n)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

// Provider exposes the document through the driver capability interfaces.
func (d *Document) Provider() *platform.Provider {
	return &platform.Provider{
		Finder:        d,
		Inspector:     d,
		Inputter:      d,
		Chooser:       d,
		Browser:       d,
		Screenshotter: d,
		Close:         func() error { return nil },
	}
}

// Navigate loads a local file. Only file:// URLs and bare paths are
// supported.
func (d *Document) Navigate(ctx context.Context, url string) error {
	path := strings.TrimPrefix(url, "file://")
	if strings.Contains(path, "://") {
		return fmt.Errorf("htmldoc backend can only open local files, got %s", url)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	if err := d.SetHTML(string(data)); err != nil {
		return err
	}
	d.url = "file://" + path
	return nil
}

func (d *Document) CurrentURL(ctx context.Context) (string, error) {
	return d.url, nil
}

// CaptureScreenshot returns the serialized DOM; there is no renderer.
func (d *Document) CaptureScreenshot(ctx context.Context) (*platform.Screenshot, error) {
	return &platform.Screenshot{Data: []byte(d.HTML()), Format: "html"}, nil
}

// fire runs the first handler bound to event whose expression matches the
// origin or one of its ancestors.
func (d *Document) fire(event Event, origin *html.Node) error {
	for _, b := range d.bindings {
		if b.event != event {
			continue
		}
		matches := map[*html.Node]bool{}
		for _, m := range d.Query(b.expr) {
			matches[m] = true
		}
		for n := origin; n != nil; n = n.Parent {
			if matches[n] {
				return b.fn(d, n)
			}
		}
	}
	return nil
}

// node is the Element handle for this backend.
type node struct {
	n *html.Node
}

func (e node) Ref() string {
	var b strings.Builder
	b.WriteString(e.n.Data)
	if id := attr(e.n, "id"); id != "" {
		b.WriteString("#" + id)
	}
	if class := attr(e.n, "class"); class != "" {
		b.WriteString("." + strings.Join(strings.Fields(class), "."))
	}
	b.WriteString("@" + strconv.Itoa(position(e.n)))
	return b.String()
}

// NodeOf returns the html node behind an element handle from this backend.
func NodeOf(el platform.Element) (*html.Node, bool) {
	n, ok := el.(node)
	if !ok {
		return nil, false
	}
	return n.n, true
}

// resolve checks el belongs to the current document.
func (d *Document) resolve(el platform.Element) (*html.Node, error) {
	n, ok := NodeOf(el)
	if !ok {
		return nil, fmt.Errorf("element %v does not belong to the htmldoc backend", el)
	}
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", node{n}.Ref(), platform.ErrStaleElement)
}

func elementsOnly(nodes []*html.Node) []*html.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}

func position(n *html.Node) int {
	i := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			i++
		}
	}
	return i
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute on n, adding it when absent.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute from n.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}
