// Package fixture is a small client-side grid application rendered into the
// htmldoc backend. Every state change re-renders the page, so element handles
// go stale the way they do in a real single-page app.
package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/mj1618/gridcheck/internal/platform/htmldoc"
	"golang.org/x/net/html"
)

// Grid describes the application state.
type Grid struct {
	Headers  []string
	Rows     [][]string
	PageSize int
	// PageSizes renders a rows-per-page select with these choices.
	PageSizes []int
	// Editable columns become inputs while their row is in edit mode.
	Editable []string
	// Toggle names a column rendered as a checkbox holding "ON" or "OFF".
	Toggle string
	// Choices renders editable columns with these names as selects.
	Choices map[string][]string
	// Stuck makes the next button re-render the same page.
	Stuck bool
	// NoPager omits the pagination bar.
	NoPager bool
	// Before is rendered ahead of the grid table on every render.
	Before string
	// Extra is appended to the body on every render.
	Extra string

	doc     *htmldoc.Document
	page    int
	editing int
}

// Mount renders the grid into a fresh document and wires its handlers.
func (g *Grid) Mount() (*htmldoc.Document, error) {
	if g.PageSize <= 0 {
		g.PageSize = 10
	}
	g.editing = -1
	doc, err := htmldoc.Parse("<html><body></body></html>")
	if err != nil {
		return nil, err
	}
	g.doc = doc

	doc.On(htmldoc.EventClick, "//button[@data-action='next']", func(d *htmldoc.Document, _ *html.Node) error {
		if !g.Stuck && g.page < g.Pages()-1 {
			g.page++
		}
		return g.render()
	})
	doc.On(htmldoc.EventClick, "//button[@data-action='prev']", func(d *htmldoc.Document, _ *html.Node) error {
		if g.page > 0 {
			g.page--
		}
		return g.render()
	})
	doc.On(htmldoc.EventClick, "//button[@data-action='page']", func(d *htmldoc.Document, n *html.Node) error {
		p, err := strconv.Atoi(attr(n, "data-page"))
		if err != nil {
			return err
		}
		g.page = p - 1
		return g.render()
	})
	doc.On(htmldoc.EventChange, "//select[@id='page-size']", func(d *htmldoc.Document, n *html.Node) error {
		opt := htmlquery.FindOne(n, ".//option[@selected]")
		if opt == nil {
			return nil
		}
		size, err := strconv.Atoi(strings.TrimSpace(htmlquery.InnerText(opt)))
		if err != nil {
			return err
		}
		g.PageSize = size
		g.page = 0
		return g.render()
	})
	doc.On(htmldoc.EventClick, "//button[@data-action='edit']", func(d *htmldoc.Document, n *html.Node) error {
		g.editing = rowOf(n)
		return g.render()
	})
	doc.On(htmldoc.EventClick, "//button[@data-action='save']", func(d *htmldoc.Document, n *html.Node) error {
		return g.save(n)
	})
	doc.On(htmldoc.EventChange, "//input[@data-toggle]", func(d *htmldoc.Document, n *html.Node) error {
		i := rowOf(n)
		col := g.column(g.Toggle)
		if i < 0 || col < 0 {
			return nil
		}
		if _, on := lookup(n, "checked"); on {
			g.Rows[i][col] = "ON"
		} else {
			g.Rows[i][col] = "OFF"
		}
		return nil
	})

	return doc, g.render()
}

// Doc returns the mounted document.
func (g *Grid) Doc() *htmldoc.Document { return g.doc }

// Page returns the current 1-based page.
func (g *Grid) Page() int { return g.page + 1 }

// Pages returns the page count, at least one.
func (g *Grid) Pages() int {
	n := (len(g.Rows) + g.PageSize - 1) / g.PageSize
	if n == 0 {
		return 1
	}
	return n
}

// Cell returns the stored value at row i, column header.
func (g *Grid) Cell(i int, header string) string {
	col := g.column(header)
	if col < 0 || i < 0 || i >= len(g.Rows) {
		return ""
	}
	return g.Rows[i][col]
}

// Render re-renders after a test mutates the state directly.
func (g *Grid) Render() error { return g.render() }

func (g *Grid) column(header string) int {
	for i, h := range g.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

func (g *Grid) editable(header string) bool {
	for _, h := range g.Editable {
		if h == header {
			return true
		}
	}
	return false
}

func (g *Grid) save(btn *html.Node) error {
	i := rowOf(btn)
	if i < 0 {
		return nil
	}
	tr := btn
	for tr != nil && tr.Data != "tr" {
		tr = tr.Parent
	}
	for _, field := range htmlquery.Find(tr, ".//*[@name]") {
		col := g.column(attr(field, "name"))
		if col < 0 {
			continue
		}
		switch field.Data {
		case "select":
			if opt := htmlquery.FindOne(field, ".//option[@selected]"); opt != nil {
				g.Rows[i][col] = strings.TrimSpace(htmlquery.InnerText(opt))
			}
		case "textarea":
			g.Rows[i][col] = htmlquery.InnerText(field)
		default:
			if strings.EqualFold(attr(field, "type"), "checkbox") {
				_, on := lookup(field, "checked")
				g.Rows[i][col] = strconv.FormatBool(on)
			} else {
				g.Rows[i][col] = attr(field, "value")
			}
		}
	}
	g.editing = -1
	return g.render()
}

func (g *Grid) render() error {
	var b strings.Builder
	b.WriteString(`<html><body><h1>Records</h1>`)
	b.WriteString(g.Before)
	b.WriteString(`<table id="grid"><thead><tr>`)
	for _, h := range g.Headers {
		fmt.Fprintf(&b, "<th>%s</th>", esc(h))
	}
	if len(g.Editable) > 0 {
		b.WriteString("<th>Actions</th>")
	}
	b.WriteString("</tr></thead><tbody>")

	start := g.page * g.PageSize
	end := start + g.PageSize
	if end > len(g.Rows) {
		end = len(g.Rows)
	}
	for i := start; i < end; i++ {
		g.renderRow(&b, i)
	}
	b.WriteString("</tbody></table>")

	if !g.NoPager {
		g.renderPager(&b)
	}
	if len(g.PageSizes) > 0 {
		b.WriteString(`<label for="page-size">Rows per page</label><select id="page-size" aria-label="Rows per page">`)
		for _, n := range g.PageSizes {
			sel := ""
			if n == g.PageSize {
				sel = " selected"
			}
			fmt.Fprintf(&b, "<option%s>%d</option>", sel, n)
		}
		b.WriteString("</select>")
	}
	b.WriteString(g.Extra)
	b.WriteString("</body></html>")
	return g.doc.SetHTML(b.String())
}

func (g *Grid) renderRow(b *strings.Builder, i int) {
	fmt.Fprintf(b, `<tr data-row="%d">`, i)
	editing := g.editing == i
	for c, h := range g.Headers {
		v := g.Rows[i][c]
		switch {
		case h == g.Toggle && h != "":
			checked := ""
			if v == "ON" {
				checked = " checked"
			}
			fmt.Fprintf(b, `<td><input type="checkbox" data-toggle="%d"%s></td>`, i, checked)
		case editing && g.editable(h):
			b.WriteString("<td>")
			g.renderField(b, h, v)
			b.WriteString("</td>")
		default:
			fmt.Fprintf(b, "<td>%s</td>", esc(v))
		}
	}
	if len(g.Editable) > 0 {
		if editing {
			b.WriteString(`<td><button data-action="save" aria-label="Save">Save</button></td>`)
		} else {
			b.WriteString(`<td><button data-action="edit" aria-label="Edit">Edit</button></td>`)
		}
	}
	b.WriteString("</tr>")
}

func (g *Grid) renderField(b *strings.Builder, name, v string) {
	if choices, ok := g.Choices[name]; ok {
		fmt.Fprintf(b, `<select name="%s">`, esc(name))
		for _, c := range choices {
			sel := ""
			if c == v {
				sel = " selected"
			}
			fmt.Fprintf(b, "<option%s>%s</option>", sel, esc(c))
		}
		b.WriteString("</select>")
		return
	}
	if v == "true" || v == "false" {
		checked := ""
		if v == "true" {
			checked = " checked"
		}
		fmt.Fprintf(b, `<input type="checkbox" name="%s"%s>`, esc(name), checked)
		return
	}
	fmt.Fprintf(b, `<input type="text" name="%s" value="%s">`, esc(name), esc(v))
}

func (g *Grid) renderPager(b *strings.Builder) {
	last := g.Pages() - 1
	b.WriteString(`<nav class="pagination" aria-label="Pagination">`)
	fmt.Fprintf(b, `<button data-action="prev" aria-label="Previous page"%s>‹</button>`, disabled(g.page == 0))
	for p := 0; p <= last; p++ {
		current := ""
		if p == g.page {
			current = ` aria-current="page" class="active"`
		}
		fmt.Fprintf(b, `<button data-action="page" data-page="%d"%s>%d</button>`, p+1, current, p+1)
	}
	fmt.Fprintf(b, `<button data-action="next" aria-label="Next page"%s>›</button>`, disabled(g.page == last))
	b.WriteString("</nav>")
}

func disabled(v bool) string {
	if v {
		return ` disabled class="disabled"`
	}
	return ""
}

func rowOf(n *html.Node) int {
	for p := n; p != nil; p = p.Parent {
		if p.Data == "tr" {
			if i, err := strconv.Atoi(attr(p, "data-row")); err == nil {
				return i
			}
		}
	}
	return -1
}

func attr(n *html.Node, key string) string {
	v, _ := lookup(n, key)
	return v
}

func lookup(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func esc(s string) string { return html.EscapeString(s) }

// People returns n rows of Name, Email and Status.
func People(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("Person %03d", i+1),
			fmt.Sprintf("person%03d@example.com", i+1),
			"Active",
		}
	}
	return rows
}

// PeopleHeaders are the headers matching People.
var PeopleHeaders = []string{"Name", "Email", "Status"}
