// Package table reads and searches paginated data tables.
package table

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/pagination"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/ternarybob/arbor"
)

// DefaultScope selects the first table on the page.
var DefaultScope = platform.XPath("(//table)[1]")

// Table is one data table and the pagination control that pages it.
type Table struct {
	provider *platform.Provider
	nav      *pagination.Navigator
	scope    platform.Query
	logger   arbor.ILogger
}

// New binds a table. A zero scope selects the first table on the page. The
// navigator is narrowed to the bound table so page changes are judged by its
// rows and not by whatever table comes first in the document.
func New(provider *platform.Provider, nav *pagination.Navigator, scope platform.Query, logger arbor.ILogger) *Table {
	if scope.Expr == "" {
		scope = DefaultScope
	}
	return &Table{provider: provider, nav: nav.ForScope(scope), scope: scope, logger: logger}
}

// Navigator returns the pagination navigator the table pages with.
func (t *Table) Navigator() *pagination.Navigator { return t.nav }

// Element resolves the table root.
func (t *Table) Element(ctx context.Context) (platform.Element, error) {
	el, err := t.provider.FindOne(ctx, nil, t.scope)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, &failure.ElementNotFoundError{What: "table", Name: t.scope.String()}
	}
	return el, nil
}

// Snapshot parses the rendered table. The result describes the current page
// only and goes stale on the next navigation.
func (t *Table) Snapshot(ctx context.Context) (model.PageSnapshot, error) {
	el, err := t.Element(ctx)
	if err != nil {
		return model.PageSnapshot{}, err
	}
	markup, err := t.provider.Inspector.OuterHTML(ctx, el)
	if err != nil {
		return model.PageSnapshot{}, fmt.Errorf("failed to read table markup: %w", err)
	}
	return ParseSnapshot(markup)
}

// ParseSnapshot builds a PageSnapshot from table markup.
func ParseSnapshot(markup string) (model.PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return model.PageSnapshot{}, fmt.Errorf("failed to parse table: %w", err)
	}
	var snap model.PageSnapshot
	headers := doc.Find("thead tr").First().Find("th")
	if headers.Length() == 0 {
		headers = doc.Find("tr").First().Find("th")
	}
	headers.Each(func(_ int, s *goquery.Selection) {
		snap.Headers = append(snap.Headers, clean(s.Text()))
	})
	doc.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}
		row := make(model.RowSnapshot, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			row = append(row, clean(td.Text()))
		})
		snap.Rows = append(snap.Rows, row)
	})
	return snap, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Column returns the zero-based position of a header label.
func (t *Table) Column(ctx context.Context, label string) (int, error) {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return column(snap, label)
}

func column(snap model.PageSnapshot, label string) (int, error) {
	col, ok := snap.Columns().Lookup(label)
	if !ok {
		return 0, &failure.ElementNotFoundError{What: "column", Name: label, Scope: "table"}
	}
	return col, nil
}

// Search is the outcome of a full-table search.
type Search struct {
	Found    bool           `yaml:"found"    json:"found"`
	Position model.Position `yaml:"position" json:"position"`
	// Pages is how many pages were inspected.
	Pages int `yaml:"pages" json:"pages"`
}

// Find searches every page for a row whose cell under column equals value.
// When the table is paginated it rewinds to the first page, so positions
// count from page one. A missing column fails before any navigation.
func (t *Table) Find(ctx context.Context, columnLabel, value string) (*Search, error) {
	col, err := t.Column(ctx, columnLabel)
	if err != nil {
		return nil, err
	}
	paged, err := t.nav.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if paged {
		if _, err := t.nav.ToFirstPage(ctx); err != nil {
			return nil, err
		}
	}

	res := &Search{}
	pages, err := t.nav.Walk(ctx, func(ctx context.Context, page int) (bool, error) {
		snap, err := t.Snapshot(ctx)
		if err != nil {
			return false, err
		}
		if row, ok := snap.FindRow(col, value); ok {
			res.Found = true
			res.Position = model.Position{Page: page, Row: row}
			return true, nil
		}
		return false, nil
	})
	res.Pages = pages
	if err != nil {
		return nil, err
	}
	t.logger.Debug().
		Str("column", columnLabel).
		Str("value", value).
		Int("pages", pages).
		Msg("Table searched")
	return res, nil
}

// VerifyLastRow checks value sits in the last row of the last page. On a
// mismatch the failure names where the row actually is.
func (t *Table) VerifyLastRow(ctx context.Context, columnLabel, value string) error {
	col, err := t.Column(ctx, columnLabel)
	if err != nil {
		return err
	}
	paged, err := t.nav.Exists(ctx)
	if err != nil {
		return err
	}
	if paged {
		if _, err := t.nav.ToLastPage(ctx); err != nil {
			return err
		}
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return err
	}
	if last, ok := snap.LastRow(); ok {
		if cell, _ := last.Cell(col); cell == value {
			t.logger.Info().Str("column", columnLabel).Str("value", value).Msg("Value is in the last row")
			return nil
		}
	}

	res, err := t.Find(ctx, columnLabel, value)
	if err != nil {
		return err
	}
	if res.Found {
		return failure.Assertf("Row with value '%s' in column '%s' found in row number %d on page %d, but not in the last row.",
			value, columnLabel, res.Position.Row, res.Position.Page)
	}
	return failure.Assertf("Row with value '%s' in column '%s' not found in the table.", value, columnLabel)
}

// VerifyAbsent checks no page holds a row with value under column and
// returns how many pages were searched.
func (t *Table) VerifyAbsent(ctx context.Context, columnLabel, value string) (int, error) {
	res, err := t.Find(ctx, columnLabel, value)
	if err != nil {
		return 0, err
	}
	if res.Found {
		return res.Pages, failure.Assertf("Row with %s='%s' was found on page %d - deletion verification failed",
			columnLabel, value, res.Position.Page)
	}
	t.logger.Info().Str("column", columnLabel).Str("value", value).Int("pages", res.Pages).Msg("Row is absent")
	return res.Pages, nil
}

// Row returns the row element whose cell under column equals value,
// searching the current page first and then the whole table.
func (t *Table) Row(ctx context.Context, columnLabel, value string) (platform.Element, error) {
	n, err := t.Locate(ctx, columnLabel, value)
	if err != nil {
		return nil, err
	}
	return t.RowAt(ctx, n)
}

// Locate returns the 1-based position, on the page it leaves the table on,
// of the row whose cell under column equals value. It searches the current
// page first and pages through the table only when the row is elsewhere.
func (t *Table) Locate(ctx context.Context, columnLabel, value string) (int, error) {
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	col, err := column(snap, columnLabel)
	if err != nil {
		return 0, err
	}
	if n, ok := snap.FindRow(col, value); ok {
		return n, nil
	}
	res, err := t.Find(ctx, columnLabel, value)
	if err != nil {
		return 0, err
	}
	if !res.Found {
		return 0, &failure.ElementNotFoundError{What: "row", Name: columnLabel + "=" + value, Scope: "table"}
	}
	return res.Position.Row, nil
}

// RowAt resolves the n-th body row on the current page. It never navigates,
// so it keeps pointing at the same row while cell contents change under it.
func (t *Table) RowAt(ctx context.Context, n int) (platform.Element, error) {
	el, err := t.Element(ctx)
	if err != nil {
		return nil, err
	}
	row, err := t.provider.FindOne(ctx, el, platform.XPath(fmt.Sprintf(`.//tbody/tr[td][%d]`, n)))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, &failure.ElementNotFoundError{What: "row", Name: strconv.Itoa(n), Scope: "table page"}
	}
	return row, nil
}

// HeadersBefore checks every value is a header positioned before the final
// column.
func HeadersBefore(headers, values []string, finalColumn string) error {
	idx := model.NewColumnIndex(headers)
	final, ok := idx.Lookup(finalColumn)
	if !ok {
		return &failure.ElementNotFoundError{What: "column", Name: finalColumn, Scope: "table headers"}
	}
	var missing, misplaced []string
	for _, v := range values {
		pos, ok := idx.Lookup(strings.TrimSpace(v))
		switch {
		case !ok:
			missing = append(missing, v)
		case pos >= final:
			misplaced = append(misplaced, v)
		}
	}
	if len(missing) > 0 || len(misplaced) > 0 {
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, fmt.Sprintf("not headers: [%s]", strings.Join(missing, ", ")))
		}
		if len(misplaced) > 0 {
			parts = append(parts, fmt.Sprintf("not before %q: [%s]", finalColumn, strings.Join(misplaced, ", ")))
		}
		return failure.Assertf("header check failed; %s", strings.Join(parts, "; "))
	}
	return nil
}
