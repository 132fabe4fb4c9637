package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/table"
	"github.com/mj1618/gridcheck/internal/wait"
	"github.com/mj1618/gridcheck/internal/widget"
)

// Login form elements, looked up on the repository's login page.
const (
	loginPage     = "LoginPage"
	loginUsername = "customInputUsername"
	loginPassword = "customInputPassword"
	loginButton   = "login-btn"
)

// Fallback locators for the header comparison when a page does not define
// firstColumn or tableHeaders.
var (
	defaultFirstColumn  = platform.XPath(`//table//tbody//tr/td[1]`)
	defaultTableHeaders = platform.XPath(`//table//thead//th`)
)

func (e *Engine) register() {
	r := &e.reg
	r.add(`I open the {string} page`, e.openPage)
	r.add(`I login to the application`, e.login)

	r.add(`the pagination control should be visible and functional`, e.verifyPagination)
	r.add(`I navigate through all pages using the pagination controls`, e.traversePages)
	r.add(`I go to page number {string} using the pagination bar`, e.goToPage)
	r.add(`I select {string} rows per page from dropdown`, e.rowsPerPage)
	r.add(`I go to the next page`, e.nextPage)
	r.add(`I go to the previous page`, e.previousPage)
	r.add(`I go to the last page`, e.lastPage)
	r.add(`I go to the first page`, e.firstPage)

	r.add(`I should not see {string} on {string} page`, e.notVisible)
	r.add(`I should find row with {string} value {string} in the table`, e.findRow)
	r.add(`I verify row with {string} value {string} appears as the last row in the table`, e.lastRow)
	r.add(`I verify row with {string} = {string} is deleted from {string} table on {string} page`, e.rowDeleted)
	r.add(`I verify values from {string} table appear as headers in {string} before column {string}`, e.headersBefore)

	r.add(`I upload the file {string} into the {string} field`, e.upload)
	r.add(`I should see file upload error {string}`, e.uploadError)
	r.add(`I set the toggle in the table row where {string} is {string} to {string}`, e.toggle)
	r.add(`I select {string} from {string} dropdown on {string} page`, e.selectValues)
	r.add(`I edit {string} field to {string} in row where {string} is {string} on {string} page`, e.edit)
	r.add(`I verify date-picker {string} on {string} page for field {string} enforces date rules`, e.datePicker)
}

// bindTable binds the first table on the page, or the page's named table when
// the repository defines it.
func (e *Engine) bindTable(page, name string) (*table.Table, error) {
	var scope platform.Query
	if page != "" && name != "" {
		q, err := e.repo.Lookup(page, name)
		if err != nil {
			return nil, err
		}
		scope = q
	}
	return table.New(e.provider, e.nav, scope, e.logger), nil
}

// element returns a re-resolver for a repository element.
func (e *Engine) element(page, name string) (widget.ElementFunc, error) {
	q, err := e.repo.Lookup(page, name)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (platform.Element, error) {
		el, err := e.provider.FindOne(ctx, nil, q)
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, &failure.ElementNotFoundError{What: "element", Name: name, Scope: page + " page"}
		}
		return el, nil
	}, nil
}

func (e *Engine) openPage(ctx context.Context, args []string) (any, error) {
	url, err := e.repo.URL(e.cfg.BaseURL, args[0])
	if err != nil {
		return nil, err
	}
	if err := e.provider.Browser.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	e.logger.Info().Str("page", args[0]).Str("url", url).Msg("Page opened")
	return map[string]string{"url": url}, wait.Settle(ctx, e.cfg.Settle.Navigation.Std())
}

func (e *Engine) login(ctx context.Context, _ []string) (any, error) {
	url, creds := e.cfg.BaseURL, e.cfg.Credentials
	if url == "" {
		return nil, failure.Assertf("base_url is not configured")
	}
	if creds.Username == "" {
		return nil, failure.Assertf("credentials.username is not configured")
	}
	if err := e.provider.Browser.Navigate(ctx, url); err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	if err := wait.Settle(ctx, e.cfg.Settle.Navigation.Std()); err != nil {
		return nil, err
	}

	for _, f := range []struct{ name, value string }{
		{loginUsername, creds.Username},
		{loginPassword, creds.Password},
	} {
		if err := e.fill(ctx, loginPage, f.name, f.value); err != nil {
			return nil, err
		}
	}
	btn, err := e.element(loginPage, loginButton)
	if err != nil {
		return nil, err
	}
	el, err := btn(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.provider.Inputter.Click(ctx, el); err != nil {
		return nil, fmt.Errorf("failed to click %s: %w", loginButton, err)
	}
	if err := wait.Settle(ctx, e.cfg.Settle.Navigation.Std()); err != nil {
		return nil, err
	}
	e.logger.Info().Str("url", url).Str("username", creds.Username).Msg("Logged in")
	return map[string]string{"url": url, "username": creds.Username}, nil
}

// fill replaces the text of a repository input.
func (e *Engine) fill(ctx context.Context, page, name, value string) error {
	field, err := e.element(page, name)
	if err != nil {
		return err
	}
	el, err := field(ctx)
	if err != nil {
		return err
	}
	if err := e.provider.Inputter.Clear(ctx, el); err != nil {
		return fmt.Errorf("failed to clear %s: %w", name, err)
	}
	if err := e.provider.Inputter.Type(ctx, el, value); err != nil {
		return fmt.Errorf("failed to type into %s: %w", name, err)
	}
	return nil
}

func (e *Engine) verifyPagination(ctx context.Context, _ []string) (any, error) {
	return e.nav.VerifyControl(ctx)
}

func (e *Engine) traversePages(ctx context.Context, _ []string) (any, error) {
	return e.nav.TraverseAll(ctx)
}

func (e *Engine) goToPage(ctx context.Context, args []string) (any, error) {
	if err := e.nav.GoToPage(ctx, args[0]); err != nil {
		return nil, err
	}
	return e.nav.State(ctx)
}

func (e *Engine) rowsPerPage(ctx context.Context, args []string) (any, error) {
	if err := e.nav.SetRowsPerPage(ctx, args[0], e.cfg.Timeouts.Dropdown.Std()); err != nil {
		return nil, err
	}
	return e.nav.State(ctx)
}

func (e *Engine) nextPage(ctx context.Context, _ []string) (any, error) {
	if err := e.nav.Advance(ctx); err != nil {
		return nil, err
	}
	return e.nav.State(ctx)
}

func (e *Engine) previousPage(ctx context.Context, _ []string) (any, error) {
	if err := e.nav.Retreat(ctx); err != nil {
		return nil, err
	}
	return e.nav.State(ctx)
}

// PageMove reports a multi-page move.
type PageMove struct {
	Steps int                   `yaml:"steps" json:"steps"`
	State model.PaginationState `yaml:"state" json:"state"`
}

func (e *Engine) lastPage(ctx context.Context, _ []string) (any, error) {
	return e.move(ctx, e.nav.ToLastPage)
}

func (e *Engine) firstPage(ctx context.Context, _ []string) (any, error) {
	return e.move(ctx, e.nav.ToFirstPage)
}

func (e *Engine) move(ctx context.Context, fn func(context.Context) (int, error)) (any, error) {
	c, err := e.nav.Container(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, failure.NotFound("pagination control", "")
	}
	steps, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	state, err := e.nav.State(ctx)
	return &PageMove{Steps: steps, State: state}, err
}

// notVisible waits for the element to be absent. An element still showing
// when the wait runs out fails the step.
func (e *Engine) notVisible(ctx context.Context, args []string) (any, error) {
	name, page := args[0], args[1]
	q, err := e.repo.Lookup(page, name)
	if err != nil {
		return nil, err
	}
	abs := wait.Absence{
		Options:          wait.Options{Timeout: e.cfg.Timeouts.Absence.Std(), Interval: e.cfg.Timeouts.Poll.Std()},
		TimeoutIsSuccess: false,
	}
	err = wait.Gone(ctx, abs, name, func(ctx context.Context) (bool, error) {
		return e.provider.Present(ctx, nil, q)
	})
	if failure.KindOf(err) == failure.KindTimeout {
		return nil, failure.Assertf("Element %s should not be visible on %s page but it is", name, page)
	}
	return nil, err
}

func (e *Engine) findRow(ctx context.Context, args []string) (any, error) {
	col, value := args[0], args[1]
	tbl, err := e.bindTable("", "")
	if err != nil {
		return nil, err
	}
	res, err := tbl.Find(ctx, col, value)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return res, failure.Assertf("Row with value '%s' in column '%s' not found in the table.", value, col)
	}
	e.logger.Info().
		Str("column", col).
		Str("value", value).
		Int("page", res.Position.Page).
		Int("row", res.Position.Row).
		Msg("Row found")
	return res, nil
}

func (e *Engine) lastRow(ctx context.Context, args []string) (any, error) {
	tbl, err := e.bindTable("", "")
	if err != nil {
		return nil, err
	}
	return nil, tbl.VerifyLastRow(ctx, args[0], args[1])
}

func (e *Engine) rowDeleted(ctx context.Context, args []string) (any, error) {
	col, value, name, page := args[0], args[1], args[2], args[3]
	tbl, err := e.bindTable(page, name)
	if err != nil {
		return nil, err
	}
	el, err := tbl.Element(ctx)
	if err != nil {
		return nil, err
	}
	if shown, err := e.provider.Inspector.IsDisplayed(ctx, el); err != nil || !shown {
		if err == nil {
			err = &failure.ElementNotFoundError{What: "visible table", Name: name, Scope: page + " page"}
		}
		return nil, err
	}
	pages, err := tbl.VerifyAbsent(ctx, col, value)
	return map[string]int{"pages": pages}, err
}

// HeaderCheck reports the values compared against the target headers.
type HeaderCheck struct {
	Values  []string `yaml:"values"  json:"values"`
	Headers []string `yaml:"headers" json:"headers"`
}

func (e *Engine) headersBefore(ctx context.Context, args []string) (any, error) {
	source, target, final := args[0], args[1], args[2]
	check := &HeaderCheck{}

	values, err := e.texts(ctx, source, "firstColumn", defaultFirstColumn)
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		if v != "" {
			check.Values = append(check.Values, v)
		}
	}
	if len(check.Values) == 0 {
		return check, &failure.ElementNotFoundError{What: "first column values", Scope: source + " table"}
	}

	if check.Headers, err = e.texts(ctx, target, "tableHeaders", defaultTableHeaders); err != nil {
		return check, err
	}
	if len(check.Headers) == 0 {
		return check, &failure.ElementNotFoundError{What: "table headers", Scope: target + " table"}
	}
	return check, table.HeadersBefore(check.Headers, check.Values, final)
}

// texts reads every match of the page's named element, or of fallback when
// the page does not define it.
func (e *Engine) texts(ctx context.Context, page, name string, fallback platform.Query) ([]string, error) {
	q := fallback
	if e.repo.Has(page, name) {
		var err error
		if q, err = e.repo.Lookup(page, name); err != nil {
			return nil, err
		}
	}
	return e.provider.Texts(ctx, nil, q)
}

func (e *Engine) upload(ctx context.Context, args []string) (any, error) {
	return e.widgets.Upload(ctx, args[1], args[0])
}

func (e *Engine) uploadError(ctx context.Context, args []string) (any, error) {
	msg, err := e.widgets.VerifyUploadError(ctx, args[0], e.cfg.Timeouts.Element.Std())
	if err != nil {
		return nil, err
	}
	return map[string]string{"message": msg}, nil
}

// pinRow finds the row whose column holds value, paging to it if needed, and
// returns a re-resolver bound to its position on that page. Edit mode swaps
// cells for inputs and may rewrite the key itself, so later lookups go by
// position and never page.
func pinRow(ctx context.Context, tbl *table.Table, col, value string) (widget.ElementFunc, int, error) {
	n, err := tbl.Locate(ctx, col, value)
	if err != nil {
		return nil, 0, err
	}
	return func(ctx context.Context) (platform.Element, error) {
		return tbl.RowAt(ctx, n)
	}, n, nil
}

func (e *Engine) toggle(ctx context.Context, args []string) (any, error) {
	col, value := args[0], args[1]
	on, err := model.ParseToggleState(args[2])
	if err != nil {
		return nil, err
	}
	tbl, err := e.bindTable("", "")
	if err != nil {
		return nil, err
	}
	row, _, err := pinRow(ctx, tbl, col, value)
	if err != nil {
		return nil, err
	}
	return e.widgets.SetToggle(ctx, row, on)
}

func (e *Engine) selectValues(ctx context.Context, args []string) (any, error) {
	req, err := model.ParseSelection(args[0])
	if err != nil {
		return nil, err
	}
	control, err := e.element(args[2], args[1])
	if err != nil {
		return nil, err
	}
	return e.widgets.SelectValues(ctx, control, req)
}

func (e *Engine) edit(ctx context.Context, args []string) (any, error) {
	field, value, col, key, page := args[0], args[1], args[2], args[3], args[4]
	tbl, err := e.bindTable("", "")
	if err != nil {
		return nil, err
	}
	row, n, err := pinRow(ctx, tbl, col, key)
	if err != nil {
		return nil, err
	}
	req := widget.EditRequest{
		Row:   row,
		Field: field,
		Value: value,
		Cell:  cellFunc(tbl, field, n),
	}
	if e.repo.Has(page, field) {
		q, err := e.repo.Lookup(page, field)
		if err != nil {
			return nil, err
		}
		req.Query = &q
	}
	return e.widgets.Edit(ctx, req)
}

// cellFunc reads the displayed cell under field in the n-th row of the
// current page.
func cellFunc(tbl *table.Table, field string, n int) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		snap, err := tbl.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		fc, ok := snap.Columns().Lookup(field)
		if !ok {
			return "", &failure.ElementNotFoundError{What: "column", Name: field, Scope: "table"}
		}
		if n < 1 || n > len(snap.Rows) {
			return "", &failure.ElementNotFoundError{What: "row", Name: strconv.Itoa(n), Scope: "table page"}
		}
		cell, _ := snap.Rows[n-1].Cell(fc)
		return strings.TrimSpace(cell), nil
	}
}

func (e *Engine) datePicker(ctx context.Context, args []string) (any, error) {
	name, page := args[0], args[1]
	rule, err := model.ParseDateRule(args[2])
	if err != nil {
		return nil, failure.Assertf("Invalid rule '%s'. Expected 'pastOnly' or 'futureOnly'", args[2])
	}
	picker, err := e.element(page, name)
	if err != nil {
		return nil, err
	}
	return e.widgets.ValidateDatePicker(ctx, picker, rule)
}
