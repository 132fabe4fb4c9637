package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/mj1618/gridcheck/internal/artifact"
	"github.com/mj1618/gridcheck/internal/config"
	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/fixture"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/objrepo"
	"github.com/mj1618/gridcheck/internal/pagination"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/platform/htmldoc"
	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/table"
	"github.com/mj1618/gridcheck/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"golang.org/x/net/html"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timeouts = config.TimeoutConfig{
		Element:  config.Duration(200 * time.Millisecond),
		Absence:  config.Duration(30 * time.Millisecond),
		Action:   config.Duration(time.Second),
		Poll:     config.Duration(5 * time.Millisecond),
		Dropdown: config.Duration(30 * time.Millisecond),
	}
	cfg.Settle = config.SettleConfig{}
	cfg.TestData = map[string]string{"person": "Person 017"}
	return cfg
}

type harness struct {
	engine   *Engine
	grid     *fixture.Grid
	doc      *htmldoc.Document
	recorder *report.Recorder
}

func setup(t *testing.T, g *fixture.Grid, repoYAML string) *harness {
	t.Helper()
	doc, err := g.Mount()
	require.NoError(t, err)
	repo, err := objrepo.Parse([]byte(repoYAML))
	require.NoError(t, err)

	logger := arbor.NewNoOpLogger()
	store, err := artifact.New(t.TempDir(), 0, logger)
	require.NoError(t, err)
	p := doc.Provider()
	rec := report.New(p.Screenshotter, store, logger)
	return &harness{engine: New(p, testConfig(), repo, rec, logger), grid: g, doc: doc, recorder: rec}
}

func (h *harness) run(t *testing.T, line string) *Result {
	t.Helper()
	res, err := h.engine.Run(context.Background(), line)
	require.NoError(t, err, line)
	require.NotNil(t, res)
	assert.Equal(t, report.Pass, res.Status)
	return res
}

func (h *harness) fail(t *testing.T, line string) (*Result, error) {
	t.Helper()
	res, err := h.engine.Run(context.Background(), line)
	require.Error(t, err, line)
	if res != nil {
		assert.Equal(t, report.Fail, res.Status)
	}
	return res, err
}

func people(n, size int) *fixture.Grid {
	return &fixture.Grid{Headers: fixture.PeopleHeaders, Rows: fixture.People(n), PageSize: size}
}

func TestEngine_Phrases(t *testing.T) {
	h := setup(t, people(3, 5), "")
	assert.Len(t, h.engine.Phrases(), 21)
}

func TestEngine_UnknownStep(t *testing.T) {
	h := setup(t, people(3, 5), "")
	res, err := h.engine.Run(context.Background(), `When I dance`)
	assert.Nil(t, res)
	var unknown *UnknownStepError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "I dance", unknown.Text)
	assert.Empty(t, h.recorder.Entries())
}

func TestEngine_Expand(t *testing.T) {
	h := setup(t, people(3, 5), "")
	assert.Equal(t, "Person 017", h.engine.expand("${person}"))
	assert.Equal(t, "x Person 017 ${missing}", h.engine.expand("x ${person} ${missing}"))
}

const loginRepo = `
pages:
  LoginPage:
    path: /login
    elements:
      customInputUsername: "//input[@id='username']"
      customInputPassword: "css=input#password"
      login-btn: "//button[@id='login-btn']"
`

func TestLoginStep(t *testing.T) {
	login := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(login, []byte(`<html><body><form>
<input id="username" type="text" value="stale">
<input id="password" type="password">
<button id="login-btn" type="button">Sign in</button>
</form></body></html>`), 0o644))

	g := people(12, 5)
	h := setup(t, g, loginRepo)
	var user, pass string
	h.doc.On(htmldoc.EventClick, "//button[@id='login-btn']", func(d *htmldoc.Document, _ *html.Node) error {
		user = htmlquery.SelectAttr(d.Query("//input[@id='username']")[0], "value")
		pass = htmlquery.SelectAttr(d.Query("//input[@id='password']")[0], "value")
		return g.Render()
	})
	h.engine.cfg.BaseURL = "file://" + login
	h.engine.cfg.Credentials = config.CredentialsConfig{Username: "qa.admin", Password: "s3cret"}

	res := h.run(t, `Given I login to the application`)
	assert.Equal(t, map[string]string{"url": "file://" + login, "username": "qa.admin"}, res.Data)
	assert.Equal(t, "qa.admin", user)
	assert.Equal(t, "s3cret", pass)
	assert.NotEmpty(t, res.Screenshot, "login is captured like every other step")
	h.run(t, `I should find row with "Name" value "Person 004" in the table`)
}

func TestLoginStep_Misconfigured(t *testing.T) {
	h := setup(t, people(3, 5), loginRepo)
	_, err := h.fail(t, `I login to the application`)
	assert.EqualError(t, err, "base_url is not configured")

	h.engine.cfg.BaseURL = "file://" + filepath.Join(t.TempDir(), "missing.html")
	_, err = h.fail(t, `I login to the application`)
	assert.EqualError(t, err, "credentials.username is not configured")

	h.engine.cfg.Credentials.Username = "qa.admin"
	_, err = h.fail(t, `I login to the application`)
	assert.ErrorContains(t, err, "failed to open")

	bare := setup(t, people(3, 5), "")
	login := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(login, []byte(`<html><body></body></html>`), 0o644))
	bare.engine.cfg.BaseURL = "file://" + login
	bare.engine.cfg.Credentials.Username = "qa.admin"
	_, err = bare.fail(t, `I login to the application`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestPaginationSteps(t *testing.T) {
	h := setup(t, people(23, 5), "")

	res := h.run(t, `Then the pagination control should be visible and functional`)
	ctl := res.Data.(*pagination.ControlReport)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ctl.Pages)

	h.run(t, `When I go to page number "3" using the pagination bar`)
	assert.Equal(t, 3, h.grid.Page())

	res = h.run(t, `And I go to the next page`)
	assert.Equal(t, "4", res.Data.(model.PaginationState).CurrentPageLabel)

	h.run(t, `And I go to the previous page`)
	assert.Equal(t, 3, h.grid.Page())

	res = h.run(t, `And I go to the last page`)
	assert.Equal(t, 2, res.Data.(*PageMove).Steps)
	assert.Equal(t, 5, h.grid.Page())

	_, err := h.fail(t, `And I go to the next page`)
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))

	h.run(t, `And I go to the first page`)
	assert.Equal(t, 1, h.grid.Page())

	res = h.run(t, `When I navigate through all pages using the pagination controls`)
	trav := res.Data.(*pagination.Traversal)
	assert.Equal(t, 5, trav.Pages)
	assert.Equal(t, 4, trav.Back)

	_, err = h.fail(t, `When I go to page number "9" using the pagination bar`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestPaginationSteps_Stuck(t *testing.T) {
	g := people(23, 5)
	g.Stuck = true
	h := setup(t, g, "")
	_, err := h.fail(t, `I go to the next page`)
	assert.Equal(t, failure.KindNavigationStuck, failure.KindOf(err))
}

func TestRowsPerPageStep(t *testing.T) {
	g := people(23, 5)
	g.PageSizes = []int{5, 10, 25}
	h := setup(t, g, "")

	h.run(t, `I select "10" rows per page from dropdown`)
	assert.Equal(t, 10, g.PageSize)
	assert.Equal(t, 3, g.Pages())

	_, err := h.fail(t, `I select "7" rows per page from dropdown`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestFindRowStep(t *testing.T) {
	h := setup(t, people(23, 5), "")

	res := h.run(t, `I should find row with "Name" value "${person}" in the table`)
	search := res.Data.(*table.Search)
	assert.Equal(t, 4, search.Position.Page)
	assert.Equal(t, 2, search.Position.Row)

	_, err := h.fail(t, `I should find row with "Name" value "Nobody" in the table`)
	assert.EqualError(t, err, "Row with value 'Nobody' in column 'Name' not found in the table.")

	_, err = h.fail(t, `I should find row with "name" value "Person 001" in the table`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestLastRowStep(t *testing.T) {
	h := setup(t, people(23, 5), "")

	h.run(t, `I verify row with "Name" value "Person 023" appears as the last row in the table`)
	_, err := h.fail(t, `I verify row with "Name" value "Person 001" appears as the last row in the table`)
	assert.EqualError(t, err, "Row with value 'Person 001' in column 'Name' found in row number 1 on page 1, but not in the last row.")
}

const usersRepo = `
pages:
  users:
    path: /users
    elements:
      grid: "//table[@id='grid']"
      banner: "//div[@id='banner']"
      toast: "css=div#toast"
`

func TestRowDeletedStep(t *testing.T) {
	h := setup(t, people(23, 5), usersRepo)

	res := h.run(t, `Then I verify row with "Name" = "Person 099" is deleted from "grid" table on "users" page`)
	assert.Equal(t, map[string]int{"pages": 5}, res.Data)

	_, err := h.fail(t, `Then I verify row with "Name" = "Person 012" is deleted from "grid" table on "users" page`)
	assert.EqualError(t, err, "Row with Name='Person 012' was found on page 3 - deletion verification failed")

	_, err = h.fail(t, `Then I verify row with "Name" = "x" is deleted from "orders" table on "users" page`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestRowDeletedStep_PagedTableAfterSummary(t *testing.T) {
	g := people(23, 5)
	g.Before = `<table id="totals"><thead><tr><th>Users</th></tr></thead><tbody><tr><td>23</td></tr></tbody></table>`
	h := setup(t, g, usersRepo)

	res := h.run(t, `Then I verify row with "Name" = "Person 099" is deleted from "grid" table on "users" page`)
	assert.Equal(t, map[string]int{"pages": 5}, res.Data)
	assert.Equal(t, 5, h.grid.Page())

	_, err := h.fail(t, `Then I verify row with "Name" = "Person 018" is deleted from "grid" table on "users" page`)
	assert.EqualError(t, err, "Row with Name='Person 018' was found on page 4 - deletion verification failed")
}

func TestNotVisibleStep(t *testing.T) {
	g := people(3, 5)
	g.Extra = `<div id="banner" hidden>Saved</div><div id="toast">Oops</div>`
	h := setup(t, g, usersRepo)

	h.run(t, `I should not see "banner" on "users" page`)
	_, err := h.fail(t, `I should not see "toast" on "users" page`)
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))
	assert.EqualError(t, err, "Element toast should not be visible on users page but it is")

	_, err = h.fail(t, `I should not see "footer" on "users" page`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestOpenPageStep(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "users.html")
	require.NoError(t, os.WriteFile(page, []byte(`<html><body><table><thead><tr><th>Name</th></tr></thead><tbody><tr><td>Zed</td></tr></tbody></table></body></html>`), 0o644))

	h := setup(t, people(3, 5), "pages:\n  users:\n    path: "+page+"\n")
	res := h.run(t, `Given I open the "users" page`)
	assert.Equal(t, map[string]string{"url": page}, res.Data)
	h.run(t, `I should find row with "Name" value "Zed" in the table`)

	_, err := h.fail(t, `Given I open the "orders" page`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func orders() *fixture.Grid {
	return &fixture.Grid{
		Headers:  []string{"Name", "Qty", "Status", "Active"},
		Rows:     [][]string{{"Ann", "3", "Open", "OFF"}, {"Bob", "5", "Closed", "ON"}},
		Editable: []string{"Qty", "Status"},
		Choices:  map[string][]string{"Status": {"Open", "Closed", "Hold"}},
		Toggle:   "Active",
		NoPager:  true,
	}
}

func TestEditStep(t *testing.T) {
	h := setup(t, orders(), "")

	res := h.run(t, `When I edit "Status" field to "Hold" in row where "Name" is "Bob" on "orders" page`)
	edit := res.Data.(*widget.EditResult)
	assert.Equal(t, widget.KindSelect, edit.Kind)
	assert.Equal(t, "Hold", edit.Actual)
	assert.Equal(t, "Hold", h.grid.Cell(1, "Status"))

	h.run(t, `When I edit "Qty" field to "11" in row where "Name" is "Ann" on "orders" page`)
	assert.Equal(t, "11", h.grid.Cell(0, "Qty"))

	_, err := h.fail(t, `When I edit "Qty" field to "1" in row where "Name" is "Cy" on "orders" page`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestEditStep_EditableKeyColumn(t *testing.T) {
	g := orders()
	g.Editable = []string{"Name", "Qty"}
	h := setup(t, g, "")

	res := h.run(t, `When I edit "Qty" field to "9" in row where "Name" is "Bob" on "orders" page`)
	assert.Equal(t, "9", res.Data.(*widget.EditResult).Actual)
	assert.Equal(t, "9", h.grid.Cell(1, "Qty"))
	assert.Equal(t, "Bob", h.grid.Cell(1, "Name"))

	res = h.run(t, `When I edit "Name" field to "Annie" in row where "Name" is "Ann" on "orders" page`)
	assert.Equal(t, "Annie", res.Data.(*widget.EditResult).Actual)
	assert.Equal(t, "Annie", h.grid.Cell(0, "Name"))
	assert.Equal(t, "Bob", h.grid.Cell(1, "Name"))
}

func TestEditStep_StaysOnRowPage(t *testing.T) {
	g := people(25, 10)
	g.Editable = []string{"Name", "Status"}
	h := setup(t, g, "")

	h.run(t, `When I edit "Name" field to "Renamed" in row where "Name" is "Person 014" on "people" page`)
	assert.Equal(t, "Renamed", h.grid.Cell(13, "Name"))
	assert.Equal(t, 2, h.grid.Page())

	h.run(t, `When I edit "Status" field to "Away" in row where "Name" is "Renamed" on "people" page`)
	assert.Equal(t, "Away", h.grid.Cell(13, "Status"))
	assert.Equal(t, 2, h.grid.Page())
}

func TestToggleStep(t *testing.T) {
	h := setup(t, orders(), "")

	res := h.run(t, `I set the toggle in the table row where "Name" is "Ann" to "on"`)
	assert.True(t, res.Data.(*widget.ToggleResult).Clicked)
	assert.Equal(t, "ON", h.grid.Cell(0, "Active"))

	res = h.run(t, `I set the toggle in the table row where "Name" is "Bob" to "ON"`)
	assert.False(t, res.Data.(*widget.ToggleResult).Clicked)

	_, err := h.fail(t, `I set the toggle in the table row where "Name" is "Ann" to "maybe"`)
	assert.Contains(t, err.Error(), "invalid toggle state")
}

func TestSelectStep(t *testing.T) {
	g := people(3, 5)
	g.Extra = `<select id="tags" multiple><option>Red</option><option>Green</option><option>Blue</option></select>`
	h := setup(t, g, "pages:\n  prefs:\n    elements:\n      tags: \"#tags\"\n")

	res := h.run(t, `I select "Red, Blue" from "tags" dropdown on "prefs" page`)
	assert.Equal(t, []string{"Red", "Blue"}, res.Data.(*widget.SelectResult).Selected)

	_, err := h.fail(t, `I select "Green, Pink" from "tags" dropdown on "prefs" page`)
	var partial *failure.PartialOperationError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, []string{"Green"}, partial.Applied)
}

const headersRepo = `
pages:
  fields:
    elements:
      firstColumn: "//ul[@id='fields']/li"
  report:
    elements:
      tableHeaders: "//table[@id='grid']//th"
`

func TestHeadersBeforeStep(t *testing.T) {
	g := people(3, 5)
	g.Extra = `<ul id="fields"><li>Name</li><li> </li><li>Email</li></ul>`
	h := setup(t, g, headersRepo)

	res := h.run(t, `I verify values from "fields" table appear as headers in "report" before column "Status"`)
	assert.Equal(t, []string{"Name", "Email"}, res.Data.(*HeaderCheck).Values)

	_, err := h.fail(t, `I verify values from "fields" table appear as headers in "report" before column "Email"`)
	assert.Contains(t, err.Error(), `not before "Email": [Email]`)

	_, err = h.fail(t, `I verify values from "fields" table appear as headers in "report" before column "Total"`)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestUploadSteps(t *testing.T) {
	g := people(3, 5)
	g.Extra = `<label>Resume</label><input type="file" id="cv"><div class="upload-error" hidden>File type not allowed</div>`
	h := setup(t, g, "")
	h.doc.On(htmldoc.EventChange, "//input[@id='cv']", func(d *htmldoc.Document, _ *html.Node) error {
		htmldoc.RemoveAttr(d.Query("//div[@class='upload-error']")[0], "hidden")
		return nil
	})

	path := filepath.Join(t.TempDir(), "cv.exe")
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o644))

	_, err := h.fail(t, `I upload the file "`+path+`.missing" into the "Resume" field`)
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))

	h.run(t, `I upload the file "`+path+`" into the "Resume" field`)
	res := h.run(t, `I should see file upload error "not allowed"`)
	assert.Equal(t, map[string]string{"message": "File type not allowed"}, res.Data)
}

func TestDatePickerStep(t *testing.T) {
	g := people(3, 5)
	g.Extra = `<input id="due"><div class="datepicker" hidden><table><tr>` +
		`<td class="day">14</td><td class="day">15</td><td class="day disabled">16</td></tr></table></div>`
	h := setup(t, g, "pages:\n  tasks:\n    elements:\n      due: \"#due\"\n")
	h.doc.On(htmldoc.EventClick, "//input[@id='due']", func(d *htmldoc.Document, _ *html.Node) error {
		htmldoc.RemoveAttr(d.Query("//div[@class='datepicker']")[0], "hidden")
		return nil
	})
	h.engine.Widgets().Now = func() time.Time { return time.Date(2026, time.October, 15, 8, 0, 0, 0, time.UTC) }

	res := h.run(t, `Then I verify date-picker "due" on "tasks" page for field "pastOnly" enforces date rules`)
	assert.Equal(t, 3, res.Data.(*widget.DateCheck).Checked)

	_, err := h.fail(t, `Then I verify date-picker "due" on "tasks" page for field "futureOnly" enforces date rules`)
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))

	_, err = h.fail(t, `Then I verify date-picker "due" on "tasks" page for field "weekdays" enforces date rules`)
	assert.EqualError(t, err, "Invalid rule 'weekdays'. Expected 'pastOnly' or 'futureOnly'")
}

func TestEveryStepIsCaptured(t *testing.T) {
	h := setup(t, people(12, 5), "")
	h.run(t, `I go to the next page`)
	h.fail(t, `I should find row with "Name" value "Nobody" in the table`)

	entries := h.recorder.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.NotEmpty(t, e.Screenshot, e.Step)
		_, err := os.Stat(e.Screenshot)
		assert.NoError(t, err)
	}
	assert.Equal(t, "002-fail-i-should-find-row-with-name-value-nobody-in-the-table.html", filepath.Base(entries[1].Screenshot))
}

type brokenCamera struct{}

func (brokenCamera) CaptureScreenshot(context.Context) (*platform.Screenshot, error) {
	return nil, errors.New("no target")
}

func TestCaptureFailureFailsPassingStep(t *testing.T) {
	doc, err := people(12, 5).Mount()
	require.NoError(t, err)
	logger := arbor.NewNoOpLogger()
	store, err := artifact.New(t.TempDir(), 0, logger)
	require.NoError(t, err)
	e := New(doc.Provider(), testConfig(), nil, report.New(brokenCamera{}, store, logger), logger)

	res, err := e.Run(context.Background(), `I go to the next page`)
	assert.Equal(t, failure.KindCapture, failure.KindOf(err))
	assert.Equal(t, report.Fail, res.Status)
	assert.Equal(t, failure.KindCapture, res.Kind)
}

func TestRunAll(t *testing.T) {
	lines := []string{
		`Given I go to the next page`,
		`When I dance`,
		`Then I go to the next page`,
	}

	h := setup(t, people(23, 5), "")
	results, passed, err := h.engine.RunAll(context.Background(), lines, true)
	require.Error(t, err)
	assert.Equal(t, `step 2: no step matches "I dance"`, err.Error())
	assert.Equal(t, 1, passed)
	require.Len(t, results, 2)
	assert.Equal(t, report.Fail, results[1].Status)
	assert.Equal(t, failure.KindUnknown, results[1].Kind)
	assert.Equal(t, 2, h.grid.Page())

	h = setup(t, people(23, 5), "")
	results, passed, err = h.engine.RunAll(context.Background(), lines, false)
	require.Error(t, err)
	assert.Equal(t, 2, passed)
	assert.Len(t, results, 3)
	assert.Equal(t, 3, h.grid.Page())
}

func TestRunAll_Cancelled(t *testing.T) {
	h := setup(t, people(23, 5), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, passed, err := h.engine.RunAll(ctx, []string{`I go to the next page`}, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, passed)
	assert.Empty(t, results)
}
