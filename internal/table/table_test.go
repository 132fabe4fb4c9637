package table

import (
	"context"
	"testing"
	"time"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/fixture"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/pagination"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func mount(t *testing.T, g *fixture.Grid) *Table {
	t.Helper()
	doc, err := g.Mount()
	require.NoError(t, err)
	p := doc.Provider()
	logger := arbor.NewNoOpLogger()
	nav := pagination.New(locator.New(p, logger), pagination.Options{
		AnchorTimeout: 200 * time.Millisecond,
		Poll:          5 * time.Millisecond,
	}, logger)
	return New(p, nav, platform.Query{}, logger)
}

func people(n, size int) *fixture.Grid {
	return &fixture.Grid{Headers: fixture.PeopleHeaders, Rows: fixture.People(n), PageSize: size}
}

func TestParseSnapshot(t *testing.T) {
	snap, err := ParseSnapshot(`<table>
<thead><tr><th> Name </th><th>Qty</th></tr></thead>
<tbody>
<tr><td>Ann   Lee</td><td>3</td></tr>
<tr><td>Bob</td><td><b>4</b></td></tr>
</tbody></table>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Qty"}, snap.Headers)
	require.Len(t, snap.Rows, 2)
	assert.Equal(t, model.RowSnapshot{"Ann Lee", "3"}, snap.Rows[0])
	assert.Equal(t, model.RowFingerprint("Ann Lee"), snap.Fingerprint())

	snap, err = ParseSnapshot(`<table><tr><th>A</th></tr><tr><td>1</td></tr></table>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, snap.Headers, "headers without thead")
	assert.Len(t, snap.Rows, 1)
}

func TestFind_AcrossPages(t *testing.T) {
	ctx := context.Background()
	tbl := mount(t, people(47, 10))

	res, err := tbl.Find(ctx, "Email", "person023@example.com")
	require.NoError(t, err)
	assert.True(t, res.Found)
	assert.Equal(t, model.Position{Page: 3, Row: 3}, res.Position)
}

func TestFind_RewindsBeforeSearching(t *testing.T) {
	ctx := context.Background()
	tbl := mount(t, people(30, 10))
	require.NoError(t, tbl.Navigator().GoToPage(ctx, "3"))

	res, err := tbl.Find(ctx, "Name", "Person 002")
	require.NoError(t, err)
	assert.Equal(t, model.Position{Page: 1, Row: 2}, res.Position)
}

func TestFind_AbsentValueNeverStuck(t *testing.T) {
	ctx := context.Background()
	tbl := mount(t, people(55, 10))

	res, err := tbl.Find(ctx, "Name", "Nobody")
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, 6, res.Pages)
}

func TestFind_EmptyTable(t *testing.T) {
	tbl := mount(t, &fixture.Grid{Headers: fixture.PeopleHeaders, PageSize: 10})
	res, err := tbl.Find(context.Background(), "Name", "Person 001")
	require.NoError(t, err)
	assert.False(t, res.Found)
}

func TestFind_MissingColumn(t *testing.T) {
	_, err := mount(t, people(5, 10)).Find(context.Background(), "email", "x")
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err), "matching is case-sensitive")
}

func TestVerifyLastRow(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, mount(t, people(27, 10)).VerifyLastRow(ctx, "Name", "Person 027"))

	g := people(5, 10)
	g.NoPager = true
	require.NoError(t, mount(t, g).VerifyLastRow(ctx, "Name", "Person 005"))

	err := mount(t, people(27, 10)).VerifyLastRow(ctx, "Name", "Person 014")
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))
	assert.EqualError(t, err, "Row with value 'Person 014' in column 'Name' found in row number 4 on page 2, but not in the last row.")

	err = mount(t, people(27, 10)).VerifyLastRow(ctx, "Name", "Ghost")
	assert.EqualError(t, err, "Row with value 'Ghost' in column 'Name' not found in the table.")
}

func TestVerifyAbsent(t *testing.T) {
	ctx := context.Background()

	pages, err := mount(t, people(25, 10)).VerifyAbsent(ctx, "Name", "Deleted Person")
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	_, err = mount(t, people(25, 10)).VerifyAbsent(ctx, "Name", "Person 012")
	assert.EqualError(t, err, "Row with Name='Person 012' was found on page 2 - deletion verification failed")
}

func TestRow_FindsOnLaterPage(t *testing.T) {
	ctx := context.Background()
	g := people(25, 10)
	tbl := mount(t, g)

	row, err := tbl.Row(ctx, "Name", "Person 018")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2, g.Page())

	_, err = tbl.Row(ctx, "Name", "Ghost")
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestHeadersBefore(t *testing.T) {
	headers := []string{"Name", "Q1", "Q2", "Total", "Notes"}

	assert.NoError(t, HeadersBefore(headers, []string{"Q1", "Q2"}, "Total"))

	err := HeadersBefore(headers, []string{"Q1", "Notes", "Q9"}, "Total")
	assert.Equal(t, failure.KindAssertion, failure.KindOf(err))
	assert.Contains(t, err.Error(), "not headers: [Q9]")
	assert.Contains(t, err.Error(), `not before "Total": [Notes]`)

	err = HeadersBefore(headers, []string{"Q1"}, "Sum")
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
}

func TestLocate_PinsRowWhileKeyChanges(t *testing.T) {
	ctx := context.Background()
	g := people(25, 10)
	tbl := mount(t, g)

	n, err := tbl.Locate(ctx, "Name", "Person 014")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, g.Page())

	g.Rows[13][0] = "Renamed"
	require.NoError(t, g.Render())
	row, err := tbl.RowAt(ctx, n)
	require.NoError(t, err)
	text, err := g.Doc().Provider().Inspector.Text(ctx, row)
	require.NoError(t, err)
	assert.Contains(t, text, "Renamed")
	assert.Equal(t, 2, g.Page(), "resolving by position never pages")

	_, err = tbl.RowAt(ctx, 11)
	assert.Equal(t, failure.KindElementNotFound, failure.KindOf(err))
	assert.Equal(t, 2, g.Page())
}

func TestScopedTable_IgnoresEarlierTable(t *testing.T) {
	ctx := context.Background()
	g := people(25, 10)
	g.Before = `<table id="summary"><thead><tr><th>Total</th></tr></thead><tbody><tr><td>25</td></tr></tbody></table>`
	doc, err := g.Mount()
	require.NoError(t, err)
	p := doc.Provider()
	logger := arbor.NewNoOpLogger()
	nav := pagination.New(locator.New(p, logger), pagination.Options{
		AnchorTimeout: 200 * time.Millisecond,
		Poll:          5 * time.Millisecond,
	}, logger)
	tbl := New(p, nav, platform.XPath(`//table[@id='grid']`), logger)

	pages, err := tbl.VerifyAbsent(ctx, "Name", "Ghost")
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	res, err := tbl.Find(ctx, "Name", "Person 022")
	require.NoError(t, err)
	assert.Equal(t, model.Position{Page: 3, Row: 2}, res.Position)
}
