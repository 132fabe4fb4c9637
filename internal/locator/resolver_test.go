package locator

import (
	"context"
	"testing"

	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/platform/htmldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func resolver(t *testing.T, markup string) (*Resolver, *platform.Provider) {
	t.Helper()
	d, err := htmldoc.Parse(markup)
	require.NoError(t, err)
	p := d.Provider()
	return New(p, arbor.NewNoOpLogger()), p
}

func text(t *testing.T, p *platform.Provider, el platform.Element) string {
	t.Helper()
	s, err := p.Inspector.Text(context.Background(), el)
	require.NoError(t, err)
	return s
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `'plain'`},
		{"O'Brien", `"O'Brien"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat('it', "'", 's "x"')`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Literal(tt.in), tt.in)
	}
}

func TestLiteral_MatchesQuotedValues(t *testing.T) {
	r, p := resolver(t, `<html><body><p>it's "quoted"</p></body></html>`)
	m, err := r.Resolve(context.Background(), nil, []Strategy{
		x("text", `//p[normalize-space(.)=`+Literal(`it's "quoted"`)+`]`),
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, `it's "quoted"`, text(t, p, m.Element))
}

func TestResolve_FirstVisibleMatchWins(t *testing.T) {
	r, p := resolver(t, `<html><body>
<button class="a" hidden>hidden A</button>
<button class="b">B</button>
<button class="a">A</button>
</body></html>`)

	m, err := r.Resolve(context.Background(), nil, []Strategy{
		x("a", `//button[@class='a']`),
		x("b", `//button[@class='b']`),
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "a", m.Strategy)
	assert.Equal(t, "A", text(t, p, m.Element))
}

func TestResolve_FallsThroughToLaterStrategy(t *testing.T) {
	r, _ := resolver(t, `<html><body><button class="b">B</button></body></html>`)

	m, err := r.Resolve(context.Background(), nil, []Strategy{
		x("a", `//button[@class='a']`),
		x("b", `//button[@class='b']`),
	})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "b", m.Strategy)
}

func TestResolve_NoMatchIsNotAnError(t *testing.T) {
	r, _ := resolver(t, `<html><body></body></html>`)
	m, err := r.Resolve(context.Background(), nil, NextButton())
	require.NoError(t, err)
	assert.Nil(t, m)

	el, err := r.First(context.Background(), nil, NextButton())
	require.NoError(t, err)
	assert.Nil(t, el)
}

func TestResolve_InvalidQueryIsAnError(t *testing.T) {
	r, _ := resolver(t, `<html><body></body></html>`)
	_, err := r.Resolve(context.Background(), nil, []Strategy{x("broken", `//div[`)})
	assert.ErrorContains(t, err, "broken")
}

func TestResolve_AllowHiddenAndAccept(t *testing.T) {
	r, p := resolver(t, `<html><body>
<label>Resume</label><input type="file" style="display:none" name="cv">
<button disabled>1</button><button>2</button>
</body></html>`)
	ctx := context.Background()

	m, err := r.Resolve(ctx, nil, FileInput("Resume"))
	require.NoError(t, err)
	require.NotNil(t, m, "hidden file inputs still resolve")
	name, ok, err := p.Inspector.Attribute(ctx, m.Element, "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cv", name)

	m, err = r.Resolve(ctx, nil, []Strategy{{Name: "enabled", Query: platform.XPath("//button"), Accept: Enabled}})
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "2", text(t, p, m.Element))
}

func TestResolveAll_ReturnsEveryMatchOfFirstHit(t *testing.T) {
	r, p := resolver(t, `<html><body><nav aria-label="Pagination">
<a>Prev</a><a>1</a><a>2</a><a>3</a><a>Next</a>
</nav></body></html>`)
	ctx := context.Background()

	nav, err := r.First(ctx, nil, PaginationContainer())
	require.NoError(t, err)
	require.NotNil(t, nav)

	els, name, err := r.ResolveAll(ctx, nav, PageButtons())
	require.NoError(t, err)
	assert.Equal(t, "numbered-control", name)
	var labels []string
	for _, el := range els {
		labels = append(labels, text(t, p, el))
	}
	assert.ElementsMatch(t, []string{"1", "2", "3"}, labels)
}

func TestPaginationStrategies(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		target func() []Strategy
		want   string
	}{
		{
			name:   "next by aria label",
			markup: `<div class="pagination"><button aria-label="Next page">&gt;</button></div>`,
			target: NextButton,
			want:   "aria-label",
		},
		{
			name:   "next by glyph",
			markup: `<ul class="pagination"><li><a>‹</a></li><li><a>›</a></li></ul>`,
			target: NextButton,
			want:   "text",
		},
		{
			name:   "prev by rel",
			markup: `<div class="pager"><a rel="prev" href="#">back</a></div>`,
			target: PrevButton,
			want:   "rel",
		},
		{
			name:   "active by aria-current",
			markup: `<nav class="pagination"><a>1</a><a aria-current="page">2</a></nav>`,
			target: ActivePage,
			want:   "aria-current",
		},
		{
			name:   "active by class",
			markup: `<ul class="pagination"><li class="active"><span>4</span></li></ul>`,
			target: ActivePage,
			want:   "active-item",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := resolver(t, `<html><body>`+tt.markup+`</body></html>`)
			ctx := context.Background()
			container, err := r.First(ctx, nil, PaginationContainer())
			require.NoError(t, err)
			require.NotNil(t, container)

			m, err := r.Resolve(ctx, container, tt.target())
			require.NoError(t, err)
			require.NotNil(t, m)
			assert.Equal(t, tt.want, m.Strategy)
		})
	}
}

func TestPageNumber(t *testing.T) {
	r, p := resolver(t, `<html><body><div class="pagination">
<button>1</button><button>12</button><button data-page="2">two</button>
</div></body></html>`)
	ctx := context.Background()
	container, err := r.First(ctx, nil, PaginationContainer())
	require.NoError(t, err)

	m, err := r.Resolve(ctx, container, PageNumber("2"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "data-page", m.Strategy)

	m, err = r.Resolve(ctx, container, PageNumber("1"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "1", text(t, p, m.Element), "exact text, not a prefix of 12")
}

func TestDropdownOption_PrefersValueAttribute(t *testing.T) {
	r, _ := resolver(t, `<html><body>
<ul><li>Blue</li></ul>
<div data-value="Blue">Blue (navy)</div>
</body></html>`)
	m, err := r.Resolve(context.Background(), nil, DropdownOption("Blue"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "data-value", m.Strategy)
}

func TestDropdownTriggers_SelfFirst(t *testing.T) {
	r, _ := resolver(t, `<html><body><div id="colour" class="picker"><button>open</button></div></body></html>`)
	ctx := context.Background()
	control, err := r.First(ctx, nil, []Strategy{x("id", `//*[@id='colour']`)})
	require.NoError(t, err)

	m, err := r.Resolve(ctx, control, DropdownTriggers())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "self", m.Strategy)
}

func TestRowScopedTargets(t *testing.T) {
	r, _ := resolver(t, `<html><body><table><tbody>
<tr id="r1"><td>Ann</td><td><input type="checkbox"></td><td><i class="icon-edit"></i></td></tr>
<tr id="r2"><td>Bob</td><td><span role="switch" aria-checked="true"></span></td><td><button aria-label="Save">S</button></td></tr>
</tbody></table></body></html>`)
	ctx := context.Background()
	row1, err := r.First(ctx, nil, []Strategy{x("r1", `//tr[@id='r1']`)})
	require.NoError(t, err)
	row2, err := r.First(ctx, nil, []Strategy{x("r2", `//tr[@id='r2']`)})
	require.NoError(t, err)

	m, err := r.Resolve(ctx, row1, RowToggle())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "checkbox", m.Strategy)

	m, err = r.Resolve(ctx, row2, RowToggle())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "aria-switch", m.Strategy)

	m, err = r.Resolve(ctx, row1, EditAffordance())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "icon", m.Strategy)

	m, err = r.Resolve(ctx, row2, SaveAffordance())
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "aria-label", m.Strategy)

	m, err = r.Resolve(ctx, row1, SaveAffordance())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestUploadError(t *testing.T) {
	r, _ := resolver(t, `<html><body>
<div class="error" hidden>File too large</div>
<span class="field-error">File too large (max 2MB)</span>
</body></html>`)
	m, err := r.Resolve(context.Background(), nil, UploadError("File too large"))
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "error-class", m.Strategy)
}
