package widget

import (
	"context"
	"testing"

	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/platform/htmldoc"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func widgets(t *testing.T, doc *htmldoc.Document) (*Widgets, *platform.Provider) {
	t.Helper()
	p := doc.Provider()
	logger := arbor.NewNoOpLogger()
	return New(locator.New(p, logger), Timings{}, logger), p
}

func parse(t *testing.T, markup string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse(markup)
	require.NoError(t, err)
	return doc
}

// find returns an ElementFunc for the first match of an XPath expression.
func find(p *platform.Provider, expr string) ElementFunc {
	return func(ctx context.Context) (platform.Element, error) {
		el, err := p.FindOne(ctx, nil, platform.XPath(expr))
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, &notFound{expr}
		}
		return el, nil
	}
}

type notFound struct{ expr string }

func (e *notFound) Error() string { return "no match for " + e.expr }
