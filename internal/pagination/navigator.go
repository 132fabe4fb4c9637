// Package pagination drives a table's pagination control. Page position is
// always read back from the control; the step counter only bounds loops and
// labels log lines.
package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/wait"
	"github.com/ternarybob/arbor"
)

// Options tunes navigation waits and bounds.
type Options struct {
	// MaxSteps bounds every multi-page traversal.
	MaxSteps int
	// AnchorTimeout bounds the wait for the first body cell after a click.
	AnchorTimeout time.Duration
	// LoadingTimeout bounds the wait for busy indicators to clear. Zero skips
	// the wait. An indicator that never clears is not an error.
	LoadingTimeout time.Duration
	Poll           time.Duration
	Settle         time.Duration
	// Anchor selects the first cell of the first body row.
	Anchor platform.Query
	// Rows selects the body rows of the table.
	Rows platform.Query
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		MaxSteps:       50,
		AnchorTimeout:  10 * time.Second,
		LoadingTimeout: 5 * time.Second,
		Poll:           250 * time.Millisecond,
		Settle:         time.Second,
		Anchor:         platform.XPath(`(//table//tbody//tr)[1]/td[1]`),
		Rows:           platform.XPath(`//table//tbody//tr`),
	}
}

// Navigator moves a table between pages.
type Navigator struct {
	resolver *locator.Resolver
	provider *platform.Provider
	opts     Options
	logger   arbor.ILogger
	steps    int
}

func New(resolver *locator.Resolver, opts Options, logger arbor.ILogger) *Navigator {
	def := DefaultOptions()
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.AnchorTimeout <= 0 {
		opts.AnchorTimeout = def.AnchorTimeout
	}
	if opts.Anchor.Expr == "" {
		opts.Anchor = def.Anchor
	}
	if opts.Rows.Expr == "" {
		opts.Rows = def.Rows
	}
	return &Navigator{
		resolver: resolver,
		provider: resolver.Provider(),
		opts:     opts,
		logger:   logger,
	}
}

// Options returns the effective options.
func (n *Navigator) Options() Options { return n.opts }

// ForScope returns a navigator whose anchor and rows are read from the table
// selected by scope rather than the first table in the document. The copy
// shares the resolver and starts its own step count.
func (n *Navigator) ForScope(scope platform.Query) *Navigator {
	c := *n
	c.steps = 0
	c.opts.Anchor, c.opts.Rows = ScopedQueries(scope)
	return &c
}

// ScopedQueries derives the anchor and row queries for a table scope.
func ScopedQueries(scope platform.Query) (anchor, rows platform.Query) {
	if scope.Kind == platform.ByCSS {
		return platform.CSS(scope.Expr + " tbody > tr:first-of-type > td:first-of-type"),
			platform.CSS(scope.Expr + " tbody > tr")
	}
	return platform.XPath("(" + scope.Expr + "//tbody/tr[td])[1]/td[1]"),
		platform.XPath(scope.Expr + "//tbody/tr")
}

// Steps returns how many page clicks this navigator has made.
func (n *Navigator) Steps() int { return n.steps }

// Container resolves the pagination control, or nil when the page has none.
func (n *Navigator) Container(ctx context.Context) (platform.Element, error) {
	return n.resolver.First(ctx, nil, locator.PaginationContainer())
}

func (n *Navigator) requireContainer(ctx context.Context) (platform.Element, error) {
	c, err := n.Container(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, failure.NotFound("pagination control", "")
	}
	return c, nil
}

// Exists reports whether a pagination control with page buttons or
// next/previous affordances is present.
func (n *Navigator) Exists(ctx context.Context) (bool, error) {
	c, err := n.Container(ctx)
	if err != nil || c == nil {
		return false, err
	}
	buttons, _, err := n.resolver.ResolveAll(ctx, c, locator.PageButtons())
	if err != nil {
		return false, err
	}
	if len(buttons) > 0 {
		return true, nil
	}
	for _, s := range [][]locator.Strategy{locator.NextButton(), locator.PrevButton()} {
		el, err := n.resolver.First(ctx, c, s)
		if err != nil {
			return false, err
		}
		if el != nil {
			return true, nil
		}
	}
	return false, nil
}

// HasNext reports whether a usable next affordance is present.
func (n *Navigator) HasNext(ctx context.Context) (bool, error) {
	return n.has(ctx, locator.NextButton())
}

// HasPrev reports whether a usable previous affordance is present.
func (n *Navigator) HasPrev(ctx context.Context) (bool, error) {
	return n.has(ctx, locator.PrevButton())
}

func (n *Navigator) has(ctx context.Context, strategies []locator.Strategy) (bool, error) {
	c, err := n.Container(ctx)
	if err != nil || c == nil {
		return false, err
	}
	btn, err := n.resolver.First(ctx, c, strategies)
	if err != nil || btn == nil {
		return false, err
	}
	return n.usable(ctx, btn)
}

// usable rejects affordances that are disabled natively, by aria-disabled,
// or by a "disabled" class on the control or its list item.
func (n *Navigator) usable(ctx context.Context, el platform.Element) (bool, error) {
	enabled, err := n.provider.Inspector.IsEnabled(ctx, el)
	if err != nil || !enabled {
		return false, err
	}
	marked, err := n.markedDisabled(ctx, el)
	if err != nil || marked {
		return false, err
	}
	item, err := n.provider.FindOne(ctx, el, platform.XPath("parent::li"))
	if err != nil {
		return false, err
	}
	if item != nil {
		marked, err := n.markedDisabled(ctx, item)
		if err != nil || marked {
			return false, err
		}
	}
	return true, nil
}

func (n *Navigator) markedDisabled(ctx context.Context, el platform.Element) (bool, error) {
	class, _, err := n.provider.Inspector.Attribute(ctx, el, "class")
	if err != nil {
		return false, err
	}
	if strings.Contains(class, "disabled") {
		return true, nil
	}
	aria, _, err := n.provider.Inspector.Attribute(ctx, el, "aria-disabled")
	if err != nil {
		return false, err
	}
	return aria == "true", nil
}

// CurrentPage returns the label of the active page marker, "1" when there
// is none.
func (n *Navigator) CurrentPage(ctx context.Context) (string, error) {
	c, err := n.Container(ctx)
	if err != nil || c == nil {
		return "1", err
	}
	active, err := n.resolver.First(ctx, c, locator.ActivePage())
	if err != nil || active == nil {
		return "1", err
	}
	label, err := n.provider.Inspector.Text(ctx, active)
	if err != nil {
		return "", err
	}
	if label = strings.TrimSpace(label); label == "" {
		return "1", nil
	}
	return label, nil
}

// State reads the control as it is rendered now.
func (n *Navigator) State(ctx context.Context) (model.PaginationState, error) {
	var s model.PaginationState
	var err error
	if s.HasNext, err = n.HasNext(ctx); err != nil {
		return s, err
	}
	if s.HasPrev, err = n.HasPrev(ctx); err != nil {
		return s, err
	}
	s.CurrentPageLabel, err = n.CurrentPage(ctx)
	return s, err
}

// Fingerprint returns the trimmed text of the first body cell, "" for an
// empty table.
func (n *Navigator) Fingerprint(ctx context.Context) (model.RowFingerprint, error) {
	el, err := n.provider.FindOne(ctx, nil, n.opts.Anchor)
	if err != nil || el == nil {
		return "", err
	}
	text, err := n.provider.Inspector.Text(ctx, el)
	if err != nil {
		return "", err
	}
	return model.RowFingerprint(strings.TrimSpace(text)), nil
}

// Advance moves to the next page and fails when the rendered rows did not
// change.
func (n *Navigator) Advance(ctx context.Context) error {
	return n.step(ctx, "next", locator.NextButton())
}

// Retreat moves to the previous page and fails when the rendered rows did
// not change.
func (n *Navigator) Retreat(ctx context.Context) error {
	return n.step(ctx, "previous", locator.PrevButton())
}

func (n *Navigator) step(ctx context.Context, direction string, strategies []locator.Strategy) error {
	c, err := n.requireContainer(ctx)
	if err != nil {
		return err
	}
	btn, err := n.resolver.First(ctx, c, strategies)
	if err != nil {
		return err
	}
	if btn == nil {
		return failure.NotFound(direction+" button", "")
	}
	ok, err := n.usable(ctx, btn)
	if err != nil {
		return err
	}
	if !ok {
		return failure.Assertf("no %s page: %s button is disabled", direction, direction)
	}

	before, err := n.Fingerprint(ctx)
	if err != nil {
		return err
	}
	n.steps++
	if err := n.provider.Inputter.Click(ctx, btn); err != nil {
		return err
	}
	if err := n.awaitTable(ctx); err != nil {
		return err
	}
	after, err := n.Fingerprint(ctx)
	if err != nil {
		return err
	}
	if after == before {
		return &failure.NavigationStuckError{Direction: direction, Attempts: 1, Fingerprint: string(after)}
	}
	n.logger.Info().
		Int("step", n.steps).
		Str("direction", direction).
		Str("from", string(before)).
		Str("to", string(after)).
		Msg("Page changed")
	return nil
}

// awaitTable blocks until busy indicators clear and the first body cell is
// present, then settles.
func (n *Navigator) awaitTable(ctx context.Context) error {
	if n.opts.LoadingTimeout > 0 {
		err := wait.Gone(ctx, wait.Absence{
			Options:          wait.Options{Timeout: n.opts.LoadingTimeout, Interval: n.opts.Poll},
			TimeoutIsSuccess: true,
		}, "loading indicator", func(ctx context.Context) (bool, error) {
			el, err := n.resolver.First(ctx, nil, locator.LoadingIndicator())
			return el != nil, err
		})
		if err != nil {
			return err
		}
	}
	err := wait.Until(ctx, wait.Options{Timeout: n.opts.AnchorTimeout, Interval: n.opts.Poll}, "table rows", func(ctx context.Context) (bool, error) {
		return n.provider.Present(ctx, nil, n.opts.Anchor)
	})
	if err != nil {
		return err
	}
	return wait.Settle(ctx, n.opts.Settle)
}

// ToLastPage advances until next is unavailable and returns the number of
// steps taken.
func (n *Navigator) ToLastPage(ctx context.Context) (int, error) {
	return n.traverse(ctx, "last", n.HasNext, n.Advance)
}

// ToFirstPage retreats until previous is unavailable and returns the number
// of steps taken.
func (n *Navigator) ToFirstPage(ctx context.Context) (int, error) {
	return n.traverse(ctx, "first", n.HasPrev, n.Retreat)
}

func (n *Navigator) traverse(ctx context.Context, direction string, more func(context.Context) (bool, error), step func(context.Context) error) (int, error) {
	for steps := 0; ; steps++ {
		ok, err := more(ctx)
		if err != nil {
			return steps, err
		}
		if !ok {
			n.logger.Debug().Str("direction", direction).Int("steps", steps).Msg("Reached end of page range")
			return steps, nil
		}
		if steps >= n.opts.MaxSteps {
			return steps, &failure.NavigationStuckError{Direction: direction, Attempts: steps, Bound: n.opts.MaxSteps}
		}
		if err := step(ctx); err != nil {
			return steps, err
		}
	}
}

// Visit inspects the current page. Returning true stops the walk.
type Visit func(ctx context.Context, page int) (bool, error)

// Walk calls visit for the current page and then for every following page,
// advancing while next is available. It returns the 1-based index, relative
// to where the walk started, of the last page visited.
func (n *Navigator) Walk(ctx context.Context, visit Visit) (int, error) {
	for page := 1; ; page++ {
		stop, err := visit(ctx, page)
		if err != nil || stop {
			return page, err
		}
		more, err := n.HasNext(ctx)
		if err != nil {
			return page, err
		}
		if !more {
			return page, nil
		}
		if page-1 >= n.opts.MaxSteps {
			return page, &failure.NavigationStuckError{Direction: "last", Attempts: page - 1, Bound: n.opts.MaxSteps}
		}
		if err := n.Advance(ctx); err != nil {
			return page, err
		}
	}
}

// GoToPage clicks the numbered button for label and checks the active page
// marker follows.
func (n *Navigator) GoToPage(ctx context.Context, label string) error {
	c, err := n.requireContainer(ctx)
	if err != nil {
		return err
	}
	btn, err := n.resolver.First(ctx, c, locator.PageNumber(label))
	if err != nil {
		return err
	}
	if btn == nil {
		return &failure.ElementNotFoundError{What: "page number button", Name: label, Scope: "pagination bar"}
	}
	n.steps++
	if err := n.provider.Inputter.Click(ctx, btn); err != nil {
		return err
	}
	if err := n.awaitTable(ctx); err != nil {
		return err
	}
	current, err := n.CurrentPage(ctx)
	if err != nil {
		return err
	}
	if current != label {
		return failure.Mismatch("current page", label, current)
	}
	n.logger.Info().Str("page", label).Msg("Navigated to page")
	return nil
}

// SetRowsPerPage picks size in the page-size control and checks the table
// renders at most that many rows.
func (n *Navigator) SetRowsPerPage(ctx context.Context, size string, optionTimeout time.Duration) error {
	control, err := n.resolver.First(ctx, nil, locator.RowsPerPageControl())
	if err != nil {
		return err
	}
	if control == nil {
		return failure.NotFound("rows per page control", "")
	}
	tag, err := n.provider.Inspector.TagName(ctx, control)
	if err != nil {
		return err
	}
	if tag == "select" {
		if err := n.provider.Chooser.SelectByText(ctx, control, size); err != nil {
			if err := n.provider.Chooser.SelectByValue(ctx, control, size); err != nil {
				return &failure.ElementNotFoundError{What: "rows per page option", Name: size}
			}
		}
	} else {
		if err := n.provider.Inputter.Click(ctx, control); err != nil {
			return err
		}
		var option platform.Element
		err := wait.Until(ctx, wait.Options{Timeout: optionTimeout, Interval: n.opts.Poll}, "rows per page option "+size, func(ctx context.Context) (bool, error) {
			el, err := n.resolver.First(ctx, control, locator.RowsPerPageOption(size))
			option = el
			return el != nil, err
		})
		if err != nil {
			return &failure.ElementNotFoundError{What: "rows per page option", Name: size}
		}
		if err := n.provider.Inputter.Click(ctx, option); err != nil {
			return err
		}
	}
	if err := n.awaitTable(ctx); err != nil {
		return err
	}

	want, convErr := parsePositive(size)
	if convErr != nil {
		return nil
	}
	rows, err := n.provider.Finder.FindAll(ctx, nil, n.opts.Rows)
	if err != nil {
		return err
	}
	if len(rows) > want {
		return failure.Assertf("table shows %d rows after selecting %s rows per page", len(rows), size)
	}
	n.logger.Info().Str("size", size).Int("rows", len(rows)).Msg("Rows per page changed")
	return nil
}

// ControlReport describes a verified pagination control.
type ControlReport struct {
	Pages []string              `yaml:"pages" json:"pages"`
	State model.PaginationState `yaml:"state" json:"state"`
}

// VerifyControl checks the control is present and carries numbered pages,
// a next or previous affordance and an active page marker.
func (n *Navigator) VerifyControl(ctx context.Context) (*ControlReport, error) {
	c, err := n.requireContainer(ctx)
	if err != nil {
		return nil, err
	}
	buttons, _, err := n.resolver.ResolveAll(ctx, c, locator.PageButtons())
	if err != nil {
		return nil, err
	}
	if len(buttons) == 0 {
		return nil, failure.NotFound("page number buttons", "")
	}
	report := &ControlReport{}
	for _, b := range buttons {
		label, err := n.provider.Inspector.Text(ctx, b)
		if err != nil {
			return nil, err
		}
		report.Pages = append(report.Pages, strings.TrimSpace(label))
	}

	next, err := n.resolver.First(ctx, c, locator.NextButton())
	if err != nil {
		return nil, err
	}
	prev, err := n.resolver.First(ctx, c, locator.PrevButton())
	if err != nil {
		return nil, err
	}
	if next == nil && prev == nil {
		return nil, failure.NotFound("next or previous button", "")
	}
	active, err := n.resolver.First(ctx, c, locator.ActivePage())
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, failure.NotFound("active page indicator", "")
	}
	if report.State, err = n.State(ctx); err != nil {
		return nil, err
	}
	return report, nil
}

// Traversal summarises a full walk over the page range.
type Traversal struct {
	Pages        int                    `yaml:"pages"        json:"pages"`
	Forward      int                    `yaml:"forward"      json:"forward"`
	Back         int                    `yaml:"back"         json:"back"`
	Fingerprints []model.RowFingerprint `yaml:"fingerprints" json:"fingerprints"`
}

// TraverseAll rewinds to the first page, walks forward to the last page and
// back again, and checks the table returned to where it started. Each step
// must change the rendered rows, so pages that merely share a first cell
// elsewhere in the range are fine.
func (n *Navigator) TraverseAll(ctx context.Context) (*Traversal, error) {
	if _, err := n.requireContainer(ctx); err != nil {
		return nil, err
	}
	if _, err := n.ToFirstPage(ctx); err != nil {
		return nil, err
	}
	origin, err := n.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}

	t := &Traversal{}
	pages, err := n.Walk(ctx, func(ctx context.Context, page int) (bool, error) {
		fp, err := n.Fingerprint(ctx)
		if err != nil {
			return false, err
		}
		t.Fingerprints = append(t.Fingerprints, fp)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	t.Pages = pages
	t.Forward = pages - 1

	if t.Back, err = n.ToFirstPage(ctx); err != nil {
		return nil, err
	}
	end, err := n.Fingerprint(ctx)
	if err != nil {
		return nil, err
	}
	if end != origin {
		return nil, failure.Mismatch("first row after returning to the first page", string(origin), string(end))
	}
	return t, nil
}

func parsePositive(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("not a positive count: %q", s)
	}
	return v, nil
}
