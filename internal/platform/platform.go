package platform

import "context"

// Element is an opaque handle to a node on the live page. A handle is only
// meaningful until the next click, navigation or re-render; callers resolve
// elements again instead of holding on to them.
type Element interface {
	// Ref identifies the node within its backend, for logs only.
	Ref() string
}

// Finder resolves structural queries against the page.
type Finder interface {
	// FindAll returns every element matching q under scope, in document
	// order. A nil scope means the whole document.
	FindAll(ctx context.Context, scope Element, q Query) ([]Element, error)
}

// Inspector reads element state.
type Inspector interface {
	TagName(ctx context.Context, el Element) (string, error)
	// Text returns the rendered text of el with whitespace collapsed.
	Text(ctx context.Context, el Element) (string, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)
	// Value returns the current form value of an input, textarea or select.
	Value(ctx context.Context, el Element) (string, error)
	CSSValue(ctx context.Context, el Element, property string) (string, error)
	OuterHTML(ctx context.Context, el Element) (string, error)
	IsDisplayed(ctx context.Context, el Element) (bool, error)
	IsEnabled(ctx context.Context, el Element) (bool, error)
	// IsSelected reports the checked state of checkboxes and radios and the
	// selected state of options.
	IsSelected(ctx context.Context, el Element) (bool, error)
}

// Inputter performs user input on elements.
type Inputter interface {
	Click(ctx context.Context, el Element) error
	Type(ctx context.Context, el Element, text string) error
	Clear(ctx context.Context, el Element) error
	// SetFiles attaches local files to a file input.
	SetFiles(ctx context.Context, el Element, paths []string) error
}

// Chooser drives native select elements.
type Chooser interface {
	// SelectByText selects the option whose trimmed text equals text. It
	// returns ErrNoSuchOption when none matches.
	SelectByText(ctx context.Context, el Element, text string) error
	// SelectByValue selects the option whose value attribute equals value.
	SelectByValue(ctx context.Context, el Element, value string) error
	// SelectedTexts returns the trimmed text of every selected option.
	SelectedTexts(ctx context.Context, el Element) ([]string, error)
	IsMultiple(ctx context.Context, el Element) (bool, error)
}

// Browser controls the page as a whole.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
}

// Screenshotter captures the current viewport.
type Screenshotter interface {
	CaptureScreenshot(ctx context.Context) (*Screenshot, error)
}
