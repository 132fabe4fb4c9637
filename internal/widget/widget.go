// Package widget drives composite controls: inline-editable rows,
// multi-select dropdowns, row toggles, date pickers and file uploads. Each
// operation re-resolves its elements after every click; nothing is cached
// across a re-render.
package widget

import (
	"context"
	"strings"
	"time"

	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/ternarybob/arbor"
)

// Timings holds the settle delays and waits applied between actions.
type Timings struct {
	Edit     time.Duration
	Save     time.Duration
	Verify   time.Duration
	Toggle   time.Duration
	Picker   time.Duration
	Option   time.Duration
	Dropdown time.Duration
	Poll     time.Duration
}

// Widgets carries the shared collaborators of every widget operation.
type Widgets struct {
	resolver *locator.Resolver
	provider *platform.Provider
	timings  Timings
	logger   arbor.ILogger
	// Now is the reference clock for date rules.
	Now func() time.Time
}

func New(resolver *locator.Resolver, timings Timings, logger arbor.ILogger) *Widgets {
	return &Widgets{
		resolver: resolver,
		provider: resolver.Provider(),
		timings:  timings,
		logger:   logger,
		Now:      time.Now,
	}
}

// ElementFunc re-resolves an element. Rows and controls are looked up again
// after every click because the application may have re-rendered them.
type ElementFunc func(ctx context.Context) (platform.Element, error)

// ControlKind is how a field is written and read back.
type ControlKind string

const (
	KindSelect    ControlKind = "select"
	KindCheck     ControlKind = "check"
	KindText      ControlKind = "text"
	KindMultiline ControlKind = "multiline"
	KindOther     ControlKind = "other"
)

func (w *Widgets) kindOf(ctx context.Context, el platform.Element) (ControlKind, error) {
	tag, err := w.provider.Inspector.TagName(ctx, el)
	if err != nil {
		return "", err
	}
	switch tag {
	case "select":
		return KindSelect, nil
	case "textarea":
		return KindMultiline, nil
	case "input":
		typ, _, err := w.provider.Inspector.Attribute(ctx, el, "type")
		if err != nil {
			return "", err
		}
		switch strings.ToLower(typ) {
		case "checkbox", "radio":
			return KindCheck, nil
		default:
			return KindText, nil
		}
	default:
		return KindOther, nil
	}
}

// usable reports whether el is enabled and carries no disabled marker.
func (w *Widgets) usable(ctx context.Context, el platform.Element) (bool, error) {
	enabled, err := w.provider.Inspector.IsEnabled(ctx, el)
	if err != nil || !enabled {
		return false, err
	}
	class, _, err := w.provider.Inspector.Attribute(ctx, el, "class")
	if err != nil {
		return false, err
	}
	return !strings.Contains(class, "disabled"), nil
}
