package widget

import (
	"context"
	"strings"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/wait"
)

// ToggleResult reports a row toggle operation.
type ToggleResult struct {
	Before  bool `yaml:"before"  json:"before"`
	After   bool `yaml:"after"   json:"after"`
	Clicked bool `yaml:"clicked" json:"clicked"`
}

// SetToggle switches the row's toggle to on. A toggle already in that state
// is left alone.
func (w *Widgets) SetToggle(ctx context.Context, row ElementFunc, on bool) (*ToggleResult, error) {
	find := func(ctx context.Context) (platform.Element, error) {
		r, err := row(ctx)
		if err != nil {
			return nil, err
		}
		el, err := w.resolver.First(ctx, r, locator.RowToggle())
		if err != nil {
			return nil, err
		}
		if el == nil {
			return nil, &failure.ElementNotFoundError{What: "toggle", Scope: "row"}
		}
		return el, nil
	}

	el, err := find(ctx)
	if err != nil {
		return nil, err
	}
	res := &ToggleResult{}
	if res.Before, err = w.ToggleState(ctx, el); err != nil {
		return nil, err
	}
	res.After = res.Before
	if res.Before == on {
		w.logger.Info().Str("state", onOff(on)).Msg("Toggle already in desired state")
		return res, nil
	}

	if err := w.provider.Inputter.Click(ctx, el); err != nil {
		return res, err
	}
	res.Clicked = true
	if err := wait.Settle(ctx, w.timings.Toggle); err != nil {
		return res, err
	}
	if el, err = find(ctx); err != nil {
		return res, err
	}
	if res.After, err = w.ToggleState(ctx, el); err != nil {
		return res, err
	}
	if res.After != on {
		return res, failure.Mismatch("toggle state", onOff(on), onOff(res.After))
	}
	w.logger.Info().Str("state", onOff(on)).Msg("Toggle switched")
	return res, nil
}

// ToggleState reads a switch: checkbox inputs by their checked state,
// others by aria-checked, aria-pressed, a checked attribute or an
// active/on/checked class.
func (w *Widgets) ToggleState(ctx context.Context, el platform.Element) (bool, error) {
	in := w.provider.Inspector
	typ, _, err := in.Attribute(ctx, el, "type")
	if err != nil {
		return false, err
	}
	if strings.EqualFold(typ, "checkbox") {
		return in.IsSelected(ctx, el)
	}
	for _, name := range []string{"aria-checked", "aria-pressed"} {
		v, _, err := in.Attribute(ctx, el, name)
		if err != nil {
			return false, err
		}
		if v == "true" {
			return true, nil
		}
	}
	checked, ok, err := in.Attribute(ctx, el, "checked")
	if err != nil {
		return false, err
	}
	if ok && checked != "false" {
		return true, nil
	}
	class, _, err := in.Attribute(ctx, el, "class")
	if err != nil {
		return false, err
	}
	for _, c := range strings.Fields(class) {
		switch c {
		case "active", "on", "checked", "is-checked":
			return true, nil
		}
	}
	return false, nil
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
