package widget

import (
	"context"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/wait"
)

// SelectResult reports a multi-select operation.
type SelectResult struct {
	Native   bool     `yaml:"native"             json:"native"`
	Multiple bool     `yaml:"multiple"           json:"multiple"`
	Applied  []string `yaml:"applied"            json:"applied"`
	Selected []string `yaml:"selected,omitempty" json:"selected,omitempty"`
}

// SelectValues applies each value of req in order. Any value that cannot be
// applied aborts the operation with a PartialOperationError; values applied
// before it do not make the operation a success.
func (w *Widgets) SelectValues(ctx context.Context, control ElementFunc, req model.SelectionRequest) (*SelectResult, error) {
	el, err := control(ctx)
	if err != nil {
		return nil, err
	}
	tag, err := w.provider.Inspector.TagName(ctx, el)
	if err != nil {
		return nil, err
	}
	if tag == "select" {
		return w.selectNative(ctx, control, req)
	}
	return w.selectCustom(ctx, control, req)
}

func (w *Widgets) selectNative(ctx context.Context, control ElementFunc, req model.SelectionRequest) (*SelectResult, error) {
	res := &SelectResult{Native: true}
	el, err := control(ctx)
	if err != nil {
		return res, err
	}
	if res.Multiple, err = w.provider.Chooser.IsMultiple(ctx, el); err != nil {
		return res, err
	}
	if !res.Multiple && len(req) > 1 {
		w.logger.Warn().Int("values", len(req)).Msg("Control does not allow multiple selection; the last value will win")
	}

	for _, v := range req {
		if el, err = control(ctx); err != nil {
			return res, err
		}
		if err := w.provider.Chooser.SelectByText(ctx, el, v); err != nil {
			w.logger.Debug().Str("value", v).Err(err).Msg("Select by text failed, trying value")
			if err := w.provider.Chooser.SelectByValue(ctx, el, v); err != nil {
				return res, &failure.PartialOperationError{
					Operation: "select",
					Applied:   res.Applied,
					Failed:    v,
					Err:       &failure.ElementNotFoundError{What: "option", Name: v},
				}
			}
		}
		res.Applied = append(res.Applied, v)
		w.logger.Info().Str("value", v).Msg("Option selected")
		if err := wait.Settle(ctx, w.timings.Option); err != nil {
			return res, err
		}
	}

	if el, err = control(ctx); err != nil {
		return res, err
	}
	res.Selected, err = w.provider.Chooser.SelectedTexts(ctx, el)
	return res, err
}

func (w *Widgets) selectCustom(ctx context.Context, control ElementFunc, req model.SelectionRequest) (*SelectResult, error) {
	res := &SelectResult{}
	if err := w.openDropdown(ctx, control); err != nil {
		return res, err
	}

	for i, v := range req {
		if i > 0 {
			open, err := w.dropdownOpen(ctx, control)
			if err != nil {
				return res, err
			}
			if !open {
				w.logger.Debug().Str("value", v).Msg("Dropdown closed between selections, reopening")
				if err := w.openDropdown(ctx, control); err != nil {
					return res, err
				}
			}
		}

		var option platform.Element
		err := wait.Until(ctx, wait.Options{Timeout: w.timings.Dropdown, Interval: w.timings.Poll}, "option "+v, func(ctx context.Context) (bool, error) {
			el, err := w.resolver.First(ctx, nil, locator.DropdownOption(v))
			option = el
			return el != nil, err
		})
		if err != nil {
			return res, &failure.PartialOperationError{Operation: "select", Applied: res.Applied, Failed: v, Err: err}
		}
		if err := w.provider.Inputter.Click(ctx, option); err != nil {
			return res, &failure.PartialOperationError{Operation: "select", Applied: res.Applied, Failed: v, Err: err}
		}
		res.Applied = append(res.Applied, v)
		w.logger.Info().Str("value", v).Msg("Option selected")
		if err := wait.Settle(ctx, w.timings.Option); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (w *Widgets) openDropdown(ctx context.Context, control ElementFunc) error {
	el, err := control(ctx)
	if err != nil {
		return err
	}
	trigger, err := w.resolver.Resolve(ctx, el, locator.DropdownTriggers())
	if err != nil {
		return err
	}
	if trigger == nil {
		return &failure.ElementNotFoundError{What: "dropdown trigger"}
	}
	w.logger.Debug().Str("trigger", trigger.Strategy).Msg("Opening dropdown")
	if err := w.provider.Inputter.Click(ctx, trigger.Element); err != nil {
		return err
	}
	return wait.Settle(ctx, w.timings.Option)
}

// dropdownOpen reports whether an option menu is showing or the control
// says it is expanded.
func (w *Widgets) dropdownOpen(ctx context.Context, control ElementFunc) (bool, error) {
	menu, err := w.resolver.First(ctx, nil, locator.OpenDropdown())
	if err != nil {
		return false, err
	}
	if menu != nil {
		return true, nil
	}
	el, err := control(ctx)
	if err != nil {
		return false, err
	}
	expanded, _, err := w.provider.Inspector.Attribute(ctx, el, "aria-expanded")
	return expanded == "true", err
}
