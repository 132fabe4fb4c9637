package widget

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/mj1618/gridcheck/internal/failure"
	"github.com/mj1618/gridcheck/internal/locator"
	"github.com/mj1618/gridcheck/internal/model"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/wait"
)

// RowMode derives the edit state of a row from its visible affordances:
// a row is editing when Save shows and Edit does not.
func RowMode(ctx context.Context, r *locator.Resolver, row platform.Element) (model.Mode, error) {
	save, err := r.First(ctx, row, locator.SaveAffordance())
	if err != nil {
		return model.Viewing, err
	}
	edit, err := r.First(ctx, row, locator.EditAffordance())
	if err != nil {
		return model.Viewing, err
	}
	if save != nil && edit == nil {
		return model.Editing, nil
	}
	return model.Viewing, nil
}

// EditRequest describes one inline edit.
type EditRequest struct {
	Row   ElementFunc
	Field string
	// Query locates the field instead of the stock strategies when set.
	Query *platform.Query
	Value string
	// Cell reads the field's displayed value when the field itself is gone
	// after saving. Optional.
	Cell func(ctx context.Context) (string, error)
}

// EditResult reports what an edit did.
type EditResult struct {
	Entered bool        `yaml:"entered" json:"entered"`
	Kind    ControlKind `yaml:"kind"    json:"kind"`
	Actual  string      `yaml:"actual"  json:"actual"`
	// Lingering is set when the row still looked editable after saving.
	Lingering bool `yaml:"lingering" json:"lingering"`
}

// Edit puts a row into edit mode, writes the field, saves and reads the
// value back.
func (w *Widgets) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	res := &EditResult{}
	if err := w.enterEditing(ctx, req.Row, res); err != nil {
		return res, err
	}

	row, err := req.Row(ctx)
	if err != nil {
		return res, err
	}
	field, err := w.field(ctx, row, req)
	if err != nil {
		return res, err
	}
	if field == nil {
		return res, &failure.ElementNotFoundError{What: "field", Name: req.Field, Scope: "row in edit mode"}
	}
	enabled, err := w.provider.Inspector.IsEnabled(ctx, field)
	if err != nil {
		return res, err
	}
	if !enabled {
		return res, failure.Assertf("field %q is not editable", req.Field)
	}
	if res.Kind, err = w.kindOf(ctx, field); err != nil {
		return res, err
	}
	if err := w.write(ctx, field, res.Kind, req); err != nil {
		return res, err
	}

	if err := w.save(ctx, req.Row, res); err != nil {
		return res, err
	}

	if err := wait.Settle(ctx, w.timings.Verify); err != nil {
		return res, err
	}
	if res.Actual, err = w.readBack(ctx, req); err != nil {
		return res, err
	}
	want := req.Value
	if res.Kind == KindCheck {
		want = strconv.FormatBool(model.Truthy(req.Value))
	}
	if res.Actual != want {
		return res, failure.Mismatch("value of field "+strconv.Quote(req.Field), want, res.Actual)
	}
	w.logger.Info().Str("field", req.Field).Str("value", res.Actual).Msg("Field updated")
	return res, nil
}

func (w *Widgets) enterEditing(ctx context.Context, rowFn ElementFunc, res *EditResult) error {
	row, err := rowFn(ctx)
	if err != nil {
		return err
	}
	mode, err := RowMode(ctx, w.resolver, row)
	if err != nil {
		return err
	}
	if mode == model.Editing {
		w.logger.Debug().Msg("Row already in edit mode")
		return nil
	}

	edit, err := w.resolver.First(ctx, row, locator.EditAffordance())
	if err != nil {
		return err
	}
	if edit == nil {
		return &failure.ElementNotFoundError{What: "edit button", Scope: "row"}
	}
	ok, err := w.usable(ctx, edit)
	if err != nil {
		return err
	}
	if !ok {
		return &failure.ElementNotFoundError{What: "enabled edit button", Scope: "row"}
	}
	if err := w.provider.Inputter.Click(ctx, edit); err != nil {
		return err
	}
	res.Entered = true
	if err := wait.Settle(ctx, w.timings.Edit); err != nil {
		return err
	}

	if row, err = rowFn(ctx); err != nil {
		return err
	}
	if mode, err = RowMode(ctx, w.resolver, row); err != nil {
		return err
	}
	if mode != model.Editing {
		return failure.Assertf("row did not enter edit mode after clicking edit")
	}
	return nil
}

// field looks in the row first and then the whole page.
func (w *Widgets) field(ctx context.Context, row platform.Element, req EditRequest) (platform.Element, error) {
	for _, scope := range []platform.Element{row, nil} {
		var el platform.Element
		var err error
		if req.Query != nil {
			el, err = w.firstDisplayed(ctx, scope, *req.Query)
		} else {
			el, err = w.resolver.First(ctx, scope, locator.InlineField(req.Field))
		}
		if err != nil || el != nil {
			return el, err
		}
	}
	return nil, nil
}

func (w *Widgets) firstDisplayed(ctx context.Context, scope platform.Element, q platform.Query) (platform.Element, error) {
	return w.resolver.First(ctx, scope, []locator.Strategy{{Name: "repository", Query: q}})
}

func (w *Widgets) write(ctx context.Context, field platform.Element, kind ControlKind, req EditRequest) error {
	switch kind {
	case KindSelect:
		if err := w.provider.Chooser.SelectByText(ctx, field, req.Value); err != nil {
			if errors.Is(err, platform.ErrNoSuchOption) {
				return &failure.ElementNotFoundError{What: "option", Name: req.Value, Scope: "field " + req.Field}
			}
			return err
		}
	case KindCheck:
		want := model.Truthy(req.Value)
		checked, err := w.provider.Inspector.IsSelected(ctx, field)
		if err != nil {
			return err
		}
		if checked != want {
			if err := w.provider.Inputter.Click(ctx, field); err != nil {
				return err
			}
		}
	default:
		if err := w.provider.Inputter.Clear(ctx, field); err != nil {
			return err
		}
		if err := w.provider.Inputter.Type(ctx, field, req.Value); err != nil {
			return err
		}
	}
	w.logger.Debug().Str("field", req.Field).Str("kind", string(kind)).Str("value", req.Value).Msg("Field written")
	return nil
}

func (w *Widgets) save(ctx context.Context, rowFn ElementFunc, res *EditResult) error {
	row, err := rowFn(ctx)
	if err != nil {
		return err
	}
	save, err := w.resolver.First(ctx, row, locator.SaveAffordance())
	if err != nil {
		return err
	}
	if save == nil {
		return &failure.ElementNotFoundError{What: "save button", Scope: "row"}
	}
	ok, err := w.usable(ctx, save)
	if err != nil {
		return err
	}
	if !ok {
		return &failure.ElementNotFoundError{What: "enabled save button", Scope: "row"}
	}
	if err := w.provider.Inputter.Click(ctx, save); err != nil {
		return err
	}
	if err := wait.Settle(ctx, w.timings.Save); err != nil {
		return err
	}

	if row, err = rowFn(ctx); err != nil {
		return err
	}
	mode, err := RowMode(ctx, w.resolver, row)
	if err != nil {
		return err
	}
	if mode == model.Editing {
		res.Lingering = true
		w.logger.Warn().Msg("Row still appears to be in edit mode after save")
	}
	return nil
}

func (w *Widgets) readBack(ctx context.Context, req EditRequest) (string, error) {
	row, err := req.Row(ctx)
	if err != nil {
		return "", err
	}
	field, err := w.field(ctx, row, req)
	if err != nil {
		return "", err
	}
	if field == nil {
		if req.Cell != nil {
			return req.Cell(ctx)
		}
		return "", &failure.ElementNotFoundError{What: "field", Name: req.Field, Scope: "row after save"}
	}
	kind, err := w.kindOf(ctx, field)
	if err != nil {
		return "", err
	}
	return w.valueOf(ctx, field, kind)
}

func (w *Widgets) valueOf(ctx context.Context, el platform.Element, kind ControlKind) (string, error) {
	switch kind {
	case KindSelect:
		texts, err := w.provider.Chooser.SelectedTexts(ctx, el)
		if err != nil || len(texts) == 0 {
			return "", err
		}
		return strings.TrimSpace(texts[0]), nil
	case KindCheck:
		checked, err := w.provider.Inspector.IsSelected(ctx, el)
		return strconv.FormatBool(checked), err
	case KindText, KindMultiline:
		return w.provider.Inspector.Value(ctx, el)
	default:
		text, err := w.provider.Inspector.Text(ctx, el)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, nil
		}
		v, _, err := w.provider.Inspector.Attribute(ctx, el, "value")
		return v, err
	}
}
