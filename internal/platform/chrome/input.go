package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/mj1618/gridcheck/internal/platform"
)

// Click dispatches a real mouse click at the element's centre. Options of
// a native select cannot be clicked that way and are selected in script.
func (b *Browser) Click(ctx context.Context, el platform.Element) error {
	tag, err := b.TagName(ctx, el)
	if err != nil {
		return err
	}
	if tag == "option" {
		return b.eval(ctx, el, chooseOptionBody, nil)
	}
	r, _ := refOf(el)
	if err := b.run(ctx, chromedp.Click(r.selector(), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click %s: %w", r, err)
	}
	return nil
}

const chooseOptionBody = `
  var sel = el.closest('select');
  if (sel && !sel.multiple) { sel.value = el.value; }
  el.selected = true;
  var target = sel || el;
  target.dispatchEvent(new Event('input', {bubbles: true}));
  target.dispatchEvent(new Event('change', {bubbles: true}));
  return true;`

func (b *Browser) Type(ctx context.Context, el platform.Element, text string) error {
	if err := b.eval(ctx, el, `return true;`, nil); err != nil {
		return err
	}
	r, _ := refOf(el)
	if err := b.run(ctx, chromedp.SendKeys(r.selector(), text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to type into %s: %w", r, err)
	}
	return nil
}

func (b *Browser) Clear(ctx context.Context, el platform.Element) error {
	if err := b.eval(ctx, el, `return true;`, nil); err != nil {
		return err
	}
	r, _ := refOf(el)
	if err := b.run(ctx, chromedp.Clear(r.selector(), chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to clear %s: %w", r, err)
	}
	return nil
}

func (b *Browser) SetFiles(ctx context.Context, el platform.Element, paths []string) error {
	if err := b.eval(ctx, el, `return true;`, nil); err != nil {
		return err
	}
	r, _ := refOf(el)
	if err := b.run(ctx, chromedp.SetUploadFiles(r.selector(), paths, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to attach files to %s: %w", r, err)
	}
	return nil
}

const selectBody = `
  var want = args[0], byValue = args[1];
  var opts = el.options ? Array.prototype.slice.call(el.options) : [];
  for (var i = 0; i < opts.length; i++) {
    var o = opts[i];
    var key = byValue ? o.value : o.text.replace(/\s+/g, ' ').trim();
    if (key !== want) { continue; }
    if (!el.multiple) { el.value = o.value; }
    o.selected = true;
    el.dispatchEvent(new Event('input', {bubbles: true}));
    el.dispatchEvent(new Event('change', {bubbles: true}));
    return true;
  }
  return false;`

func (b *Browser) selectOption(ctx context.Context, el platform.Element, want string, byValue bool) error {
	var ok bool
	if err := b.eval(ctx, el, selectBody, &ok, want, byValue); err != nil {
		return err
	}
	if !ok {
		return platform.ErrNoSuchOption
	}
	return nil
}

func (b *Browser) SelectByText(ctx context.Context, el platform.Element, text string) error {
	return b.selectOption(ctx, el, text, false)
}

func (b *Browser) SelectByValue(ctx context.Context, el platform.Element, value string) error {
	return b.selectOption(ctx, el, value, true)
}

func (b *Browser) SelectedTexts(ctx context.Context, el platform.Element) ([]string, error) {
	var texts []string
	err := b.eval(ctx, el, `
  return Array.prototype.slice.call(el.selectedOptions || []).map(function(o) {
    return o.text.replace(/\s+/g, ' ').trim();
  });`, &texts)
	return texts, err
}

func (b *Browser) IsMultiple(ctx context.Context, el platform.Element) (bool, error) {
	var v bool
	err := b.eval(ctx, el, `return !!el.multiple;`, &v)
	return v, err
}
