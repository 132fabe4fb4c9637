package widget

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
)

const dateLayout = "2006-01-02"

// DateMismatch is one calendar cell whose enablement breaks the rule.
type DateMismatch struct {
	Date     string `yaml:"date"     json:"date"`
	Enabled  bool   `yaml:"enabled"  json:"enabled"`
	Expected bool   `yaml:"expected" json:"expected"`
}

func (m DateMismatch) String() string {
	return fmt.Sprintf("%s %s, expected %s", m.Date, enabledWord(m.Enabled), enabledWord(m.Expected))
}

func enabledWord(v bool) string {
	if v {
		return "enabled"
	}
	return "disabled"
}

// DateCheck reports a date-picker validation.
type DateCheck struct {
	Rule       model.DateRule `yaml:"rule"                 json:"rule"`
	Today      string         `yaml:"today"                json:"today"`
	Checked    int            `yaml:"checked"              json:"checked"`
	Skipped    int            `yaml:"skipped"              json:"skipped"`
	Mismatches []DateMismatch `yaml:"mismatches,omitempty" json:"mismatches,omitempty"`
}

// ValidateDatePicker opens the picker if no calendar is showing and checks
// every day cell is enabled exactly when rule allows its date. Day cells are
// read as days of the reference month.
func (w *Widgets) ValidateDatePicker(ctx context.Context, picker ElementFunc, rule model.DateRule) (*DateCheck, error) {
	if _, err := model.ParseDateRule(string(rule)); err != nil {
		return nil, err
	}
	now := w.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	check := &DateCheck{Rule: rule, Today: today.Format(dateLayout)}

	cal, err := w.openCalendar(ctx, picker)
	if err != nil {
		return check, err
	}
	cells, strategy, err := w.resolver.ResolveAll(ctx, cal, locator.CalendarCells())
	if err != nil {
		return check, err
	}
	w.logger.Debug().Int("cells", len(cells)).Str("strategy", strategy).Msg("Calendar cells found")

	lastDay := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for _, cell := range cells {
		day, ok, err := w.cellDay(ctx, cell, lastDay)
		if err != nil {
			return check, err
		}
		if !ok {
			check.Skipped++
			continue
		}
		date := time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, time.UTC)
		expected := allowed(rule, date, today)
		enabled, err := w.cellEnabled(ctx, cell)
		if err != nil {
			return check, err
		}
		check.Checked++
		if enabled != expected {
			check.Mismatches = append(check.Mismatches, DateMismatch{
				Date:     date.Format(dateLayout),
				Enabled:  enabled,
				Expected: expected,
			})
		}
	}

	if len(check.Mismatches) > 0 {
		parts := make([]string, len(check.Mismatches))
		for i, m := range check.Mismatches {
			parts[i] = m.String()
		}
		return check, failure.Assertf("date-picker violates %s: %s", rule, strings.Join(parts, "; "))
	}
	w.logger.Info().Str("rule", string(rule)).Int("checked", check.Checked).Msg("Date-picker rules hold")
	return check, nil
}

func allowed(rule model.DateRule, date, today time.Time) bool {
	if rule == model.PastOnly {
		return !date.After(today)
	}
	return !date.Before(today)
}

func (w *Widgets) openCalendar(ctx context.Context, picker ElementFunc) (platform.Element, error) {
	cal, err := w.resolver.First(ctx, nil, locator.Calendar())
	if err != nil || cal != nil {
		return cal, err
	}
	el, err := picker(ctx)
	if err != nil {
		return nil, err
	}
	shown, err := w.provider.Inspector.IsDisplayed(ctx, el)
	if err != nil {
		return nil, err
	}
	if !shown {
		return nil, &failure.ElementNotFoundError{What: "visible date-picker"}
	}
	if err := w.provider.Inputter.Click(ctx, el); err != nil {
		return nil, err
	}
	if err := wait.Settle(ctx, w.timings.Picker); err != nil {
		return nil, err
	}
	cal, err = w.resolver.First(ctx, nil, locator.Calendar())
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, failure.Assertf("date-picker did not open a calendar")
	}
	return cal, nil
}

// outsideMonth marks cells that belong to the neighbouring months.
var outsideMonth = map[string]bool{
	"old": true, "new": true, "other-month": true, "outside": true, "adjacent-month": true,
}

// cellDay parses the day number of a cell, rejecting non-numeric text, days
// past the end of the month and cells of neighbouring months.
func (w *Widgets) cellDay(ctx context.Context, cell platform.Element, lastDay int) (int, bool, error) {
	text, err := w.provider.Inspector.Text(ctx, cell)
	if err != nil {
		return 0, false, err
	}
	day, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || day < 1 || day > lastDay {
		return 0, false, nil
	}
	class, _, err := w.provider.Inspector.Attribute(ctx, cell, "class")
	if err != nil {
		return 0, false, err
	}
	for _, c := range strings.Fields(class) {
		if outsideMonth[c] {
			return 0, false, nil
		}
	}
	return day, true, nil
}

func (w *Widgets) cellEnabled(ctx context.Context, cell platform.Element) (bool, error) {
	in := w.provider.Inspector
	enabled, err := in.IsEnabled(ctx, cell)
	if err != nil || !enabled {
		return false, err
	}
	class, _, err := in.Attribute(ctx, cell, "class")
	if err != nil {
		return false, err
	}
	if strings.Contains(class, "disabled") {
		return false, nil
	}
	if v, ok, err := in.Attribute(ctx, cell, "disabled"); err != nil || (ok && v != "false") {
		return false, err
	}
	if v, _, err := in.Attribute(ctx, cell, "aria-disabled"); err != nil || v == "true" {
		return false, err
	}
	cursor, err := in.CSSValue(ctx, cell, "cursor")
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(cursor) {
	case "not-allowed", "no-drop":
		return false, nil
	}
	return true, nil
}
