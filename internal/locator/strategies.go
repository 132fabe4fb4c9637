package locator

import (
	"context"
	"strconv"
	"strings"

	"github.com/mj1618/gridcheck/internal/platform"
)

// Literal quotes s as an XPath string literal. Values holding both quote
// kinds are assembled with concat().
func Literal(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	var b strings.Builder
	b.WriteString("concat(")
	for i, p := range parts {
		if i > 0 {
			b.WriteString(`, "'", `)
		}
		b.WriteString("'" + p + "'")
	}
	b.WriteString(")")
	return b.String()
}

func x(name, expr string) Strategy {
	return Strategy{Name: name, Query: platform.XPath(expr)}
}

const lower = `translate(%s,'ABCDEFGHIJKLMNOPQRSTUVWXYZ','abcdefghijklmnopqrstuvwxyz')`

func lowerOf(attr string) string {
	return strings.Replace(lower, "%s", attr, 1)
}

// Enabled accepts elements the driver reports as enabled.
func Enabled(ctx context.Context, p *platform.Provider, el platform.Element) (bool, error) {
	return p.Inspector.IsEnabled(ctx, el)
}

// Numeric accepts elements whose visible text is a positive integer.
func Numeric(ctx context.Context, p *platform.Provider, el platform.Element) (bool, error) {
	text, err := p.Inspector.Text(ctx, el)
	if err != nil {
		return false, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(text))
	return err == nil && n > 0, nil
}

// PaginationContainer finds the control bar that holds page navigation.
func PaginationContainer() []Strategy {
	return []Strategy{
		x("nav-aria-label", `//nav[contains(`+lowerOf("@aria-label")+`,'pagination')]`),
		x("div-class", `//div[contains(@class,'pagination')]`),
		x("nav-class", `//nav[contains(@class,'pagination')]`),
		x("ul-class", `//ul[contains(@class,'pagination')]`),
		x("div-pager", `//div[contains(@class,'pager')]`),
		x("div-page-nav", `//div[contains(@class,'page-nav')]`),
	}
}

func stepButton(rel string, labels []string, glyphs []string) []Strategy {
	var aria, title, text []string
	for _, l := range labels {
		aria = append(aria, "contains(@aria-label,"+Literal(l)+")")
		title = append(title, "contains(@title,"+Literal(l)+")")
		text = append(text, "contains(normalize-space(.),"+Literal(l)+")")
	}
	for _, g := range glyphs {
		text = append(text, "normalize-space(.)="+Literal(g))
	}
	return []Strategy{
		x("aria-label", `.//*[self::button or self::a][`+strings.Join(aria, " or ")+`]`),
		x("title", `.//*[self::button or self::a][`+strings.Join(title, " or ")+`]`),
		x("rel", `.//a[@rel=`+Literal(rel)+`]`),
		x("class", `.//*[self::button or self::a or self::li][contains(@class,`+Literal(rel)+`)]`),
		x("text", `.//*[self::button or self::a][`+strings.Join(text, " or ")+`]`),
	}
}

// NextButton finds the forward control inside a pagination container.
func NextButton() []Strategy {
	return stepButton("next", []string{"Next", "next"}, []string{">", "›", "»"})
}

// PrevButton finds the backward control inside a pagination container.
func PrevButton() []Strategy {
	return stepButton("prev", []string{"Previous", "Prev", "previous", "prev"}, []string{"<", "‹", "«"})
}

// ActivePage finds the current-page marker inside a pagination container.
func ActivePage() []Strategy {
	return []Strategy{
		x("aria-current", `.//*[@aria-current='page']`),
		x("active-control", `.//*[self::button or self::a][contains(@class,'active') or contains(@class,'current')]`),
		x("active-item", `.//li[contains(@class,'active') or contains(@class,'current')]`),
	}
}

// PageNumber finds the numbered control for page n inside a container.
func PageNumber(n string) []Strategy {
	lit := Literal(n)
	return []Strategy{
		x("data-page", `.//*[self::button or self::a][@data-page=`+lit+`]`),
		x("aria-label", `.//*[self::button or self::a][@aria-label=`+Literal("Page "+n)+` or @aria-label=`+Literal("page "+n)+`]`),
		x("exact-text", `.//*[self::button or self::a][normalize-space(.)=`+lit+`]`),
		x("item-text", `.//li[normalize-space(.)=`+lit+`]`),
	}
}

// PageButtons finds the numbered page controls inside a container.
func PageButtons() []Strategy {
	return []Strategy{
		{Name: "numbered-control", Query: platform.XPath(`.//button | .//a`), Accept: Numeric},
		{Name: "numbered-item", Query: platform.XPath(`.//li`), Accept: Numeric},
	}
}

// LoadingIndicator finds a busy spinner anywhere on the page.
func LoadingIndicator() []Strategy {
	return []Strategy{
		x("aria-busy", `//*[@aria-busy='true']`),
		x("class", `//*[contains(@class,'loading') or contains(@class,'spinner')]`),
	}
}

// RowsPerPageControl finds the page-size selector.
func RowsPerPageControl() []Strategy {
	return []Strategy{
		x("aria-label", `//select[contains(`+lowerOf("@aria-label")+`,'per page')]`),
		x("select-id", `//select[contains(@id,'rows') or contains(@id,'page')]`),
		x("select-class", `//select[contains(@class,'page-size') or contains(@class,'rows')]`),
		x("dropdown", `//div[contains(@class,'dropdown')][contains(`+lowerOf(".")+`,'rows')]`),
	}
}

// RowsPerPageOption finds the option for n rows in an opened page-size menu.
func RowsPerPageOption(n string) []Strategy {
	lit := Literal(n)
	return []Strategy{
		x("option", `.//option[normalize-space(.)=`+lit+`]`),
		x("aria-option", `//*[@role='option'][normalize-space(.)=`+lit+`]`),
		x("item", `//li[normalize-space(.)=`+lit+`]`),
		x("option-class", `//*[contains(@class,'option')][normalize-space(.)=`+lit+`]`),
	}
}

// FileInput finds the file input associated with a visible label.
func FileInput(label string) []Strategy {
	lit := Literal(label)
	s := []Strategy{
		x("label-sibling", `//label[contains(normalize-space(.),`+lit+`)]/following-sibling::input[@type='file']`),
		x("label-parent", `//label[contains(normalize-space(.),`+lit+`)]/..//input[@type='file']`),
		x("attribute", `//input[@type='file'][contains(@aria-label,`+lit+`) or contains(@title,`+lit+`) or contains(@placeholder,`+lit+`)]`),
		x("container", `//*[self::div or self::span][contains(normalize-space(.),`+lit+`)]//input[@type='file']`),
	}
	for i := range s {
		s[i].AllowHidden = true
	}
	return s
}

// UploadError finds a displayed error message containing msg.
func UploadError(msg string) []Strategy {
	lit := Literal(msg)
	return []Strategy{
		x("aria-alert", `//*[@role='alert'][contains(normalize-space(.),`+lit+`)]`),
		x("error-class", `//*[self::div or self::span or self::p][contains(@class,'error')][contains(normalize-space(.),`+lit+`)]`),
		x("alert-class", `//div[contains(@class,'alert')][contains(normalize-space(.),`+lit+`)]`),
		x("any-text", `//*[contains(text(),`+lit+`)]`),
	}
}

// RowToggle finds a switch-like control inside a table row.
func RowToggle() []Strategy {
	return []Strategy{
		x("aria-switch", `.//*[@role='switch']`),
		x("checkbox", `.//input[@type='checkbox']`),
		x("toggle-button", `.//button[contains(@class,'toggle')]`),
		x("toggle-class", `.//*[self::div or self::span][contains(@class,'toggle')]`),
		x("switch-input", `.//input[contains(@class,'switch')]`),
		x("switch-label", `.//label[contains(@class,'switch')]`),
	}
}

func affordance(word string) []Strategy {
	lit := Literal(word)
	cls := Literal(strings.ToLower(word))
	return []Strategy{
		x("aria-label", `.//*[self::button or self::a][@aria-label=`+lit+` or @title=`+lit+`]`),
		x("icon", `.//*[self::i or self::span][contains(@class,`+cls+`)]`),
		x("button-class", `.//button[contains(@class,`+cls+`)]`),
		x("button-text", `.//button[normalize-space(.)=`+lit+`]`),
	}
}

// EditAffordance finds the control that switches a row into edit mode.
func EditAffordance() []Strategy { return affordance("Edit") }

// SaveAffordance finds the control that commits an edited row.
func SaveAffordance() []Strategy { return affordance("Save") }

// InlineField finds an editable field by its name inside a row or page.
func InlineField(name string) []Strategy {
	lit := Literal(name)
	field := `*[self::input or self::select or self::textarea]`
	return []Strategy{
		x("name", `.//`+field+`[@name=`+lit+`]`),
		x("id", `.//`+field+`[@id=`+lit+`]`),
		x("aria-label", `.//`+field+`[@aria-label=`+lit+`]`),
		x("data-field", `.//*[@data-field=`+lit+`]`),
		x("placeholder", `.//`+field+`[@placeholder=`+lit+`]`),
	}
}

// DropdownTriggers finds the clickable part of a custom dropdown, starting
// with the control itself.
func DropdownTriggers() []Strategy {
	s := []Strategy{
		x("self", `.`),
		x("button", `.//button`),
		x("toggle-class", `.//*[contains(@class,'dropdown-toggle')]`),
		x("select-span", `.//span[contains(@class,'select')]`),
		x("arrow", `.//i[contains(@class,'arrow')]`),
		x("trigger", `.//div[contains(@class,'trigger')]`),
		x("control", `.//div[contains(@class,'control')]`),
	}
	for i := range s {
		s[i].Accept = Enabled
	}
	return s
}

// OpenDropdown finds an expanded option menu anywhere on the page.
func OpenDropdown() []Strategy {
	return []Strategy{
		x("listbox", `//*[@role='listbox']`),
		x("menu-show", `//div[contains(@class,'dropdown-menu') and contains(@class,'show')]`),
		x("menu", `//ul[contains(@class,'dropdown-menu')]`),
		x("select-open", `//div[contains(@class,'select-dropdown') and contains(@class,'open')]`),
		x("options", `//*[contains(@class,'options')]`),
	}
}

// DropdownOption finds the option with visible text or value v.
func DropdownOption(v string) []Strategy {
	lit := Literal(v)
	return []Strategy{
		x("data-value", `//*[@data-value=`+lit+`]`),
		x("option", `//option[normalize-space(.)=`+lit+`]`),
		x("item", `//li[normalize-space(.)=`+lit+`]`),
		x("aria-option", `//*[@role='option'][normalize-space(.)=`+lit+`]`),
		x("div-option", `//div[contains(@class,'option')][normalize-space(.)=`+lit+`]`),
		x("span-option", `//span[contains(@class,'option')][normalize-space(.)=`+lit+`]`),
		x("dropdown-item", `//*[contains(@class,'dropdown-item')][normalize-space(.)=`+lit+`]`),
		x("mat-option", `//mat-option[normalize-space(.)=`+lit+`]`),
		x("select-option", `//*[contains(@class,'select-option')][normalize-space(.)=`+lit+`]`),
		x("link", `//a[normalize-space(.)=`+lit+`]`),
	}
}

// Calendar finds an opened date-picker popup.
func Calendar() []Strategy {
	return []Strategy{
		x("aria-dialog", `//*[@role='dialog'][contains(@class,'calendar') or contains(@class,'datepicker') or contains(@class,'date-picker')]`),
		x("div-class", `//div[contains(@class,'calendar') or contains(@class,'datepicker') or contains(@class,'date-picker')]`),
		x("table-class", `//table[contains(@class,'calendar')]`),
	}
}

// CalendarCells finds the day cells of an opened calendar.
func CalendarCells() []Strategy {
	return []Strategy{
		x("day-class", `.//*[self::td or self::button or self::span][contains(@class,'day') or contains(@class,'date')]`),
		x("grid-cell", `.//*[@role='gridcell']`),
		x("any-cell", `.//td | .//button`),
	}
}
