package model

import (
	"fmt"
	"strings"
)

// PaginationState is read from the pagination control at query time.
type PaginationState struct {
	HasNext          bool   `yaml:"has_next"     json:"has_next"`
	HasPrev          bool   `yaml:"has_prev"     json:"has_prev"`
	CurrentPageLabel string `yaml:"current_page" json:"current_page"`
}

// PagePhase names where the navigator sits in the page range.
type PagePhase string

const (
	FirstPage  PagePhase = "first"
	MiddlePage PagePhase = "middle"
	LastPage   PagePhase = "last"
	OnlyPage   PagePhase = "only"
)

// Phase derives the range position from the affordances.
func (s PaginationState) Phase() PagePhase {
	switch {
	case !s.HasPrev && !s.HasNext:
		return OnlyPage
	case !s.HasPrev:
		return FirstPage
	case !s.HasNext:
		return LastPage
	default:
		return MiddlePage
	}
}

// Mode is the inline-edit state of a row, read from the visible
// affordances each time it is needed.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	if m == Editing {
		return "editing"
	}
	return "viewing"
}

// SelectionRequest is the ordered list of values to apply to a
// multi-valued control.
type SelectionRequest []string

// ParseSelection splits a comma-separated literal, trimming each value and
// dropping empty ones.
func ParseSelection(literal string) (SelectionRequest, error) {
	var req SelectionRequest
	for _, part := range strings.Split(literal, ",") {
		if v := strings.TrimSpace(part); v != "" {
			req = append(req, v)
		}
	}
	if len(req) == 0 {
		return nil, fmt.Errorf("no values in selection %q", literal)
	}
	return req, nil
}

// DateRule constrains which calendar days may be enabled.
type DateRule string

const (
	PastOnly   DateRule = "pastOnly"
	FutureOnly DateRule = "futureOnly"
)

// ParseDateRule accepts exactly "pastOnly" or "futureOnly".
func ParseDateRule(s string) (DateRule, error) {
	switch DateRule(strings.TrimSpace(s)) {
	case PastOnly:
		return PastOnly, nil
	case FutureOnly:
		return FutureOnly, nil
	default:
		return "", fmt.Errorf("unsupported date rule %q (use pastOnly or futureOnly)", s)
	}
}

// ParseToggleState reads "ON" or "OFF" in any case.
func ParseToggleState(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return true, nil
	case "OFF":
		return false, nil
	default:
		return false, fmt.Errorf("invalid toggle state %q (use ON or OFF)", s)
	}
}

// Truthy reports whether a checkbox value literal means checked.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return true
	default:
		return false
	}
}
