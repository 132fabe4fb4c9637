package platform

import (
	"errors"
	"fmt"
	"strings"
)

// QueryKind selects the query language of a Query.
type QueryKind int

const (
	ByXPath QueryKind = iota
	ByCSS
)

func (k QueryKind) String() string {
	switch k {
	case ByXPath:
		return "xpath"
	case ByCSS:
		return "css"
	default:
		return fmt.Sprintf("QueryKind(%d)", int(k))
	}
}

// Query is a structural element query.
type Query struct {
	Kind QueryKind
	Expr string
}

// XPath returns an XPath query. Relative expressions (".//td") are evaluated
// against the scope element.
func XPath(expr string) Query { return Query{Kind: ByXPath, Expr: expr} }

// CSS returns a CSS selector query.
func CSS(expr string) Query { return Query{Kind: ByCSS, Expr: expr} }

func (q Query) String() string {
	return q.Kind.String() + "=" + q.Expr
}

// ParseQuery converts a locator string into a Query. Explicit "xpath=" and
// "css=" prefixes win; otherwise expressions starting with "/", "./" or "("
// are XPath and anything else is a CSS selector.
func ParseQuery(s string) (Query, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Query{}, fmt.Errorf("empty locator")
	}
	lower := strings.ToLower(s)
	switch {
	case strings.HasPrefix(lower, "xpath="):
		return checked(XPath(strings.TrimSpace(s[len("xpath="):])))
	case strings.HasPrefix(lower, "css="):
		return checked(CSS(strings.TrimSpace(s[len("css="):])))
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "./"), strings.HasPrefix(s, "("):
		return XPath(s), nil
	default:
		return CSS(s), nil
	}
}

func checked(q Query) (Query, error) {
	if q.Expr == "" {
		return Query{}, fmt.Errorf("empty %s locator", q.Kind)
	}
	return q, nil
}

// Screenshot is a captured image of the page. Backends that cannot render
// pixels return a serialized DOM with Format "html".
type Screenshot struct {
	Data   []byte
	Format string // "png" or "html"
}

// ErrNoSuchOption is returned by Chooser when no option matches.
var ErrNoSuchOption = errors.New("no such option")

// ErrStaleElement is returned when a handle no longer refers to a node on
// the page.
var ErrStaleElement = errors.New("stale element reference")
